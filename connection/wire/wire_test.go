package wire

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWire(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Wire Suite")
}

var _ = Describe("Wire", func() {

	Context("Round trip", func() {
		When("encoding and decoding a typed message", func() {
			var envelope *Envelope
			var err error

			testRequest := ProxyRequest{
				Header:             Header{Type: ProxyRequestMessage, RequestId: "req-1"},
				Url:                "https://www.linkedin.com/voyager/api/me",
				Method:             "GET",
				Headers:            map[string]string{"Accept": "application/json"},
				ResponseEncoding:   EncodingText,
				IncludeCredentials: true,
			}

			BeforeEach(func() {
				raw, encodeErr := Encode(testRequest)
				Expect(encodeErr).ToNot(HaveOccurred())
				envelope, err = Decode(raw)
			})

			It("decodes without error", func() {
				Expect(err).ToNot(HaveOccurred())
			})

			It("preserves the discriminator and correlator", func() {
				Expect(envelope.Type).To(Equal(ProxyRequestMessage))
				Expect(envelope.RequestId).To(Equal("req-1"))
				Expect(envelope.Known()).To(BeTrue())
			})

			It("reproduces the type-specific fields", func() {
				var decoded ProxyRequest
				Expect(envelope.Payload(&decoded)).To(Succeed())
				Expect(decoded).To(Equal(testRequest))
			})
		})

		When("encoding a correlated request from an arbitrary payload", func() {
			var envelope *Envelope

			BeforeEach(func() {
				raw, err := EncodeRequest("profile-fetch", "req-9", map[string]any{"profileId": "abc"})
				Expect(err).ToNot(HaveOccurred())
				envelope, err = Decode(raw)
				Expect(err).ToNot(HaveOccurred())
			})

			It("folds type and requestId into the flat frame", func() {
				Expect(envelope.RequestId).To(Equal("req-9"))
				Expect(string(envelope.Type)).To(Equal("profile-fetch"))

				var fields map[string]json.RawMessage
				Expect(json.Unmarshal(envelope.Raw, &fields)).To(Succeed())
				Expect(fields).To(HaveKey("profileId"))
			})
		})
	})

	Context("Malformed input", func() {
		When("decoding garbage bytes", func() {
			It("returns a parse error instead of panicking", func() {
				_, err := Decode([]byte("{not json"))
				var parseErr *ParseError
				Expect(err).To(BeAssignableToTypeOf(parseErr))
			})
		})

		When("decoding an empty frame", func() {
			It("returns a parse error", func() {
				_, err := Decode([]byte("  "))
				Expect(err).To(HaveOccurred())
			})
		})

		When("decoding a frame without a type field", func() {
			It("returns a parse error", func() {
				_, err := Decode([]byte(`{"requestId": "1234"}`))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Context("Forward compatibility", func() {
		When("decoding a well-formed frame with an unknown type", func() {
			var envelope *Envelope
			var err error

			BeforeEach(func() {
				envelope, err = Decode([]byte(`{"type": "future-feature", "extra": 42}`))
			})

			It("is accepted by the codec", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(envelope.Known()).To(BeFalse())
			})
		})
	})
})
