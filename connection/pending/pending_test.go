package pending

import (
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

func TestPending(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pending Request Table Suite")
}

var _ = Describe("Pending Request Table", func() {
	var table *Table

	testEnvelope := &wire.Envelope{
		Header: wire.Header{Type: wire.Response, RequestId: "req-1"},
	}

	BeforeEach(func() {
		table = NewTable()
	})

	Context("Register", func() {
		When("registering a fresh id", func() {
			It("creates a pending entry", func() {
				_, err := table.Register("req-1", time.Minute)
				Expect(err).ToNot(HaveOccurred())
				Expect(table.Len()).To(Equal(1))
			})
		})

		When("registering a duplicate id", func() {
			It("fails with a duplicate id error", func() {
				_, err := table.Register("req-1", time.Minute)
				Expect(err).ToNot(HaveOccurred())

				_, err = table.Register("req-1", time.Minute)
				var dupErr *DuplicateIdError
				Expect(err).To(BeAssignableToTypeOf(dupErr))
			})
		})
	})

	Context("Resolve", func() {
		When("a correlated response arrives", func() {
			It("delivers it to the awaiting caller and removes the entry", func() {
				result, _ := table.Register("req-1", time.Minute)

				Expect(table.Resolve("req-1", testEnvelope)).To(BeTrue())
				Expect(table.Len()).To(Equal(0))

				var response Response
				Eventually(result).Should(Receive(&response))
				Expect(response.Err).ToNot(HaveOccurred())
				Expect(response.Envelope).To(Equal(testEnvelope))
			})
		})

		When("a response arrives for an unknown id", func() {
			It("is a no-op", func() {
				Expect(table.Resolve("never-sent", testEnvelope)).To(BeFalse())
			})
		})

		When("a response arrives twice for the same id", func() {
			It("delivers only the first", func() {
				result, _ := table.Register("req-1", time.Minute)

				Expect(table.Resolve("req-1", testEnvelope)).To(BeTrue())
				Expect(table.Resolve("req-1", testEnvelope)).To(BeFalse())
				Eventually(result).Should(Receive())
			})
		})
	})

	Context("Timeout", func() {
		When("no response arrives within the timeout", func() {
			It("rejects the caller and removes the entry", func() {
				result, _ := table.Register("req-1", 50*time.Millisecond)

				var response Response
				Eventually(result, time.Second).Should(Receive(&response))

				var timeoutErr *TimeoutError
				Expect(response.Err).To(BeAssignableToTypeOf(timeoutErr))
				Expect(table.Len()).To(Equal(0))
			})
		})

		When("a response and the timeout race", func() {
			It("the loser becomes a no-op", func() {
				result, _ := table.Register("req-1", 20*time.Millisecond)

				resolved := table.Resolve("req-1", testEnvelope)
				time.Sleep(100 * time.Millisecond)

				// whichever side lost, exactly one result was delivered
				var response Response
				Eventually(result).Should(Receive(&response))
				Consistently(result).ShouldNot(Receive())

				if resolved {
					Expect(response.Err).ToNot(HaveOccurred())
				} else {
					Expect(response.Err).To(HaveOccurred())
				}
			})
		})
	})

	Context("RejectAll", func() {
		When("the connection is torn down with requests in flight", func() {
			It("rejects every entry exactly once and empties the table", func() {
				first, _ := table.Register("req-1", time.Minute)
				second, _ := table.Register("req-2", time.Minute)

				closedErr := fmt.Errorf("connection closed")
				table.RejectAll(closedErr)

				Expect(table.IsEmpty()).To(BeTrue())

				for _, result := range []<-chan Response{first, second} {
					var response Response
					Eventually(result).Should(Receive(&response))
					Expect(response.Err).To(MatchError(closedErr))
				}
			})
		})
	})
})
