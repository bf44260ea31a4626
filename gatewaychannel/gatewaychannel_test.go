package gatewaychannel

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/vcentea/linkedin-gateway-sub000/connection"
	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
	"github.com/vcentea/linkedin-gateway-sub000/logger"
)

func TestGatewayChannel(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Gateway Channel Suite")
}

type fakeExecutor struct {
	executed chan wire.ProxyRequest
	response wire.ProxyResponse
}

func (f *fakeExecutor) Execute(ctx context.Context, request wire.ProxyRequest) wire.ProxyResponse {
	f.executed <- request
	response := f.response
	response.RequestId = request.CorrelationId()
	return response
}

type fakeIdentity struct {
	instanceId string
	user       string
}

func (f *fakeIdentity) InstanceId(ctx context.Context) (string, error) { return f.instanceId, nil }
func (f *fakeIdentity) CurrentUser() string                            { return f.user }

var _ = Describe("Gateway Channel", Ordered, func() {
	var channel *GatewayChannel
	var mockConn *connection.MockConnection
	var executor *fakeExecutor
	var doneChan chan struct{}
	var sent chan wire.Message

	logger := logger.MockLogger(GinkgoWriter)
	identity := &fakeIdentity{instanceId: "instance-1", user: "someone@example.com"}

	setupHappyConnection := func() {
		doneChan = make(chan struct{})
		sent = make(chan wire.Message, 8)

		mockConn = &connection.MockConnection{}
		mockConn.On("Subscribe", mock.Anything, mock.Anything).Return()
		mockConn.On("Send", mock.Anything).Run(func(args mock.Arguments) {
			sent <- args.Get(0).(wire.Message)
		}).Return(nil)
		mockConn.On("Done").Return(doneChan)
		mockConn.On("Err").Return(fmt.Errorf("closed"))

		executor = &fakeExecutor{executed: make(chan wire.ProxyRequest, 1)}
		channel = Start(logger, "gateway", mockConn, executor, identity)
	}

	decodeEnvelope := func(frame string) wire.Envelope {
		envelope, err := wire.Decode([]byte(frame))
		Expect(err).ToNot(HaveOccurred())
		return *envelope
	}

	Context("Proxy instructions", func() {
		When("a well-formed proxy request arrives", func() {

			BeforeEach(func() {
				setupHappyConnection()
				executor.response = wire.ProxyResponse{
					Header:     wire.Header{Type: wire.ProxyResponseMessage},
					StatusCode: 200,
				}

				channel.Receive(decodeEnvelope(`{"type": "proxy-request", "requestId": "px-1", "url": "https://example.com", "method": "GET"}`))
			})

			AfterEach(func() {
				channel.Close(fmt.Errorf("test over"))
			})

			It("executes it and answers with a correlated response", func() {
				var request wire.ProxyRequest
				Eventually(executor.executed, time.Second).Should(Receive(&request))
				Expect(request.Url).To(Equal("https://example.com"))

				var message wire.Message
				Eventually(sent, time.Second).Should(Receive(&message))

				response, ok := message.(wire.ProxyResponse)
				Expect(ok).To(BeTrue())
				Expect(response.RequestId).To(Equal("px-1"))
				Expect(response.StatusCode).To(Equal(200))
			})
		})

		When("a malformed proxy request arrives", func() {

			BeforeEach(func() {
				setupHappyConnection()
				channel.Receive(decodeEnvelope(`{"type": "proxy-request", "requestId": "px-2", "includeCredentials": "not a bool"}`))
			})

			AfterEach(func() {
				channel.Close(fmt.Errorf("test over"))
			})

			It("still answers, with an error payload", func() {
				var message wire.Message
				Eventually(sent, time.Second).Should(Receive(&message))

				response, ok := message.(wire.ProxyResponse)
				Expect(ok).To(BeTrue())
				Expect(response.RequestId).To(Equal("px-2"))
				Expect(response.Error).ToNot(BeEmpty())
			})
		})
	})

	Context("Session refresh", func() {
		When("the backend asks for a refresh", func() {

			BeforeEach(func() {
				setupHappyConnection()
				channel.Receive(decodeEnvelope(`{"type": "session-refresh", "requestId": "sr-1"}`))
			})

			AfterEach(func() {
				channel.Close(fmt.Errorf("test over"))
			})

			It("replies with our current identity", func() {
				var message wire.Message
				Eventually(sent, time.Second).Should(Receive(&message))

				info, ok := message.(wire.SessionInfoMessage)
				Expect(ok).To(BeTrue())
				Expect(info.RequestId).To(Equal("sr-1"))
				Expect(info.InstanceId).To(Equal("instance-1"))
				Expect(info.ActingUser).To(Equal("someone@example.com"))
			})
		})
	})

	Context("Notifications and unknowns", func() {
		When("a notification and an unrecognized type arrive", func() {

			BeforeEach(func() {
				setupHappyConnection()
				channel.Receive(decodeEnvelope(`{"type": "notification", "level": "warn", "message": "maintenance soon"}`))
				channel.Receive(decodeEnvelope(`{"type": "something-new", "requestId": "x"}`))
			})

			AfterEach(func() {
				channel.Close(fmt.Errorf("test over"))
			})

			It("neither produces outbound traffic nor dies", func() {
				Consistently(sent, 200*time.Millisecond).ShouldNot(Receive())
				Consistently(channel.Done(), 200*time.Millisecond).ShouldNot(BeClosed())
			})
		})
	})

	Context("Shutdown", func() {
		When("the connection dies underneath the channel", func() {

			BeforeEach(func() {
				setupHappyConnection()
				close(doneChan)
			})

			It("shuts the channel down", func() {
				Eventually(channel.Done(), time.Second).Should(BeClosed())
			})
		})

		When("it is closed from above", func() {

			BeforeEach(func() {
				setupHappyConnection()
				channel.Close(fmt.Errorf("felt like it"))
			})

			It("dies", func() {
				Eventually(channel.Done(), time.Second).Should(BeClosed())
			})
		})
	})
})
