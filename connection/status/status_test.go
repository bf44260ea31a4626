package status

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestStatus(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Status Broadcaster Suite")
}

var _ = Describe("Status Broadcaster", func() {
	var broadcaster *Broadcaster

	connected := Status{Connected: true, State: Open}

	BeforeEach(func() {
		broadcaster = NewBroadcaster()
	})

	Context("Fan-out", func() {
		When("a status is published", func() {
			It("reaches every subscriber", func() {
				first := broadcaster.Subscribe()
				second := broadcaster.Subscribe()

				broadcaster.Publish(connected)

				Eventually(first.Notify()).Should(Receive(Equal(connected)))
				Eventually(second.Notify()).Should(Receive(Equal(connected)))
			})
		})

		When("one subscriber's buffer is full", func() {
			It("does not block delivery to the others", func() {
				stuck := broadcaster.Subscribe()
				healthy := broadcaster.Subscribe()

				// overflow the stuck subscriber's buffer
				for i := 0; i < subscriptionBuffer+5; i++ {
					broadcaster.Publish(connected)
				}

				Eventually(healthy.Notify()).Should(Receive(Equal(connected)))
				Expect(len(stuck.Notify())).To(Equal(subscriptionBuffer))
			})
		})
	})

	Context("Unsubscribe", func() {
		When("a subscriber disposes its handle", func() {
			It("stops receiving updates", func() {
				sub := broadcaster.Subscribe()
				sub.Unsubscribe()

				broadcaster.Publish(connected)
				Consistently(sub.Notify()).ShouldNot(Receive())
			})

			It("is safe to dispose twice", func() {
				other := broadcaster.Subscribe()
				sub := broadcaster.Subscribe()

				sub.Unsubscribe()
				sub.Unsubscribe()

				Expect(broadcaster.NumSubscribers()).To(Equal(1))

				broadcaster.Publish(connected)
				Eventually(other.Notify()).Should(Receive(Equal(connected)))
			})
		})
	})
})
