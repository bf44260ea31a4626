package store

import (
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestFileStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "File Store Suite")
}

var _ = Describe("File Store", Ordered, func() {
	var fileStore *FileStore
	var err error

	testKey := "favorite"
	testValue := "chocolate"

	Context("Round trip", func() {
		When("setting and getting a value", func() {
			var storeDir string

			BeforeEach(func() {
				storeDir = GinkgoT().TempDir()
				fileStore, err = NewFileStore(storeDir)
				Expect(err).ToNot(HaveOccurred(), "failed to initialize the store: %s", err)

				err = fileStore.Set(testKey, testValue)
			})

			It("returns what was stored", func() {
				Expect(err).ToNot(HaveOccurred(), "failed to store the value: %s", err)

				value, err := fileStore.Get(testKey)
				Expect(err).ToNot(HaveOccurred())
				Expect(value).To(Equal(testValue))
			})

			It("survives a store reopen", func() {
				reopened, err := NewFileStore(storeDir)
				Expect(err).ToNot(HaveOccurred())

				value, err := reopened.Get(testKey)
				Expect(err).ToNot(HaveOccurred())
				Expect(value).To(Equal(testValue))
			})
		})

		When("getting a key that was never set", func() {

			BeforeEach(func() {
				fileStore, _ = NewFileStore(GinkgoT().TempDir())
			})

			It("reports the key as missing", func() {
				_, err := fileStore.Get("nope")

				var keyErr *KeyNotFoundError
				Expect(errors.As(err, &keyErr)).To(BeTrue(), "expected a missing-key error, got: %v", err)
			})
		})
	})

	Context("Removal", func() {
		When("removing a stored key", func() {

			BeforeEach(func() {
				fileStore, _ = NewFileStore(GinkgoT().TempDir())
				fileStore.Set(testKey, testValue)
				err = fileStore.Remove(testKey)
			})

			It("is gone on the next get", func() {
				Expect(err).ToNot(HaveOccurred())

				_, err := fileStore.Get(testKey)
				var keyErr *KeyNotFoundError
				Expect(errors.As(err, &keyErr)).To(BeTrue())
			})
		})

		When("removing a key that was never set", func() {

			BeforeEach(func() {
				fileStore, _ = NewFileStore(GinkgoT().TempDir())
				err = fileStore.Remove("nope")
			})

			It("reports the key as missing", func() {
				var keyErr *KeyNotFoundError
				Expect(errors.As(err, &keyErr)).To(BeTrue())
			})
		})
	})
})
