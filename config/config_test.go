package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", Ordered, func() {
	var path string

	writeConfig := func(contents string) {
		path = filepath.Join(GinkgoT().TempDir(), "gateway.yml")
		Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())
	}

	Context("Loading", func() {
		When("the file sets some keys and omits the rest", func() {
			var config *Config
			var err error

			BeforeEach(func() {
				writeConfig("serverUrl: wss://gateway.example.com\npingInterval: 5s\n")
				config, err = Load(path)
			})

			It("keeps defaults for everything the file omits", func() {
				Expect(err).ToNot(HaveOccurred(), "config failed to load: %s", err)
				Expect(config.ServerUrl).To(Equal("wss://gateway.example.com"))
				Expect(config.PingInterval).To(Equal(5 * time.Second))
				Expect(config.PongTimeout).To(Equal(10*time.Second), "omitted keys should keep their defaults")
				Expect(config.LogLevel).To(Equal("info"))
			})
		})

		When("the file does not exist", func() {
			var err error

			BeforeEach(func() {
				_, err = Load(filepath.Join(GinkgoT().TempDir(), "never-written.yml"))
			})

			It("fails validation rather than file reading", func() {
				Expect(err).To(MatchError(ContainSubstring("serverUrl is required")))
			})
		})

		When("the file is malformed", func() {
			var err error

			BeforeEach(func() {
				writeConfig("serverUrl: [this is: not yaml")
				_, err = Load(path)
			})

			It("refuses to load", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Context("Environment overrides", func() {
		When("an env var shadows a file key", func() {
			var config *Config
			var err error

			BeforeEach(func() {
				writeConfig("serverUrl: wss://from-file.example.com\n")
				os.Setenv("GATEWAY_SERVER_URL", "wss://from-env.example.com")
				os.Setenv("GATEWAY_PONG_TIMEOUT", "3s")

				config, err = Load(path)
			})

			AfterEach(func() {
				os.Unsetenv("GATEWAY_SERVER_URL")
				os.Unsetenv("GATEWAY_PONG_TIMEOUT")
			})

			It("the environment wins", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(config.ServerUrl).To(Equal("wss://from-env.example.com"))
				Expect(config.PongTimeout).To(Equal(3 * time.Second))
			})
		})

		When("an env var holds an unparseable duration", func() {
			var err error

			BeforeEach(func() {
				writeConfig("serverUrl: wss://gateway.example.com\n")
				os.Setenv("GATEWAY_PING_INTERVAL", "not a duration")
				_, err = Load(path)
			})

			AfterEach(func() {
				os.Unsetenv("GATEWAY_PING_INTERVAL")
			})

			It("refuses to load", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Context("Validation", func() {
		When("the reconnect delays are inverted", func() {
			var err error

			BeforeEach(func() {
				writeConfig("serverUrl: wss://gateway.example.com\nreconnectInitialDelay: 1m\nreconnectMaxDelay: 1s\n")
				_, err = Load(path)
			})

			It("refuses to load", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
