package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Every key can be overridden by an environment variable named
// GATEWAY_<UPPER_SNAKE_KEY>, which wins over the file
const envPrefix = "GATEWAY_"

type Config struct {
	ServerUrl string `yaml:"serverUrl"`

	LogLevel    string `yaml:"logLevel"`
	LogFilePath string `yaml:"logFilePath"`

	StorageDir string `yaml:"storageDir"`

	PingInterval   time.Duration `yaml:"pingInterval"`
	PongTimeout    time.Duration `yaml:"pongTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	ReconnectInitialDelay time.Duration `yaml:"reconnectInitialDelay"`
	ReconnectMaxDelay     time.Duration `yaml:"reconnectMaxDelay"`
	ReconnectMaxAttempts  int           `yaml:"reconnectMaxAttempts"`
}

func defaults() *Config {
	return &Config{
		LogLevel:              "info",
		StorageDir:            ".gateway",
		PingInterval:          30 * time.Second,
		PongTimeout:           10 * time.Second,
		RequestTimeout:        30 * time.Second,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     time.Minute,
		ReconnectMaxAttempts:  0, // retry forever
	}
}

// Load builds the config in three layers: defaults, then the yaml file, then
// environment overrides. A missing file is fine; a malformed one is not.
func Load(path string) (*Config, error) {
	config := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(envPrefix + "SERVER_URL"); ok {
		c.ServerUrl = v
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_FILE_PATH"); ok {
		c.LogFilePath = v
	}
	if v, ok := os.LookupEnv(envPrefix + "STORAGE_DIR"); ok {
		c.StorageDir = v
	}

	durations := map[string]*time.Duration{
		"PING_INTERVAL":           &c.PingInterval,
		"PONG_TIMEOUT":            &c.PongTimeout,
		"REQUEST_TIMEOUT":         &c.RequestTimeout,
		"RECONNECT_INITIAL_DELAY": &c.ReconnectInitialDelay,
		"RECONNECT_MAX_DELAY":     &c.ReconnectMaxDelay,
	}
	for key, target := range durations {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration in %s%s: %w", envPrefix, key, err)
			}
			*target = d
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "RECONNECT_MAX_ATTEMPTS"); ok {
		var attempts int
		if _, err := fmt.Sscanf(v, "%d", &attempts); err != nil {
			return fmt.Errorf("invalid integer in %sRECONNECT_MAX_ATTEMPTS: %w", envPrefix, err)
		}
		c.ReconnectMaxAttempts = attempts
	}

	return nil
}

func (c *Config) validate() error {
	if c.ServerUrl == "" {
		return fmt.Errorf("serverUrl is required")
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("pingInterval must be positive")
	}
	if c.PongTimeout <= 0 {
		return fmt.Errorf("pongTimeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive")
	}
	if c.ReconnectInitialDelay <= 0 || c.ReconnectMaxDelay < c.ReconnectInitialDelay {
		return fmt.Errorf("reconnect delays must be positive and maxDelay must not be below initialDelay")
	}
	if c.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("reconnectMaxAttempts must not be negative")
	}
	return nil
}
