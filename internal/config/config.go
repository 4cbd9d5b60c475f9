package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the bridge configuration. A loaded Config is immutable;
// reload builds a fresh one and swaps it into the Store.
type Config struct {
	// Logging configuration
	LogLevel string `yaml:"log_level"`

	// AMQP connection and publish target
	AMQP AMQPConfig `yaml:"amqp"`

	// Per-category publish switches
	Publish PublishConfig `yaml:"publish"`

	// Event filtering
	Filters FilterConfig `yaml:"filters"`
}

// AMQPConfig names the connection and exchange to publish on, and
// declares the available named connections.
type AMQPConfig struct {
	// Name of the connection to publish on; unset is a publish-time
	// configuration error, not a load error
	Connection string `yaml:"connection"`

	// Exchange to publish to; same error semantics as Connection
	Exchange string `yaml:"exchange"`

	// Named connections, the amqp.conf analogue
	Connections map[string]ConnectionConfig `yaml:"connections"`
}

// ConnectionConfig describes one named broker connection.
type ConnectionConfig struct {
	URL string `yaml:"url"`
}

// PublishConfig gates the two always-on subscriptions. Both default to
// true.
type PublishConfig struct {
	AMIEvents     bool `yaml:"ami_events"`
	ChannelEvents bool `yaml:"channel_events"`
}

// FilterConfig contains event filtering options
type FilterConfig struct {
	// Event names that are never published (empty means exclude nothing)
	ExcludeEvents []string `yaml:"exclude_events"`

	// Variable names allowed through for ChannelVarset events (empty
	// means include all)
	IncludeChannelVarsetEvents []string `yaml:"include_channelvarset_events"`
}

// fileConfig mirrors Config for YAML decoding; the publish switches are
// pointers so that an absent key can default to true.
type fileConfig struct {
	LogLevel string     `yaml:"log_level"`
	AMQP     AMQPConfig `yaml:"amqp"`
	Publish  struct {
		AMIEvents     *bool `yaml:"ami_events"`
		ChannelEvents *bool `yaml:"channel_events"`
	} `yaml:"publish"`
	Filters FilterConfig `yaml:"filters"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	for name, conn := range c.AMQP.Connections {
		if name == "" {
			return fmt.Errorf("connection with empty name declared")
		}
		if conn.URL == "" {
			return fmt.Errorf("connection %q requires a url", name)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg := &Config{
		LogLevel: raw.LogLevel,
		AMQP:     raw.AMQP,
		Publish: PublishConfig{
			AMIEvents:     raw.Publish.AMIEvents == nil || *raw.Publish.AMIEvents,
			ChannelEvents: raw.Publish.ChannelEvents == nil || *raw.Publish.ChannelEvents,
		},
		Filters: raw.Filters,
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables with
// defaults. List values are comma-separated.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		AMQP: AMQPConfig{
			Connection:  os.Getenv("AMQP_CONNECTION"),
			Exchange:    os.Getenv("AMQP_EXCHANGE"),
			Connections: connectionsFromEnv(),
		},
		Publish: PublishConfig{
			AMIEvents:     parseBoolEnv("PUBLISH_AMI_EVENTS", true),
			ChannelEvents: parseBoolEnv("PUBLISH_CHANNEL_EVENTS", true),
		},
		Filters: FilterConfig{
			ExcludeEvents:              parseStringSliceEnv("EXCLUDE_EVENTS"),
			IncludeChannelVarsetEvents: parseStringSliceEnv("INCLUDE_CHANNELVARSET_EVENTS"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// connectionsFromEnv exposes a single "default" connection when AMQP_URL
// is set; the file format is needed for more than one.
func connectionsFromEnv() map[string]ConnectionConfig {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		return nil
	}
	return map[string]ConnectionConfig{
		"default": {URL: url},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	// A lone AMQP_URL implies the default connection name.
	if cfg.AMQP.Connection == "" {
		if _, ok := cfg.AMQP.Connections["default"]; ok {
			cfg.AMQP.Connection = "default"
		}
	}
}

// Helper functions for parsing environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseStringSliceEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}
