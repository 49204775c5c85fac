package kioskbridge

import (
	"github.com/ghalamif/kioskbridge/internal/app/config"
	"github.com/ghalamif/kioskbridge/internal/app/supervisor"
	"github.com/ghalamif/kioskbridge/internal/logger"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// BridgeConfig selects the protocol, endpoint and topics.
	BridgeConfig = config.BridgeConfig
	// ReconnectPolicy controls the delay between reconnect attempts.
	ReconnectPolicy = supervisor.Policy
	// PlaybackConfig names default assets and surface backends.
	PlaybackConfig = config.PlaybackConfig
	// ResolverConfig selects where signal keys are looked up.
	ResolverConfig = config.ResolverConfig
	SettingsConfig = config.SettingsConfig
	QueueConfig    = config.QueueConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	LoggingConfig = logger.Config
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
