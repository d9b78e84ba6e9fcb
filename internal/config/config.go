// Package config loads the server's YAML configuration file: logging,
// network endpoint metadata, and operator limits. The protocol timer
// constants are not configurable.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ioansiran/opcua-server/internal/log"
)

// Config is the top-level server configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// LogConfig controls internal/log.Init.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// EndpointConfig holds endpoint metadata. serve logs it at startup; no
// listener is opened on BindAddr.
type EndpointConfig struct {
	BindAddr    string `yaml:"bindAddr"`
	Application string `yaml:"applicationUri"`
}

// LimitsConfig holds operator-tunable limits. MaxBrowseResultsPerNode is the
// page size serve requests in its startup Browse check; the Browse engine
// caps every page at five references whatever is requested.
type LimitsConfig struct {
	MaxBrowseResultsPerNode uint32 `yaml:"maxBrowseResultsPerNode"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", JSON: false},
		Endpoint: EndpointConfig{
			BindAddr:    "0.0.0.0:4840",
			Application: "urn:opcua-server:Application",
		},
		Limits: LimitsConfig{MaxBrowseResultsPerNode: 5},
	}
}

// Load reads and parses a YAML configuration file, filling any field left
// zero in the file with Default's value.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Limits.MaxBrowseResultsPerNode == 0 {
		cfg.Limits.MaxBrowseResultsPerNode = 5
	}
	return cfg, nil
}

// LogLevel adapts LogConfig.Level to internal/log's Level type.
func (c *Config) LogLevel() log.Level {
	switch c.Log.Level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
