// Package config loads and validates the previewd YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete previewd configuration.
type Config struct {
	InstanceID       string          `yaml:"instance_id"`
	ShutdownTimeoutS int             `yaml:"shutdown_timeout_s"`
	Source           SourceConfig    `yaml:"source"`
	Preview          PreviewConfig   `yaml:"preview"`
	HTTP             HTTPConfig      `yaml:"http"`
	Telemetry        TelemetryConfig `yaml:"telemetry"`
	Logging          LoggingConfig   `yaml:"logging"`
}

// SourceConfig selects and tunes the frame source.
type SourceConfig struct {
	Type    string     `yaml:"type"`    // synthetic, rtsp
	Width   int        `yaml:"width"`   // frame width in pixels
	Height  int        `yaml:"height"`  // frame height in pixels
	FPS     int        `yaml:"fps"`     // target frame rate
	Pattern string     `yaml:"pattern"` // synthetic only: gradient, bars, checkerboard
	RTSP    RTSPConfig `yaml:"rtsp"`
}

// RTSPConfig contains camera settings for source type "rtsp".
type RTSPConfig struct {
	URL       string `yaml:"url"`
	LatencyMS int    `yaml:"latency_ms"`
}

// PreviewConfig tunes the frame-buffer pipeline.
type PreviewConfig struct {
	PoolCapacity int    `yaml:"pool_capacity"`
	Transform    string `yaml:"transform"` // invert, identity
	JPEGQuality  int    `yaml:"jpeg_quality"`
}

// HTTPConfig contains the HTTP listener settings (MJPEG stream + health).
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// TelemetryConfig contains MQTT stats publishing settings.
type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
	IntervalS int    `yaml:"interval_s"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is given: synthetic
// gradient source, invert transform, HTTP on :8080, telemetry off.
func Default() *Config {
	return &Config{
		InstanceID:       "previewd",
		ShutdownTimeoutS: 5,
		Source: SourceConfig{
			Type:    "synthetic",
			Width:   640,
			Height:  480,
			FPS:     15,
			Pattern: "gradient",
		},
		Preview: PreviewConfig{
			PoolCapacity: 3,
			Transform:    "invert",
			JPEGQuality:  80,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
