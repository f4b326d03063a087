package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills in defaults for optional
// fields. It mutates cfg.
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "previewd"
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	// Source
	switch cfg.Source.Type {
	case "":
		cfg.Source.Type = "synthetic"
	case "synthetic", "rtsp":
	default:
		return fmt.Errorf("source.type must be synthetic or rtsp, got %q", cfg.Source.Type)
	}
	if cfg.Source.Width <= 0 {
		cfg.Source.Width = 640
	}
	if cfg.Source.Height <= 0 {
		cfg.Source.Height = 480
	}
	if cfg.Source.FPS <= 0 {
		cfg.Source.FPS = 15
	}
	switch cfg.Source.Pattern {
	case "":
		cfg.Source.Pattern = "gradient"
	case "gradient", "bars", "checkerboard":
	default:
		return fmt.Errorf("source.pattern must be gradient, bars, or checkerboard, got %q", cfg.Source.Pattern)
	}
	if cfg.Source.Type == "rtsp" {
		if cfg.Source.RTSP.URL == "" {
			return fmt.Errorf("source.rtsp.url is required for source.type rtsp")
		}
		if cfg.Source.RTSP.LatencyMS <= 0 {
			cfg.Source.RTSP.LatencyMS = 200
		}
	}

	// Preview
	if cfg.Preview.PoolCapacity <= 0 {
		cfg.Preview.PoolCapacity = 3
	}
	switch cfg.Preview.Transform {
	case "":
		cfg.Preview.Transform = "invert"
	case "invert", "identity":
	default:
		return fmt.Errorf("preview.transform must be invert or identity, got %q", cfg.Preview.Transform)
	}
	if cfg.Preview.JPEGQuality <= 0 || cfg.Preview.JPEGQuality > 100 {
		cfg.Preview.JPEGQuality = 80
	}

	// HTTP
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	// Telemetry
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Broker == "" {
			return fmt.Errorf("telemetry.broker is required when telemetry is enabled")
		}
		if cfg.Telemetry.ClientID == "" {
			cfg.Telemetry.ClientID = cfg.InstanceID
		}
		if cfg.Telemetry.Topic == "" {
			cfg.Telemetry.Topic = fmt.Sprintf("preview/stats/%s", cfg.InstanceID)
		}
		if cfg.Telemetry.QoS > 2 {
			return fmt.Errorf("telemetry.qos must be 0, 1, or 2, got %d", cfg.Telemetry.QoS)
		}
		if cfg.Telemetry.IntervalS <= 0 {
			cfg.Telemetry.IntervalS = 10
		}
	}

	// Logging
	switch cfg.Logging.Level {
	case "":
		cfg.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	return nil
}
