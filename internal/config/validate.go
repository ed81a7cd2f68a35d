// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/motion_node/internal/control"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks the configuration and fills derived defaults.
func Validate(cfg *Config) error {
	n := &cfg.Node
	if n.ID == "" {
		return invalid("node.id is required")
	}
	switch n.Variant {
	case "wrist", "ankle":
	default:
		return invalid("node.variant must be wrist or ankle, got %q", n.Variant)
	}
	if n.WindowSize < 2 {
		return invalid("node.window_size must be >= 2, got %d", n.WindowSize)
	}
	if n.Hop < 1 || n.Hop >= n.WindowSize {
		return invalid("node.hop must be in [1, %d), got %d", n.WindowSize, n.Hop)
	}
	if !control.ValidRate(n.RateHz) {
		return invalid("node.rate_hz must be in [%d, %d], got %d", control.MinRateHz, control.MaxRateHz, n.RateHz)
	}
	switch n.Classifier {
	case "", "threshold", "intensity":
	default:
		return invalid("node.classifier must be threshold or intensity, got %q", n.Classifier)
	}
	t := n.Thresholds
	if t.StdWalkMin < 0 || t.StdRunMin < t.StdWalkMin || t.MeanRunMin < 0 {
		return invalid("node.thresholds out of order: %+v", t)
	}
	if n.IdleBackoffMS <= 0 {
		n.IdleBackoffMS = 5
	}

	s := &cfg.Sensor
	switch s.Kind {
	case "gait":
	case "mpu9250":
		if s.SPIDevice == "" || s.CSPin == "" {
			return invalid("sensor.spi_device and sensor.cs_pin are required for mpu9250")
		}
		if s.AccelRange > 3 || s.GyroRange > 3 {
			return invalid("sensor.accel_range and sensor.gyro_range must be 0..3")
		}
	default:
		return invalid("sensor.kind must be mpu9250 or gait, got %q", s.Kind)
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return invalid("mqtt.broker is required")
		}
		if cfg.MQTT.QoS > 2 {
			return invalid("mqtt.qos must be 0..2")
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = "motion"
		}
	}
	if cfg.WebSocket.Enabled && cfg.WebSocket.Listen == "" {
		return invalid("websocket.listen is required")
	}

	switch cfg.Console.Mode {
	case "", "off", "stdin":
	case "serial":
		if cfg.Console.Port == "" || cfg.Console.Baud == 0 {
			return invalid("console.port and console.baud are required for serial")
		}
	default:
		return invalid("console.mode must be off, stdin or serial, got %q", cfg.Console.Mode)
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log.level %q", cfg.Log.Level)
	}
	return nil
}
