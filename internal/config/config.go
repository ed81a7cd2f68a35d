// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/motion_node/internal/classify"
)

// Config holds all application configuration values.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Sensor    SensorConfig    `yaml:"sensor"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Console   ConsoleConfig   `yaml:"console"`
	Log       LogConfig       `yaml:"log"`
}

// NodeConfig is the pipeline tuning.
type NodeConfig struct {
	ID         string `yaml:"id"`
	Firmware   string `yaml:"firmware"`
	Variant    string `yaml:"variant"` // wrist, ankle
	WindowSize int    `yaml:"window_size"`
	Hop        int    `yaml:"hop"`
	RateHz     int    `yaml:"rate_hz"`

	Classifier string              `yaml:"classifier"` // threshold, intensity; empty picks by variant
	Thresholds classify.Thresholds `yaml:"thresholds"`

	// AutoStartOnSubscribe defaults to true for wrist and false for ankle.
	AutoStartOnSubscribe *bool `yaml:"auto_start_on_subscribe"`
	RawAutoOff           bool  `yaml:"raw_auto_off"`
	IdleBackoffMS        int   `yaml:"idle_backoff_ms"`
}

// AutoStart resolves AutoStartOnSubscribe against the variant default.
func (n NodeConfig) AutoStart() bool {
	if n.AutoStartOnSubscribe != nil {
		return *n.AutoStartOnSubscribe
	}
	return n.Variant == "wrist"
}

// SensorConfig selects the sample source.
type SensorConfig struct {
	Kind string `yaml:"kind"` // mpu9250, gait

	SPIDevice  string `yaml:"spi_device"`
	CSPin      string `yaml:"cs_pin"`
	AccelRange byte   `yaml:"accel_range"` // 0..3 -> ±2/4/8/16 g
	GyroRange  byte   `yaml:"gyro_range"`  // 0..3 -> ±250/500/1000/2000 deg/s

	Gait GaitConfig `yaml:"gait"`
}

// GaitConfig tunes the synthetic source.
type GaitConfig struct {
	PhaseSeconds  int     `yaml:"phase_seconds"`
	NotReadyEvery int     `yaml:"not_ready_every"`
	Noise         float64 `yaml:"noise"`
	Seed          int64   `yaml:"seed"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"` // empty generates one
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// WebSocketConfig contains the debug server settings.
type WebSocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ConsoleConfig selects the line console.
type ConsoleConfig struct {
	Mode string `yaml:"mode"` // off, stdin, serial
	Port string `yaml:"port"`
	Baud uint   `yaml:"baud"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

// Default returns a configuration that runs the wrist node on the
// synthetic source with the websocket server enabled.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:            "1",
			Firmware:      "1.0.0",
			Variant:       "wrist",
			WindowSize:    100,
			Hop:           25,
			RateHz:        100,
			Thresholds:    classify.DefaultThresholds(),
			IdleBackoffMS: 5,
		},
		Sensor: SensorConfig{
			Kind:      "gait",
			SPIDevice: "/dev/spidev0.0",
			CSPin:     "GPIO8",
			Gait:      GaitConfig{PhaseSeconds: 10, Noise: 0.01},
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "motion",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Console: ConsoleConfig{
			Mode: "off",
			Port: "/dev/serial0",
			Baud: 115200,
		},
		Log: LogConfig{Level: "info"},
	}
}

// global holds the process-wide configuration.
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a YAML file over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitGlobal loads the config file once; later calls are no-ops and return
// the first error.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// SetGlobal installs cfg as the global configuration.
func SetGlobal(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = cfg
}

// Get returns the global configuration instance.
// InitGlobal or SetGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
