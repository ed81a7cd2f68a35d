// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.True(t, cfg.Node.AutoStart())
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSampleConfigShowsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "motion_node.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node:
  id: ankle-2
  variant: ankle
  window_size: 50
  hop: 10
  rate_hz: 50
  thresholds:
    std_run_min: 0.8
sensor:
  kind: mpu9250
  spi_device: /dev/spidev0.1
  cs_pin: GPIO7
  accel_range: 2
mqtt:
  enabled: true
  broker: tcp://broker:1883
  topic_prefix: ""
console:
  mode: serial
  port: /dev/ttyUSB0
  baud: 9600
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ankle-2", cfg.Node.ID)
	require.Equal(t, "ankle", cfg.Node.Variant)
	require.Equal(t, 50, cfg.Node.WindowSize)
	require.Equal(t, 10, cfg.Node.Hop)
	require.Equal(t, 0.8, cfg.Node.Thresholds.StdRunMin)
	require.Equal(t, 0.20, cfg.Node.Thresholds.StdWalkMin, "unset thresholds keep defaults")
	require.False(t, cfg.Node.AutoStart())
	require.Equal(t, byte(2), cfg.Sensor.AccelRange)
	require.Equal(t, "GPIO7", cfg.Sensor.CSPin)
	require.Equal(t, "motion", cfg.MQTT.TopicPrefix)
	require.Equal(t, uint(9600), cfg.Console.Baud)
	require.Equal(t, "1.0.0", cfg.Node.Firmware)
}

func TestAutoStartOverride(t *testing.T) {
	cfg, err := Parse([]byte("node:\n  auto_start_on_subscribe: false\n"))
	require.NoError(t, err)
	require.False(t, cfg.Node.AutoStart())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("node:\n  windw_size: 10\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"variant":    "node:\n  variant: hip\n",
		"window":     "node:\n  window_size: 1\n  hop: 1\n",
		"hop":        "node:\n  hop: 100\n",
		"rate low":   "node:\n  rate_hz: 24\n",
		"rate high":  "node:\n  rate_hz: 201\n",
		"classifier": "node:\n  classifier: knn\n",
		"thresholds": "node:\n  thresholds:\n    std_run_min: 0.1\n",
		"sensor":     "sensor:\n  kind: bmi270\n",
		"spi":        "sensor:\n  kind: mpu9250\n  spi_device: \"\"\n",
		"range":      "sensor:\n  kind: mpu9250\n  gyro_range: 4\n",
		"broker":     "mqtt:\n  enabled: true\n  broker: \"\"\n",
		"qos":        "mqtt:\n  enabled: true\n  qos: 3\n",
		"listen":     "websocket:\n  listen: \"\"\n",
		"console":    "console:\n  mode: usb\n",
		"serial":     "console:\n  mode: serial\n  baud: 0\n",
		"level":      "log:\n  level: loud\n",
		"id":         "node:\n  id: \"\"\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestGlobal(t *testing.T) {
	cfg := Default()
	SetGlobal(cfg)
	require.Same(t, cfg, Get())
}
