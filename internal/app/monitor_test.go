// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motion_node/internal/config"
	"github.com/relabs-tech/motion_node/internal/imu"
	"github.com/relabs-tech/motion_node/internal/link"
	"github.com/relabs-tech/motion_node/internal/telemetry"
)

func TestFormatRecord(t *testing.T) {
	require.Equal(t, "[LABEL] WALK,1.10,0.35", FormatRecord(link.Label, []byte("WALK,1.10,0.35")))
	require.Equal(t, "[INFO ] Node:1;Sess:2;Rate:100Hz;FW:1.0.0",
		FormatRecord(link.Info, []byte("Node:1;Sess:2;Rate:100Hz;FW:1.0.0")))

	raw := telemetry.Raw(imu.Sample{Ax: 1, Az: -0.5, Gx: 12.25})
	require.Equal(t,
		"[RAW ] ax=  1.000 ay=  0.000 az= -0.500  gx=  12.250 gy=   0.000 gz=   0.000",
		FormatRecord(link.Raw, raw[:]))

	require.Contains(t, FormatRecord(link.Raw, []byte{1, 2}), "invalid")
}

func TestMonitorClientWill(t *testing.T) {
	cfg := config.Default()
	cfg.MQTT.QoS = 1
	willTopic := link.MQTTTopic(cfg.MQTT.TopicPrefix, "wrist-1", "label", "subscribe")

	opts := monitorClientOptions(cfg, "motion-monitor-test", willTopic)
	require.True(t, opts.WillEnabled)
	require.Equal(t, "motion/wrist-1/label/subscribe", opts.WillTopic)
	require.Equal(t, []byte(SubscribeOff), opts.WillPayload)
	require.True(t, opts.WillRetained)
	require.Equal(t, byte(1), opts.WillQos)
	require.Equal(t, "motion-monitor-test", opts.ClientID)
}
