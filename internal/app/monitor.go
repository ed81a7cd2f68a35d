// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/motion_node/internal/config"
	"github.com/relabs-tech/motion_node/internal/link"
	"github.com/relabs-tech/motion_node/internal/telemetry"
)

// MonitorOptions selects what the monitor subscribes to and sends.
type MonitorOptions struct {
	NodeID string
	Raw    bool     // also subscribe to RAW
	Send   []string // CONTROL commands published after subscribing
}

// RunMonitor connects to the node's MQTT broker, registers as a LABEL
// (and optionally RAW) subscriber and prints every record to out until ctx
// is done. Intents are retained so a restarted node sees them; on exit, or
// through the broker's will on a lost connection, they are withdrawn.
func RunMonitor(ctx context.Context, cfg *config.Config, opts MonitorOptions, out io.Writer, logger *zap.Logger) error {
	logger = logger.Named("monitor")
	if opts.NodeID == "" {
		opts.NodeID = cfg.Node.ID
	}
	topic := func(parts ...string) string {
		return link.MQTTTopic(cfg.MQTT.TopicPrefix, opts.NodeID, parts...)
	}
	qos := cfg.MQTT.QoS

	clientID := "motion-monitor-" + uuid.NewString()[:8]
	client, err := connectMonitor(cfg, clientID, topic(link.Label.String(), "subscribe"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	logger.Info("connected", zap.String("broker", cfg.MQTT.Broker), zap.String("node_id", opts.NodeID))

	channels := []link.Channel{link.Info, link.Label}
	if opts.Raw {
		channels = append(channels, link.Raw)
	}
	for _, ch := range channels {
		token := client.Subscribe(topic(ch.String()), qos, func(_ mqtt.Client, msg mqtt.Message) {
			fmt.Fprintln(out, FormatRecord(ch, msg.Payload()))
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("monitor subscribe %s: %w", ch, token.Error())
		}
	}

	// Each subscription intent is held by a connection whose will withdraws
	// it, so a monitor that dies still detaches.
	holders := map[link.Channel]mqtt.Client{link.Label: client}
	if opts.Raw {
		rawClient, err := connectMonitor(cfg, clientID+"-raw", topic(link.Raw.String(), "subscribe"))
		if err != nil {
			return err
		}
		defer rawClient.Disconnect(250)
		holders[link.Raw] = rawClient
	}
	for ch, c := range holders {
		c.Publish(topic(ch.String(), "subscribe"), qos, true, SubscribeOn).Wait()
	}
	defer func() {
		for ch, c := range holders {
			c.Publish(topic(ch.String(), "subscribe"), qos, true, SubscribeOff).WaitTimeout(time.Second)
		}
	}()

	for _, cmd := range opts.Send {
		token := client.Publish(topic(link.Control.String()), qos, false, cmd)
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("monitor send %q: %w", cmd, token.Error())
		}
		logger.Info("command sent", zap.String("command", cmd))
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// Subscription intent payloads on <prefix>/<node>/<channel>/subscribe.
const (
	SubscribeOn  = "1"
	SubscribeOff = "0"
)

// monitorClientOptions sets a retained "0" will on willTopic so the broker
// withdraws the intent if the connection is lost.
func monitorClientOptions(cfg *config.Config, clientID, willTopic string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(clientID).
		SetKeepAlive(10*time.Second).
		SetWill(willTopic, SubscribeOff, cfg.MQTT.QoS, true)
}

func connectMonitor(cfg *config.Config, clientID, willTopic string) (mqtt.Client, error) {
	client := mqtt.NewClient(monitorClientOptions(cfg, clientID, willTopic))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("monitor connect %s: %w", cfg.MQTT.Broker, token.Error())
	}
	return client, nil
}

// FormatRecord renders one notification or INFO value for a terminal.
func FormatRecord(ch link.Channel, payload []byte) string {
	switch ch {
	case link.Raw:
		s, err := telemetry.DecodeRaw(payload)
		if err != nil {
			return fmt.Sprintf("[RAW ] invalid: %v", err)
		}
		return fmt.Sprintf("[RAW ] ax=%7.3f ay=%7.3f az=%7.3f  gx=%8.3f gy=%8.3f gz=%8.3f",
			s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz)
	case link.Label:
		return "[" + strings.ToUpper(ch.String()) + "] " + string(payload)
	default:
		return "[" + strings.ToUpper(ch.String()) + " ] " + string(payload)
	}
}
