// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTOptions configures the MQTT transport.
//
// Topic layout under <prefix>/<node>:
//
//	control            inbound CONTROL writes
//	raw, label         notifications
//	raw/subscribe      "1" / "0" from a consumer, like a CCCD write
//	label/subscribe
//	info               retained INFO value
type MQTTOptions struct {
	Broker         string
	ClientID       string
	TopicPrefix    string
	NodeID         string
	QoS            byte
	ConnectTimeout time.Duration
}

// MQTT carries the node surface over an MQTT broker.
type MQTT struct {
	opts   MQTTOptions
	logger *zap.Logger
	client mqtt.Client
	base   string

	in     *inbox
	values *values

	mu   sync.RWMutex
	subs map[Channel]bool
}

// NewMQTT builds the transport; call Connect before use.
func NewMQTT(opts MQTTOptions, logger *zap.Logger) *MQTT {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	m := &MQTT{
		opts:   opts,
		logger: logger.Named("mqtt"),
		base:   MQTTTopic(opts.TopicPrefix, opts.NodeID),
		values: newValues(),
		subs:   make(map[Channel]bool),
	}
	m.in = newInbox(func(ev Event) {
		m.logger.Warn("event queue full, dropping event",
			zap.Stringer("channel", ev.Channel), zap.Int("kind", int(ev.Kind)))
	})
	return m
}

// MQTTTopic joins prefix, node id and parts into a topic name.
func MQTTTopic(prefix, nodeID string, parts ...string) string {
	elems := append([]string{strings.TrimSuffix(prefix, "/"), nodeID}, parts...)
	return strings.Join(elems, "/")
}

func (m *MQTT) topic(parts ...string) string {
	return MQTTTopic(m.opts.TopicPrefix, m.opts.NodeID, parts...)
}

// Connect dials the broker. Subscriptions are (re)made on every connect.
func (m *MQTT) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.opts.Broker).
		SetClientID(m.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		m.logger.Info("connected", zap.String("broker", m.opts.Broker), zap.String("client_id", m.opts.ClientID))
		if err := m.subscribe(c); err != nil {
			m.logger.Error("subscribe failed", zap.Error(err))
		}
		if info := m.values.get(Info); len(info) > 0 {
			c.Publish(m.topic(Info.String()), m.opts.QoS, true, info)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.logger.Warn("connection lost, will auto-reconnect", zap.Error(err))
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(m.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt connect %s: timeout", m.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.opts.Broker, err)
	}
	return nil
}

func (m *MQTT) subscribe(c mqtt.Client) error {
	filters := map[string]byte{
		m.topic(Control.String()):            m.opts.QoS,
		m.topic(Raw.String(), "subscribe"):   m.opts.QoS,
		m.topic(Label.String(), "subscribe"): m.opts.QoS,
	}
	token := c.SubscribeMultiple(filters, m.onMessage)
	if !token.WaitTimeout(m.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt subscribe: timeout")
	}
	return token.Error()
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	rest := strings.TrimPrefix(msg.Topic(), m.base+"/")
	name, sub, _ := strings.Cut(rest, "/")
	ch, err := ParseChannel(name)
	if err != nil {
		m.logger.Debug("ignoring message", zap.String("topic", msg.Topic()))
		return
	}

	switch {
	case sub == "" && ch == Control:
		m.in.push(Event{Kind: EventWrite, Channel: Control, Payload: append([]byte(nil), msg.Payload()...), Origin: "mqtt"})
	case sub == "subscribe" && ch.Notifiable():
		on := strings.TrimSpace(string(msg.Payload())) == "1"
		m.mu.Lock()
		changed := m.subs[ch] != on
		m.subs[ch] = on
		m.mu.Unlock()
		if changed {
			m.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: on, Origin: "mqtt"})
		}
	}
}

func (m *MQTT) IsSubscribed(ch Channel) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subs[ch]
}

// Notify publishes without waiting for the broker; a failed publish that has
// already completed is reported, an in-flight one is not.
func (m *MQTT) Notify(ch Channel, payload []byte) error {
	if err := checkNotify(ch, payload); err != nil {
		return err
	}
	if m.client == nil || !m.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt notify %s: not connected", ch)
	}
	token := m.client.Publish(m.topic(ch.String()), m.opts.QoS, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt notify %s: %w", ch, err)
		}
	default:
	}
	return nil
}

// SetValue stores the value and republishes it retained.
func (m *MQTT) SetValue(ch Channel, payload []byte) error {
	if len(payload) > ch.MaxLen() {
		return fmt.Errorf("%w: %s", ErrPayloadTooLarge, ch)
	}
	m.values.set(ch, payload)
	if m.client == nil || !m.client.IsConnectionOpen() {
		return nil
	}
	m.client.Publish(m.topic(ch.String()), m.opts.QoS, true, payload)
	return nil
}

func (m *MQTT) Events() <-chan Event { return m.in.ch }

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
