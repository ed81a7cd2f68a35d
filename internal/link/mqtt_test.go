// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessage struct {
	mqtt.Message
	topic    string
	payload  []byte
	retained bool
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }
func (m fakeMessage) Retained() bool  { return m.retained }

func newTestMQTT() *MQTT {
	return NewMQTT(MQTTOptions{
		Broker:      "tcp://localhost:1883",
		ClientID:    "test",
		TopicPrefix: "motion/",
		NodeID:      "wrist-1",
	}, zap.NewNop())
}

func TestMQTTTopics(t *testing.T) {
	m := newTestMQTT()
	require.Equal(t, "motion/wrist-1/control", m.topic("control"))
	require.Equal(t, "motion/wrist-1/label/subscribe", m.topic("label", "subscribe"))
	require.Equal(t, "motion/wrist-1", MQTTTopic("motion", "wrist-1"))
}

func TestMQTTControlWrite(t *testing.T) {
	m := newTestMQTT()
	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/control", payload: []byte{1, 100, 0}})

	ev := recv(t, m.Events())
	require.Equal(t, EventWrite, ev.Kind)
	require.Equal(t, Control, ev.Channel)
	require.Equal(t, []byte{1, 100, 0}, ev.Payload)
	require.Equal(t, "mqtt", ev.Origin)
}

func TestMQTTSubscribeTopic(t *testing.T) {
	m := newTestMQTT()

	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/label/subscribe", payload: []byte("1")})
	ev := recv(t, m.Events())
	require.Equal(t, EventSubscription, ev.Kind)
	require.Equal(t, Label, ev.Channel)
	require.True(t, ev.Subscribed)
	require.True(t, m.IsSubscribed(Label))
	require.False(t, m.IsSubscribed(Raw))

	// repeated "1" is not a transition
	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/label/subscribe", payload: []byte("1")})
	requireNoEvent(t, m.Events())

	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/label/subscribe", payload: []byte("0")})
	ev = recv(t, m.Events())
	require.False(t, ev.Subscribed)
	require.False(t, m.IsSubscribed(Label))
}

func TestMQTTRetainedIntentAndWill(t *testing.T) {
	m := newTestMQTT()
	topic := "motion/wrist-1/raw/subscribe"

	// a monitor that attached before the node connected is seen on subscribe
	m.onMessage(nil, fakeMessage{topic: topic, payload: []byte("1"), retained: true})
	ev := recv(t, m.Events())
	require.Equal(t, Raw, ev.Channel)
	require.True(t, ev.Subscribed)

	// the broker delivers the monitor's will when its connection drops
	m.onMessage(nil, fakeMessage{topic: topic, payload: []byte("0")})
	ev = recv(t, m.Events())
	require.False(t, ev.Subscribed)
	require.False(t, m.IsSubscribed(Raw))

	// a cleared retained intent arrives empty and leaves the channel off
	m.onMessage(nil, fakeMessage{topic: topic, payload: []byte("1"), retained: true})
	require.True(t, recv(t, m.Events()).Subscribed)
	m.onMessage(nil, fakeMessage{topic: topic, payload: nil, retained: true})
	require.False(t, recv(t, m.Events()).Subscribed)
	requireNoEvent(t, m.Events())
}

func TestMQTTIgnoresUnknownTopics(t *testing.T) {
	m := newTestMQTT()
	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/gps", payload: []byte("x")})
	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/info/subscribe", payload: []byte("1")})
	m.onMessage(nil, fakeMessage{topic: "motion/wrist-1/control/extra", payload: []byte("start")})
	requireNoEvent(t, m.Events())
}

func TestMQTTNotifyWithoutConnection(t *testing.T) {
	m := newTestMQTT()
	require.Error(t, m.Notify(Label, []byte("IDLE,1.00,0.00")))
	require.ErrorIs(t, m.Notify(Label, make([]byte, 21)), ErrPayloadTooLarge)

	require.NoError(t, m.SetValue(Info, []byte("Node:1")))
	require.Equal(t, []byte("Node:1"), m.values.get(Info))
	require.NoError(t, m.Close())
}
