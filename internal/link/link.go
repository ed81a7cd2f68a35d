// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package link models the node's characteristic surface (CONTROL, INFO,
// RAW, LABEL) and the transports that carry it.
//
// Transports never touch node state. Inbound writes and subscription
// changes are queued as Events and drained by the node loop.
package link

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPayloadTooLarge = errors.New("link: payload exceeds channel size")
	ErrNotNotifiable   = errors.New("link: channel does not notify")
	ErrUnknownChannel  = errors.New("link: unknown channel")
)

// Channel is one characteristic of the node.
type Channel int

const (
	Control Channel = iota // write
	Info                   // read
	Raw                    // notify, 12 bytes
	Label                  // notify, <= 20 bytes
)

var channelNames = [...]string{"control", "info", "raw", "label"}

func (c Channel) String() string {
	if c < 0 || int(c) >= len(channelNames) {
		return fmt.Sprintf("Channel(%d)", int(c))
	}
	return channelNames[c]
}

// MaxLen is the largest payload the channel carries.
func (c Channel) MaxLen() int {
	switch c {
	case Control:
		return 32
	case Info:
		return 64
	case Raw:
		return 12
	case Label:
		return 20
	}
	return 0
}

// Notifiable reports whether the channel is a notify channel.
func (c Channel) Notifiable() bool {
	return c == Raw || c == Label
}

// ParseChannel maps a channel name (case-insensitive) to a Channel.
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range channelNames {
		if s == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// checkNotify validates a notification before it is sent.
func checkNotify(ch Channel, payload []byte) error {
	if !ch.Notifiable() {
		return fmt.Errorf("%w: %s", ErrNotNotifiable, ch)
	}
	if len(payload) > ch.MaxLen() {
		return fmt.Errorf("%w: %s got %d bytes, max %d", ErrPayloadTooLarge, ch, len(payload), ch.MaxLen())
	}
	return nil
}

// EventKind distinguishes inbound events.
type EventKind int

const (
	EventWrite EventKind = iota
	EventSubscription
)

// Event is an inbound write or a subscription change. For subscription
// events Subscribed is the transport's view after the change.
type Event struct {
	Kind       EventKind
	Channel    Channel
	Payload    []byte
	Subscribed bool
	Origin     string // "mqtt", "ws", "console", "loopback"
}

// Transport is the peripheral surface the node drives.
type Transport interface {
	IsSubscribed(ch Channel) bool
	Notify(ch Channel, payload []byte) error
	SetValue(ch Channel, payload []byte) error
	Events() <-chan Event
	Close() error
}

// EventQueueLen is the inbound buffer of every transport.
const EventQueueLen = 64
