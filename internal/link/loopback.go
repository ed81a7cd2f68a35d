// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import "sync"

// Loopback is an in-process transport. The "central" side is driven by
// Write, Subscribe and Unsubscribe; notifications are recorded.
type Loopback struct {
	subs   *subscriptions
	values *values
	in     *inbox

	mu   sync.Mutex
	sent map[Channel][][]byte
}

// NewLoopback returns an empty loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{
		subs:   newSubscriptions(),
		values: newValues(),
		in:     newInbox(nil),
		sent:   make(map[Channel][][]byte),
	}
}

func (l *Loopback) IsSubscribed(ch Channel) bool { return l.subs.active(ch) }

func (l *Loopback) Notify(ch Channel, payload []byte) error {
	if err := checkNotify(ch, payload); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[ch] = append(l.sent[ch], append([]byte(nil), payload...))
	return nil
}

func (l *Loopback) SetValue(ch Channel, payload []byte) error {
	if len(payload) > ch.MaxLen() {
		return ErrPayloadTooLarge
	}
	l.values.set(ch, payload)
	return nil
}

func (l *Loopback) Events() <-chan Event { return l.in.ch }

func (l *Loopback) Close() error { return nil }

// Write queues a CONTROL write as a central would.
func (l *Loopback) Write(ch Channel, payload []byte) {
	l.in.push(Event{Kind: EventWrite, Channel: ch, Payload: append([]byte(nil), payload...), Origin: "loopback"})
}

// Subscribe adds a subscriber to ch.
func (l *Loopback) Subscribe(ch Channel) {
	if l.subs.add(ch) {
		l.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: true, Origin: "loopback"})
	}
}

// Unsubscribe removes a subscriber from ch.
func (l *Loopback) Unsubscribe(ch Channel) {
	if l.subs.remove(ch) {
		l.in.push(Event{Kind: EventSubscription, Channel: ch, Subscribed: false, Origin: "loopback"})
	}
}

// Sent returns copies of the notifications sent on ch so far.
func (l *Loopback) Sent(ch Channel) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent[ch]))
	copy(out, l.sent[ch])
	return out
}

// Value returns the readable value of ch.
func (l *Loopback) Value(ch Channel) []byte { return l.values.get(ch) }
