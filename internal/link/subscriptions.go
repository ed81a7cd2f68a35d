// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import "sync"

// subscriptions reference-counts subscribers per channel.
type subscriptions struct {
	mu     sync.RWMutex
	counts map[Channel]int
}

func newSubscriptions() *subscriptions {
	return &subscriptions{counts: make(map[Channel]int)}
}

// add returns true when ch gained its first subscriber.
func (s *subscriptions) add(ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[ch]++
	return s.counts[ch] == 1
}

// remove returns true when ch lost its last subscriber.
func (s *subscriptions) remove(ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[ch] == 0 {
		return false
	}
	s.counts[ch]--
	return s.counts[ch] == 0
}

func (s *subscriptions) active(ch Channel) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[ch] > 0
}

// values stores readable characteristic values.
type values struct {
	mu sync.RWMutex
	m  map[Channel][]byte
}

func newValues() *values {
	return &values{m: make(map[Channel][]byte)}
}

func (v *values) set(ch Channel, payload []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.m[ch] = append([]byte(nil), payload...)
}

func (v *values) get(ch Channel) []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]byte(nil), v.m[ch]...)
}

// inbox is a bounded event queue. A full queue drops the event rather than
// stalling the network goroutine that produced it.
type inbox struct {
	ch      chan Event
	dropped func(Event)
}

func newInbox(onDrop func(Event)) *inbox {
	return &inbox{ch: make(chan Event, EventQueueLen), dropped: onDrop}
}

func (b *inbox) push(ev Event) {
	select {
	case b.ch <- ev:
	default:
		if b.dropped != nil {
			b.dropped(ev)
		}
	}
}
