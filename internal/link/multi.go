// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"errors"
	"sync"
)

// Multi fans the node out to several transports at once.
type Multi struct {
	members []Transport
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewMulti merges the members' events and starts forwarding them.
func NewMulti(members ...Transport) *Multi {
	m := &Multi{
		members: members,
		events:  make(chan Event, EventQueueLen),
		done:    make(chan struct{}),
	}
	for _, t := range members {
		m.wg.Add(1)
		go m.forward(t.Events())
	}
	return m
}

func (m *Multi) forward(src <-chan Event) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-src:
			if !ok {
				return
			}
			select {
			case m.events <- ev:
			case <-m.done:
				return
			}
		}
	}
}

// IsSubscribed is true if any member has a subscriber on ch.
func (m *Multi) IsSubscribed(ch Channel) bool {
	for _, t := range m.members {
		if t.IsSubscribed(ch) {
			return true
		}
	}
	return false
}

// Notify sends to every member that has a subscriber on ch.
func (m *Multi) Notify(ch Channel, payload []byte) error {
	if err := checkNotify(ch, payload); err != nil {
		return err
	}
	var errs []error
	for _, t := range m.members {
		if !t.IsSubscribed(ch) {
			continue
		}
		if err := t.Notify(ch, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) SetValue(ch Channel, payload []byte) error {
	var errs []error
	for _, t := range m.members {
		if err := t.SetValue(ch, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Events() <-chan Event { return m.events }

// Close stops forwarding and closes every member.
func (m *Multi) Close() error {
	var errs []error
	m.once.Do(func() {
		close(m.done)
		for _, t := range m.members {
			if err := t.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		m.wg.Wait()
	})
	return errors.Join(errs...)
}
