// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock paces sensor reads with a next-deadline accumulator.
//
// The deadline always advances by exactly one period from the previous
// deadline, never from "now", so time spent past a deadline is paid back on
// the following ticks instead of turning into drift.
package clock

import "time"

// Clock gates sampling to at most one read per elapsed period.
type Clock struct {
	period   time.Duration
	deadline time.Time
	armed    bool
}

// New returns an unarmed clock with the given period in microseconds.
func New(periodMicros int64) *Clock {
	return &Clock{period: toDuration(periodMicros)}
}

func toDuration(us int64) time.Duration {
	if us < 1 {
		us = 1
	}
	return time.Duration(us) * time.Microsecond
}

// SetPeriodMicros changes the period used by the next advance. Deadlines
// already scheduled are kept.
func (c *Clock) SetPeriodMicros(us int64) {
	c.period = toDuration(us)
}

// Period returns the current period.
func (c *Clock) Period() time.Duration { return c.period }

// Reset arms the clock so the first tick is one period after now.
func (c *Clock) Reset(now time.Time) {
	c.deadline = now.Add(c.period)
	c.armed = true
}

// Stop disarms the clock; the next Due call re-arms it.
func (c *Clock) Stop() { c.armed = false }

// Due reports whether the deadline has elapsed and, if so, consumes one
// tick by moving the deadline forward one period.
func (c *Clock) Due(now time.Time) bool {
	if !c.armed {
		c.Reset(now)
		return false
	}
	if now.Before(c.deadline) {
		return false
	}
	c.deadline = c.deadline.Add(c.period)
	return true
}

// Until returns the time left before the next deadline, zero if it has
// passed. An unarmed clock reports one period.
func (c *Clock) Until(now time.Time) time.Duration {
	if !c.armed {
		return c.period
	}
	d := c.deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
