// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control holds the node's mutable control state and the command
// interpreter that is its only writer.
package control

// Rate bounds in Hz, inclusive.
const (
	MinRateHz = 25
	MaxRateHz = 200
)

// PeriodMicros returns the inter-sample period for rateHz.
func PeriodMicros(rateHz int) int64 {
	return 1_000_000 / int64(rateHz)
}

// ValidRate reports whether hz is an accepted sample rate.
func ValidRate(hz int) bool {
	return hz >= MinRateHz && hz <= MaxRateHz
}

// State is the control state of one node. It is owned by the node loop and
// mutated only through Apply.
type State struct {
	streaming    bool
	rawEnabled   bool
	rateHz       int
	periodMicros int64
	sessionID    uint32
}

// NewState returns a stopped state at rateHz. An invalid rate falls back to
// MaxRateHz/2.
func NewState(rateHz int) *State {
	if !ValidRate(rateHz) {
		rateHz = MaxRateHz / 2
	}
	return &State{rateHz: rateHz, periodMicros: PeriodMicros(rateHz)}
}

func (s *State) Streaming() bool     { return s.streaming }
func (s *State) RawEnabled() bool    { return s.rawEnabled }
func (s *State) RateHz() int         { return s.rateHz }
func (s *State) PeriodMicros() int64 { return s.periodMicros }
func (s *State) SessionID() uint32   { return s.sessionID }

// Snapshot is a copy of State for logging and the INFO record.
type Snapshot struct {
	Streaming    bool
	RawEnabled   bool
	RateHz       int
	PeriodMicros int64
	SessionID    uint32
}

// Snapshot returns the current values.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Streaming:    s.streaming,
		RawEnabled:   s.rawEnabled,
		RateHz:       s.rateHz,
		PeriodMicros: s.periodMicros,
		SessionID:    s.sessionID,
	}
}

// Apply performs cmd and reports whether any field changed.
// A rate outside [MinRateHz, MaxRateHz] leaves the state untouched.
func (s *State) Apply(cmd Command) bool {
	switch cmd.Op {
	case OpStart:
		if s.streaming {
			return false
		}
		s.streaming = true
		s.sessionID++
		return true
	case OpStop:
		if !s.streaming {
			return false
		}
		s.streaming = false
		return true
	case OpRawOn:
		changed := !s.rawEnabled
		s.rawEnabled = true
		return changed
	case OpRawOff:
		changed := s.rawEnabled
		s.rawEnabled = false
		return changed
	case OpSetRate:
		if !ValidRate(cmd.RateHz) || cmd.RateHz == s.rateHz {
			return false
		}
		s.rateHz = cmd.RateHz
		s.periodMicros = PeriodMicros(cmd.RateHz)
		return true
	default:
		return false
	}
}
