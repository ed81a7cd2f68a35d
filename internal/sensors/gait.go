// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand"
	"time"

	"github.com/relabs-tech/motion_node/internal/imu"
)

// Phase is one segment of the synthetic gait cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWalk
	PhaseRun
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWalk:
		return "walk"
	case PhaseRun:
		return "run"
	}
	return "unknown"
}

// GaitOptions tunes the synthetic source.
type GaitOptions struct {
	PhaseDuration time.Duration // time spent in each phase; default 10s
	NotReadyEvery int           // every Nth Ready poll reports false; 0 disables
	Noise         float64       // gaussian noise on each accel axis, g
	Seed          int64
}

// Gait generates an idle, walk, run cycle of accelerometer and gyro data.
// Time comes from now, so a sped-up clock compresses the cycle.
type Gait struct {
	opts  GaitOptions
	start time.Time
	now   func() time.Time
	rng   *rand.Rand
	polls int
}

// NewGait returns a gait source starting in the idle phase.
func NewGait(opts GaitOptions) *Gait {
	return newGait(opts, time.Now)
}

func newGait(opts GaitOptions, now func() time.Time) *Gait {
	if opts.PhaseDuration <= 0 {
		opts.PhaseDuration = 10 * time.Second
	}
	return &Gait{
		opts:  opts,
		start: now(),
		now:   now,
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}
}

// Phase returns the phase at the current time.
func (g *Gait) Phase() Phase {
	return g.phaseAt(g.now().Sub(g.start))
}

func (g *Gait) phaseAt(elapsed time.Duration) Phase {
	return Phase(int(elapsed/g.opts.PhaseDuration) % 3)
}

func (g *Gait) Ready() bool {
	g.polls++
	if g.opts.NotReadyEvery > 0 && g.polls%g.opts.NotReadyEvery == 0 {
		return false
	}
	return true
}

// Read samples the waveform of the current phase.
//
// Walk is a ~1.8 Hz vertical bounce around 1 g; run is a larger ~2.8 Hz
// bounce around 1.6 g with forward sway.
func (g *Gait) Read() (imu.Sample, error) {
	elapsed := g.now().Sub(g.start)
	t := elapsed.Seconds()

	var s imu.Sample
	switch g.phaseAt(elapsed) {
	case PhaseIdle:
		s = imu.Sample{Az: 1}
	case PhaseWalk:
		w := 2 * math.Pi * 1.8 * t
		s = imu.Sample{
			Ax: 0.15 * math.Sin(w+math.Pi/2),
			Az: 1 + 0.45*math.Sin(w),
			Gy: 40 * math.Sin(w),
		}
	case PhaseRun:
		w := 2 * math.Pi * 2.8 * t
		s = imu.Sample{
			Ax: 0.4 * math.Sin(w+math.Pi/2),
			Az: 1.6 + 1.2*math.Sin(w),
			Gy: 180 * math.Sin(w),
			Gz: 30 * math.Cos(w),
		}
	}

	if g.opts.Noise > 0 {
		s.Ax += g.rng.NormFloat64() * g.opts.Noise
		s.Ay += g.rng.NormFloat64() * g.opts.Noise
		s.Az += g.rng.NormFloat64() * g.opts.Noise
	}
	return s, nil
}
