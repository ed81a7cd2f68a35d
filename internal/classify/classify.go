// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package classify maps a window reduction to a motion label or intensity.
package classify

import (
	"fmt"

	"github.com/relabs-tech/motion_node/internal/window"
)

// Label is a discrete motion state.
type Label int

const (
	Idle Label = iota
	Walk
	Run
)

func (l Label) String() string {
	switch l {
	case Idle:
		return "IDLE"
	case Walk:
		return "WALK"
	case Run:
		return "RUN"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Kind selects which classifier strategy a node uses.
type Kind string

const (
	KindThreshold Kind = "threshold"
	KindIntensity Kind = "intensity"
)

// Result is what a Classifier produces for one reduction.
// Threshold results carry Label; intensity results carry Intensity.
type Result struct {
	Kind      Kind
	Label     Label
	Intensity float64
}

// Classifier consumes window statistics.
type Classifier interface {
	Classify(r window.Reduction) Result
}

// Thresholds for the discrete state machine. Mean and Std are in g.
type Thresholds struct {
	StdIdleMax  float64 `yaml:"std_idle_max"`
	StdWalkMin  float64 `yaml:"std_walk_min"`
	StdRunMin   float64 `yaml:"std_run_min"`
	MeanWalkMax float64 `yaml:"mean_walk_max"`
	MeanRunMin  float64 `yaml:"mean_run_min"`
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StdIdleMax:  0.05,
		StdWalkMin:  0.20,
		StdRunMin:   0.70,
		MeanWalkMax: 1.30,
		MeanRunMin:  1.50,
	}
}

// Threshold is the four-rule discrete classifier. There is no hysteresis:
// statistics sitting on a boundary may flip the label every hop.
type Threshold struct {
	T Thresholds
}

// Classify evaluates the rules top-down; the first match wins.
//
// The third rule makes the mean bound of the second unreachable as a
// discriminator: any std >= StdWalkMin that is not RUN ends up WALK.
// StdIdleMax is carried in the tuning but no rule reads it.
func (c Threshold) Classify(r window.Reduction) Result {
	res := Result{Kind: KindThreshold}
	switch {
	case r.Std >= c.T.StdRunMin && r.Mean >= c.T.MeanRunMin:
		res.Label = Run
	case r.Std >= c.T.StdWalkMin && r.Mean <= c.T.MeanWalkMax:
		res.Label = Walk
	case r.Std >= c.T.StdWalkMin:
		res.Label = Walk
	default:
		res.Label = Idle
	}
	return res
}

// Intensity reports the window standard deviation as a continuous score.
type Intensity struct{}

// Classify returns r.Std as the intensity.
func (Intensity) Classify(r window.Reduction) Result {
	return Result{Kind: KindIntensity, Intensity: r.Std}
}

// New returns the classifier for kind.
func New(kind Kind, t Thresholds) (Classifier, error) {
	switch kind {
	case KindThreshold:
		return Threshold{T: t}, nil
	case KindIntensity:
		return Intensity{}, nil
	default:
		return nil, fmt.Errorf("classify: unknown kind %q", kind)
	}
}
