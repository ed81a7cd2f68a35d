// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import "math"

func average(xs []float64) float64 {
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// meanStd is two-pass: mean first, then squared deviations over N-1.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) < 2 {
		return average(xs), 0
	}
	mean = average(xs)
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

func norm(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Hopper fires once every hop accepted samples.
type Hopper struct {
	hop   int
	count int
}

// NewHopper returns a Hopper with the given hop, which must be positive.
func NewHopper(hop int) *Hopper {
	if hop < 1 {
		panic("window: hop must be positive")
	}
	return &Hopper{hop: hop}
}

// Accept records one accepted sample and reports whether a reduction is due.
func (h *Hopper) Accept() bool {
	h.count++
	if h.count < h.hop {
		return false
	}
	h.count = 0
	return true
}

// Hop returns the configured hop.
func (h *Hopper) Hop() int { return h.hop }
