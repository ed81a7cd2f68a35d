// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package window holds the fixed-capacity sample windows the node reduces
// to mean and sample standard deviation.
//
// Both windows are pre-filled with a neutral 1 g reading so that the first
// reductions after startup see a resting device rather than zeros. They are
// always full: Len() equals the capacity from construction onwards.
package window

// NeutralMagnitude is the resting acceleration magnitude in g.
const NeutralMagnitude = 1.0

// Vec3 holds a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Reduction is the summary of a full window.
type Reduction struct {
	Mean float64
	Std  float64

	// MeanAxes is only set by AxisWindow.
	MeanAxes Vec3
}

// Window is implemented by MagnitudeWindow and AxisWindow.
type Window interface {
	Reduce() Reduction
	Len() int
}

// MagnitudeWindow buffers scalar acceleration magnitudes.
type MagnitudeWindow struct {
	data []float64
	pos  int
}

// NewMagnitudeWindow creates a window of n slots. n must be at least 2.
func NewMagnitudeWindow(n int) *MagnitudeWindow {
	if n < 2 {
		panic("window: capacity must be at least 2")
	}
	w := &MagnitudeWindow{data: make([]float64, n)}
	for i := range w.data {
		w.data[i] = NeutralMagnitude
	}
	return w
}

// Push overwrites the oldest slot.
func (w *MagnitudeWindow) Push(v float64) {
	w.data[w.pos] = v
	w.pos++
	if w.pos == len(w.data) {
		w.pos = 0
	}
}

// Len returns the capacity, which is also the number of valid entries.
func (w *MagnitudeWindow) Len() int { return len(w.data) }

// Reduce returns mean and sample standard deviation over all slots.
func (w *MagnitudeWindow) Reduce() Reduction {
	mean, std := meanStd(w.data)
	return Reduction{Mean: mean, Std: std}
}

// AxisWindow buffers the three acceleration axes. Reduce derives one
// magnitude per slot and aggregates those.
type AxisWindow struct {
	x, y, z []float64
	mags    []float64 // scratch for Reduce
	pos     int
}

// NewAxisWindow creates a window of n slots, each holding (0, 0, 1) g.
func NewAxisWindow(n int) *AxisWindow {
	if n < 2 {
		panic("window: capacity must be at least 2")
	}
	w := &AxisWindow{
		x:    make([]float64, n),
		y:    make([]float64, n),
		z:    make([]float64, n),
		mags: make([]float64, n),
	}
	for i := range w.z {
		w.z[i] = NeutralMagnitude
	}
	return w
}

// Push overwrites the oldest slot with one acceleration vector.
func (w *AxisWindow) Push(x, y, z float64) {
	w.x[w.pos] = x
	w.y[w.pos] = y
	w.z[w.pos] = z
	w.pos++
	if w.pos == len(w.x) {
		w.pos = 0
	}
}

// Len returns the capacity.
func (w *AxisWindow) Len() int { return len(w.x) }

// Reduce computes per-slot magnitudes, then their mean and sample standard
// deviation. MeanAxes carries the per-axis means.
func (w *AxisWindow) Reduce() Reduction {
	for i := range w.mags {
		w.mags[i] = norm(w.x[i], w.y[i], w.z[i])
	}
	mean, std := meanStd(w.mags)
	return Reduction{
		Mean: mean,
		Std:  std,
		MeanAxes: Vec3{
			X: average(w.x),
			Y: average(w.y),
			Z: average(w.z),
		},
	}
}
