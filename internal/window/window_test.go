// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// reference sample std (divisor n-1) of xs.
func sampleStd(xs []float64) (float64, float64) {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, v := range xs {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

func TestNeutralStartup(t *testing.T) {
	w := NewMagnitudeWindow(50)
	r := w.Reduce()
	require.Equal(t, 50, w.Len())
	require.InDelta(t, 1.0, r.Mean, 1e-12)
	require.InDelta(t, 0.0, r.Std, 1e-12)

	a := NewAxisWindow(50)
	r = a.Reduce()
	require.InDelta(t, 1.0, r.Mean, 1e-12)
	require.InDelta(t, 0.0, r.Std, 1e-12)
	require.Equal(t, Vec3{Z: 1}, r.MeanAxes)
}

func TestReduceCoversOnlyLastN(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{2, 3, 10, 64, 100} {
		w := NewMagnitudeWindow(n)

		// arbitrary history, longer than the window and not a multiple of it
		for i := 0; i < 3*n+5; i++ {
			w.Push(rng.Float64() * 40)
		}

		last := make([]float64, n)
		for i := range last {
			last[i] = 0.5 + rng.Float64()*2
			w.Push(last[i])
		}

		wantMean, wantStd := sampleStd(last)
		r := w.Reduce()
		require.InDelta(t, wantMean, r.Mean, 1e-9, "n=%d", n)
		require.InDelta(t, wantStd, r.Std, 1e-9, "n=%d", n)
	}
}

func TestReduceIdempotent(t *testing.T) {
	w := NewAxisWindow(16)
	for i := 0; i < 21; i++ {
		w.Push(float64(i)*0.1, -0.2, 1+float64(i%3)*0.3)
	}
	require.Equal(t, w.Reduce(), w.Reduce())

	m := NewMagnitudeWindow(16)
	for i := 0; i < 9; i++ {
		m.Push(float64(i))
	}
	require.Equal(t, m.Reduce(), m.Reduce())
}

func TestAxisWindowReducesMagnitudes(t *testing.T) {
	vecs := []Vec3{{3, 4, 0}, {0, 0, 2}, {1, 2, 2}, {0, 0.6, 0.8}}
	a := NewAxisWindow(len(vecs))
	mags := make([]float64, 0, len(vecs))
	for _, v := range vecs {
		a.Push(v.X, v.Y, v.Z)
		mags = append(mags, math.Sqrt(v.X*v.X+v.Y*v.Y+v.Z*v.Z))
	}

	wantMean, wantStd := sampleStd(mags)
	r := a.Reduce()
	require.InDelta(t, wantMean, r.Mean, 1e-12)
	require.InDelta(t, wantStd, r.Std, 1e-12)
	require.InDelta(t, 1.0, r.MeanAxes.X, 1e-12)
	require.InDelta(t, 1.65, r.MeanAxes.Y, 1e-12)
	require.InDelta(t, 1.2, r.MeanAxes.Z, 1e-12)

	// mean of magnitudes, not magnitude of the mean vector
	meanVec := math.Sqrt(r.MeanAxes.X*r.MeanAxes.X + r.MeanAxes.Y*r.MeanAxes.Y + r.MeanAxes.Z*r.MeanAxes.Z)
	require.NotEqual(t, meanVec, r.Mean)
}

func TestHopper(t *testing.T) {
	h := NewHopper(3)
	var fired []int
	for i := 1; i <= 10; i++ {
		if h.Accept() {
			fired = append(fired, i)
		}
	}
	require.Equal(t, []int{3, 6, 9}, fired)
	require.Equal(t, 3, h.Hop())
}

func TestInvalidSizesPanic(t *testing.T) {
	require.Panics(t, func() { NewMagnitudeWindow(1) })
	require.Panics(t, func() { NewAxisWindow(0) })
	require.Panics(t, func() { NewHopper(0) })
}
