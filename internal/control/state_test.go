// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	st := NewState(50)
	require.Equal(t, Snapshot{RateHz: 50, PeriodMicros: 20_000}, st.Snapshot())

	st = NewState(1000)
	require.Equal(t, 100, st.RateHz())
	require.Equal(t, int64(10_000), st.PeriodMicros())
}

func TestSessionAdvancesOnStart(t *testing.T) {
	st := NewState(100)
	require.Zero(t, st.SessionID())

	require.True(t, st.Apply(Command{Op: OpStart}))
	require.Equal(t, uint32(1), st.SessionID())

	// already streaming: same session
	require.False(t, st.Apply(Command{Op: OpStart}))
	require.Equal(t, uint32(1), st.SessionID())

	require.True(t, st.Apply(Command{Op: OpStop}))
	require.False(t, st.Apply(Command{Op: OpStop}))
	require.True(t, st.Apply(Command{Op: OpStart}))
	require.Equal(t, uint32(2), st.SessionID())
}

func TestRawToggle(t *testing.T) {
	st := NewState(100)
	require.True(t, st.Apply(Command{Op: OpRawOn}))
	require.False(t, st.Apply(Command{Op: OpRawOn}))
	require.True(t, st.RawEnabled())
	require.True(t, st.Apply(Command{Op: OpRawOff}))
	require.False(t, st.RawEnabled())
}

func TestRejectedRateKeepsPrevious(t *testing.T) {
	st := NewState(120)
	require.False(t, st.Apply(Command{Op: OpSetRate, RateHz: 10}))
	require.False(t, st.Apply(Command{Op: OpSetRate, RateHz: 120}))
	require.Equal(t, 120, st.RateHz())
	require.Equal(t, int64(8333), st.PeriodMicros())
	require.False(t, st.Apply(Command{}))
}

func TestPeriodMicros(t *testing.T) {
	require.Equal(t, int64(40_000), PeriodMicros(25))
	require.Equal(t, int64(10_000), PeriodMicros(100))
	require.Equal(t, int64(6666), PeriodMicros(150))
	require.Equal(t, int64(5_000), PeriodMicros(200))
}
