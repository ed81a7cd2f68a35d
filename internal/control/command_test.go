// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package control

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	cases := []struct {
		in   string
		want Command
		ok   bool
	}{
		{"start", Command{Op: OpStart, Encoding: EncodingText}, true},
		{"STOP", Command{Op: OpStop, Encoding: EncodingText}, true},
		{"Raw:On", Command{Op: OpRawOn, Encoding: EncodingText}, true},
		{"raw:off", Command{Op: OpRawOff, Encoding: EncodingText}, true},
		{"rate:25", Command{Op: OpSetRate, RateHz: 25, Encoding: EncodingText}, true},
		{"RATE:200", Command{Op: OpSetRate, RateHz: 200, Encoding: EncodingText}, true},
		{"rate:24", Command{}, false},
		{"rate:201", Command{}, false},
		{"rate:", Command{}, false},
		{"rate:+50", Command{}, false},
		{"rate:5O", Command{}, false},
		{"rate: 50", Command{}, false},
		{"start\n", Command{}, false},
		{" start", Command{}, false},
		{"begin", Command{}, false},
		{"bin:on", Command{}, false},
		{"", Command{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Parse([]byte(tc.in))
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseBinary(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want Command
		ok   bool
	}{
		{"stop", []byte{0, 0, 0}, Command{Op: OpStop, Encoding: EncodingBinary}, true},
		{"start 100Hz", []byte{1, 100, 0}, Command{Op: OpStart, Encoding: EncodingBinary}, true},
		{"rate 150", []byte{2, 150, 0}, Command{Op: OpSetRate, RateHz: 150, Encoding: EncodingBinary}, true},
		{"rate 25", []byte{2, 25, 0}, Command{Op: OpSetRate, RateHz: 25, Encoding: EncodingBinary}, true},
		{"rate 24", []byte{2, 24, 0}, Command{}, false},
		{"rate 201", []byte{2, 201, 0}, Command{}, false},
		{"rate 300", []byte{2, 0x2C, 0x01, 0}, Command{}, false},
		{"unknown opcode", []byte{7, 100, 0}, Command{}, false},
		{"trailing bytes", []byte{1, 0, 0, 9, 9}, Command{Op: OpStart, Encoding: EncodingBinary}, true},
		{"short with zero", []byte{1, 0}, Command{}, false},
		{"single zero", []byte{0}, Command{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

// The zero-byte rule decides the encoding, not the first byte. A binary
// frame with no zero in it is read as text and dropped.
func TestZeroByteDispatch(t *testing.T) {
	// zero at the end only: still binary
	cmd, ok := Parse([]byte{0x01, 0x64, 0x00})
	require.True(t, ok)
	require.Equal(t, EncodingBinary, cmd.Encoding)
	require.Equal(t, OpStart, cmd.Op)

	// zero in the middle of otherwise printable text: binary, opcode 's'
	_, ok = Parse([]byte{'s', 0, 't', 'a'})
	require.False(t, ok)

	// start with a rate whose high byte is non-zero: no zero byte, text path
	_, ok = Parse([]byte{0x01, 0x64, 0x01})
	require.False(t, ok)

	// a legitimate binary set-rate with no zero byte is lost the same way
	_, ok = Parse([]byte{0x02, 0x64, 0x01})
	require.False(t, ok)
}

func TestParseLengthBound(t *testing.T) {
	_, ok := Parse([]byte("rate:" + strings.Repeat("0", 24) + "100"))
	require.True(t, ok)

	_, ok = Parse([]byte("rate:" + strings.Repeat("0", 25) + "100"))
	require.False(t, ok)

	_, ok = Parse(append([]byte{1, 100, 0}, make([]byte, 30)...))
	require.False(t, ok)
}

func TestInterpreterRoundTrips(t *testing.T) {
	st := NewState(100)
	in := NewInterpreter(st)

	in.Handle([]byte("start"))
	require.True(t, st.Streaming())
	in.Handle([]byte("stop"))
	require.False(t, st.Streaming())

	in.Handle([]byte{1, 100, 0})
	require.True(t, st.Streaming())
	in.Handle([]byte{0, 0, 0})
	require.False(t, st.Streaming())
}

func TestInterpreterRateBounds(t *testing.T) {
	st := NewState(100)
	in := NewInterpreter(st)

	for _, p := range []string{"rate:24", "rate:201", "rate:0", "rate:99999"} {
		cmd, changed := in.Handle([]byte(p))
		require.Equal(t, OpNone, cmd.Op, p)
		require.False(t, changed, p)
		require.Equal(t, 100, st.RateHz(), p)
		require.Equal(t, int64(10_000), st.PeriodMicros(), p)
	}

	_, changed := in.Handle([]byte("rate:25"))
	require.True(t, changed)
	require.Equal(t, 25, st.RateHz())
	require.Equal(t, int64(40_000), st.PeriodMicros())

	_, changed = in.Handle([]byte("rate:200"))
	require.True(t, changed)
	require.Equal(t, 200, st.RateHz())
	require.Equal(t, int64(5_000), st.PeriodMicros())

	_, changed = in.Handle([]byte{2, 50, 0})
	require.True(t, changed)
	require.Equal(t, 50, st.RateHz())
	require.Equal(t, int64(20_000), st.PeriodMicros())
}

func TestInterpreterIgnoresGarbage(t *testing.T) {
	st := NewState(100)
	in := NewInterpreter(st)
	before := st.Snapshot()

	for _, p := range [][]byte{
		[]byte("hello"),
		{0xff, 0xfe},
		{9, 9, 0},
		[]byte(strings.Repeat("x", 40)),
		nil,
	} {
		cmd, changed := in.Handle(p)
		require.Equal(t, OpNone, cmd.Op)
		require.False(t, changed)
	}
	require.Equal(t, before, st.Snapshot())
}

func TestOpString(t *testing.T) {
	require.Equal(t, "raw:on", OpRawOn.String())
	require.Equal(t, "Op(42)", Op(42).String())
}
