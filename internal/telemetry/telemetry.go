// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry packs node results into the wire payloads of the
// LABEL, RAW and INFO channels.
package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/motion_node/internal/imu"
)

// Payload limits per channel, in bytes.
const (
	MaxLabelLen = 20
	RawLen      = 12
	MaxInfoLen  = 64
)

// RawScale converts g and deg/s to the integer wire units.
const RawScale = 1000

// recordLimit keeps "<LABEL>,<v>,<v>" within MaxLabelLen for every label.
const recordLimit = 999.99

func clampRecord(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > recordLimit:
		return recordLimit
	case v < -recordLimit:
		return -recordLimit
	}
	return v
}

// Label encodes a discrete classification as "<LABEL>,<mean>,<std>".
func Label(label string, mean, std float64) []byte {
	return record(label, mean, std)
}

// Speed encodes a continuous result as "SPD,<magnitude>,<intensity>".
func Speed(magnitude, intensity float64) []byte {
	return record("SPD", magnitude, intensity)
}

func record(tag string, a, b float64) []byte {
	out := fmt.Appendf(nil, "%s,%.2f,%.2f", tag, clampRecord(a), clampRecord(b))
	if len(out) > MaxLabelLen {
		out = out[:MaxLabelLen]
	}
	return out
}

// saturate scales v to wire units and clamps to the int16 range.
func saturate(v float64) int16 {
	x := math.Round(v * RawScale)
	switch {
	case math.IsNaN(x):
		return 0
	case x > math.MaxInt16:
		return math.MaxInt16
	case x < math.MinInt16:
		return math.MinInt16
	}
	return int16(x)
}

// Raw encodes s as six little-endian int16 values: ax, ay, az, gx, gy, gz.
func Raw(s imu.Sample) [RawLen]byte {
	var out [RawLen]byte
	for i, v := range [6]float64{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz} {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(saturate(v)))
	}
	return out
}

// DecodeRaw is the inverse of Raw, up to the 1/RawScale resolution.
func DecodeRaw(b []byte) (imu.Sample, error) {
	if len(b) != RawLen {
		return imu.Sample{}, fmt.Errorf("telemetry: raw payload is %d bytes, want %d", len(b), RawLen)
	}
	var v [6]float64
	for i := range v {
		v[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:]))) / RawScale
	}
	return imu.Sample{Ax: v[0], Ay: v[1], Az: v[2], Gx: v[3], Gy: v[4], Gz: v[5]}, nil
}

// Info renders the INFO record "Node:<id>;Sess:<n>;Rate:<hz>Hz;FW:<tag>".
func Info(nodeID string, session uint32, rateHz int, fw string) []byte {
	out := fmt.Appendf(nil, "Node:%s;Sess:%d;Rate:%dHz;FW:%s", nodeID, session, rateHz, fw)
	if len(out) > MaxInfoLen {
		out = out[:MaxInfoLen]
	}
	return out
}
