// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Sample is a single 6-axis reading in physical units.
type Sample struct {
	Ax float64 `json:"ax"` // accel, g
	Ay float64 `json:"ay"`
	Az float64 `json:"az"`

	Gx float64 `json:"gx"` // gyro, deg/s
	Gy float64 `json:"gy"`
	Gz float64 `json:"gz"`
}

// Magnitude returns the norm of the acceleration vector in g.
func (s Sample) Magnitude() float64 {
	return math.Sqrt(s.Ax*s.Ax + s.Ay*s.Ay + s.Az*s.Az)
}

// Source is the sensor abstraction the node samples from.
// Ready must not block; Read is only called after Ready returned true.
type Source interface {
	Ready() bool
	Read() (Sample, error)
}
