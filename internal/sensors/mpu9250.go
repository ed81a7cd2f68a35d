// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides imu.Source implementations: the MPU9250 over
// SPI and a synthetic gait generator for benches without hardware.
package sensors

import (
	"fmt"

	"github.com/relabs-tech/motion_node/internal/imu"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

var (
	accelRangesG   = [...]int{2, 4, 8, 16}
	gyroRangesDegS = [...]int{250, 500, 1000, 2000}
)

// MPU9250Options selects the SPI wiring and full-scale ranges.
type MPU9250Options struct {
	SPIDevice  string // e.g. "/dev/spidev0.0"
	CSPin      string // e.g. "GPIO8"
	AccelRange byte   // 0..3 -> ±2/4/8/16 g
	GyroRange  byte   // 0..3 -> ±250/500/1000/2000 deg/s
}

// MPU9250 reads accelerometer and gyroscope from an InvenSense MPU9250.
type MPU9250 struct {
	dev    *mpu9250.MPU9250
	logger *zap.Logger

	accelLSB float64 // counts per g
	gyroLSB  float64 // counts per deg/s
	lastErr  error
}

// NewMPU9250 initializes the device. Self-test and calibration failures
// are logged and do not prevent sampling.
func NewMPU9250(opts MPU9250Options, logger *zap.Logger) (*MPU9250, error) {
	logger = logger.Named("mpu9250").With(zap.String("spi", opts.SPIDevice))
	if int(opts.AccelRange) >= len(accelRangesG) || int(opts.GyroRange) >= len(gyroRangesDegS) {
		return nil, fmt.Errorf("mpu9250: range out of bounds (accel %d, gyro %d)", opts.AccelRange, opts.GyroRange)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: initialization: %w", err)
	}
	if err := configure(periphDevice{dev}, opts, logger); err != nil {
		return nil, err
	}

	return &MPU9250{
		dev:      dev,
		logger:   logger,
		accelLSB: AccelLSBPerG(opts.AccelRange),
		gyroLSB:  GyroLSBPerDegS(opts.GyroRange),
	}, nil
}

// configurer is the part of the driver that sets up the measurement.
type configurer interface {
	SelfTest() error
	Calibrate() error
	SetAccelRange(v byte) error
	SetGyroRange(v byte) error
}

type periphDevice struct {
	*mpu9250.MPU9250
}

func (d periphDevice) SelfTest() error {
	_, err := d.MPU9250.SelfTest()
	return err
}

// configure runs self-test and calibration, then selects the ranges.
// Both sequences leave ACCEL_CONFIG and GYRO_CONFIG at ±2 g / ±250 deg/s,
// so the ranges must be written last.
func configure(dev configurer, opts MPU9250Options, logger *zap.Logger) error {
	if err := dev.SelfTest(); err != nil {
		logger.Warn("self-test failed", zap.Error(err))
	} else {
		logger.Info("self-test passed")
	}
	if err := dev.Calibrate(); err != nil {
		logger.Warn("calibration failed", zap.Error(err))
	} else {
		logger.Info("calibration complete")
	}

	if err := dev.SetAccelRange(rangeConfig(opts.AccelRange)); err != nil {
		return fmt.Errorf("mpu9250: set accel range: %w", err)
	}
	if err := dev.SetGyroRange(rangeConfig(opts.GyroRange)); err != nil {
		return fmt.Errorf("mpu9250: set gyro range: %w", err)
	}
	logger.Info("ranges set",
		zap.Int("accel_g", accelRangesG[opts.AccelRange]),
		zap.Int("gyro_dps", gyroRangesDegS[opts.GyroRange]))
	return nil
}

// rangeConfig places a range code in the FS_SEL bits [4:3] of
// ACCEL_CONFIG / GYRO_CONFIG. The driver writes the byte as-is under
// mask 0x18.
func rangeConfig(code byte) byte {
	return code << 3
}

// AccelLSBPerG is the accelerometer sensitivity for a range code.
func AccelLSBPerG(r byte) float64 {
	return float64(int(16384) >> r)
}

// GyroLSBPerDegS is the gyroscope sensitivity for a range code.
func GyroLSBPerDegS(r byte) float64 {
	return 131.0 / float64(int(1)<<r)
}

// Ready reports false once after a failed read, skipping one tick before
// the bus is tried again. The register interface has no data-ready poll.
func (m *MPU9250) Ready() bool {
	if m.lastErr != nil {
		m.logger.Debug("skipping tick after read error", zap.Error(m.lastErr))
		m.lastErr = nil
		return false
	}
	return true
}

// Read returns one sample in g and deg/s.
func (m *MPU9250) Read() (imu.Sample, error) {
	var counts [6]int16
	reads := [6]func() (int16, error){
		m.dev.GetAccelerationX, m.dev.GetAccelerationY, m.dev.GetAccelerationZ,
		m.dev.GetRotationX, m.dev.GetRotationY, m.dev.GetRotationZ,
	}
	axes := [6]string{"accel X", "accel Y", "accel Z", "gyro X", "gyro Y", "gyro Z"}
	for i, read := range reads {
		v, err := read()
		if err != nil {
			m.lastErr = fmt.Errorf("mpu9250 %s: %w", axes[i], err)
			return imu.Sample{}, m.lastErr
		}
		counts[i] = v
	}
	m.lastErr = nil
	return Convert(counts, m.accelLSB, m.gyroLSB), nil
}

// Convert scales raw counts (ax, ay, az, gx, gy, gz) to physical units.
func Convert(counts [6]int16, accelLSB, gyroLSB float64) imu.Sample {
	return imu.Sample{
		Ax: float64(counts[0]) / accelLSB,
		Ay: float64(counts[1]) / accelLSB,
		Az: float64(counts[2]) / accelLSB,
		Gx: float64(counts[3]) / gyroLSB,
		Gy: float64(counts[4]) / gyroLSB,
		Gz: float64(counts[5]) / gyroLSB,
	}
}
