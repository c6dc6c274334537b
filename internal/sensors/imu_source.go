// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
)

const (
	standardGravity = 9.80665

	// Accelerometer counts per g at the power-on ±2g full scale.
	accelLSBPerG = 16384.0
)

// Accelerometer reads acceleration in m/s², device coordinates.
type Accelerometer interface {
	Sense() (motion.Vec3, error)
}

// Magnetometer reads the magnetic field in µT, in the accelerometer's frame.
type Magnetometer interface {
	Sense() (motion.Vec3, error)
}

type mpuAccel struct {
	imu *mpu9250.MPU9250
}

// NewMPU9250 initializes an MPU-9250 over SPI and returns its accelerometer.
func NewMPU9250(spiDev, csPin string) (Accelerometer, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return &mpuAccel{imu: imu}, nil
}

func (a *mpuAccel) Sense() (motion.Vec3, error) {
	ax, err := a.imu.GetAccelerationX()
	if err != nil {
		return motion.Vec3{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := a.imu.GetAccelerationY()
	if err != nil {
		return motion.Vec3{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := a.imu.GetAccelerationZ()
	if err != nil {
		return motion.Vec3{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	k := standardGravity / accelLSBPerG
	return motion.Vec3{X: float64(ax) * k, Y: float64(ay) * k, Z: float64(az) * k}, nil
}

// imuSource alternates accelerometer and magnetometer reads, producing one
// sample per call.
type imuSource struct {
	accel  Accelerometer
	mag    Magnetometer
	now    func() time.Time
	nextCh motion.Channel
}

// NewIMUSource opens the accelerometer and magnetometer named in cfg.
func NewIMUSource(cfg *config.Config) (motion.Source, error) {
	accel, err := NewMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin)
	if err != nil {
		return nil, err
	}
	mag, err := OpenAK8963(cfg.MagI2CBus, cfg.MagI2CAddr)
	if err != nil {
		return nil, err
	}
	log.Printf("IMU: accelerometer on %s (CS %s), magnetometer on I2C bus %s at 0x%02X",
		cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.MagI2CBus, cfg.MagI2CAddr)
	return NewPairSource(accel, mag), nil
}

// NewPairSource combines an accelerometer and a magnetometer into one
// alternating sample source.
func NewPairSource(accel Accelerometer, mag Magnetometer) motion.Source {
	return &imuSource{accel: accel, mag: mag, now: time.Now, nextCh: motion.Accelerometer}
}

func (s *imuSource) Next() (motion.Sample, error) {
	ch := s.nextCh
	var (
		v   motion.Vec3
		err error
	)
	if ch == motion.Accelerometer {
		v, err = s.accel.Sense()
		s.nextCh = motion.MagneticField
	} else {
		v, err = s.mag.Sense()
		s.nextCh = motion.Accelerometer
	}
	if err != nil {
		return motion.Sample{}, err
	}
	return motion.Sample{Source: "imu", Channel: ch, Vec3: v, Time: s.now()}, nil
}
