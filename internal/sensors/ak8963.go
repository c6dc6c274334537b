// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// AK8963 register map.
const (
	ak8963WIA   = 0x00
	ak8963ST1   = 0x02
	ak8963HXL   = 0x03
	ak8963CNTL1 = 0x0A
	ak8963CNTL2 = 0x0B
	ak8963ASAX  = 0x10

	ak8963DeviceID = 0x48

	ak8963ModePowerDown = 0x00
	ak8963ModeFuseROM   = 0x0F
	ak8963ModeCont100Hz = 0x16 // continuous mode 2, 16-bit output

	ak8963SoftReset = 0x01
	ak8963DataReady = 0x01 // ST1.DRDY
	ak8963Overflow  = 0x08 // ST2.HOFL

	ak8963MicroTeslaPerLSB = 0.15
)

var sleep = time.Sleep

// regIO is the register transport; *i2c.Dev satisfies it.
type regIO interface {
	Tx(w, r []byte) error
}

// ErrMagOverflow reports a magnetic sensor overflow; the reading is discarded.
var ErrMagOverflow = errors.New("AK8963: magnetic sensor overflow")

// AK8963 is a 3-axis magnetometer on the host I2C bus: a standalone module,
// or the MPU-9250's own die when that chip is wired for I2C with bypass on.
type AK8963 struct {
	dev  regIO
	bus  i2c.BusCloser
	asa  [3]float64
	last motion.Vec3
}

// OpenAK8963 opens the I2C bus, verifies the chip ID and starts continuous
// 100 Hz measurement.
func OpenAK8963(busName string, addr uint16) (*AK8963, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("AK8963: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("AK8963: open I2C bus %q: %w", busName, err)
	}

	m, err := newAK8963(&i2c.Dev{Addr: addr, Bus: bus})
	if err != nil {
		bus.Close()
		return nil, err
	}
	m.bus = bus
	return m, nil
}

func newAK8963(dev regIO) (*AK8963, error) {
	m := &AK8963{dev: dev}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AK8963) init() error {
	if err := m.write(ak8963CNTL2, ak8963SoftReset); err != nil {
		return fmt.Errorf("AK8963: soft reset: %w", err)
	}
	sleep(10 * time.Millisecond)

	id, err := m.read(ak8963WIA, 1)
	if err != nil {
		return fmt.Errorf("AK8963: read WIA: %w", err)
	}
	if id[0] != ak8963DeviceID {
		return fmt.Errorf("AK8963: unexpected device ID 0x%02X (want 0x%02X)", id[0], ak8963DeviceID)
	}

	// Factory sensitivity adjustment lives in fuse ROM.
	if err := m.write(ak8963CNTL1, ak8963ModePowerDown); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)
	if err := m.write(ak8963CNTL1, ak8963ModeFuseROM); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)
	asa, err := m.read(ak8963ASAX, 3)
	if err != nil {
		return fmt.Errorf("AK8963: read ASA: %w", err)
	}
	for i, v := range asa {
		m.asa[i] = (float64(v)-128)/256 + 1
	}

	if err := m.write(ak8963CNTL1, ak8963ModePowerDown); err != nil {
		return err
	}
	sleep(10 * time.Millisecond)
	if err := m.write(ak8963CNTL1, ak8963ModeCont100Hz); err != nil {
		return fmt.Errorf("AK8963: start continuous mode: %w", err)
	}
	sleep(10 * time.Millisecond)
	return nil
}

// Sense returns the field in µT, rotated into the accelerometer's axes.
// When no new measurement is ready the previous reading is returned.
func (m *AK8963) Sense() (motion.Vec3, error) {
	st1, err := m.read(ak8963ST1, 1)
	if err != nil {
		return motion.Vec3{}, fmt.Errorf("AK8963: read ST1: %w", err)
	}
	if st1[0]&ak8963DataReady == 0 {
		return m.last, nil
	}

	// HXL..HZH plus ST2; reading ST2 releases the data registers.
	buf, err := m.read(ak8963HXL, 7)
	if err != nil {
		return motion.Vec3{}, fmt.Errorf("AK8963: read data: %w", err)
	}
	if buf[6]&ak8963Overflow != 0 {
		return motion.Vec3{}, ErrMagOverflow
	}

	raw := decodeAK8963(buf[:6])
	hx := float64(raw[0]) * m.asa[0] * ak8963MicroTeslaPerLSB
	hy := float64(raw[1]) * m.asa[1] * ak8963MicroTeslaPerLSB
	hz := float64(raw[2]) * m.asa[2] * ak8963MicroTeslaPerLSB

	m.last = alignAK8963(hx, hy, hz)
	return m.last, nil
}

// Close powers the sensor down and releases the bus.
func (m *AK8963) Close() error {
	_ = m.write(ak8963CNTL1, ak8963ModePowerDown)
	if m.bus == nil {
		return nil
	}
	return m.bus.Close()
}

func (m *AK8963) write(reg, value byte) error {
	return m.dev.Tx([]byte{reg, value}, nil)
}

func (m *AK8963) read(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := m.dev.Tx([]byte{reg}, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeAK8963 converts little-endian HXL..HZH into signed counts.
func decodeAK8963(b []byte) [3]int16 {
	return [3]int16{
		int16(uint16(b[1])<<8 | uint16(b[0])),
		int16(uint16(b[3])<<8 | uint16(b[2])),
		int16(uint16(b[5])<<8 | uint16(b[4])),
	}
}

// alignAK8963 maps magnetometer axes onto the accelerometer frame:
// X and Y are swapped and Z points the other way.
func alignAK8963(hx, hy, hz float64) motion.Vec3 {
	return motion.Vec3{X: hy, Y: hx, Z: -hz}
}
