// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"math"
	"math/rand"
	"time"
)

const (
	standardGravity = 9.80665

	// Local geomagnetic field used by the mock, µT (horizontal north, vertical down).
	mockFieldNorth = 22.0
	mockFieldDown  = 40.0
)

type mockSource struct {
	start  time.Time
	now    func() time.Time
	rng    *rand.Rand
	noise  float64
	nextCh Channel
}

// NewMockSource creates a mock sample source that simulates a handheld
// device slowly rocking forward/back and left/right. Successive calls to
// Next alternate between the accelerometer and magnetic channels.
func NewMockSource() Source {
	return newMockSource(time.Now, time.Now().UnixNano(), 0.08)
}

func newMockSource(now func() time.Time, seed int64, noise float64) *mockSource {
	return &mockSource{
		start:  now(),
		now:    now,
		rng:    rand.New(rand.NewSource(seed)),
		noise:  noise,
		nextCh: Accelerometer,
	}
}

func (m *mockSource) Next() (Sample, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	pitchDeg := -(30 + 25*math.Sin(elapsed*0.6))
	rollDeg := 12 * math.Sin(elapsed)
	accel, mag := DeviceVectors(pitchDeg, rollDeg)

	ch := m.nextCh
	var v Vec3
	if ch == Accelerometer {
		v = accel
		m.nextCh = MagneticField
	} else {
		v = mag
		m.nextCh = Accelerometer
	}

	v.X += m.noise * m.rng.NormFloat64()
	v.Y += m.noise * m.rng.NormFloat64()
	v.Z += m.noise * m.rng.NormFloat64()

	return Sample{Source: "mock", Channel: ch, Vec3: v, Time: t}, nil
}

// DeviceVectors returns the accelerometer (m/s²) and magnetic-field (µT)
// readings a device would report at the given pitch and roll, facing north.
func DeviceVectors(pitchDeg, rollDeg float64) (accel, mag Vec3) {
	p := pitchDeg * math.Pi / 180
	r := rollDeg * math.Pi / 180

	up := Vec3{
		X: -math.Cos(p) * math.Sin(r),
		Y: -math.Sin(p),
		Z: math.Cos(p) * math.Cos(r),
	}

	// East: device X axis projected onto the horizontal plane.
	d := up.X
	east := Vec3{X: 1 - d*up.X, Y: -d * up.Y, Z: -d * up.Z}
	east = east.Scale(1 / east.Norm())
	north := up.Cross(east)

	accel = up.Scale(standardGravity)
	mag = Vec3{
		X: mockFieldNorth*north.X - mockFieldDown*up.X,
		Y: mockFieldNorth*north.Y - mockFieldDown*up.Y,
		Z: mockFieldNorth*north.Z - mockFieldDown*up.Z,
	}
	return accel, mag
}
