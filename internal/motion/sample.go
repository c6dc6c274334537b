// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"fmt"
	"math"
	"time"
)

// Channel identifies which sensor produced a sample.
type Channel string

const (
	Accelerometer Channel = "accelerometer"  // m/s²
	MagneticField Channel = "magnetic_field" // µT
)

// ParseChannel accepts the channel names used on the wire and in config.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "accelerometer", "accel", "acc":
		return Accelerometer, nil
	case "magnetic_field", "mag", "magnetic":
		return MagneticField, nil
	}
	return "", fmt.Errorf("unknown sensor channel %q", s)
}

// Vec3 is a 3-axis reading in device coordinates.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Cross returns v × w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		X: v.Y*w.Z - v.Z*w.Y,
		Y: v.Z*w.X - v.X*w.Z,
		Z: v.X*w.Y - v.Y*w.X,
	}
}

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Finite reports whether every component is a finite number.
func (v Vec3) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Sample represents a single raw reading from one sensor channel.
type Sample struct {
	Source  string    `json:"source"` // "mock", "imu", "serial", ...
	Channel Channel   `json:"channel"`
	Vec3              // reading
	Time    time.Time `json:"time"`
}

// Source is anything that can deliver raw samples over time.
type Source interface {
	Next() (Sample, error)
}
