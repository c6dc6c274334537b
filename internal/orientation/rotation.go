// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

const (
	standardGravity = 9.80665

	// Accelerations below 1% of g are treated as free fall.
	freeFallGravitySquared = 0.01 * standardGravity * 0.01 * standardGravity

	// |E × A| below this means the field is (nearly) parallel to gravity.
	minHorizontalNorm = 0.1
)

// Matrix is a row-major 3×3 rotation matrix mapping device coordinates
// to world coordinates (X east, Y magnetic north, Z up).
type Matrix [9]float64

// Identity is the rotation of a device lying flat, top edge pointing north.
var Identity = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}

// RotationMatrix builds the device rotation from a gravity vector and a
// geomagnetic vector, both in device coordinates:
//
//	H = E × A   (east)
//	M = A × H   (magnetic north)
//	R = [H; M; A], each row normalized
//
// ok is false when the inputs cannot define a rotation: free fall, a zero
// or non-finite vector, or a field parallel to gravity.
func RotationMatrix(gravity, geomagnetic motion.Vec3) (r Matrix, ok bool) {
	if !gravity.Finite() || !geomagnetic.Finite() {
		return Identity, false
	}

	a := gravity
	normSqA := a.X*a.X + a.Y*a.Y + a.Z*a.Z
	if normSqA < freeFallGravitySquared {
		return Identity, false
	}

	h := geomagnetic.Cross(a)
	normH := h.Norm()
	if normH < minHorizontalNorm {
		return Identity, false
	}

	h = h.Scale(1 / normH)
	a = a.Scale(1 / math.Sqrt(normSqA))
	m := a.Cross(h)

	return Matrix{
		h.X, h.Y, h.Z,
		m.X, m.Y, m.Z,
		a.X, a.Y, a.Z,
	}, true
}

// Orientation extracts (azimuth, pitch, roll) in radians from r.
//
//	azimuth = atan2(R[1], R[4])
//	pitch   = asin(-R[7])
//	roll    = atan2(-R[6], R[8])
func (r Matrix) Orientation() (azimuth, pitch, roll float64) {
	// Rounding can push |R[7]| a hair past 1.
	s := math.Max(-1, math.Min(1, -r[7]))
	return math.Atan2(r[1], r[4]), math.Asin(s), math.Atan2(-r[6], r[8])
}
