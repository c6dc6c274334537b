// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// Pose is the device orientation in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"` // azimuth from magnetic north
}

// PoseFromRotation converts a rotation matrix to a Pose.
func PoseFromRotation(r Matrix) Pose {
	azimuth, pitch, roll := r.Orientation()
	return Pose{
		Roll:  toDegrees(roll),
		Pitch: toDegrees(pitch),
		Yaw:   toDegrees(azimuth),
	}
}

// Angles are the two tilt angles that drive the parallax, in degrees.
// DegreeX is forward/back tilt (negated pitch), DegreeY is left/right (roll).
type Angles struct {
	DegreeX float64 `json:"degree_x"`
	DegreeY float64 `json:"degree_y"`
}

// AnglesFromPose picks the steering angles out of a full pose.
func AnglesFromPose(p Pose) Angles {
	return Angles{DegreeX: -p.Pitch, DegreeY: p.Roll}
}

// Derive computes steering angles from filtered accelerometer and
// magnetic-field vectors. If the vectors are degenerate the previous
// angles are returned unchanged.
func Derive(accel, mag motion.Vec3, prev Angles) Angles {
	r, ok := RotationMatrix(accel, mag)
	if !ok {
		return prev
	}
	return AnglesFromPose(PoseFromRotation(r))
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
