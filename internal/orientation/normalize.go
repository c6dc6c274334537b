// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBounds = errors.New("invalid tilt bounds")

// Bounds are the comfortable tilt ranges of a handheld device, in degrees.
// Forward/back (X) and left/right (Y) have different ranges.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// DefaultBounds: X in [0°, 60°], Y in [-15°, 15°].
var DefaultBounds = Bounds{MinX: 0, MaxX: 60, MinY: -15, MaxY: 15}

// Validate checks that both ranges are finite and non-empty.
func (b Bounds) Validate() error {
	for _, v := range []float64{b.MinX, b.MaxX, b.MinY, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidBounds)
		}
	}
	if b.MinX >= b.MaxX {
		return fmt.Errorf("%w: x range [%g, %g] is empty", ErrInvalidBounds, b.MinX, b.MaxX)
	}
	if b.MinY >= b.MaxY {
		return fmt.Errorf("%w: y range [%g, %g] is empty", ErrInvalidBounds, b.MinY, b.MaxY)
	}
	return nil
}

// Target is a normalized steering target, both axes in [-1, 1].
type Target struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClampAndNormalize clamps the angles into b and rescales each axis
// linearly so that the lower bound maps to -1 and the upper bound to +1.
// With DefaultBounds this is nx = (dx/60 - 0.5)*2 and ny = dy/30*2.
func ClampAndNormalize(a Angles, b Bounds) Target {
	return Target{
		X: normalize(a.DegreeX, b.MinX, b.MaxX),
		Y: normalize(a.DegreeY, b.MinY, b.MaxY),
	}
}

func normalize(deg, lo, hi float64) float64 {
	if math.IsNaN(deg) {
		return 0
	}
	deg = math.Max(lo, math.Min(hi, deg))
	n := ((deg-lo)/(hi-lo) - 0.5) * 2
	return math.Max(-1, math.Min(1, n))
}
