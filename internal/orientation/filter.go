// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"math"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// DefaultAlpha is the low-pass smoothing coefficient. Lower is smoother but laggier.
const DefaultAlpha = 0.25

var ErrInvalidAlpha = errors.New("filter alpha must be in (0, 1]")

// ValidateAlpha reports whether alpha is a usable smoothing coefficient.
func ValidateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha > 1 {
		return ErrInvalidAlpha
	}
	return nil
}

// FilterState is the retained low-pass output of one sensor channel.
// The zero value is unprimed: it holds no prior data, which is not the
// same thing as a previous reading of (0, 0, 0).
type FilterState struct {
	value  motion.Vec3
	primed bool
}

// Primed reports whether the state holds a previous output.
func (s FilterState) Primed() bool { return s.primed }

// Value returns the last filtered output.
func (s FilterState) Value() motion.Vec3 { return s.value }

// Apply runs one exponential low-pass step:
//
//	out[i] = prev[i] + alpha*(in[i] - prev[i])
//
// An unprimed state passes the sample through unchanged.
func (s FilterState) Apply(in motion.Vec3, alpha float64) FilterState {
	if !s.primed {
		return FilterState{value: in, primed: true}
	}
	return FilterState{
		value: motion.Vec3{
			X: s.value.X + alpha*(in.X-s.value.X),
			Y: s.value.Y + alpha*(in.Y-s.value.Y),
			Z: s.value.Z + alpha*(in.Z-s.value.Z),
		},
		primed: true,
	}
}
