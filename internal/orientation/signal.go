// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// SignalFilter turns raw accelerometer and magnetic-field samples into a
// normalized steering target. Each channel keeps its own low-pass state.
// It is safe for concurrent use.
type SignalFilter struct {
	mu sync.Mutex

	alpha  float64
	bounds Bounds

	accel FilterState
	mag   FilterState

	angles Angles
}

// NewSignalFilter returns a filter with the given coefficient and bounds.
func NewSignalFilter(alpha float64, bounds Bounds) (*SignalFilter, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &SignalFilter{alpha: alpha, bounds: bounds}, nil
}

// Push feeds one sample into its channel. Once both channels have data it
// returns the current normalized target and true.
func (f *SignalFilter) Push(s motion.Sample) (Target, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !s.Finite() {
		return Target{}, false
	}

	switch s.Channel {
	case motion.Accelerometer:
		f.accel = f.accel.Apply(s.Vec3, f.alpha)
	case motion.MagneticField:
		f.mag = f.mag.Apply(s.Vec3, f.alpha)
	default:
		return Target{}, false
	}

	if !f.accel.Primed() || !f.mag.Primed() {
		return Target{}, false
	}

	f.angles = Derive(f.accel.Value(), f.mag.Value(), f.angles)
	return ClampAndNormalize(f.angles, f.bounds), true
}

// Angles returns the most recent steering angles.
func (f *SignalFilter) Angles() Angles {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.angles
}

// SetAlpha changes the smoothing coefficient. Invalid values are rejected
// and the previous coefficient is kept.
func (f *SignalFilter) SetAlpha(alpha float64) error {
	if err := ValidateAlpha(alpha); err != nil {
		return fmt.Errorf("set alpha %g: %w", alpha, err)
	}
	f.mu.Lock()
	f.alpha = alpha
	f.mu.Unlock()
	return nil
}

// SetBounds changes the clamp ranges.
func (f *SignalFilter) SetBounds(b Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	f.bounds = b
	f.mu.Unlock()
	return nil
}

// Reset drops both channel states so the next samples pass through
// unfiltered. Used when a sensing session restarts.
func (f *SignalFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accel = FilterState{}
	f.mag = FilterState{}
	f.angles = Angles{}
}
