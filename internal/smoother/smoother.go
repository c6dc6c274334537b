// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package smoother animates the displayed parallax offset toward the
// direction the device is moving in, at a bounded speed per frame.
package smoother

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

const (
	DefaultSpeed     = 0.05
	DefaultThreshold = 0.05
)

var (
	ErrInvalidSpeed     = errors.New("smoother speed must be > 0")
	ErrInvalidThreshold = errors.New("smoother threshold must be >= 0")
)

// MotionSmoother tracks a discrete directional intent per axis and moves
// the current value toward it by at most speed per Update.
//
// SetTarget is called from the sensor side, Update from the render side;
// both may run on different goroutines.
type MotionSmoother struct {
	mu sync.Mutex

	sensorX, sensorY         float64 // latest normalized target
	targetX, targetY         float64 // intent, always -1, 0 or 1
	currentX, currentY       float64 // displayed value, always in [-1, 1]
	lastSensorX, lastSensorY float64

	speed     float64
	threshold float64
}

// New returns a smoother with the given speed and threshold.
func New(speed, threshold float64) (*MotionSmoother, error) {
	m := &MotionSmoother{}
	if err := m.SetSpeed(speed); err != nil {
		return nil, err
	}
	if err := m.SetThreshold(threshold); err != nil {
		return nil, err
	}
	return m, nil
}

// NewDefault returns a smoother with DefaultSpeed and DefaultThreshold.
func NewDefault() *MotionSmoother {
	return &MotionSmoother{speed: DefaultSpeed, threshold: DefaultThreshold}
}

// SetTarget classifies the change since the previous target into an intent
// per axis: +1 if it grew by more than threshold, -1 if it shrank by more
// than threshold, 0 otherwise. Only the direction is kept. Non-finite
// input is ignored.
func (m *MotionSmoother) SetTarget(x, y float64) {
	if !finite(x) || !finite(y) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sensorX, m.sensorY = x, y
	m.targetX = intent(x-m.lastSensorX, m.threshold)
	m.targetY = intent(y-m.lastSensorY, m.threshold)
	m.lastSensorX, m.lastSensorY = x, y
}

// Update advances one frame.
func (m *MotionSmoother) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentX = clamp(step(m.currentX, m.targetX, m.speed))
	m.currentY = clamp(step(m.currentY, m.targetY, m.speed))
}

// Current returns the displayed value.
func (m *MotionSmoother) Current() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentX, m.currentY
}

func (m *MotionSmoother) CurrentX() float64 {
	x, _ := m.Current()
	return x
}

func (m *MotionSmoother) CurrentY() float64 {
	_, y := m.Current()
	return y
}

// Target returns the current intent.
func (m *MotionSmoother) Target() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targetX, m.targetY
}

// Sensor returns the most recent value passed to SetTarget.
func (m *MotionSmoother) Sensor() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensorX, m.sensorY
}

// SetSpeed sets the per-frame step. Non-positive or non-finite values are
// rejected and the previous speed is kept.
func (m *MotionSmoother) SetSpeed(speed float64) error {
	if !finite(speed) || speed <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidSpeed, speed)
	}
	m.mu.Lock()
	m.speed = speed
	m.mu.Unlock()
	return nil
}

// SetThreshold sets the minimum change that counts as movement.
func (m *MotionSmoother) SetThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidThreshold, threshold)
	}
	m.mu.Lock()
	m.threshold = threshold
	m.mu.Unlock()
	return nil
}

func (m *MotionSmoother) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

func (m *MotionSmoother) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Reset returns all dynamic state to rest. Speed and threshold are kept.
func (m *MotionSmoother) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensorX, m.sensorY = 0, 0
	m.targetX, m.targetY = 0, 0
	m.currentX, m.currentY = 0, 0
	m.lastSensorX, m.lastSensorY = 0, 0
}

func intent(delta, threshold float64) float64 {
	switch {
	case delta > threshold:
		return 1
	case delta < -threshold:
		return -1
	default:
		return 0
	}
}

// Steps landing within snapEpsilon of the target snap onto it, so repeated
// additions of speed cannot stall one rounding error short.
const snapEpsilon = 1e-9

func step(current, target, speed float64) float64 {
	switch {
	case current < target:
		next := current + speed
		if next >= target-snapEpsilon {
			return target
		}
		return next
	case current > target:
		next := current - speed
		if next <= target+snapEpsilon {
			return target
		}
		return next
	default:
		return current
	}
}

// clamp limits v to [-1, 1]. NaN collapses to 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
