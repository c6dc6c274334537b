// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package steering wires the signal filter and the smoother into one
// controller fed by sensor samples and ticked by the renderer.
package steering

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/orientation"
	"github.com/relabs-tech/parallax_steering/internal/smoother"
)

// Mode selects how the displayed offset follows the sensor.
type Mode string

const (
	// ModeIntent moves toward the discrete direction of motion at a fixed speed.
	ModeIntent Mode = "intent"
	// ModeEase eases toward the continuous normalized target.
	ModeEase Mode = "ease"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIntent, ModeEase:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown steering mode %q (want %q or %q)", s, ModeIntent, ModeEase)
}

// Settings are the tunables of a Controller.
type Settings struct {
	Alpha         float64
	Bounds        orientation.Bounds
	Speed         float64
	Threshold     float64
	Mode          Mode
	EaseDuration  time.Duration
	ResetOnResume bool
}

// DefaultSettings mirror the device-tuned values.
func DefaultSettings() Settings {
	return Settings{
		Alpha:        orientation.DefaultAlpha,
		Bounds:       orientation.DefaultBounds,
		Speed:        smoother.DefaultSpeed,
		Threshold:    smoother.DefaultThreshold,
		Mode:         ModeIntent,
		EaseDuration: smoother.DefaultEaseDuration,
	}
}

// Offset is the steering value handed to the renderer, both axes in [-1, 1].
type Offset struct {
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Time time.Time `json:"time"`
}

// Status is a diagnostic snapshot of the pipeline.
type Status struct {
	Mode    Mode               `json:"mode"`
	Paused  bool               `json:"paused"`
	Angles  orientation.Angles `json:"angles"`
	Target  orientation.Target `json:"target"`
	IntentX float64            `json:"intent_x"`
	IntentY float64            `json:"intent_y"`
	Offset  Offset             `json:"offset"`
	Samples uint64             `json:"samples"`
	Frames  uint64             `json:"frames"`
}

// Controller owns one sensing session: a SignalFilter, a MotionSmoother
// and an Easer. HandleSample runs on the sensor side, Tick on the render
// side.
type Controller struct {
	filter *orientation.SignalFilter
	smooth *smoother.MotionSmoother
	ease   *smoother.Easer

	mu            sync.RWMutex
	mode          Mode
	resetOnResume bool
	paused        bool
	target        orientation.Target
	offset        Offset
	samples       uint64
	frames        uint64
}

// New builds a Controller from s.
func New(s Settings) (*Controller, error) {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return nil, err
	}
	f, err := orientation.NewSignalFilter(s.Alpha, s.Bounds)
	if err != nil {
		return nil, fmt.Errorf("steering: %w", err)
	}
	m, err := smoother.New(s.Speed, s.Threshold)
	if err != nil {
		return nil, fmt.Errorf("steering: %w", err)
	}
	return &Controller{
		filter:        f,
		smooth:        m,
		ease:          smoother.NewEaser(s.EaseDuration),
		mode:          s.Mode,
		resetOnResume: s.ResetOnResume,
	}, nil
}

// HandleSample feeds one raw sample through the filter. When a new target
// is available it replaces the previous one. Samples are dropped while paused.
func (c *Controller) HandleSample(s motion.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return
	}
	c.samples++

	target, ok := c.filter.Push(s)
	if !ok {
		return
	}
	c.target = target

	at := s.Time
	if at.IsZero() {
		at = time.Now()
	}
	c.smooth.SetTarget(target.X, target.Y)
	c.ease.SetDestination(target.X, target.Y, at)
}

// Tick advances one render frame and returns the new offset.
func (c *Controller) Tick(now time.Time) Offset {
	c.mu.Lock()
	defer c.mu.Unlock()

	var x, y float64
	switch c.mode {
	case ModeEase:
		x, y = c.ease.Step(now)
	default:
		c.smooth.Update()
		x, y = c.smooth.Current()
	}
	c.frames++
	c.offset = Offset{X: x, Y: y, Time: now}
	return c.offset
}

// Offset returns the most recent offset without advancing.
func (c *Controller) Offset() Offset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// Status returns a diagnostic snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ix, iy := c.smooth.Target()
	return Status{
		Mode:    c.mode,
		Paused:  c.paused,
		Angles:  c.filter.Angles(),
		Target:  c.target,
		IntentX: ix,
		IntentY: iy,
		Offset:  c.offset,
		Samples: c.samples,
		Frames:  c.frames,
	}
}

// Pause stops accepting samples. Ticks keep running so the offset settles.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume accepts samples again, dropping the filter state first if the
// controller was configured to.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	if c.resetOnResume {
		c.filter.Reset()
	}
}

// Paused reports whether samples are currently dropped.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Apply changes the tunables of a running controller. Every value is
// validated before any is applied; on error nothing changes.
func (c *Controller) Apply(s Settings) error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if err := orientation.ValidateAlpha(s.Alpha); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	if err := s.Bounds.Validate(); err != nil {
		return fmt.Errorf("steering: %w", err)
	}
	if _, err := smoother.New(s.Speed, s.Threshold); err != nil {
		return fmt.Errorf("steering: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Validated above; these cannot fail.
	_ = c.filter.SetAlpha(s.Alpha)
	_ = c.filter.SetBounds(s.Bounds)
	_ = c.smooth.SetSpeed(s.Speed)
	_ = c.smooth.SetThreshold(s.Threshold)
	c.ease.SetDuration(s.EaseDuration)

	if s.Mode != c.mode {
		c.smooth.Reset()
		c.ease.Reset()
		c.mode = s.Mode
	}
	c.resetOnResume = s.ResetOnResume
	return nil
}
