// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package smoother

import (
	"sync"
	"time"
)

const DefaultEaseDuration = 100 * time.Millisecond

// Easer follows the continuous normalized target instead of a discrete
// intent. Every new destination starts a quadratic ease-out from the value
// currently displayed:
//
//	progress = 1 - (1-t)²,  t = elapsed / duration
type Easer struct {
	mu sync.Mutex

	duration time.Duration

	startX, startY     float64
	destX, destY       float64
	currentX, currentY float64
	startedAt          time.Time
	animating          bool
}

// NewEaser returns an Easer with the given animation duration. A
// non-positive duration makes every destination apply immediately.
func NewEaser(duration time.Duration) *Easer {
	return &Easer{duration: duration}
}

// SetDestination starts a new animation toward (x, y) at time now.
func (e *Easer) SetDestination(x, y float64, now time.Time) {
	if !finite(x) || !finite(y) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startX, e.startY = e.currentX, e.currentY
	e.destX, e.destY = clamp(x), clamp(y)
	e.startedAt = now
	e.animating = true
}

// Step advances the animation to time now and returns the displayed value.
func (e *Easer) Step(now time.Time) (x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.animating {
		return e.currentX, e.currentY
	}

	elapsed := now.Sub(e.startedAt)
	if e.duration <= 0 || elapsed >= e.duration {
		e.animating = false
		e.currentX, e.currentY = e.destX, e.destY
		return e.currentX, e.currentY
	}
	if elapsed < 0 {
		elapsed = 0
	}

	t := float64(elapsed) / float64(e.duration)
	progress := 1 - (1-t)*(1-t)
	e.currentX = clamp(e.startX + (e.destX-e.startX)*progress)
	e.currentY = clamp(e.startY + (e.destY-e.startY)*progress)
	return e.currentX, e.currentY
}

// Current returns the displayed value without advancing.
func (e *Easer) Current() (x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentX, e.currentY
}

func (e *Easer) SetDuration(d time.Duration) {
	e.mu.Lock()
	e.duration = d
	e.mu.Unlock()
}

// Reset stops any animation and returns to rest.
func (e *Easer) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startX, e.startY = 0, 0
	e.destX, e.destY = 0, 0
	e.currentX, e.currentY = 0, 0
	e.startedAt = time.Time{}
	e.animating = false
}
