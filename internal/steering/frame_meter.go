package steering

import "time"

// FrameMeter counts frames and reports the rate once per interval.
// Not safe for concurrent use; keep it on the render goroutine.
type FrameMeter struct {
	interval time.Duration
	start    time.Time
	frames   int
}

func NewFrameMeter(interval time.Duration) *FrameMeter {
	return &FrameMeter{interval: interval}
}

// Frame records one frame at now. When a full interval has elapsed it
// returns the measured frames per second and true, then starts a new window.
func (m *FrameMeter) Frame(now time.Time) (fps float64, ok bool) {
	if m.start.IsZero() {
		m.start = now
	}
	elapsed := now.Sub(m.start)
	if m.interval > 0 && elapsed >= m.interval {
		fps = float64(m.frames) / elapsed.Seconds()
		m.start = now
		m.frames = 0
		ok = true
	}
	m.frames++
	return fps, ok
}
