package smoother

import (
	"math"
	"testing"
	"time"
)

func TestEaser_QuadraticEaseOut(t *testing.T) {
	t0 := time.Unix(100, 0)
	e := NewEaser(100 * time.Millisecond)
	e.SetDestination(1, -0.5, t0)

	tests := []struct {
		at    time.Duration
		wantX float64
	}{
		{0, 0},
		{25 * time.Millisecond, 1 - 0.75*0.75},
		{50 * time.Millisecond, 0.75},
		{100 * time.Millisecond, 1},
		{250 * time.Millisecond, 1},
	}
	for _, tt := range tests {
		x, y := e.Step(t0.Add(tt.at))
		if math.Abs(x-tt.wantX) > 1e-9 {
			t.Fatalf("at %v: x=%v want %v", tt.at, x, tt.wantX)
		}
		if math.Abs(y+0.5*tt.wantX) > 1e-9 {
			t.Fatalf("at %v: y=%v want %v", tt.at, y, -0.5*tt.wantX)
		}
	}
}

func TestEaser_RetargetStartsFromCurrent(t *testing.T) {
	t0 := time.Unix(100, 0)
	e := NewEaser(100 * time.Millisecond)
	e.SetDestination(1, 0, t0)
	mid, _ := e.Step(t0.Add(50 * time.Millisecond))

	e.SetDestination(-1, 0, t0.Add(50*time.Millisecond))
	x, _ := e.Step(t0.Add(50 * time.Millisecond))
	if x != mid {
		t.Fatalf("x=%v want animation to restart from %v", x, mid)
	}
	x, _ = e.Step(t0.Add(150 * time.Millisecond))
	if x != -1 {
		t.Fatalf("x=%v want -1", x)
	}
}

func TestEaser_ClampsDestination(t *testing.T) {
	e := NewEaser(0)
	e.SetDestination(4, -9, time.Unix(0, 0))
	x, y := e.Step(time.Unix(0, 0))
	if x != 1 || y != -1 {
		t.Fatalf("got (%v,%v) want (1,-1)", x, y)
	}
}

func TestEaser_Reset(t *testing.T) {
	e := NewEaser(DefaultEaseDuration)
	e.SetDestination(1, 1, time.Unix(0, 0))
	e.Step(time.Unix(1, 0))
	e.Reset()
	if x, y := e.Current(); x != 0 || y != 0 {
		t.Fatalf("current=(%v,%v) want rest", x, y)
	}
	if e.duration != DefaultEaseDuration {
		t.Fatalf("Reset dropped duration")
	}
}
