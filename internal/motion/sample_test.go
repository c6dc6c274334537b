package motion

import (
	"math"
	"testing"
	"time"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in   string
		want Channel
		err  bool
	}{
		{"accelerometer", Accelerometer, false},
		{"acc", Accelerometer, false},
		{"mag", MagneticField, false},
		{"magnetic_field", MagneticField, false},
		{"gyro", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if (err != nil) != tt.err {
				t.Fatalf("err=%v wantErr=%v", err, tt.err)
			}
			if got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestVec3_CrossAndNorm(t *testing.T) {
	x := Vec3{X: 1}
	y := Vec3{Y: 1}
	if got := x.Cross(y); got != (Vec3{Z: 1}) {
		t.Fatalf("x×y=%+v want z", got)
	}
	if n := (Vec3{X: 3, Y: 4}).Norm(); n != 5 {
		t.Fatalf("norm=%v want 5", n)
	}
	if (Vec3{X: math.NaN()}).Finite() {
		t.Fatalf("NaN vector reported finite")
	}
}

func TestDeviceVectors_FlatFacingNorth(t *testing.T) {
	accel, mag := DeviceVectors(0, 0)
	if math.Abs(accel.Z-standardGravity) > 1e-9 || math.Abs(accel.X) > 1e-9 || math.Abs(accel.Y) > 1e-9 {
		t.Fatalf("accel=%+v want gravity on +Z", accel)
	}
	if math.Abs(mag.Y-mockFieldNorth) > 1e-9 || math.Abs(mag.Z+mockFieldDown) > 1e-9 {
		t.Fatalf("mag=%+v want north on +Y and dip on -Z", mag)
	}
}

func TestMockSource_AlternatesChannels(t *testing.T) {
	base := time.Unix(0, 0)
	now := base
	src := newMockSource(func() time.Time { return now }, 1, 0)

	want := []Channel{Accelerometer, MagneticField, Accelerometer, MagneticField}
	for i, ch := range want {
		now = base.Add(time.Duration(i) * 10 * time.Millisecond)
		s, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if s.Channel != ch {
			t.Fatalf("sample %d channel=%q want %q", i, s.Channel, ch)
		}
		if !s.Finite() {
			t.Fatalf("sample %d not finite: %+v", i, s.Vec3)
		}
	}
}
