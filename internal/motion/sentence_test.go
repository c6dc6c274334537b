package motion

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestParseSentence_Accel(t *testing.T) {
	at := time.Unix(1700000000, 0)
	line, err := FormatSentence(Sample{Channel: Accelerometer, Vec3: Vec3{X: 0.12, Y: -4.5, Z: 8.75}})
	if err != nil {
		t.Fatalf("FormatSentence: %v", err)
	}
	if !strings.HasPrefix(line, "$SNACC,") {
		t.Fatalf("line=%q want $SNACC prefix", line)
	}

	s, err := ParseSentence(line+"\r\n", "serial", at)
	if err != nil {
		t.Fatalf("ParseSentence(%q): %v", line, err)
	}
	if s.Channel != Accelerometer || s.Source != "serial" || !s.Time.Equal(at) {
		t.Fatalf("sample=%+v", s)
	}
	if math.Abs(s.Y+4.5) > 1e-9 || math.Abs(s.Z-8.75) > 1e-9 {
		t.Fatalf("vec=%+v", s.Vec3)
	}
}

func TestParseSentence_Mag(t *testing.T) {
	line, err := FormatSentence(Sample{Channel: MagneticField, Vec3: Vec3{X: 1, Y: 50, Z: -3}})
	if err != nil {
		t.Fatalf("FormatSentence: %v", err)
	}
	s, err := ParseSentence(line, "serial", time.Time{})
	if err != nil {
		t.Fatalf("ParseSentence: %v", err)
	}
	if s.Channel != MagneticField || s.Y != 50 {
		t.Fatalf("sample=%+v", s)
	}
}

func TestParseSentence_BadChecksum(t *testing.T) {
	line, err := FormatSentence(Sample{Channel: Accelerometer, Vec3: Vec3{Z: 9.8}})
	if err != nil {
		t.Fatalf("FormatSentence: %v", err)
	}
	// Corrupt one payload digit but keep the original checksum.
	corrupt := strings.Replace(line, "9.8000", "9.8001", 1)
	if _, err := ParseSentence(corrupt, "serial", time.Time{}); err == nil {
		t.Fatalf("expected checksum error for %q", corrupt)
	}
}

func TestParseSentence_Garbage(t *testing.T) {
	for _, line := range []string{"", "hello", "$SNACC,1,2"} {
		if _, err := ParseSentence(line, "serial", time.Time{}); err == nil {
			t.Errorf("ParseSentence(%q): expected error", line)
		}
	}
}

func TestFormatSentence_UnknownChannel(t *testing.T) {
	if _, err := FormatSentence(Sample{Channel: "gyro"}); err == nil {
		t.Fatalf("expected error")
	}
}
