package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relabs-tech/parallax_steering/internal/steering"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrContains(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("error=%q want it to contain %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "parallax_config.txt", "# only comments\n\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FilterAlpha != 0.25 || cfg.SmootherSpeed != 0.05 || cfg.SmootherThreshold != 0.05 {
		t.Fatalf("tuning defaults not applied: %+v", cfg)
	}
	b := cfg.Bounds()
	if b.MinX != 0 || b.MaxX != 60 || b.MinY != -15 || b.MaxY != 15 {
		t.Fatalf("bounds=%+v want [0,60]x[-15,15]", b)
	}
	if cfg.SteeringMode != "intent" || cfg.SampleSource != "mock" {
		t.Fatalf("mode=%q source=%q", cfg.SteeringMode, cfg.SampleSource)
	}
}

func TestLoad_KeyValue(t *testing.T) {
	path := writeTempConfig(t, "parallax_config.txt", strings.Join([]string{
		"MQTT_BROKER=tcp://broker:1883",
		"FILTER_ALPHA = 0.4",
		"SMOOTHER_SPEED=0.1",
		"STEERING_MODE=ease",
		"EASE_DURATION_MS=150",
		"RESET_FILTER_ON_RESUME=true",
		"MAG_I2C_ADDR=0x0D",
		"DEGREE_Y_MIN=-20",
		"DEGREE_Y_MAX=20",
	}, "\n"))
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" || cfg.FilterAlpha != 0.4 || cfg.MagI2CAddr != 0x0D {
		t.Fatalf("values not parsed: %+v", cfg)
	}

	s := cfg.SteeringSettings()
	if s.Mode != steering.ModeEase || s.EaseDuration != 150*time.Millisecond || !s.ResetOnResume {
		t.Fatalf("settings=%+v", s)
	}
	if s.Bounds.MinY != -20 || s.Speed != 0.1 {
		t.Fatalf("settings=%+v", s)
	}
	if _, err := steering.New(s); err != nil {
		t.Fatalf("steering.New(settings): %v", err)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeTempConfig(t, "parallax.toml", `
mqtt_broker = "tcp://toml:1883"
smoother_threshold = 0.1
steering_mode = "ease"
frame_interval = 33
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTTBroker != "tcp://toml:1883" || cfg.SmootherThreshold != 0.1 || cfg.FrameInterval != 33 {
		t.Fatalf("TOML values not applied: %+v", cfg)
	}
	if cfg.SmootherSpeed != 0.05 {
		t.Fatalf("default lost: speed=%v", cfg.SmootherSpeed)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeTempConfig(t, "parallax.yaml", "filter_alpha: 0.5\nsample_source: serial\nserial_port: /dev/ttyACM0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FilterAlpha != 0.5 || cfg.SampleSource != "serial" || cfg.SerialPort != "/dev/ttyACM0" {
		t.Fatalf("YAML values not applied: %+v", cfg)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name  string
		lines string
		want  string
	}{
		{"ZeroSpeed", "SMOOTHER_SPEED=0", "SMOOTHER_SPEED must be > 0"},
		{"NegativeSpeed", "SMOOTHER_SPEED=-0.2", "SMOOTHER_SPEED must be > 0"},
		{"NegativeThreshold", "SMOOTHER_THRESHOLD=-1", "SMOOTHER_THRESHOLD must be >= 0"},
		{"AlphaTooLarge", "FILTER_ALPHA=1.5", "FILTER_ALPHA must be in (0, 1]"},
		{"EmptyXRange", "DEGREE_X_MIN=60", "DEGREE_X/Y bounds"},
		{"UnknownMode", "STEERING_MODE=tilt", "STEERING_MODE"},
		{"UnknownSource", "SAMPLE_SOURCE=gps", "SAMPLE_SOURCE must be"},
		{"UnknownKey", "GPS_BAUD_RATE=9600", "unknown config key"},
		{"BadNumber", "FILTER_ALPHA=abc", "invalid FILTER_ALPHA"},
		{"MissingEquals", "FILTER_ALPHA", "invalid config line 1"},
		{"EmptyBroker", "MQTT_BROKER=", "MQTT_BROKER is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, "parallax_config.txt", tc.lines+"\n")
			_, err := Load(path)
			requireErrContains(t, err, tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	requireErrContains(t, err, "failed to open config file")
}

func TestWatch_ReloadsValidChanges(t *testing.T) {
	path := writeTempConfig(t, "parallax_config.txt", "SMOOTHER_SPEED=0.05\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { changes <- c }) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("SMOOTHER_SPEED=-1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	select {
	case c := <-changes:
		t.Fatalf("invalid config was applied: %+v", c)
	case <-time.After(600 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("SMOOTHER_SPEED=0.2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	select {
	case c := <-changes:
		if c.SmootherSpeed != 0.2 {
			t.Fatalf("speed=%v want 0.2", c.SmootherSpeed)
		}
		if Get() != c {
			t.Fatalf("global config not swapped")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
}
