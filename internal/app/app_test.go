package app

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

type publishedMsg struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (p *fakePublisher) Publish(topic string, retained bool, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, publishedMsg{topic: topic, retained: retained, payload: payload})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func (p *fakePublisher) lastOffset(t *testing.T) steering.Offset {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		t.Fatalf("nothing published")
	}
	var off steering.Offset
	if err := json.Unmarshal(p.msgs[len(p.msgs)-1].payload, &off); err != nil {
		t.Fatalf("unmarshal offset: %v", err)
	}
	return off
}

func TestPublishSample_RoutesByChannel(t *testing.T) {
	cfg := config.Default()
	pub := &fakePublisher{}

	if err := publishSample(pub, cfg, motion.Sample{Channel: motion.Accelerometer, Vec3: motion.Vec3{Z: 9.8}}); err != nil {
		t.Fatalf("accel: %v", err)
	}
	if err := publishSample(pub, cfg, motion.Sample{Channel: motion.MagneticField, Vec3: motion.Vec3{Y: 22}}); err != nil {
		t.Fatalf("mag: %v", err)
	}
	if err := publishSample(pub, cfg, motion.Sample{Channel: "gyro"}); err == nil {
		t.Fatalf("expected error for unknown channel")
	}

	if pub.count() != 2 {
		t.Fatalf("published %d messages, want 2", pub.count())
	}
	if pub.msgs[0].topic != cfg.TopicAccel || pub.msgs[1].topic != cfg.TopicMag {
		t.Fatalf("topics=%s,%s", pub.msgs[0].topic, pub.msgs[1].topic)
	}

	var s motion.Sample
	if err := json.Unmarshal(pub.msgs[1].payload, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Channel != motion.MagneticField || s.Y != 22 {
		t.Fatalf("sample=%+v", s)
	}
}

func TestPublishSample_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	err := publishSample(pub, config.Default(), motion.Sample{Channel: motion.Accelerometer})
	if err == nil || !strings.Contains(err.Error(), "broker gone") {
		t.Fatalf("err=%v", err)
	}
}

func samplePayload(t *testing.T, v motion.Vec3) []byte {
	t.Helper()
	b, err := json.Marshal(motion.Sample{Source: "test", Vec3: v})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newTestService(t *testing.T) (*steeringService, *fakePublisher, *config.Config) {
	t.Helper()
	cfg := config.Default()
	pub := &fakePublisher{}
	svc, err := newSteeringService(cfg, pub)
	if err != nil {
		t.Fatalf("newSteeringService: %v", err)
	}
	return svc, pub, cfg
}

func TestSteeringService_SamplesToOffsets(t *testing.T) {
	svc, pub, cfg := newTestService(t)

	// Tilted device: normalized target (0.5, 0.5), intent +1 on both axes.
	accel, mag := motion.DeviceVectors(-45, 7.5)
	svc.handleMessage(cfg.TopicAccel, samplePayload(t, accel))
	svc.handleMessage(cfg.TopicMag, samplePayload(t, mag))

	now := time.Unix(1700000000, 0)
	for i := 1; i <= 3; i++ {
		if err := svc.frame(now.Add(time.Duration(i) * 16 * time.Millisecond)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	if pub.count() != 3 {
		t.Fatalf("published %d offsets, want 3", pub.count())
	}
	off := pub.lastOffset(t)
	want := 3 * cfg.SmootherSpeed
	if math.Abs(off.X-want) > 1e-9 || math.Abs(off.Y-want) > 1e-9 {
		t.Fatalf("offset=%+v want (%.2f, %.2f)", off, want, want)
	}
	if pub.msgs[0].topic != cfg.TopicSteering || !pub.msgs[0].retained {
		t.Fatalf("msg=%+v", pub.msgs[0])
	}
}

func TestSteeringService_PublishesOnlyChanges(t *testing.T) {
	svc, pub, _ := newTestService(t)

	now := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		if err := svc.frame(now.Add(time.Duration(i) * time.Millisecond)); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}
	if pub.count() != 1 {
		t.Fatalf("published %d offsets for a still pipeline, want 1", pub.count())
	}
}

func TestSteeringService_PauseDropsSamples(t *testing.T) {
	svc, _, cfg := newTestService(t)

	svc.handleMessage(cfg.TopicSession, []byte("pause"))
	if !svc.ctrl.Paused() {
		t.Fatalf("expected paused")
	}

	accel, mag := motion.DeviceVectors(-45, 7.5)
	svc.handleMessage(cfg.TopicAccel, samplePayload(t, accel))
	svc.handleMessage(cfg.TopicMag, samplePayload(t, mag))
	if n := svc.ctrl.Status().Samples; n != 0 {
		t.Fatalf("samples=%d while paused", n)
	}

	svc.handleMessage(cfg.TopicSession, []byte(`{"action":"resume"}`))
	if svc.ctrl.Paused() {
		t.Fatalf("expected resumed")
	}
	svc.handleMessage(cfg.TopicAccel, samplePayload(t, accel))
	if n := svc.ctrl.Status().Samples; n != 1 {
		t.Fatalf("samples=%d after resume, want 1", n)
	}
}

func TestSteeringService_BadPayloadIgnored(t *testing.T) {
	svc, _, cfg := newTestService(t)
	svc.handleMessage(cfg.TopicAccel, []byte("not json"))
	svc.handleMessage(cfg.TopicSession, []byte("explode"))
	st := svc.ctrl.Status()
	if st.Samples != 0 || st.Paused {
		t.Fatalf("status=%+v", st)
	}
}

func TestParseSessionCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"pause", SessionPause, false},
		{" RESUME\n", SessionResume, false},
		{`{"action":"pause"}`, SessionPause, false},
		{`{"action":`, "", true},
		{"stop", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseSessionCommand([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseSessionCommand(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseSessionCommand(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLines(t *testing.T) {
	line := formatSteering(steering.Offset{X: 0.25, Y: -1})
	if !strings.HasPrefix(line, "[STEER]") || !strings.Contains(line, "+0.250") || !strings.Contains(line, "-1.000") {
		t.Fatalf("steering line=%q", line)
	}

	line = formatSample(motion.Sample{Channel: motion.MagneticField, Source: "imu", Vec3: motion.Vec3{X: 3, Y: 4}})
	if !strings.HasPrefix(line, "[MAG]") || !strings.Contains(line, "5.000") || !strings.Contains(line, "src=imu") {
		t.Fatalf("sample line=%q", line)
	}
}
