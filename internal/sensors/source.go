package sensors

import (
	"fmt"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// Source kinds accepted by OpenSource.
const (
	KindMock   = "mock"
	KindIMU    = "imu"
	KindSerial = "serial"
)

// OpenSource returns the sample source selected by kind. An empty kind
// falls back to cfg.SampleSource.
func OpenSource(cfg *config.Config, kind string) (motion.Source, error) {
	if kind == "" {
		kind = cfg.SampleSource
	}
	switch kind {
	case KindMock:
		return motion.NewMockSource(), nil
	case KindIMU:
		return NewIMUSource(cfg)
	case KindSerial:
		return OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
	default:
		return nil, fmt.Errorf("unknown sample source %q", kind)
	}
}
