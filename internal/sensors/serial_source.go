package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/parallax_steering/internal/motion"
)

// maxBadLines bounds how many consecutive unparseable lines Next skips
// before reporting an error.
const maxBadLines = 32

// LineSource reads $SNACC / $SNMAG sentences from a line-oriented stream.
type LineSource struct {
	name   string
	rd     *bufio.Reader
	closer io.Closer
	now    func() time.Time
	bad    int
}

// NewLineSource wraps r. The name is recorded as the Source of every sample.
func NewLineSource(name string, r io.Reader) *LineSource {
	s := &LineSource{name: name, rd: bufio.NewReader(r), now: time.Now}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerial opens a sensor board on a serial port.
func OpenSerial(port string, baud int) (*LineSource, error) {
	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	rw, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	log.Printf("serial: reading sensor sentences from %s at %d baud", port, baud)
	return NewLineSource("serial", rw), nil
}

// Next returns the next sentence that decodes to a sample. Unknown or
// corrupt lines are skipped.
func (s *LineSource) Next() (motion.Sample, error) {
	bad := 0
	for {
		line, err := s.rd.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			sample, perr := motion.ParseSentence(line, s.name, s.now())
			if perr == nil {
				return sample, nil
			}
			bad++
			s.bad++
			if bad >= maxBadLines {
				return motion.Sample{}, fmt.Errorf("serial: %d unreadable lines, last: %w", bad, perr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return motion.Sample{}, io.EOF
			}
			return motion.Sample{}, fmt.Errorf("serial read: %w", err)
		}
	}
}

// Skipped returns the total number of lines that failed to decode.
func (s *LineSource) Skipped() int {
	return s.bad
}

// Close releases the underlying port, if any.
func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
