// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Sensor boards on the serial link emit one NMEA-style sentence per reading:
//
//	$SNACC,<x>,<y>,<z>*hh   accelerometer, m/s²
//	$SNMAG,<x>,<y>,<z>*hh   magnetic field, µT
const (
	SentenceTalker = "SN"
	TypeAccel      = "ACC"
	TypeMag        = "MAG"
)

// VectorSentence is a decoded $SNACC / $SNMAG sentence.
type VectorSentence struct {
	nmea.BaseSentence
	X float64
	Y float64
	Z float64
}

func parseVector(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	v := VectorSentence{
		BaseSentence: s,
		X:            p.Float64(0, "x"),
		Y:            p.Float64(1, "y"),
		Z:            p.Float64(2, "z"),
	}
	return v, p.Err()
}

var sentenceParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeAccel: parseVector,
		TypeMag:   parseVector,
	},
}

// ParseSentence decodes one line from a sensor board into a Sample.
// The checksum is verified by the NMEA parser.
func ParseSentence(line, source string, at time.Time) (Sample, error) {
	sentence, err := sentenceParser.Parse(strings.TrimSpace(line))
	if err != nil {
		return Sample{}, fmt.Errorf("parse sentence: %w", err)
	}

	v, ok := sentence.(VectorSentence)
	if !ok {
		return Sample{}, fmt.Errorf("unsupported sentence type %q", sentence.DataType())
	}

	var ch Channel
	switch v.DataType() {
	case TypeAccel:
		ch = Accelerometer
	case TypeMag:
		ch = MagneticField
	default:
		return Sample{}, fmt.Errorf("unsupported sentence type %q", v.DataType())
	}

	return Sample{
		Source:  source,
		Channel: ch,
		Vec3:    Vec3{X: v.X, Y: v.Y, Z: v.Z},
		Time:    at,
	}, nil
}

// FormatSentence encodes a sample as a checksummed sensor-board sentence.
func FormatSentence(s Sample) (string, error) {
	var typ string
	switch s.Channel {
	case Accelerometer:
		typ = TypeAccel
	case MagneticField:
		typ = TypeMag
	default:
		return "", fmt.Errorf("unknown sensor channel %q", s.Channel)
	}
	body := fmt.Sprintf("%s%s,%.4f,%.4f,%.4f", SentenceTalker, typ, s.X, s.Y, s.Z)
	return "$" + body + "*" + nmea.Checksum(body), nil
}
