// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/imu"
)

// TypeACC is the sentence type of NMEA-framed accelerometer readings:
//
//	$WRACC,<ax>,<ay>,<az>,<unix ms>*<checksum>
const TypeACC = "ACC"

// ACC is a parsed accelerometer sentence.
type ACC struct {
	nmea.BaseSentence
	Ax, Ay, Az float64
	Timestamp  int64
}

func parseACC(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := ACC{
		BaseSentence: s,
		Ax:           p.Float64(0, "ax"),
		Ay:           p.Float64(1, "ay"),
		Az:           p.Float64(2, "az"),
	}
	if len(s.Fields) > 3 {
		m.Timestamp = p.Int64(3, "timestamp")
	}
	return m, p.Err()
}

// SerialSource reads samples for one source from a line-oriented stream.
// Lines are either NMEA-framed ACC sentences or plain "ax,ay,az[,ms]".
// Malformed lines are skipped.
type SerialSource struct {
	source  string
	rc      io.ReadCloser
	reader  *bufio.Reader
	parser  nmea.SentenceParser
	now     func() time.Time
	logger  *zap.Logger
	skipped atomic.Uint64
}

// NewSerialSource wraps an open stream.
func NewSerialSource(rc io.ReadCloser, source string, logger *zap.Logger) (*SerialSource, error) {
	if _, err := imu.Offset(source); err != nil {
		return nil, err
	}
	return &SerialSource{
		source: source,
		rc:     rc,
		reader: bufio.NewReader(rc),
		parser: nmea.SentenceParser{
			CustomParsers: map[string]nmea.ParserFunc{TypeACC: parseACC},
		},
		now:    time.Now,
		logger: logger,
	}, nil
}

// OpenSerial opens a serial port at 8N1 and returns a source reading it.
func OpenSerial(port string, baud uint, source string, logger *zap.Logger) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	logger.Info("serial port opened", zap.String("port", port), zap.Uint("baud", baud), zap.String("source", source))
	s, err := NewSerialSource(rc, source, logger)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return s, nil
}

// Next implements imu.SampleSource. It blocks until a valid line arrives
// or the stream fails.
func (s *SerialSource) Next() (imu.Sample, error) {
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			sample, perr := s.parse(line)
			if perr == nil {
				return sample, nil
			}
			n := s.skipped.Add(1)
			s.logger.Debug("skipping serial line", zap.String("line", line), zap.Uint64("skipped", n), zap.Error(perr))
		}
		if err != nil {
			return imu.Sample{}, err
		}
	}
}

// Skipped returns the number of malformed lines seen so far.
func (s *SerialSource) Skipped() uint64 {
	return s.skipped.Load()
}

// Close releases the underlying port.
func (s *SerialSource) Close() error {
	return s.rc.Close()
}

func (s *SerialSource) parse(line string) (imu.Sample, error) {
	sample := imu.Sample{Source: s.source}
	if strings.HasPrefix(line, "$") {
		sentence, err := s.parser.Parse(line)
		if err != nil {
			return sample, err
		}
		acc, ok := sentence.(ACC)
		if !ok {
			return sample, fmt.Errorf("unexpected sentence %s", sentence.DataType())
		}
		sample.Ax, sample.Ay, sample.Az, sample.Timestamp = acc.Ax, acc.Ay, acc.Az, acc.Timestamp
	} else {
		fields := strings.Split(line, ",")
		if len(fields) != 3 && len(fields) != 4 {
			return sample, fmt.Errorf("want 3 or 4 fields, got %d", len(fields))
		}
		vals := make([]float64, 3)
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return sample, fmt.Errorf("field %d: %w", i, err)
			}
			vals[i] = v
		}
		sample.Ax, sample.Ay, sample.Az = vals[0], vals[1], vals[2]
		if len(fields) == 4 {
			ts, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
			if err != nil {
				return sample, fmt.Errorf("timestamp: %w", err)
			}
			sample.Timestamp = ts
		}
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = s.now().UnixMilli()
	}
	return sample, nil
}
