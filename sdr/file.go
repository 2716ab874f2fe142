package sdr

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FileDevice is an RX-only device that replays a text fixture of interleaved
// complex samples, one "re im" pair per line, such as
// tests/test_sample_rx.txt. It is the "File" descriptor kind from the
// configuration (§6).
type FileDevice struct {
	path string
	mtu  int
}

// NewFileDevice opens path lazily; the file is read on RXStream/Activate.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path, mtu: 65536}
}

func (f *FileDevice) SetFrequency(Direction, int, float64) error { return nil }
func (f *FileDevice) SetSampleRate(float64) error                { return nil }
func (f *FileDevice) SetBandwidth(float64) error                 { return nil }
func (f *FileDevice) SetGain(float64) error                      { return nil }

func (f *FileDevice) RXStream([]int, map[string]string) (RXStream, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("sdr: opening fixture %q: %w", f.path, err)
	}
	return &fileStream{file: file, scanner: bufio.NewScanner(file), mtu: f.mtu}, nil
}

func (f *FileDevice) TXStream([]int, map[string]string) (TXStream, error) {
	return nil, fmt.Errorf("sdr: FileDevice does not support transmit")
}

type fileStream struct {
	file    *os.File
	scanner *bufio.Scanner
	mtu     int
	eof     bool
}

func (s *fileStream) Activate() error   { return nil }
func (s *fileStream) Deactivate() error { return s.file.Close() }
func (s *fileStream) MTU() int          { return s.mtu }

// Read parses one "re im" float pair per line into buffers[0], stopping at
// the requested length or end of file. Returns io.EOF once the fixture is
// exhausted, which the stream facade turns into a terminal StreamResult
// error (§6 "Exit conditions").
func (s *fileStream) Read(buffers [][]complex64, timeoutUs int) (int, error) {
	if s.eof {
		return 0, io.EOF
	}
	if len(buffers) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(buffers[0]) && s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return n, fmt.Errorf("sdr: malformed sample line %q", line)
		}
		re, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return n, fmt.Errorf("sdr: parsing real part: %w", err)
		}
		im, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return n, fmt.Errorf("sdr: parsing imaginary part: %w", err)
		}
		sample := complex(float32(re), float32(im))
		for _, buf := range buffers {
			buf[n] = sample
		}
		n++
	}

	if err := s.scanner.Err(); err != nil {
		return n, fmt.Errorf("sdr: reading fixture: %w", err)
	}
	if n == 0 {
		s.eof = true
		return 0, io.EOF
	}
	return n, nil
}
