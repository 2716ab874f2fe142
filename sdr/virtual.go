package sdr

import (
	"sync"
)

// VirtualDevice is an in-memory loopback device: samples written to its TX
// stream are queued and read back out of its RX stream. It exists so the
// pipeline can be exercised end to end (synthesiser -> channeliser) without
// hardware, mirroring the "Virtual" descriptor kind in the configuration.
type VirtualDevice struct {
	mu         sync.Mutex
	queue      []complex64
	sampleRate float64
	mtu        int
}

// NewVirtualDevice creates a VirtualDevice with the given read/write MTU.
func NewVirtualDevice(mtu int) *VirtualDevice {
	if mtu <= 0 {
		mtu = 4096
	}
	return &VirtualDevice{mtu: mtu}
}

func (v *VirtualDevice) SetFrequency(Direction, int, float64) error { return nil }

func (v *VirtualDevice) SetSampleRate(hz float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sampleRate = hz
	return nil
}

func (v *VirtualDevice) SetBandwidth(float64) error { return nil }
func (v *VirtualDevice) SetGain(float64) error      { return nil }

func (v *VirtualDevice) RXStream([]int, map[string]string) (RXStream, error) {
	return &virtualStream{dev: v}, nil
}

func (v *VirtualDevice) TXStream([]int, map[string]string) (TXStream, error) {
	return &virtualStream{dev: v}, nil
}

type virtualStream struct {
	dev *VirtualDevice
}

func (s *virtualStream) Activate() error   { return nil }
func (s *virtualStream) Deactivate() error { return nil }
func (s *virtualStream) MTU() int          { return s.dev.mtu }

// Read drains up to len(buffers[0]) samples from the single loopback queue
// and copies the same samples into every supplied buffer; a loopback device
// has no real per-channel separation.
func (s *virtualStream) Read(buffers [][]complex64, timeoutUs int) (int, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if len(buffers) == 0 {
		return 0, nil
	}

	n := len(buffers[0])
	if n > len(s.dev.queue) {
		n = len(s.dev.queue)
	}
	for _, buf := range buffers {
		copy(buf, s.dev.queue[:n])
	}
	s.dev.queue = s.dev.queue[n:]
	return n, nil
}

// Write appends the first channel's samples to the loopback queue.
func (s *virtualStream) Write(buffers [][]complex64, flags int, timeoutUs int) (int, error) {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	if len(buffers) == 0 {
		return 0, nil
	}
	s.dev.queue = append(s.dev.queue, buffers[0]...)
	return len(buffers[0]), nil
}
