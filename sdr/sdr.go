// Package sdr defines the device abstraction the core pipeline is built
// against. The concrete implementations here are intentionally thin: the
// real hardware transport (HackRF, RTL-SDR, ...) is an external collaborator
// per the project's scope, but the interfaces below are what the core
// channeliser/synthesiser/stream packages consume.
package sdr

import (
	"errors"
	"sync"
)

// Direction selects which half of a transceiver a ChannelConfig applies to.
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
	DirectionRXTX
)

func (d Direction) String() string {
	switch d {
	case DirectionRX:
		return "Rx"
	case DirectionTX:
		return "Tx"
	case DirectionRXTX:
		return "RxTx"
	default:
		return "unknown"
	}
}

// ErrTimeout is returned by Read/Write when the configured timeout elapses
// with no samples available.
var ErrTimeout = errors.New("sdr: stream read/write timed out")

// Device is the generic SDR abstraction consumed by the core. Every device
// kind named in the configuration (§6) realises this interface.
type Device interface {
	SetFrequency(dir Direction, channel int, hz float64) error
	SetSampleRate(hz float64) error
	SetBandwidth(hz float64) error
	SetGain(db float64) error

	RXStream(channels []int, args map[string]string) (RXStream, error)
	TXStream(channels []int, args map[string]string) (TXStream, error)
}

// Stream is the shared lifecycle surface of RXStream and TXStream.
type Stream interface {
	Activate() error
	Deactivate() error
	MTU() int
}

// RXStream reads blocks of complex samples from the device. Read fills as
// many of the supplied per-channel buffers as are available within the
// timeout and returns the number of samples placed in each.
type RXStream interface {
	Stream
	Read(buffers [][]complex64, timeoutUs int) (int, error)
}

// TXStream writes blocks of complex samples to the device.
type TXStream interface {
	Stream
	Write(buffers [][]complex64, flags int, timeoutUs int) (int, error)
}

// Int8ToComplex64 converts one SDR-native 8-bit signed IQ pair to the
// float32 representation used everywhere past the channeliser, scaling by
// 1/32768 per §3.
func Int8ToComplex64(re, im int8) complex64 {
	const scale = 1.0 / 32768.0
	return complex(float32(re)*scale, float32(im)*scale)
}

// running is a small atomic-ish boolean guarded by a mutex, matching the
// single cross-thread mutable flag called for in §9 "Design Notes".
type running struct {
	mu  sync.Mutex
	val bool
}

func newRunning() *running {
	return &running{val: true}
}

func (r *running) Get() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val
}

func (r *running) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.val = false
}

// Handle is a clonable reference to a stream's running flag. It is the only
// process-scoped mutable item shared across the reader, worker, and facade
// threads (§9).
type Handle struct {
	running *running
}

// NewHandle creates a fresh, running Handle.
func NewHandle() Handle {
	return Handle{running: newRunning()}
}

// Running reports whether the stream should keep going.
func (h Handle) Running() bool {
	return h.running.Get()
}

// Stop clears the flag. Safe to call from a signal handler or the facade's
// shutdown path; idempotent.
func (h Handle) Stop() {
	h.running.Stop()
}
