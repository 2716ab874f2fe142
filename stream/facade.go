package stream

import (
	"fmt"
	"log"

	"github.com/madpsy/blesdr/ble"
	"github.com/madpsy/blesdr/channelizer"
	"github.com/madpsy/blesdr/sdr"
)

// blockReadTimeoutUs is the §5 Timeouts figure: the SDR block read uses a
// 1,000,000 microsecond timeout; expiry is surfaced as a stream error.
const blockReadTimeoutUs = 1_000_000

// Facade is the stream facade of §4.8: it owns the channeliser-driver
// thread, the fan-out worker pool, and the MPSC results queue, and exposes
// both a packets-only iterator and a StreamResult iterator.
type Facade struct {
	rx      sdr.RXStream
	fanOut  *FanOut
	running sdr.Handle
}

// NewFacade wires an already-activated RX stream, a channeliser configured
// for the device's current bandwidth, and a fresh running handle into a
// Facade ready for StartRX / StartRXWithError. rec may be nil.
func NewFacade(rx sdr.RXStream, chz *channelizer.Channelizer, centerMHz int, sampleRateHz float64, rec Recorder) *Facade {
	handle := sdr.NewHandle()
	return &Facade{
		rx:      rx,
		fanOut:  NewFanOut(chz, centerMHz, sampleRateHz, handle, rec),
		running: handle,
	}
}

// Handle returns the shared running flag, so a caller can wire it to a
// signal handler.
func (f *Facade) Handle() sdr.Handle { return f.running }

// driveReader is the sample-reader + channeliser thread of §5(1). It is the
// sole mutator of the channeliser's state; it blocks on the RX stream's
// block read and exits (closing the fan-out's input queues) when Running
// goes false or the read fails terminally.
func (f *Facade) driveReader() {
	defer f.fanOut.Close()

	mtu := f.rx.MTU()
	if mtu <= 0 {
		mtu = f.fanOut.channelizer.NumChannels() * 64
	}
	// Round down to a whole number of N/2 sub-blocks, per §4.7.
	sub := f.fanOut.channelizer.NumChannels() / 2
	mtu -= mtu % sub
	if mtu == 0 {
		mtu = sub
	}
	buf := make([]complex64, mtu)
	buffers := [][]complex64{buf}

	for f.running.Running() {
		n, err := f.rx.Read(buffers, blockReadTimeoutUs)
		if err != nil {
			f.fanOut.out <- errorResult(fmt.Errorf("stream: reader: %w", err))
			return
		}
		if n == 0 {
			continue
		}
		if err := f.fanOut.DriveBlock(buf[:n]); err != nil {
			log.Printf("stream: channelize error: %v", err)
		}
	}
}

// StartRX returns a lazy sequence of decoded advertisements only;
// ProcessFail and Error results are logged and dropped. The returned
// function blocks until a Packet is available or the stream ends, in which
// case it returns (nil, false).
func (f *Facade) StartRX() func() (*ble.Bluetooth, bool) {
	results := f.startInternal()
	return func() (*ble.Bluetooth, bool) {
		for r := range results {
			switch r.Kind {
			case ResultPacket:
				return r.Packet, true
			case ResultProcessFail:
				log.Printf("stream: %v", r.ProcessFail)
			case ResultError:
				log.Printf("stream: %v", r.Err)
			}
		}
		return nil, false
	}
}

// StartRXWithError returns a lazy sequence of every StreamResult: packets,
// process failures, and terminal errors. The returned function's second
// return value is false once the underlying queue is closed.
func (f *Facade) StartRXWithError() func() (StreamResult, bool) {
	results := f.startInternal()
	return func() (StreamResult, bool) {
		r, ok := <-results
		return r, ok
	}
}

func (f *Facade) startInternal() <-chan StreamResult {
	f.fanOut.Start()
	go f.driveReader()
	go f.fanOut.Drain()
	return f.fanOut.Results()
}

// Stop signals every thread to wind down: the reader stops after its
// current block, workers exit once their queues drain and close.
func (f *Facade) Stop() { f.running.Stop() }
