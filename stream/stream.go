// Package stream implements the fan-out / worker orchestration and the
// blocking stream facade of SPEC_FULL §4.7/§4.8: the channeliser-driver
// thread, one worker goroutine per RF-valid channel, and the
// multi-producer/single-consumer queue the facade reads from.
package stream

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/madpsy/blesdr/ble"
	"github.com/madpsy/blesdr/bitops"
	"github.com/madpsy/blesdr/burst"
	"github.com/madpsy/blesdr/channelizer"
	"github.com/madpsy/blesdr/fsk"
	"github.com/madpsy/blesdr/sdr"
)

// Recorder receives per-outcome counts from the worker pool. metrics.Metrics
// implements it; nil is valid and means "don't record".
type Recorder interface {
	BurstDetected(freqMHz int)
	DemodSkew(freqMHz int)
	DemodTooShort(freqMHz int)
	BitopsFail(freqMHz int)
	BluetoothFail(freqMHz int)
	PacketParsed(freqMHz int)
	CatcherRecovered(freqMHz int)
}

// ProcessFailKind classifies a non-fatal, per-burst processing failure.
type ProcessFailKind int

const (
	_ ProcessFailKind = iota
	FailCatcher   // recovered panic in a worker
	FailTooShort  // fsk demodulation rejected the burst (starvation or CFO/deviation skew)
	FailBitops    // bit-layer offset search failed
	FailBluetooth // packet parser rejected the recovered bytes
)

func (k ProcessFailKind) String() string {
	switch k {
	case FailCatcher:
		return "Catcher"
	case FailTooShort:
		return "TooShort"
	case FailBitops:
		return "Bitops"
	case FailBluetooth:
		return "Bluetooth"
	default:
		return "Unknown"
	}
}

// ProcessFail is the non-fatal failure variant of StreamResult.
type ProcessFail struct {
	Kind    ProcessFailKind
	FreqMHz int
	Reason  string
}

func (p ProcessFail) Error() string {
	return fmt.Sprintf("stream: %s at %d MHz: %s", p.Kind, p.FreqMHz, p.Reason)
}

// ResultKind discriminates a StreamResult.
type ResultKind int

const (
	ResultPacket ResultKind = iota
	ResultProcessFail
	ResultError
)

// StreamResult is the item produced by the facade's blocking iterator:
// exactly one of Packet, ProcessFail, or Error is meaningful, selected by
// Kind.
type StreamResult struct {
	Kind        ResultKind
	Packet      *ble.Bluetooth
	ProcessFail ProcessFail
	Err         error
}

func packetResult(p *ble.Bluetooth) StreamResult {
	return StreamResult{Kind: ResultPacket, Packet: p}
}

func failResult(f ProcessFail) StreamResult {
	return StreamResult{Kind: ResultProcessFail, ProcessFail: f}
}

func errorResult(err error) StreamResult {
	return StreamResult{Kind: ResultError, Err: err}
}

// channelWorker owns one physical channel's burst detector and FSK
// demodulator exclusively, per §5: each worker is single-threaded and
// thread-local by construction.
type channelWorker struct {
	freqMHz  int
	detect   *burst.Detector
	demod    *fsk.Demodulator
	in       chan []complex64
	out      chan<- StreamResult
	recorder Recorder
}

func newChannelWorker(freqMHz int, sampleRateHz float64, numChannels int, out chan<- StreamResult, rec Recorder) *channelWorker {
	return &channelWorker{
		freqMHz:  freqMHz,
		detect:   burst.NewDetector(),
		demod:    fsk.NewDemodulator(sampleRateHz, numChannels),
		in:       make(chan []complex64, 64),
		out:      out,
		recorder: rec,
	}
}

// run drains in until it is closed, pushing every sample through the
// burst detector and, on each completed burst, through demod -> bitops ->
// ble. A panic from any stage is recovered and reported as FailCatcher so
// one bad burst cannot take down the worker goroutine, mirroring the
// reference implementation's intent that channels are independent.
func (w *channelWorker) run() {
	defer func() {
		if r := recover(); r != nil {
			if w.recorder != nil {
				w.recorder.CatcherRecovered(w.freqMHz)
			}
			w.out <- failResult(ProcessFail{Kind: FailCatcher, FreqMHz: w.freqMHz, Reason: fmt.Sprint(r)})
		}
	}()

	for batch := range w.in {
		for _, sample := range batch {
			pkt := w.detect.Push(sample)
			if pkt == nil {
				continue
			}
			if w.recorder != nil {
				w.recorder.BurstDetected(w.freqMHz)
			}
			w.processBurst(pkt)
		}
	}
}

func (w *channelWorker) processBurst(pkt *burst.Packet) {
	defer func() {
		if r := recover(); r != nil {
			if w.recorder != nil {
				w.recorder.CatcherRecovered(w.freqMHz)
			}
			w.out <- failResult(ProcessFail{Kind: FailCatcher, FreqMHz: w.freqMHz, Reason: fmt.Sprint(r)})
		}
	}()

	demod, err := w.demod.Demodulate(pkt.Samples)
	if err != nil {
		if w.recorder != nil {
			var derr *fsk.DemodError
			if errors.As(err, &derr) && derr.Kind == fsk.ErrSkew {
				w.recorder.DemodSkew(w.freqMHz)
			} else {
				w.recorder.DemodTooShort(w.freqMHz)
			}
		}
		w.out <- failResult(ProcessFail{Kind: FailTooShort, FreqMHz: w.freqMHz, Reason: err.Error()})
		return
	}

	bp, err := bitops.BitsToPacket(demod.Bits, w.freqMHz)
	if err != nil {
		if w.recorder != nil {
			w.recorder.BitopsFail(w.freqMHz)
		}
		w.out <- failResult(ProcessFail{Kind: FailBitops, FreqMHz: w.freqMHz, Reason: err.Error()})
		return
	}

	parsed, err := ble.ParsePacket(bp.Bytes, w.freqMHz)
	if err != nil {
		if w.recorder != nil {
			w.recorder.BluetoothFail(w.freqMHz)
		}
		w.out <- failResult(ProcessFail{Kind: FailBluetooth, FreqMHz: w.freqMHz, Reason: err.Error()})
		return
	}

	if w.recorder != nil {
		w.recorder.PacketParsed(w.freqMHz)
	}

	w.out <- packetResult(parsed)
}

// rfValidChannels computes, for a centre frequency fc and channel count n,
// the set of channel indices whose RF frequency falls on an even MHz in
// [2402, 2480], per §4.7's f_k = f_c + (k if k < N/2 else k - N) mapping.
func rfValidChannels(centerMHz int, n int) map[int]int {
	out := make(map[int]int, n)
	for k := 0; k < n; k++ {
		offset := k
		if k >= n/2 {
			offset = k - n
		}
		fk := centerMHz + offset
		if fk%2 == 0 && fk >= 2402 && fk <= 2480 {
			out[k] = fk
		}
	}
	return out
}

// FanOut owns the per-channel worker pool and the channeliser-driver
// thread that feeds it, per §4.7.
type FanOut struct {
	channelizer *channelizer.Channelizer
	workers     map[int]*channelWorker
	out         chan StreamResult
	running     sdr.Handle
	numChannels int
	wg          sync.WaitGroup
}

// NewFanOut builds one worker per RF-valid channel for the given centre
// frequency and channel count, wired to a shared output queue. rec may be
// nil, in which case no per-outcome counts are recorded.
func NewFanOut(chz *channelizer.Channelizer, centerMHz int, sampleRateHz float64, running sdr.Handle, rec Recorder) *FanOut {
	n := chz.NumChannels()
	valid := rfValidChannels(centerMHz, n)

	out := make(chan StreamResult, 4096)
	workers := make(map[int]*channelWorker, len(valid))
	for k, freqMHz := range valid {
		workers[k] = newChannelWorker(freqMHz, sampleRateHz, n, out, rec)
	}

	return &FanOut{
		channelizer: chz,
		workers:     workers,
		out:         out,
		running:     running,
		numChannels: n,
	}
}

// Start launches one goroutine per worker. Workers exit when In is closed.
func (f *FanOut) Start() {
	f.wg.Add(len(f.workers))
	for _, w := range f.workers {
		w := w
		go func() {
			defer f.wg.Done()
			w.run()
		}()
	}
}

// Results returns the MPSC read end workers publish onto.
func (f *FanOut) Results() <-chan StreamResult { return f.out }

// Close closes every worker's input queue; each worker goroutine drains
// its remaining buffered samples and then returns.
func (f *FanOut) Close() {
	for _, w := range f.workers {
		close(w.in)
	}
}

// Drain blocks until every worker goroutine has returned, then closes the
// shared output queue exactly once. Callers must not send on Results()
// after calling Close(); Drain is the only writer permitted to close it.
func (f *FanOut) Drain() {
	f.wg.Wait()
	close(f.out)
}

// DriveBlock implements the channeliser-driver thread's per-block work: it
// breaks block into NumChannels/2-sized sub-blocks, channelises each, and
// appends channel k's output sample into that channel's batch.
func (f *FanOut) DriveBlock(block []complex64) error {
	sub := f.numChannels / 2
	batches := make(map[int][]complex64, len(f.workers))

	for off := 0; off+sub <= len(block); off += sub {
		channels, err := f.channelizer.ChannelizeFFT(block[off : off+sub])
		if err != nil {
			return err
		}
		for k := range f.workers {
			batches[k] = append(batches[k], channels[k])
		}
	}

	for k, w := range f.workers {
		if len(batches[k]) == 0 {
			continue
		}
		select {
		case w.in <- batches[k]:
		default:
			// Unbounded-in-spirit SPSC queue: the reference model
			// prefers dropping samples over blocking the reader, so a
			// full buffered channel here means the worker has fallen
			// behind; log and drop this batch rather than stall the
			// channeliser thread.
			log.Printf("stream: dropping batch for channel %d MHz, worker queue full", w.freqMHz)
		}
	}
	return nil
}
