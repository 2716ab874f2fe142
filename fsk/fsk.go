// Package fsk implements the per-channel FSK demodulator/modulator pair of
// SPEC_FULL §4.4: a phase-derivative frequency discriminator that estimates
// carrier offset and deviation from the burst itself, normalises, skips the
// silent preamble lead-in with an EWMA gate, and slices one hard bit per
// symbol. FskMod is its exact inverse, used by the synthesiser path and by
// the package's own round-trip tests.
package fsk

import (
	"fmt"
	"math"
	"sort"
)

// ErrorKind classifies why Demodulate rejected a burst (§7).
type ErrorKind int

const (
	_ ErrorKind = iota
	// ErrTooShort: fewer samples than 8 + samples_per_symbol*symbols_needed.
	ErrTooShort
	// ErrSkew: CFO/deviation estimation window saw too large an offset,
	// or too few samples landed in the positive/negative bins.
	ErrSkew
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTooShort:
		return "TooShort"
	case ErrSkew:
		return "Skew"
	default:
		return "Unknown"
	}
}

// DemodError is returned by Demodulate on a rejected burst.
type DemodError struct {
	Kind   ErrorKind
	Reason string
}

func (e *DemodError) Error() string {
	return fmt.Sprintf("fsk: %s: %s", e.Kind, e.Reason)
}

// defaultSymbolsNeeded and defaultMaxFreqOffset match SPEC_FULL §4.4's
// default tunables.
const (
	defaultSymbolsNeeded  = 64
	defaultMaxFreqOffset  = 0.4
	freqdemKF             = 0.8 // liquid-dsp freqdem_create/freqmod_create kf, matched by FskMod
	silenceEWMAAlpha      = 0.8
	silenceEWMAThreshold  = 0.5
	firstSampleClampLimit = 1.5
)

// Demodulator converts bursted complex samples into a hard bit sequence.
type Demodulator struct {
	SamplesPerSymbol int
	SymbolsNeeded    int
	MaxFreqOffset    float32
}

// Packet is the demodulator's output: the recovered bits plus the
// intermediate discriminator trace and estimated channel parameters.
type Packet struct {
	Bits      []byte
	Demod     []float32
	CFO       float32
	Deviation float32
}

// NewDemodulator derives samples-per-symbol from sampleRateHz/numChannels,
// per SPEC_FULL §3: sample_rate / N / 1MHz * 2 (equals 2 for the canonical
// 20MHz/20-channel configuration).
func NewDemodulator(sampleRateHz float64, numChannels int) *Demodulator {
	sps := int(sampleRateHz / float64(numChannels) / 1e6 * 2)
	return &Demodulator{
		SamplesPerSymbol: sps,
		SymbolsNeeded:    defaultSymbolsNeeded,
		MaxFreqOffset:    defaultMaxFreqOffset,
	}
}

func (d *Demodulator) medianWindow() int {
	return d.SamplesPerSymbol * d.SymbolsNeeded
}

// Demodulate runs the full algorithm of §4.4 over one burst's samples.
func (d *Demodulator) Demodulate(samples []complex64) (*Packet, error) {
	if len(samples) < 8+d.medianWindow() {
		return nil, &DemodError{Kind: ErrTooShort, Reason: "burst shorter than 8 + samples_per_symbol*symbols_needed"}
	}

	demod := discriminate(samples)

	cfo, deviation, err := d.estimate(demod)
	if err != nil {
		return nil, err
	}

	for i := range demod {
		demod[i] = (demod[i] - cfo) / deviation
	}

	if abs32(demod[0]) > firstSampleClampLimit {
		demod[0] = 0
	}

	bits := sliceSymbols(demod, d.SamplesPerSymbol)

	return &Packet{Bits: bits, Demod: demod, CFO: cfo, Deviation: deviation}, nil
}

// discriminate runs a standard phase-derivative frequency discriminator,
// matching liquid-dsp's freqdem at kf=0.8: out[i] = angle(s[i]*conj(s[i-1]))
// / (2*pi*kf), the same 2*pi*kf phase convention freqmod integrates under
// (see Modulate), so a full-deviation symbol's wrapped phase step lands
// well inside MaxFreqOffset instead of saturating it. The boundary sample
// is filled from its neighbour, the same technique hz.tools/fm's
// Demodulator.Read uses for its audio[0].
func discriminate(samples []complex64) []float32 {
	out := make([]float32, len(samples))
	for i := 1; i < len(samples); i++ {
		prod := complex128(samples[i]) * cmplxConj(complex128(samples[i-1]))
		out[i] = float32(math.Atan2(imag(prod), real(prod)) / (2 * math.Pi * freqdemKF))
	}
	if len(out) > 1 {
		out[0] = out[1]
	}
	return out
}

func cmplxConj(c complex128) complex128 { return complex(real(c), -imag(c)) }

// estimate recovers the carrier-frequency offset and deviation from the
// first symbolsNeeded symbols after an 8-sample lead-in, per §4.4 step 3.
func (d *Demodulator) estimate(demod []float32) (cfo, deviation float32, err error) {
	window := demod[8 : 8+d.medianWindow()]

	var pos, neg []float32
	for _, v := range window {
		if abs32(v) > d.MaxFreqOffset {
			return 0, 0, &DemodError{Kind: ErrSkew, Reason: "discriminator sample exceeds max_freq_offset"}
		}
		if v > 0 {
			pos = append(pos, v)
		} else {
			neg = append(neg, v)
		}
	}

	minBucket := d.SymbolsNeeded / 4
	if len(pos) < minBucket || len(neg) < minBucket {
		return 0, 0, &DemodError{Kind: ErrSkew, Reason: "positive/negative bucket too small"}
	}

	sort.Slice(pos, func(i, j int) bool { return pos[i] < pos[j] })
	sort.Slice(neg, func(i, j int) bool { return neg[i] < neg[j] })

	p := pos[len(pos)*3/4]
	n := neg[len(neg)/4]

	cfo = (p + n) / 2
	deviation = p - cfo
	return cfo, deviation, nil
}

// sliceSymbols walks demod with an EWMA gate to skip the silent preamble
// lead-in, then steps by samplesPerSymbol emitting one hard bit per symbol.
func sliceSymbols(demod []float32, samplesPerSymbol int) []byte {
	ewma := float32(0)
	start := len(demod)
	for i, v := range demod {
		ewma = ewma*(1-silenceEWMAAlpha) + abs32(v)*silenceEWMAAlpha
		if ewma > silenceEWMAThreshold {
			start = i
			break
		}
	}

	var bits []byte
	for i := start; i < len(demod); i += samplesPerSymbol {
		if demod[i] > 0 {
			bits = append(bits, 1)
		} else {
			bits = append(bits, 0)
		}
	}
	return bits
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
