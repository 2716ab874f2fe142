package fsk

import "math"

// Modulator is FskMod from §4.4: the exact inverse of Demodulator, used by
// the synthesiser path and by this package's round-trip self-tests.
type Modulator struct {
	SamplesPerSymbol int
	phase            float64
}

// NewModulator mirrors NewDemodulator's samples-per-symbol derivation so a
// Modulator/Demodulator pair built from the same (sampleRateHz,
// numChannels) round-trips.
func NewModulator(sampleRateHz float64, numChannels int) *Modulator {
	sps := int(sampleRateHz / float64(numChannels) / 1e6 * 2)
	return &Modulator{SamplesPerSymbol: sps}
}

// Modulate emits SamplesPerSymbol complex samples per input bit: bit 1
// drives the frequency modulator at -1, bit 0 at +1, integrating phase at
// 2*pi*kf (kf=0.8) per sample, liquid-dsp's freqmod_create convention,
// which is what lets the demodulator's discriminate recover a raw value
// safely inside MaxFreqOffset (see discriminate's doc comment).
func (m *Modulator) Modulate(bits []byte) []complex64 {
	out := make([]complex64, 0, len(bits)*m.SamplesPerSymbol)
	for _, b := range bits {
		freq := 1.0
		if b&1 != 0 {
			freq = -1.0
		}
		for s := 0; s < m.SamplesPerSymbol; s++ {
			m.phase += 2 * math.Pi * freqdemKF * freq
			out = append(out, complex64(complex(math.Cos(m.phase), math.Sin(m.phase))))
		}
	}
	return out
}

// Reset zeroes the integrated phase, mirroring freqmod_reset.
func (m *Modulator) Reset() { m.phase = 0 }
