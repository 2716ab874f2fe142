// Package channelizer implements the 2x-oversampled polyphase filter bank
// pair (analysis/channelizer and synthesis/synthesiser) described in
// SPEC_FULL §4.1-4.2. Both directions share a single Kaiser-windowed
// prototype low-pass filter, split into N reversed polyphase arms.
package channelizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// FilterBank holds the N reversed polyphase arms derived from a single
// Kaiser low-pass prototype. It is built once per channeliser/synthesiser
// and never mutated afterward.
type FilterBank struct {
	NumChannels int
	TapsPerArm  int // m
	// Arms[k] has length 2*m; Arms[k][0] is the most-recently-needed tap
	// (the prototype arm has already been time-reversed).
	Arms [][]float32
}

// defaultTapsPerArm and defaultCutoff match the canonical configuration in
// SPEC_FULL §4.1 (m=4, cutoff=0.75/N).
const (
	defaultTapsPerArm    = 4
	defaultCutoffFactor  = 0.75
	prototypeAttenuation = 60.0 // dB, matches the original's firpfbch2_crcf_create_kaiser call
)

// NewFilterBank builds the N-arm polyphase prototype for a channeliser with
// numChannels channels (must be even), tapsPerArm taps per arm (m) and a
// cutoff expressed as a fraction of 1/numChannels (i.e. cutoff=0.75 means
// 0.75/numChannels of the normalized Nyquist band). Passing tapsPerArm<=0 or
// cutoff<=0 selects the defaults (m=4, cutoff=0.75/N).
func NewFilterBank(numChannels, tapsPerArm int, cutoff float64) (*FilterBank, error) {
	if numChannels <= 0 || numChannels%2 != 0 {
		return nil, fmt.Errorf("channelizer: NumChannels must be even and positive, got %d", numChannels)
	}
	if tapsPerArm <= 0 {
		tapsPerArm = defaultTapsPerArm
	}
	if cutoff <= 0 {
		cutoff = defaultCutoffFactor
	}

	fc := cutoff / float64(numChannels)
	prototype := kaiserLowpass(numChannels, tapsPerArm, fc, prototypeAttenuation)

	arms := make([][]float32, numChannels)
	for k := 0; k < numChannels; k++ {
		arm := make([]float32, 2*tapsPerArm)
		for i := 0; i < 2*tapsPerArm; i++ {
			// Polyphase decomposition: tap i of arm k is prototype tap
			// k + i*numChannels, then the arm is reversed so that
			// convolution degenerates into a straight dot product
			// against the sliding window's natural (oldest-first)
			// order.
			arm[2*tapsPerArm-1-i] = float32(prototype[k+i*numChannels])
		}
		arms[k] = arm
	}

	return &FilterBank{NumChannels: numChannels, TapsPerArm: tapsPerArm, Arms: arms}, nil
}

// kaiserLowpass builds a length-(2*m*N+1) Kaiser-windowed low-pass FIR
// prototype with a -attenuation dB stopband, using gonum's Kaiser window
// for the taper and a sinc for the ideal low-pass response (Kaiser-windowed
// sinc design, the standard firpfbch2_crcf_create_kaiser construction).
func kaiserLowpass(numChannels, tapsPerArm int, fc float64, attenuation float64) []float64 {
	length := 2*tapsPerArm*numChannels + 1
	h := make([]float64, length)
	mid := float64(length-1) / 2

	for n := 0; n < length; n++ {
		x := float64(n) - mid
		h[n] = sinc(2 * fc * x)
	}

	beta := kaiserBeta(attenuation)
	window.Kaiser{Beta: beta}.Transform(h)

	// Normalize to unit DC gain (sum of taps == 1) so the channeliser's
	// passband gain is close to 0 dB before the 1/numChannels IDFT scale
	// is applied.
	sum := 0.0
	for _, v := range h {
		sum += v
	}
	if sum != 0 {
		for i := range h {
			h[i] /= sum
		}
	}
	return h
}

// kaiserBeta derives the Kaiser window shape parameter from the desired
// stopband attenuation, using the standard Kaiser (1980) empirical formula.
func kaiserBeta(attenuationDB float64) float64 {
	switch {
	case attenuationDB > 50:
		return 0.1102 * (attenuationDB - 8.7)
	case attenuationDB >= 21:
		return 0.5842*math.Pow(attenuationDB-21, 0.4) + 0.07886*(attenuationDB-21)
	default:
		return 0
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
