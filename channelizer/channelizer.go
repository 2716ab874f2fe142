package channelizer

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Channelizer is the 2x-oversampled polyphase analysis filter bank of
// SPEC_FULL §4.1: it consumes N/2 complex input samples per call and
// produces N complex channel outputs.
type Channelizer struct {
	bank    *FilterBank
	windows []*SlidingWindow
	fft     *fourier.CmplxFFT
	parity  bool

	postFilter []complex64 // work buffer, length N
}

// NewChannelizer builds a channeliser for the given filter bank.
func NewChannelizer(bank *FilterBank) *Channelizer {
	n := bank.NumChannels
	windows := make([]*SlidingWindow, n)
	for i := range windows {
		windows[i] = NewSlidingWindow(2 * bank.TapsPerArm)
	}
	return &Channelizer{
		bank:       bank,
		windows:    windows,
		fft:        fourier.NewCmplxFFT(n),
		postFilter: make([]complex64, n),
	}
}

// Channelize pushes block (length N/2) through the commutator and the
// polyphase filter arms, returning N complex samples without the final
// DFT (i.e. still in the commutator's natural channel order). Callers that
// want the frequency-ordered channels described in §2 should use
// ChannelizeFFT.
func (c *Channelizer) Channelize(block []complex64) ([]complex64, error) {
	n := c.bank.NumChannels
	half := n / 2
	if len(block) != half {
		return nil, fmt.Errorf("channelizer: Channelize expects %d samples, got %d", half, len(block))
	}

	// Standard 2x oversampled commutator: push the N/2 input samples into
	// N/2 of the N windows, in reverse order, alternating which half of
	// the window bank receives them every call.
	hi := half
	if c.parity {
		hi = n
	}
	for i := 0; i < half; i++ {
		idx := hi - 1 - i
		c.windows[idx].Push(block[i])
	}

	offset := 0
	if c.parity {
		offset = half
	}
	for k := 0; k < n; k++ {
		arm := c.bank.Arms[(offset+k)%n]
		c.postFilter[k] = dot(c.windows[k].Recent(), arm)
	}

	c.parity = !c.parity

	out := make([]complex64, n)
	copy(out, c.postFilter)
	return out, nil
}

// ChannelizeFFT is Channelize followed by the planned inverse DFT, yielding
// the frequency-ordered channels described in §2: channel k corresponds to
// the baseband slice centred at (k if k<N/2 else k-N)*sample_rate/N Hz away
// from the tuned centre frequency.
func (c *Channelizer) ChannelizeFFT(block []complex64) ([]complex64, error) {
	post, err := c.Channelize(block)
	if err != nil {
		return nil, err
	}
	return idft(c.fft, post), nil
}

// NumChannels reports N.
func (c *Channelizer) NumChannels() int { return c.bank.NumChannels }

func dot(window []complex64, arm []float32) complex64 {
	var acc complex64
	for i, w := range window {
		acc += w * complex(arm[i], 0)
	}
	return acc
}

// idft runs the size-N inverse complex DFT via gonum's planned CmplxFFT,
// converting to/from complex128 at the boundary since gonum's fourier
// package operates on complex128.
func idft(fft *fourier.CmplxFFT, in []complex64) []complex64 {
	n := len(in)
	src := make([]complex128, n)
	for i, v := range in {
		src[i] = complex128(v)
	}
	dst := fft.Sequence(nil, src)
	out := make([]complex64, n)
	for i, v := range dst {
		out[i] = complex64(v)
	}
	return out
}
