package channelizer

// SlidingWindow is a per-channel circular buffer holding the most recent
// samples pushed into one polyphase arm, per SPEC_FULL §3. It keeps a guard
// region twice the arm length so a contiguous read of the last `size`
// samples is always available without wrapping mid-read.
type SlidingWindow struct {
	size  int // 2*m
	buf   []complex64
	write int
}

// NewSlidingWindow creates a window that reads back the last size samples.
// It starts pre-filled with zeros (silence) so Recent is always valid, even
// before `size` samples have been pushed.
func NewSlidingWindow(size int) *SlidingWindow {
	return &SlidingWindow{
		size:  size,
		buf:   make([]complex64, 2*size),
		write: size,
	}
}

// Push appends one sample, wrapping the write cursor through the guard
// region. When the cursor reaches the end of the backing array, the tail
// `size` samples are copied back to the head so that Recent always returns
// a contiguous slice.
func (w *SlidingWindow) Push(s complex64) {
	w.buf[w.write] = s
	w.write++
	if w.write == len(w.buf) {
		copy(w.buf[:w.size], w.buf[w.size:])
		w.write = w.size
	}
}

// Recent returns the last `size` samples pushed, oldest first.
func (w *SlidingWindow) Recent() []complex64 {
	return w.buf[w.write-w.size : w.write]
}
