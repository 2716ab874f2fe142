package burst

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectorEmitsNothingWhileQuiet(t *testing.T) {
	d := NewDetector()
	for i := 0; i < 50; i++ {
		require.Nil(t, d.Push(complex64(0)))
	}
}

func TestDetectorEmitsPacketAfterBurstAndTimeout(t *testing.T) {
	d := NewDetector()

	// Drive the AGC's RSSI estimate above threshold with a strong tone,
	// then return to silence long enough to trigger the 100-sample
	// squelch timeout.
	var pkt *Packet
	for i := 0; i < 200; i++ {
		p := d.Push(complex64(1))
		if p != nil {
			pkt = p
		}
	}
	for i := 0; i < 150; i++ {
		p := d.Push(complex64(0))
		if p != nil {
			pkt = p
			break
		}
	}

	require.NotNil(t, pkt)
	require.NotEmpty(t, pkt.Samples)
}
