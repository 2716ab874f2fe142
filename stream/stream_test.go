package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madpsy/blesdr/burst"
	"github.com/madpsy/blesdr/channelizer"
	"github.com/madpsy/blesdr/sdr"
)

// fakeRecorder counts calls per method, ignoring the channel frequency, so
// tests can assert a worker took the expected outcome path.
type fakeRecorder struct {
	burstDetected, demodSkew, demodTooShort int
	bitopsFail, bluetoothFail               int
	packetParsed, catcherRecovered          int
}

func (f *fakeRecorder) BurstDetected(int)    { f.burstDetected++ }
func (f *fakeRecorder) DemodSkew(int)        { f.demodSkew++ }
func (f *fakeRecorder) DemodTooShort(int)    { f.demodTooShort++ }
func (f *fakeRecorder) BitopsFail(int)       { f.bitopsFail++ }
func (f *fakeRecorder) BluetoothFail(int)    { f.bluetoothFail++ }
func (f *fakeRecorder) PacketParsed(int)     { f.packetParsed++ }
func (f *fakeRecorder) CatcherRecovered(int) { f.catcherRecovered++ }

// TestChannelWorkerRecordsFailureOnGarbageBurst feeds a burst of flat,
// non-modulated samples through processBurst and asserts the outcome is
// reported as exactly one ProcessFail on the output queue, and that the
// matching Recorder method fired.
func TestChannelWorkerRecordsFailureOnGarbageBurst(t *testing.T) {
	rec := &fakeRecorder{}
	out := make(chan StreamResult, 4)
	w := newChannelWorker(2402, 8e6, 16, out, rec)

	samples := make([]complex64, 400)
	for i := range samples {
		samples[i] = complex(1, 0)
	}
	w.processBurst(&burst.Packet{Samples: samples})

	result := <-out
	require.Equal(t, ResultProcessFail, result.Kind)
	require.Equal(t, 1, rec.demodTooShort+rec.demodSkew+rec.bitopsFail+rec.bluetoothFail)
	require.Equal(t, 0, rec.packetParsed)
}

func TestRFValidChannelsMapping(t *testing.T) {
	// Centre 2440 MHz, 16 channels: k=0..7 -> 2440..2447, k=8..15 -> 2432..2439.
	valid := rfValidChannels(2440, 16)
	require.Equal(t, 2440, valid[0])
	require.Equal(t, 2442, valid[2])
	require.NotContains(t, valid, 1) // 2441 is odd
	require.Equal(t, 2438, valid[14])
}

func TestRFValidChannelsRejectsOutOfBand(t *testing.T) {
	valid := rfValidChannels(2500, 4)
	require.Empty(t, valid)
}

func TestProcessFailKindString(t *testing.T) {
	require.Equal(t, "Bitops", FailBitops.String())
	require.Equal(t, "Bluetooth", FailBluetooth.String())
}

func TestFanOutDriveBlockShape(t *testing.T) {
	bank, err := channelizer.NewFilterBank(4, 4, 0)
	require.NoError(t, err)
	chz := channelizer.NewChannelizer(bank)

	fo := NewFanOut(chz, 2402, 8e6, sdr.NewHandle(), nil)
	fo.Start()
	defer fo.Close()

	block := make([]complex64, chz.NumChannels()/2*3)
	require.NoError(t, fo.DriveBlock(block))
}

// TestFacadeTerminatesOnStop exercises the facade's blocking iterator
// against a VirtualDevice: with no samples ever written, Stop() must still
// cause StartRXWithError's reads to end within a bounded time.
func TestFacadeTerminatesOnStop(t *testing.T) {
	bank, err := channelizer.NewFilterBank(4, 4, 0)
	require.NoError(t, err)
	chz := channelizer.NewChannelizer(bank)

	dev := sdr.NewVirtualDevice(64)
	rx, err := dev.RXStream(nil, nil)
	require.NoError(t, err)
	require.NoError(t, rx.Activate())

	f := NewFacade(rx, chz, 2402, 8e6, nil)
	next := f.StartRXWithError()

	time.AfterFunc(20*time.Millisecond, f.Stop)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("facade did not terminate after Stop")
		default:
		}
		if _, ok := next(); !ok {
			return
		}
	}
}
