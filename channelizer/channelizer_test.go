package channelizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFilterBankRejectsOddChannelCount(t *testing.T) {
	_, err := NewFilterBank(15, 4, 0.75)
	require.Error(t, err)
}

func TestNewFilterBankArmShape(t *testing.T) {
	bank, err := NewFilterBank(20, 4, 0.75)
	require.NoError(t, err)
	require.Len(t, bank.Arms, 20)
	for _, arm := range bank.Arms {
		require.Len(t, arm, 8) // 2*m
	}
}

func TestChannelizeProducesNPerHalfNInput(t *testing.T) {
	bank, err := NewFilterBank(20, 4, 0.75)
	require.NoError(t, err)
	c := NewChannelizer(bank)

	block := make([]complex64, 10) // N/2
	out, err := c.Channelize(block)
	require.NoError(t, err)
	require.Len(t, out, 20)
}

func TestChannelizeRejectsWrongBlockSize(t *testing.T) {
	bank, err := NewFilterBank(16, 4, 0.75)
	require.NoError(t, err)
	c := NewChannelizer(bank)

	_, err = c.Channelize(make([]complex64, 7))
	require.Error(t, err)
}

func TestChannelizeKCallsConsumeAndProduceExpectedCounts(t *testing.T) {
	const n = 16
	bank, err := NewFilterBank(n, 4, 0.75)
	require.NoError(t, err)
	c := NewChannelizer(bank)

	const k = 25
	totalOut := 0
	for i := 0; i < k; i++ {
		out, err := c.Channelize(make([]complex64, n/2))
		require.NoError(t, err)
		totalOut += len(out)
	}
	require.Equal(t, k*n, totalOut)
}

func TestChannelizeZeroInputYieldsZeroOutput(t *testing.T) {
	bank, err := NewFilterBank(16, 4, 0.75)
	require.NoError(t, err)
	c := NewChannelizer(bank)

	for i := 0; i < 10; i++ {
		out, err := c.Channelize(make([]complex64, 8))
		require.NoError(t, err)
		for _, v := range out {
			require.Equal(t, complex64(0), v)
		}
	}
}

func TestChannelizeFFTShape(t *testing.T) {
	bank, err := NewFilterBank(20, 4, 0.75)
	require.NoError(t, err)
	c := NewChannelizer(bank)

	out, err := c.ChannelizeFFT(make([]complex64, 10))
	require.NoError(t, err)
	require.Len(t, out, 20)
}

func TestSynthesizeShapeAndZeroInput(t *testing.T) {
	bank, err := NewFilterBank(20, 4, 0.75)
	require.NoError(t, err)
	s := NewSynthesizer(bank)

	out, err := s.Synthesize(make([]complex64, 20))
	require.NoError(t, err)
	require.Len(t, out, 10)
	for _, v := range out {
		require.Equal(t, complex64(0), v)
	}
}

func TestSynthesizeRejectsWrongChannelCount(t *testing.T) {
	bank, err := NewFilterBank(16, 4, 0.75)
	require.NoError(t, err)
	s := NewSynthesizer(bank)

	_, err = s.Synthesize(make([]complex64, 10))
	require.Error(t, err)
}

func TestSynthesizerDelayMatchesFormula(t *testing.T) {
	bank, err := NewFilterBank(20, 4, 0.75)
	require.NoError(t, err)
	s := NewSynthesizer(bank)

	// 2*N*m - N/2 + 1
	require.Equal(t, 2*20*4-20/2+1, s.Delay())
}
