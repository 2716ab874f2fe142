package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: virtual
  center_freq_mhz: 2440
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultNumChannels, cfg.Pipeline.NumChannels)
	require.Equal(t, defaultRXGainDB, cfg.Pipeline.RXGainDB)
	require.Equal(t, defaultTXGainDB, cfg.Pipeline.TXGainDB)
	require.Equal(t, float64(defaultNumChannels)*1e6, cfg.SampleRateHz())
}

func TestLoadRejectsOddChannelCount(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: virtual
pipeline:
  num_channels: 15
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresFilePathForFileDevice(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: file
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownDeviceKind(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: bogus
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEffectiveTXGainDBOverride(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: virtual
  tx_gain_db: 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 20.0, cfg.EffectiveTXGainDB())
}

func TestEffectiveTXGainDBDefaultsWhenUnset(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: virtual
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, defaultTXGainDB, cfg.EffectiveTXGainDB())
}

func TestRealizeVirtualDevice(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: virtual
  center_freq_mhz: 2440
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dev, err := cfg.Realize()
	require.NoError(t, err)
	require.NotNil(t, dev)
}

func TestRealizeHackRFDoesNotError(t *testing.T) {
	path := writeTempConfig(t, `
device:
  kind: hackrf
  serial: "0000000000000000457863c82a3cd32f"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dev, err := cfg.Realize()
	require.NoError(t, err)
	require.NotNil(t, dev)
}
