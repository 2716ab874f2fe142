package config

import (
	"fmt"

	"github.com/madpsy/blesdr/sdr"
)

// Realize constructs the sdr.Device named by c.Device and, for the virtual
// and file kinds, applies sample rate and bandwidth = N x 1MHz, the
// receive gain (Pipeline.RXGainDB, 64 by default) and the centre
// frequency. The transmit gain is not applied to the device here;
// EffectiveTXGainDB reports it. A hackrf device is returned without any
// of these settings applied.
func (c *Config) Realize() (sdr.Device, error) {
	var dev sdr.Device

	switch c.Device.Kind {
	case DeviceVirtual:
		dev = sdr.NewVirtualDevice(c.Device.MTU)
	case DeviceFile:
		dev = sdr.NewFileDevice(c.Device.File)
	case DeviceHackRF:
		// HackRFDevice's Set* methods always return an "unimplemented"
		// error (the USB transport is an external driver's job); there
		// is nothing useful to configure here yet.
		return sdr.NewHackRFDevice(c.Device.Serial), nil
	default:
		return nil, fmt.Errorf("config: unknown device.kind %q", c.Device.Kind)
	}

	if err := dev.SetSampleRate(c.SampleRateHz()); err != nil {
		return nil, fmt.Errorf("config: set sample rate: %w", err)
	}
	if err := dev.SetBandwidth(c.BandwidthHz()); err != nil {
		return nil, fmt.Errorf("config: set bandwidth: %w", err)
	}
	if err := dev.SetGain(c.Pipeline.RXGainDB); err != nil {
		return nil, fmt.Errorf("config: set rx gain: %w", err)
	}
	if err := dev.SetFrequency(sdr.DirectionRX, 0, float64(c.Device.CenterFreqMHz)*1e6); err != nil {
		return nil, fmt.Errorf("config: set centre frequency: %w", err)
	}

	return dev, nil
}
