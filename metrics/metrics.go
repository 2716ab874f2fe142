// Package metrics exposes Prometheus counters for the pipeline's per-burst
// outcomes, so a consumer can compute demodulation/decode success rates
// per §7, grouped by the RF channel (MHz) that produced them.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered against the default registry.
type Metrics struct {
	burstsDetected   *prometheus.CounterVec
	demodSkew        *prometheus.CounterVec
	demodTooShort    *prometheus.CounterVec
	bitopsFail       *prometheus.CounterVec
	bluetoothFail    *prometheus.CounterVec
	packetsParsed    *prometheus.CounterVec
	catcherRecovered *prometheus.CounterVec
}

// New registers the pipeline's metric collectors against the default
// Prometheus registry. Call once per process.
func New() *Metrics { return NewWithRegisterer(prometheus.DefaultRegisterer) }

// NewWithRegisterer registers against reg instead of the default registry,
// so tests can use a throwaway prometheus.NewRegistry() and construct
// Metrics more than once per process.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"freq_mhz"}
	return &Metrics{
		burstsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_bursts_detected_total",
			Help: "Number of bursts the AGC/squelch detector emitted, per channel.",
		}, labels),
		demodSkew: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_demod_skew_total",
			Help: "Number of bursts rejected by the FSK demodulator's skew check.",
		}, labels),
		demodTooShort: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_demod_too_short_total",
			Help: "Number of bursts too short for the FSK estimation window.",
		}, labels),
		bitopsFail: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_bitops_fail_total",
			Help: "Number of bursts rejected by the bit-layer offset search.",
		}, labels),
		bluetoothFail: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_bluetooth_fail_total",
			Help: "Number of recovered byte sequences the packet parser rejected.",
		}, labels),
		packetsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_packets_parsed_total",
			Help: "Number of advertising packets successfully parsed end to end.",
		}, labels),
		catcherRecovered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blesdr_worker_panics_recovered_total",
			Help: "Number of per-channel worker panics recovered without killing the worker.",
		}, labels),
	}
}

func (m *Metrics) BurstDetected(freqMHz int)   { m.burstsDetected.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) DemodSkew(freqMHz int)       { m.demodSkew.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) DemodTooShort(freqMHz int)   { m.demodTooShort.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) BitopsFail(freqMHz int)      { m.bitopsFail.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) BluetoothFail(freqMHz int)   { m.bluetoothFail.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) PacketParsed(freqMHz int)    { m.packetsParsed.WithLabelValues(label(freqMHz)).Inc() }
func (m *Metrics) CatcherRecovered(freqMHz int) {
	m.catcherRecovered.WithLabelValues(label(freqMHz)).Inc()
}

func label(freqMHz int) string { return strconv.Itoa(freqMHz) }
