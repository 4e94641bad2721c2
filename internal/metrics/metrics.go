// Package metrics exposes prometheus counters for the emulator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"reflow_emulator/internal/models"
)

const metricPrefix = "reflow_"

// Datagram results.
const (
	ResultApplied   = "applied"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
	ResultUnknown   = "unknown"
)

// Metrics groups the emulator collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	datagrams       *prometheus.CounterVec
	replies         *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	heaterOn        prometheus.Gauge
	reserved        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		datagrams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "datagrams_total",
				Help: "Datagrams processed by opcode and result",
			},
			[]string{"opcode", "result"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "replies_total",
				Help: "Status messages sent by kind (reply or push)",
			},
			[]string{"kind"},
		),
		transportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transport_errors_total",
				Help: "Socket errors by operation",
			},
			[]string{"op"},
		),
		heaterOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "heater_on",
			Help: "1 when the heater is on",
		}),
		reserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "reserved",
			Help: "1 when a controller holds the reservation",
		}),
	}
	reg.MustRegister(m.datagrams, m.replies, m.transportErrors, m.heaterOn, m.reserved)
	return m
}

// ObserveDatagram counts one processed datagram.
func (m *Metrics) ObserveDatagram(opcode, result string) {
	if m == nil {
		return
	}
	m.datagrams.WithLabelValues(opcode, result).Inc()
}

// ObserveReply counts one status message handed to the socket.
func (m *Metrics) ObserveReply(kind string) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(kind).Inc()
}

// ObserveTransportError counts one failed socket operation.
func (m *Metrics) ObserveTransportError(op string) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(op).Inc()
}

// SetDeviceState mirrors the device state into gauges.
func (m *Metrics) SetDeviceState(st models.DeviceState) {
	if m == nil {
		return
	}
	m.heaterOn.Set(boolToFloat(st.HeaterOn))
	m.reserved.Set(boolToFloat(st.Reserved))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
