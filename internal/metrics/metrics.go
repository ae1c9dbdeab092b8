// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes link and device state as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

const namespace = "sharpstat"

// NewRegistry creates a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// StateSource is the part of the engine the metrics read device state from.
type StateSource interface {
	State() sharpac.DeviceState
	CurrentTemperature() (int, bool)
}

// EngineMetrics tracks one engine. Install Tap with sharpac.WithTap and pass
// the value as (part of) the engine listener, then Bind the engine.
type EngineMetrics struct {
	sharpac.NopListener

	Frames            *prometheus.CounterVec // labels: direction, kind
	ChecksumErrors    prometheus.Counter
	Reconnects        prometheus.Counter
	HandshakeStep     prometheus.Gauge
	Connected         prometheus.Gauge
	RoomTemperature   prometheus.Gauge
	TargetTemperature prometheus.Gauge
	Power             prometheus.Gauge
	Ion               prometheus.Gauge
	Mode              *prometheus.GaugeVec // labels: mode

	mu       sync.Mutex
	src      StateSource
	lastStep int
}

// NewEngineMetrics registers and returns the engine metrics.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames seen on the link by direction and kind.",
		}, []string{"direction", "kind"}),
		ChecksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_errors_total",
			Help:      "Received frames with a bad checksum.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Sessions dropped back to disconnected.",
		}),
		HandshakeStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handshake_step",
			Help:      "Current handshake step, 8 when connected.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 when the handshake has completed.",
		}),
		RoomTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_temperature_celsius",
			Help:      "Room temperature reported by the unit.",
		}),
		TargetTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_temperature_celsius",
			Help:      "Target temperature of the unit.",
		}),
		Power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "power",
			Help:      "1 when the unit is on.",
		}),
		Ion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ion",
			Help:      "1 when the ionizer is on.",
		}),
		Mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "1 for the active operating mode.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.Frames, m.ChecksumErrors, m.Reconnects, m.HandshakeStep, m.Connected,
		m.RoomTemperature, m.TargetTemperature, m.Power, m.Ion, m.Mode)
	return m
}

// Bind sets the engine state is read from.
func (m *EngineMetrics) Bind(src StateSource) {
	m.mu.Lock()
	m.src = src
	m.mu.Unlock()
}

// Tap counts a frame. Its signature matches sharpac.TapFunc.
func (m *EngineMetrics) Tap(dir sharpac.Direction, f *sharpac.Frame) {
	m.Frames.WithLabelValues(dir.String(), f.Kind().String()).Inc()
	if dir == sharpac.DirRX && f.Len() > 1 && !f.ValidChecksum() {
		m.ChecksumErrors.Inc()
	}
}

func (m *EngineMetrics) OnStateChanged() {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()
	if src == nil {
		return
	}

	s := src.State()
	m.Power.Set(boolValue(s.Power))
	m.Ion.Set(boolValue(s.Ion))
	m.TargetTemperature.Set(float64(s.Temperature))
	if t, ok := src.CurrentTemperature(); ok {
		m.RoomTemperature.Set(float64(t))
	}
	for _, mode := range sharpac.PowerModes {
		m.Mode.WithLabelValues(mode.String()).Set(boolValue(s.Mode == mode))
	}
}

func (m *EngineMetrics) OnConnectionStatusChanged(step int) {
	m.mu.Lock()
	prev := m.lastStep
	m.lastStep = step
	m.mu.Unlock()

	if step == 0 && prev > 0 {
		m.Reconnects.Inc()
	}
	m.HandshakeStep.Set(float64(step))
	m.Connected.Set(boolValue(step >= sharpac.StepConnected))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
