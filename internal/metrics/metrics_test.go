// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

type stubSource struct {
	state   sharpac.DeviceState
	room    int
	hasRoom bool
}

func (s *stubSource) State() sharpac.DeviceState      { return s.state }
func (s *stubSource) CurrentTemperature() (int, bool) { return s.room, s.hasRoom }

var responseFrame = []byte{0xdc, 0x0b, 0xfc, 0x73, 0x1a, 0x22, 0x18, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0xb2}

func TestEngineMetrics_Tap(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())

	m.Tap(sharpac.DirRX, sharpac.NewFrame(responseFrame))
	m.Tap(sharpac.DirRX, sharpac.NewAckFrame())
	m.Tap(sharpac.DirTX, sharpac.NewAckFrame())

	bad := append([]byte(nil), responseFrame...)
	bad[13] = 0x00
	m.Tap(sharpac.DirRX, sharpac.NewFrame(bad))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Frames.WithLabelValues("RX", "MODE_RESPONSE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("RX", "ACK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("TX", "ACK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksumErrors))
}

func TestEngineMetrics_State(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())

	// unbound metrics ignore updates
	m.OnStateChanged()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.TargetTemperature))

	src := &stubSource{state: sharpac.DefaultState(), room: 23, hasRoom: true}
	src.state.Power = true
	src.state.Mode = sharpac.ModeCool
	src.state.Temperature = 21
	m.Bind(src)
	m.OnStateChanged()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Power))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Ion))
	assert.Equal(t, 21.0, testutil.ToFloat64(m.TargetTemperature))
	assert.Equal(t, 23.0, testutil.ToFloat64(m.RoomTemperature))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mode.WithLabelValues("cool")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Mode.WithLabelValues("heat")))
	assert.Equal(t, len(sharpac.PowerModes), testutil.CollectAndCount(m.Mode))
}

func TestEngineMetrics_ConnectionStatus(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())

	m.OnConnectionStatusChanged(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Reconnects))

	for step := 1; step <= sharpac.StepConnected; step++ {
		m.OnConnectionStatusChanged(step)
	}
	assert.Equal(t, 8.0, testutil.ToFloat64(m.HandshakeStep))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Connected))

	m.OnConnectionStatusChanged(0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconnects))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Connected))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewEngineMetrics(reg)
	m.OnConnectionStatusChanged(3)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "sharpstat_handshake_step 3")
	assert.Contains(t, string(body), "go_goroutines")
}
