// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	initReply     = []byte{0x02, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x02}
	subReply      = []byte{0x03, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	responseFrame = []byte{0xdc, 0x0b, 0xfc, 0x73, 0x1a, 0x22, 0x18, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0xb2}
)

// statusBytes returns a status frame reporting 23 °C.
func statusBytes() []byte {
	f := sharpac.NewFrame([]byte{
		0xdc, 0x0f, 0xfc, 0x62, 0x00, 0x00, 0x00, 0x07, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	})
	f.StampChecksum()
	return f.Bytes()
}

// handshakeScript lists what the unit sends after each engine write, from the
// init probe up to the connected literal.
func handshakeScript() [][][]byte {
	ack := []byte{sharpac.AckByte}
	return [][][]byte{
		{initReply},
		{initReply},
		{ack, subReply},
		{subReply},
		{responseFrame},
		{responseFrame},
		{ack, statusBytes()},
	}
}

// fakeUnit answers the engine on the far end of a pipe. replies[i] is sent
// after the engine's i-th write; later writes are read and dropped.
func fakeUnit(conn net.Conn, replies [][][]byte) {
	buf := make([]byte, 64)
	for i := 0; ; i++ {
		if _, err := conn.Read(buf); err != nil {
			return
		}
		if i >= len(replies) {
			continue
		}
		for _, r := range replies[i] {
			if _, err := conn.Write(r); err != nil {
				return
			}
		}
	}
}

// newUnitSession starts a session talking to a scripted unit.
func newUnitSession(t *testing.T, script [][][]byte) (*session, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	go fakeUnit(remote, script)

	s := newSession(local, "pipe", nil)
	t.Cleanup(func() {
		s.Close()
		remote.Close()
	})
	return s, remote
}

// connectedSession returns a session that finished the handshake and has
// seen a room temperature.
func connectedSession(t *testing.T) *session {
	t.Helper()
	s, _ := newUnitSession(t, handshakeScript())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ready := false
	require.NoError(t, s.RunUntil(ctx, func(e *sharpac.Engine) bool {
		_, ok := e.CurrentTemperature()
		ready = e.Connected() && ok
		return ready
	}))
	require.True(t, ready, "unit did not connect")
	return s
}

func TestSession_WaitConnected(t *testing.T) {
	s, _ := newUnitSession(t, handshakeScript())

	connected, err := waitConnected(context.Background(), s, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, connected)

	s.Do(func(e *sharpac.Engine) {
		assert.Equal(t, sharpac.StepConnected, e.Step())
		assert.Equal(t, sharpac.ModeCool, e.State().Mode)
	})
}

func TestSession_WaitConnectedTimesOut(t *testing.T) {
	s, _ := newUnitSession(t, nil)

	connected, err := waitConnected(context.Background(), s, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, connected)
	s.Do(func(e *sharpac.Engine) {
		assert.Equal(t, 0, e.Step())
	})
}

func TestSession_RoomTemperature(t *testing.T) {
	s := connectedSession(t)
	s.Do(func(e *sharpac.Engine) {
		temp, ok := e.CurrentTemperature()
		assert.True(t, ok)
		assert.Equal(t, 23, temp)
	})
}

func TestSession_RunEndsWhenPeerCloses(t *testing.T) {
	s, remote := newUnitSession(t, nil)
	remote.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	assert.NoError(t, s.Run(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSession_RunStopsOnContext(t *testing.T) {
	s, _ := newUnitSession(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
}

func TestMultiTap(t *testing.T) {
	var got []string
	tap := multiTap(
		func(dir sharpac.Direction, f *sharpac.Frame) { got = append(got, "a:"+dir.String()) },
		func(dir sharpac.Direction, f *sharpac.Frame) { got = append(got, "b:"+dir.String()) },
	)
	tap(sharpac.DirTX, sharpac.NewAckFrame())
	assert.Equal(t, []string{"a:TX", "b:TX"}, got)
}
