// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/Thermoquad/sharpstat/internal/config"
)

func TestSerialMode_Default(t *testing.T) {
	mode, err := serialMode(config.Default().Serial)
	require.NoError(t, err)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
}

func TestSerialMode_Variants(t *testing.T) {
	sc := config.SerialConfig{Baud: 2400, DataBits: 7, Parity: "ODD", StopBits: 2}
	mode, err := serialMode(sc)
	require.NoError(t, err)
	assert.Equal(t, serial.OddParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)

	sc.Parity = "bogus"
	_, err = serialMode(sc)
	assert.ErrorContains(t, err, "unsupported parity")

	sc.Parity = "none"
	sc.StopBits = 3
	_, err = serialMode(sc)
	assert.ErrorContains(t, err, "unsupported stop bits")
}

func TestSerialDescription(t *testing.T) {
	assert.Equal(t, "9600 8E1", serialDescription(config.Default().Serial))
	assert.Equal(t, "2400 7N2", serialDescription(config.SerialConfig{Baud: 2400, DataBits: 7, StopBits: 2}))
}

// bridgeServer upgrades every request and hands the socket to fn.
func bridgeServer(t *testing.T, fn func(r *http.Request, c *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		fn(r, c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketConnection_BinaryOnly(t *testing.T) {
	received := make(chan []byte, 1)
	auth := make(chan string, 1)

	url := bridgeServer(t, func(r *http.Request, c *websocket.Conn) {
		auth <- r.Header.Get("Authorization")
		_ = c.WriteMessage(websocket.TextMessage, []byte("status: ok"))
		_ = c.WriteMessage(websocket.BinaryMessage, []byte{0x02, 0xFF, 0xFF})
		typ, data, err := c.ReadMessage()
		if err == nil && typ == websocket.BinaryMessage {
			received <- data
		}
	})

	conn, err := OpenWebSocketConnection(url, "admin", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Basic YWRtaW46c2VjcmV0", <-auth)

	// Text frames are skipped and binary data is handed out in pieces.
	buf := make([]byte, 2)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xFF}, buf[:n])
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF}, buf[:n])

	n, err = conn.Write([]byte{0x06})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte{0x06}, <-received)

	// The server hangs up after its read.
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://example.invalid/ws", "", "", false)
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestOpenConnection_NeedsTarget(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = config.Default()

	_, _, err := OpenConnection()
	assert.ErrorContains(t, err, "either --port or --url")
}
