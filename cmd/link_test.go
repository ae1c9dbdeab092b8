// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListenLink_CountsUntilClose(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()

	go func() {
		_, _ = remote.Write([]byte{0x02, 0xFF, 0xFF})
		_, _ = remote.Write([]byte{0x06})
		remote.Close()
	}()

	var chunks [][]byte
	res := listenLink(context.Background(), local, time.Hour, func(b []byte) {
		chunks = append(chunks, b)
	}, nil)

	assert.ErrorIs(t, res.Err, io.EOF)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 4, res.Bytes)
	assert.Equal(t, [][]byte{{0x02, 0xFF, 0xFF}, {0x06}}, chunks)
}

func TestListenLink_StopsOnContext(t *testing.T) {
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	ticks := 0
	res := listenLink(ctx, local, 10*time.Millisecond, nil, func(time.Duration) { ticks++ })

	assert.NoError(t, res.Err)
	assert.Zero(t, res.Chunks)
	assert.Positive(t, ticks)
	assert.GreaterOrEqual(t, res.Elapsed, 50*time.Millisecond)
}
