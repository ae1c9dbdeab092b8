// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"io"
	"sync"
	"time"
)

// StreamTransport adapts a blocking io.ReadWriter to the non-blocking
// Transport contract. A background goroutine copies incoming bytes into a
// buffer that the engine drains on its own schedule.
type StreamTransport struct {
	rw io.ReadWriter

	mu     sync.Mutex
	buf    []byte
	err    error
	closed chan struct{}
	done   chan struct{}
}

// NewStreamTransport starts reading from rw in the background.
func NewStreamTransport(rw io.ReadWriter) *StreamTransport {
	t := &StreamTransport{
		rw:     rw,
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *StreamTransport) readLoop() {
	defer close(t.done)
	chunk := make([]byte, 128)
	for {
		n, err := t.rw.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, chunk[:n]...)
			t.mu.Unlock()
		}
		if err != nil {
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
			return
		}
		select {
		case <-t.closed:
			return
		default:
		}
	}
}

// Err returns the error that stopped the background reader, if any.
func (t *StreamTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the background reader exits.
func (t *StreamTransport) Done() <-chan struct{} {
	return t.done
}

// Close stops the background reader after its current Read returns. The
// underlying stream is not closed.
func (t *StreamTransport) Close() {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
}

func (t *StreamTransport) Available() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

func (t *StreamTransport) Peek() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0
	}
	return t.buf[0]
}

func (t *StreamTransport) Read() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b
}

func (t *StreamTransport) ReadBlock(p []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n
}

func (t *StreamTransport) WriteBlock(data []byte) error {
	_, err := t.rw.Write(data)
	return err
}

func (t *StreamTransport) Now() time.Time {
	return time.Now()
}
