// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"time"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

// DefaultStep is the replay tick used when none is given.
const DefaultStep = 10 * time.Millisecond

// ReplayTransport feeds the RX side of a capture into an engine. Its clock is
// virtual: recorded bytes become available once the clock passes their
// timestamp. Frames written by the engine are collected in Written.
type ReplayTransport struct {
	records []Record
	next    int
	buf     []byte
	now     time.Time

	Written [][]byte
}

// NewReplayTransport creates a transport over the RX records of a capture,
// with the clock set to the first record.
func NewReplayTransport(records []Record) *ReplayTransport {
	rt := &ReplayTransport{}
	for _, rec := range records {
		if rec.Dir() == sharpac.DirRX {
			rt.records = append(rt.records, rec)
		}
	}
	if len(rt.records) > 0 {
		rt.now = rt.records[0].Time()
	}
	rt.release()
	return rt
}

func (rt *ReplayTransport) release() {
	for rt.next < len(rt.records) && !rt.records[rt.next].Time().After(rt.now) {
		rt.buf = append(rt.buf, rt.records[rt.next].Data...)
		rt.next++
	}
}

// Advance moves the clock forward and releases due records.
func (rt *ReplayTransport) Advance(d time.Duration) {
	rt.now = rt.now.Add(d)
	rt.release()
}

// Done reports whether every record was released and consumed.
func (rt *ReplayTransport) Done() bool {
	return rt.next == len(rt.records) && len(rt.buf) == 0
}

// Run calls service once per step until the capture is consumed, then for
// tail more steps so trailing timeouts can fire. It returns the tick count.
func (rt *ReplayTransport) Run(service func(), step, tail time.Duration) int {
	if step <= 0 {
		step = DefaultStep
	}
	ticks := 0
	for !rt.Done() {
		service()
		rt.Advance(step)
		ticks++
	}
	for end := rt.now.Add(tail); rt.now.Before(end); ticks++ {
		service()
		rt.Advance(step)
	}
	return ticks
}

func (rt *ReplayTransport) Available() int { return len(rt.buf) }

func (rt *ReplayTransport) Peek() byte {
	if len(rt.buf) == 0 {
		return 0
	}
	return rt.buf[0]
}

func (rt *ReplayTransport) Read() byte {
	if len(rt.buf) == 0 {
		return 0
	}
	b := rt.buf[0]
	rt.buf = rt.buf[1:]
	return b
}

func (rt *ReplayTransport) ReadBlock(p []byte) int {
	n := copy(p, rt.buf)
	rt.buf = rt.buf[n:]
	return n
}

func (rt *ReplayTransport) WriteBlock(data []byte) error {
	rt.Written = append(rt.Written, append([]byte(nil), data...))
	return nil
}

func (rt *ReplayTransport) Now() time.Time { return rt.now }
