// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import "time"

// Transport is the byte link consumed by the engine. Reads never block: they
// only see bytes that are already available.
type Transport interface {
	// Available returns the number of bytes that can be read without blocking.
	Available() int
	// Peek returns the next byte without consuming it (0 when none is available).
	Peek() byte
	// Read consumes and returns the next byte (0 when none is available).
	Read() byte
	// ReadBlock consumes up to len(buf) available bytes and returns the count.
	ReadBlock(buf []byte) int
	// WriteBlock transmits data.
	WriteBlock(data []byte) error
	// Now returns the current time of the transport's clock.
	Now() time.Time
}

// Direction tells whether a tapped frame was received or sent.
type Direction int

// Directions
const (
	DirRX Direction = iota
	DirTX
)

func (d Direction) String() string {
	if d == DirTX {
		return "TX"
	}
	return "RX"
}

// TapFunc observes every frame the engine reads or writes. Frames passed to a
// tap must not be modified.
type TapFunc func(dir Direction, f *Frame)
