// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"errors"
	"time"
)

// ErrFrameSized is returned by Grow when the frame already has a size.
var ErrFrameSized = errors.New("sharpac: frame already sized")

// stamp selects what StampChecksum writes.
type stamp int

const (
	stampGeneric stamp = iota // last byte only
	stampCommand              // byte 12 nibble fold, then last byte
	stampNone                 // single byte frames carry no checksum
)

// Frame is one message exchanged over the serial link. The buffer is owned by
// the frame; constructors copy their input and Clone makes a deep copy.
type Frame struct {
	data      []byte
	stamp     stamp
	timestamp time.Time
}

// NewFrame creates a frame holding a copy of raw.
func NewFrame(raw []byte) *Frame {
	data := make([]byte, len(raw))
	copy(data, raw)
	return &Frame{data: data, timestamp: time.Now()}
}

// NewFrameAt is NewFrame with an explicit timestamp, used for recorded traffic.
func NewFrameAt(raw []byte, t time.Time) *Frame {
	f := NewFrame(raw)
	f.timestamp = t
	return f
}

// NewByteFrame creates a one byte frame, used for acknowledgments, idle markers
// and single byte resync reads.
func NewByteFrame(b byte) *Frame {
	return &Frame{data: []byte{b}, stamp: stampNone, timestamp: time.Now()}
}

// NewAckFrame creates the acknowledgment frame (0x06). Stamping it is a no-op.
func NewAckFrame() *Frame {
	return NewByteFrame(AckByte)
}

// NewEmptyFrame creates a zero length frame. It is the only frame that Grow
// accepts, exactly once.
func NewEmptyFrame() *Frame {
	return &Frame{timestamp: time.Now()}
}

// Grow allocates size zeroed bytes. It fails with ErrFrameSized unless the frame
// is still empty.
func (f *Frame) Grow(size int) error {
	if len(f.data) != 0 {
		return ErrFrameSized
	}
	f.data = make([]byte, size)
	return nil
}

// Len returns the frame length in bytes.
func (f *Frame) Len() int {
	return len(f.data)
}

// Bytes returns a copy of the frame bytes.
func (f *Frame) Bytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// At returns the byte at index i, or 0 when i is out of range.
func (f *Frame) At(i int) byte {
	if i < 0 || i >= len(f.data) {
		return 0
	}
	return f.data[i]
}

// Discriminator returns the first byte, or 0 for an empty frame.
func (f *Frame) Discriminator() byte {
	return f.At(0)
}

// Timestamp returns when the frame was created or received.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{data: f.Bytes(), stamp: f.stamp, timestamp: f.timestamp}
}

// IsAck reports whether this is the one byte acknowledgment.
func (f *Frame) IsAck() bool {
	return len(f.data) == 1 && f.data[0] == AckByte
}

// Checksum computes the whole frame checksum over the current contents.
func (f *Frame) Checksum() uint8 {
	return CalculateChecksum(f.data)
}

// StampChecksum writes the checksum into the last byte. Command frames first
// refresh their nibble checksum at byte 12; acknowledgments are left untouched.
func (f *Frame) StampChecksum() {
	switch f.stamp {
	case stampNone:
		return
	case stampCommand:
		if len(f.data) == CommandSize {
			f.data[12] = CalculateCommandNibble(f.data)
		}
	}
	if len(f.data) < 2 {
		return
	}
	f.data[len(f.data)-1] = f.Checksum()
}

// ValidChecksum reports whether the last byte matches the computed checksum.
func (f *Frame) ValidChecksum() bool {
	if len(f.data) < 2 {
		return false
	}
	return f.data[len(f.data)-1] == f.Checksum()
}

// Kind classifies a frame for dispatch and display.
type Kind int

// Frame kinds
const (
	KindEmpty Kind = iota
	KindAck
	KindIdle
	KindByte
	KindStatus
	KindModeResponse
	KindModeCommand
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "EMPTY"
	case KindAck:
		return "ACK"
	case KindIdle:
		return "IDLE"
	case KindByte:
		return "BYTE"
	case KindStatus:
		return "STATUS"
	case KindModeResponse:
		return "MODE_RESPONSE"
	case KindModeCommand:
		return "MODE_COMMAND"
	default:
		return "RAW"
	}
}

// Kind returns the frame's variant. Status frames are exactly 18 bytes; Mode
// frames are at least 14 bytes and start with 0xDC or 0xDD, their dialect
// selected by byte 2.
func (f *Frame) Kind() Kind {
	switch {
	case len(f.data) == 0:
		return KindEmpty
	case len(f.data) == 1:
		switch f.data[0] {
		case AckByte:
			return KindAck
		case IdleByte:
			return KindIdle
		}
		return KindByte
	case len(f.data) == StatusSize:
		return KindStatus
	case len(f.data) >= ModeFrameSize && (f.data[0] == DiscState || f.data[0] == DiscCommand):
		if f.data[2] == DialectResponse {
			return KindModeResponse
		}
		return KindModeCommand
	}
	return KindRaw
}
