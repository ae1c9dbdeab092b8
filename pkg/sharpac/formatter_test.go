// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatHex(t *testing.T) {
	assert.Equal(t, "", FormatHex(nil))
	assert.Equal(t, "06", FormatHex([]byte{0x06}))
	assert.Equal(t, "DC 0B FC", FormatHex(responseFrame[:3]))
}

func TestFormatFrame_Mode(t *testing.T) {
	out := FormatFrame(NewFrame(responseFrame))

	assert.Contains(t, out, "MODE_RESPONSE (0xDC) len=14 checksum=ok")
	assert.Contains(t, out, "Dialect: response, Power: On, Mode: cool, Fan: auto")
	assert.Contains(t, out, "Swing: horizontal=middle vertical=auto")
	assert.Contains(t, out, "Target Temperature: 26°C")
}

func TestFormatFrame_Status(t *testing.T) {
	out := FormatFrame(NewFrame(statusFrame(21)))
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "Room Temperature: 21°C")
}

func TestFormatFrame_BadChecksum(t *testing.T) {
	raw := append([]byte(nil), coolFrame...)
	raw[13] = 0x00
	out := FormatFrame(NewFrame(raw))
	assert.Contains(t, out, "checksum=BAD, want 0x8A")
}

func TestFormatFrame_BadNibble(t *testing.T) {
	raw := append([]byte(nil), coolFrame...)
	raw[12] = 0x11
	f := NewFrame(raw)
	f.StampChecksum()
	out := FormatFrame(f)
	assert.Contains(t, out, "Nibble Checksum: 0x11 (want 0x81)")
}

func TestFormatFrame_SingleBytes(t *testing.T) {
	assert.Contains(t, FormatFrame(NewAckFrame()), "ACK (0x06)")
	assert.Contains(t, FormatFrame(NewByteFrame(0x55)), "BYTE (0x55)")
	assert.Contains(t, FormatFrame(NewEmptyFrame()), "EMPTY")
}

func TestFormatFrame_RawHexDump(t *testing.T) {
	out := FormatFrame(NewFrame(initReply))
	assert.Contains(t, out, "RAW (0x02) len=8")
	assert.Contains(t, out, "Data: 02 FF FF 00 00 00 00 02")
}

func TestFormatFrame_Timestamp(t *testing.T) {
	f := NewFrame(initReply)
	f.timestamp = time.Date(2025, 1, 2, 3, 4, 5, 6e6, time.UTC)
	assert.True(t, strings.HasPrefix(FormatFrame(f), "[03:04:05.006]"))
}

func TestAnnotateByte_Command(t *testing.T) {
	f := NewFrame(coolFrame)
	assert.Equal(t, "Discriminator: 0xDD", AnnotateByte(f, 0))
	assert.Equal(t, "Dialect: 0xFB (command)", AnnotateByte(f, 2))
	assert.Equal(t, "Temperature: 0xCF (31°C)", AnnotateByte(f, 4))
	assert.Equal(t, "Mode/Fan: 0x32 (mode=cool fan=mid)", AnnotateByte(f, 6))
	assert.Equal(t, "Swing: 0xF9 (horizontal=swing vertical=highest)", AnnotateByte(f, 8))
	assert.Equal(t, "Nibble Checksum: 0x81", AnnotateByte(f, 12))
	assert.Equal(t, "Checksum: 0x8A", AnnotateByte(f, 13))
}

func TestAnnotateByte_Response(t *testing.T) {
	f := NewFrame(responseFrame)
	assert.Equal(t, "Mode/Fan: 0x22 (mode=cool fan=auto)", AnnotateByte(f, 5))
	assert.Equal(t, "Swing: 0x18 (horizontal=middle vertical=auto)", AnnotateByte(f, 6))
	assert.Equal(t, "Power/Ion: 0x80 (power=true ion=false)", AnnotateByte(f, 8))
	assert.Equal(t, "Unknown: 0x00", AnnotateByte(f, 12))
}

func TestAnnotateByte_Status(t *testing.T) {
	f := NewFrame(statusFrame(28))
	assert.Equal(t, "Temperature: 0x0C (28°C)", AnnotateByte(f, 7))
	assert.Equal(t, "Unknown: 0x00", AnnotateByte(f, 4))
}

func TestFormatBytes(t *testing.T) {
	out := FormatBytes(NewFrame(coolFrame))
	assert.Equal(t, len(coolFrame), strings.Count(out, "\n"))
	assert.Contains(t, out, "Byte  4: Temperature: 0xCF (31°C)")
}

func TestFormatState(t *testing.T) {
	s := DefaultState()
	assert.Contains(t, FormatState(s, 0, false), "room=-")
	assert.Contains(t, FormatState(s, 22, true), "room=22°C")
	assert.Contains(t, FormatState(s, 22, true), "swing_mode=off")
	assert.Contains(t, s.String(), "power=off mode=fan_only fan=low target=-")
}
