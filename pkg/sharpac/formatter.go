// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"fmt"
	"strings"
)

// FormatHex renders bytes as space separated upper case hex pairs.
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	kind := f.Kind()

	switch kind {
	case KindEmpty:
		return fmt.Sprintf("[%s] EMPTY\n", timestamp)
	case KindAck, KindIdle, KindByte:
		return fmt.Sprintf("[%s] %s (0x%02X)\n", timestamp, kind, f.data[0])
	}

	check := "ok"
	if !f.ValidChecksum() {
		check = fmt.Sprintf("BAD, want 0x%02X", f.Checksum())
	}
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d checksum=%s\n", timestamp, kind, f.data[0], len(f.data), check)
	result += FormatPayload(f)
	return result
}

// FormatPayload decodes the fields of status and mode frames and falls back to
// a hex dump for everything else.
func FormatPayload(f *Frame) string {
	if v, ok := AsStatus(f); ok {
		return fmt.Sprintf("  Room Temperature: %d°C\n", v.Temperature())
	}

	if v, ok := AsMode(f); ok {
		dialect := "command"
		if v.Response() {
			dialect = "response"
		}
		power := "Off"
		if v.Power() {
			power = "On"
		}
		result := fmt.Sprintf("  Dialect: %s, Power: %s, Mode: %s, Fan: %s\n", dialect, power, v.PowerMode(), v.FanMode())
		result += fmt.Sprintf("  Swing: horizontal=%s vertical=%s, Ion: %v, Preset: %s\n",
			v.SwingHorizontal(), v.SwingVertical(), v.Ion(), v.Preset())
		if v.PowerMode().HasSetpoint() {
			result += fmt.Sprintf("  Target Temperature: %d°C\n", v.Temperature())
		}
		if !v.Response() && f.Len() == CommandSize && f.data[12] != CalculateCommandNibble(f.data) {
			result += fmt.Sprintf("  Nibble Checksum: 0x%02X (want 0x%02X)\n", f.data[12], CalculateCommandNibble(f.data))
		}
		return result
	}

	// Default: hex dump
	result := "  Data: "
	for i, b := range f.data {
		if i > 0 && i%16 == 0 {
			result += "\n        "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}

// AnnotateByte describes the meaning of the byte at position i of f.
func AnnotateByte(f *Frame, i int) string {
	b := f.At(i)
	if i == f.Len()-1 && f.Len() > 1 {
		return fmt.Sprintf("Checksum: 0x%02X", b)
	}

	if f.Kind() == KindStatus {
		switch i {
		case 0:
			return fmt.Sprintf("Discriminator: 0x%02X", b)
		case 7:
			return fmt.Sprintf("Temperature: 0x%02X (%d°C)", b&0x0F, int(b&0x0F)+16)
		case 8:
			return fmt.Sprintf("Temperature High: 0x%02X", b)
		}
		return fmt.Sprintf("Unknown: 0x%02X", b)
	}

	v, ok := AsMode(f)
	if !ok {
		return fmt.Sprintf("0x%02X", b)
	}

	switch i {
	case 0:
		return fmt.Sprintf("Discriminator: 0x%02X", b)
	case 2:
		if v.Response() {
			return fmt.Sprintf("Dialect: 0x%02X (response)", b)
		}
		return fmt.Sprintf("Dialect: 0x%02X (command)", b)
	case 4:
		return fmt.Sprintf("Temperature: 0x%02X (%d°C)", b, v.Temperature())
	case 8:
		if !v.Response() {
			return fmt.Sprintf("Swing: 0x%02X (horizontal=%s vertical=%s)", b, v.SwingHorizontal(), v.SwingVertical())
		}
		return fmt.Sprintf("Power/Ion: 0x%02X (power=%v ion=%v)", b, v.Power(), v.Ion())
	case 12:
		if !v.Response() {
			return fmt.Sprintf("Nibble Checksum: 0x%02X", b)
		}
	}

	if v.Response() {
		switch i {
		case 5:
			return fmt.Sprintf("Mode/Fan: 0x%02X (mode=%s fan=%s)", b, v.PowerMode(), v.FanMode())
		case 6:
			return fmt.Sprintf("Swing: 0x%02X (horizontal=%s vertical=%s)", b, v.SwingHorizontal(), v.SwingVertical())
		case 7:
			return fmt.Sprintf("Preset: 0x%02X (%s)", b, v.Preset())
		}
	} else {
		switch i {
		case 5:
			return fmt.Sprintf("Power/Preset: 0x%02X", b)
		case 6:
			return fmt.Sprintf("Mode/Fan: 0x%02X (mode=%s fan=%s)", b, v.PowerMode(), v.FanMode())
		case 7:
			return fmt.Sprintf("Eco: 0x%02X", b)
		case 10:
			return fmt.Sprintf("Full Power: 0x%02X", b)
		case 11:
			return fmt.Sprintf("Ion: 0x%02X", b)
		}
	}
	return fmt.Sprintf("Unknown: 0x%02X", b)
}

// FormatBytes lists every byte of f with its annotation, one per line.
func FormatBytes(f *Frame) string {
	var b strings.Builder
	for i := 0; i < f.Len(); i++ {
		fmt.Fprintf(&b, "  Byte %2d: %s\n", i, AnnotateByte(f, i))
	}
	return b.String()
}

// FormatState renders the mirror together with the ambient reading.
func FormatState(s DeviceState, current int, hasCurrent bool) string {
	room := "-"
	if hasCurrent {
		room = fmt.Sprintf("%d°C", current)
	}
	return fmt.Sprintf("%s room=%s swing_mode=%s", s, room, SwingModeOf(s))
}
