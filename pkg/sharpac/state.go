// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import "fmt"

// DeviceState is the local mirror of the unit's operating parameters.
type DeviceState struct {
	Power       bool
	Mode        PowerMode
	Fan         FanMode
	Horizontal  SwingHorizontal
	Vertical    SwingVertical
	Temperature int // °C, meaningful in cool and heat mode
	Ion         bool
	Preset      Preset
}

// DefaultState returns the state assumed before the unit reports anything.
func DefaultState() DeviceState {
	return DeviceState{
		Power:       false,
		Mode:        ModeFan,
		Fan:         FanLow,
		Horizontal:  HorizontalMiddle,
		Vertical:    VerticalMid,
		Temperature: 25,
		Ion:         false,
		Preset:      PresetNone,
	}
}

// Apply copies the fields decoded from a mode frame. Power, mode, fan, swing and
// preset are always taken; ion and temperature only while the unit reports
// power on, and temperature only in cool or heat mode. The setpoint is kept
// within MinTemperature..MaxTemperature.
func (s *DeviceState) Apply(v ModeView) {
	s.Fan = v.FanMode()
	s.Mode = v.PowerMode()
	s.Power = v.Power()
	s.Horizontal = v.SwingHorizontal()
	s.Vertical = v.SwingVertical()
	s.Preset = v.Preset()

	if s.Power {
		s.Ion = v.Ion()
		if s.Mode.HasSetpoint() {
			s.Temperature = ClampTemperature(v.Temperature())
		}
	}
}

// Command renders the full state into a 14 byte command frame with both
// checksums stamped.
func (s DeviceState) Command() *Frame {
	return BuildCommand(s)
}

// BuildCommand renders s into a command frame. The frame starts empty and is
// sized exactly once.
func BuildCommand(s DeviceState) *Frame {
	f := NewEmptyFrame()
	_ = f.Grow(CommandSize)
	f.stamp = stampCommand

	d := f.data
	d[0] = DiscCommand
	d[1] = 0x0B
	d[2] = DialectCommand
	d[3] = 0x60
	d[11] = 0xE4

	switch s.Mode {
	case ModeFan:
		d[4] = 0x01
	case ModeDry:
		d[4] = 0x00
	case ModeCool, ModeHeat:
		d[4] = 0xC0 | uint8(ClampTemperature(s.Temperature)-15)
	}

	d[6] = uint8(s.Mode) & 0x0F
	switch {
	case s.Mode == ModeFan && s.Fan == FanAuto:
		d[6] |= uint8(FanLow) << 4
	case s.Preset == PresetFullPower:
		d[6] |= uint8(FanAuto) << 4
	default:
		d[6] |= uint8(s.Fan) << 4
	}

	switch {
	case !s.Power:
		d[5] = 0x21
	case s.Preset == PresetNone:
		d[5] = 0x31
	default:
		d[5] = 0x61
	}

	if s.Ion {
		d[11] = 0xE4
	} else {
		d[11] = 0x10
	}

	switch s.Preset {
	case PresetFullPower:
		d[10] = 0x01
	case PresetEco:
		d[7] = 0x10
	}

	d[8] = uint8(s.Horizontal)<<4 | uint8(s.Vertical)&0x0F

	f.StampChecksum()
	return f
}

// String returns a one line summary.
func (s DeviceState) String() string {
	power := "off"
	if s.Power {
		power = "on"
	}
	temp := "-"
	if s.Mode.HasSetpoint() {
		temp = fmt.Sprintf("%d°C", s.Temperature)
	}
	return fmt.Sprintf("power=%s mode=%s fan=%s target=%s swing=%s/%s ion=%v preset=%s",
		power, s.Mode, s.Fan, temp, s.Horizontal, s.Vertical, s.Ion, s.Preset)
}

// ClampTemperature limits t to the setpoint range.
func ClampTemperature(t int) int {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}

// SwingMode is the combined louver behaviour exposed by climate controls.
type SwingMode int

// Swing modes
const (
	SwingOff SwingMode = iota
	SwingBoth
	SwingVerticalOnly
	SwingHorizontalOnly
)

func (m SwingMode) String() string {
	switch m {
	case SwingBoth:
		return "both"
	case SwingVerticalOnly:
		return "vertical"
	case SwingHorizontalOnly:
		return "horizontal"
	default:
		return "off"
	}
}

// ParseSwingMode parses off, both, vertical or horizontal.
func ParseSwingMode(s string) (SwingMode, error) {
	for _, m := range []SwingMode{SwingOff, SwingBoth, SwingVerticalOnly, SwingHorizontalOnly} {
		if m.String() == s {
			return m, nil
		}
	}
	return SwingOff, fmt.Errorf("unknown swing mode %q (want off, both, vertical or horizontal)", s)
}

// SwingModeOf summarises the louver positions as a swing mode.
func SwingModeOf(s DeviceState) SwingMode {
	switch {
	case s.Vertical == VerticalSwing && s.Horizontal == HorizontalSwing:
		return SwingBoth
	case s.Vertical == VerticalSwing:
		return SwingVerticalOnly
	case s.Horizontal == HorizontalSwing:
		return SwingHorizontalOnly
	}
	return SwingOff
}

// SwingPositions returns the louver positions that realise a swing mode.
// Axes that stop swinging park at middle (horizontal) and auto (vertical).
func SwingPositions(m SwingMode) (SwingHorizontal, SwingVertical) {
	switch m {
	case SwingBoth:
		return HorizontalSwing, VerticalSwing
	case SwingHorizontalOnly:
		return HorizontalSwing, VerticalAuto
	case SwingVerticalOnly:
		return HorizontalMiddle, VerticalSwing
	}
	return HorizontalMiddle, VerticalAuto
}
