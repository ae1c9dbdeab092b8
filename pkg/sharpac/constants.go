// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sharpac implements the serial protocol spoken by Sharp air conditioner
// indoor units.
//
// The package provides the frame model (construction, checksums, typed views over
// the two Mode dialects), the device state mirror and its command rendering, and
// the session engine that performs the handshake, polls the unit and keeps the
// mirror up to date. One Engine drives exactly one link to one unit.
package sharpac

import (
	"fmt"
	"strings"
	"time"
)

// Single-byte frames
const (
	AckByte  = 0x06
	IdleByte = 0x00
)

// Discriminators (first byte of an inbound frame)
const (
	DiscInit      = 0x02
	DiscSubscribe = 0x03
	DiscState     = 0xDC
	DiscCommand   = 0xDD
)

// Mode dialect markers (byte 2 of a Mode frame)
const (
	DialectResponse = 0xFC
	DialectCommand  = 0xFB
)

// Frame sizes
const (
	HeaderSize    = 8
	ModeFrameSize = 14
	StatusSize    = 18
	SubscribeSize = 17
	CommandSize   = ModeFrameSize
	MaxFrameSize  = 0xFF + HeaderSize
)

// Session constants
const (
	// StepConnected is the handshake step at which the session is established.
	StepConnected = 8

	// Short reads tolerated before one byte is discarded to resynchronize.
	maxShortReads = 5
)

// Temperature limits for the setpoint
const (
	MinTemperature = 16
	MaxTemperature = 30
)

// Default session timings
const (
	DefaultPollInterval      = 60 * time.Second
	DefaultResponseTimeout   = 10 * time.Second
	DefaultReconnectInterval = 10 * time.Second
)

// PowerMode is the operating mode code used in the low nibble of the mode byte.
type PowerMode uint8

// Operating modes
const (
	ModeHeat PowerMode = 0x1
	ModeCool PowerMode = 0x2
	ModeDry  PowerMode = 0x3
	ModeFan  PowerMode = 0x4
)

func (m PowerMode) String() string {
	switch m {
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	case ModeDry:
		return "dry"
	case ModeFan:
		return "fan_only"
	default:
		return fmt.Sprintf("unknown(0x%X)", uint8(m))
	}
}

// HasSetpoint reports whether a target temperature applies in this mode.
func (m PowerMode) HasSetpoint() bool {
	return m == ModeCool || m == ModeHeat
}

// FanMode is the fan speed code used in the high nibble of the mode byte.
type FanMode uint8

// Fan speeds
const (
	FanAuto    FanMode = 0x2
	FanMid     FanMode = 0x3
	FanLow     FanMode = 0x4
	FanHigh    FanMode = 0x5
	FanHighest FanMode = 0x7
)

func (f FanMode) String() string {
	switch f {
	case FanAuto:
		return "auto"
	case FanMid:
		return "mid"
	case FanLow:
		return "low"
	case FanHigh:
		return "high"
	case FanHighest:
		return "highest"
	default:
		return fmt.Sprintf("unknown(0x%X)", uint8(f))
	}
}

// SwingVertical is the vertical louver position code.
type SwingVertical uint8

// Vertical louver positions
const (
	VerticalAuto    SwingVertical = 0x8
	VerticalHighest SwingVertical = 0x9
	VerticalHigh    SwingVertical = 0xA
	VerticalMid     SwingVertical = 0xB
	VerticalLow     SwingVertical = 0xC
	VerticalLowest  SwingVertical = 0xD
	VerticalSwing   SwingVertical = 0xF
)

func (v SwingVertical) String() string {
	switch v {
	case VerticalAuto:
		return "auto"
	case VerticalHighest:
		return "highest"
	case VerticalHigh:
		return "high"
	case VerticalMid:
		return "mid"
	case VerticalLow:
		return "low"
	case VerticalLowest:
		return "lowest"
	case VerticalSwing:
		return "swing"
	default:
		return fmt.Sprintf("unknown(0x%X)", uint8(v))
	}
}

// SwingHorizontal is the horizontal louver position code.
type SwingHorizontal uint8

// Horizontal louver positions
const (
	HorizontalMiddle SwingHorizontal = 0x1
	HorizontalRight  SwingHorizontal = 0x2
	HorizontalLeft   SwingHorizontal = 0x3
	HorizontalSwing  SwingHorizontal = 0xF
)

func (h SwingHorizontal) String() string {
	switch h {
	case HorizontalMiddle:
		return "middle"
	case HorizontalRight:
		return "right"
	case HorizontalLeft:
		return "left"
	case HorizontalSwing:
		return "swing"
	default:
		return fmt.Sprintf("unknown(0x%X)", uint8(h))
	}
}

// Preset is an operating shortcut layered on top of mode, fan and temperature.
type Preset uint8

// Presets
const (
	PresetNone      Preset = 0x0
	PresetEco       Preset = 0x1
	PresetFullPower Preset = 0x2
)

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetEco:
		return "eco"
	case PresetFullPower:
		return "full_power"
	default:
		return fmt.Sprintf("unknown(0x%X)", uint8(p))
	}
}

// ParsePowerMode parses a mode name as printed by PowerMode.String.
// "fan" is accepted as an alias for "fan_only".
func ParsePowerMode(s string) (PowerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	case "dry":
		return ModeDry, nil
	case "fan", "fan_only":
		return ModeFan, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want heat, cool, dry or fan_only)", s)
}

// ParseFanMode parses a fan speed name.
func ParseFanMode(s string) (FanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return FanAuto, nil
	case "low":
		return FanLow, nil
	case "mid", "medium":
		return FanMid, nil
	case "high":
		return FanHigh, nil
	case "highest":
		return FanHighest, nil
	}
	return 0, fmt.Errorf("unknown fan speed %q (want auto, low, mid, high or highest)", s)
}

// ParseSwingVertical parses a vertical louver position name.
func ParseSwingVertical(s string) (SwingVertical, error) {
	for _, v := range VerticalPositions {
		if v.String() == strings.ToLower(strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown vertical position %q", s)
}

// ParseSwingHorizontal parses a horizontal louver position name.
func ParseSwingHorizontal(s string) (SwingHorizontal, error) {
	for _, h := range HorizontalPositions {
		if h.String() == strings.ToLower(strings.TrimSpace(s)) {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unknown horizontal position %q", s)
}

// ParsePreset parses a preset name. "boost" is accepted for full power.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return PresetNone, nil
	case "eco":
		return PresetEco, nil
	case "full_power", "fullpower", "boost":
		return PresetFullPower, nil
	}
	return 0, fmt.Errorf("unknown preset %q (want none, eco or full_power)", s)
}

// Ordered value lists, used by selectors and validation.
var (
	PowerModes          = []PowerMode{ModeCool, ModeHeat, ModeDry, ModeFan}
	FanModes            = []FanMode{FanAuto, FanLow, FanMid, FanHigh, FanHighest}
	VerticalPositions   = []SwingVertical{VerticalAuto, VerticalSwing, VerticalHighest, VerticalHigh, VerticalMid, VerticalLow, VerticalLowest}
	HorizontalPositions = []SwingHorizontal{HorizontalSwing, HorizontalLeft, HorizontalMiddle, HorizontalRight}
	Presets             = []Preset{PresetNone, PresetEco, PresetFullPower}
)
