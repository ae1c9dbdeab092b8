// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

// StatusView interprets an 18 byte status frame.
type StatusView struct {
	f *Frame
}

// AsStatus returns the status view of f when f is a status frame.
func AsStatus(f *Frame) (StatusView, bool) {
	if f.Kind() != KindStatus {
		return StatusView{}, false
	}
	return StatusView{f: f}, true
}

// Temperature returns the ambient temperature in °C.
func (v StatusView) Temperature() int {
	return int(v.f.At(7)&0x0F) + 16
}

// ModeView interprets a 14 byte mode frame in either dialect.
//
// Byte layout (response dialect 0xFC / command dialect 0xFB):
//
//	byte 4: temperature nibble (both)
//	byte 5: fan<<4 | mode (response)
//	byte 6: horizontal<<4 | vertical (response), fan<<4 | mode (command)
//	byte 7: preset flags (0x40 eco, 0x80 full power) (response), 0x10 eco (command)
//	byte 8: power 0x80, ion 0x04 (both); horizontal<<4 | vertical (command)
//	byte 10: 0x01 full power (command)
type ModeView struct {
	f *Frame
}

// AsMode returns the mode view of f when f is a mode frame of either dialect.
func AsMode(f *Frame) (ModeView, bool) {
	switch f.Kind() {
	case KindModeResponse, KindModeCommand:
		return ModeView{f: f}, true
	}
	return ModeView{}, false
}

// ModeViewOf wraps any frame of at least 14 bytes without checking its
// discriminator. Use it for frames built locally.
func ModeViewOf(f *Frame) (ModeView, bool) {
	if f.Len() < ModeFrameSize {
		return ModeView{}, false
	}
	return ModeView{f: f}, true
}

// Response reports whether the frame uses the response dialect.
func (v ModeView) Response() bool {
	return v.f.At(2) == DialectResponse
}

// Power reports the power flag.
func (v ModeView) Power() bool {
	return v.f.At(8)&0x80 != 0
}

// Ion reports the ionizer flag. Older firmware notes put it at 0x80 of the
// same byte; 0x04 follows the newer field table and is unconfirmed on hardware.
func (v ModeView) Ion() bool {
	return v.f.At(8)&0x04 != 0
}

// Preset decodes the preset flags.
func (v ModeView) Preset() Preset {
	if v.Response() {
		switch {
		case v.f.At(7)&0x40 != 0:
			return PresetEco
		case v.f.At(7)&0x80 != 0:
			return PresetFullPower
		}
		return PresetNone
	}
	switch {
	case v.f.At(10) == 0x01:
		return PresetFullPower
	case v.f.At(7) == 0x10:
		return PresetEco
	}
	return PresetNone
}

func (v ModeView) swingByte() byte {
	if v.Response() {
		return v.f.At(6)
	}
	return v.f.At(8)
}

func (v ModeView) modeByte() byte {
	if v.Response() {
		return v.f.At(5)
	}
	return v.f.At(6)
}

// SwingVertical decodes the vertical louver position.
func (v ModeView) SwingVertical() SwingVertical {
	return SwingVertical(v.swingByte() & 0x0F)
}

// SwingHorizontal decodes the horizontal louver position.
func (v ModeView) SwingHorizontal() SwingHorizontal {
	return SwingHorizontal((v.swingByte() & 0xF0) >> 4)
}

// FanMode decodes the fan speed.
func (v ModeView) FanMode() FanMode {
	return FanMode((v.modeByte() & 0xF0) >> 4)
}

// PowerMode decodes the operating mode.
func (v ModeView) PowerMode() PowerMode {
	return PowerMode(v.modeByte() & 0x0F)
}

// Temperature decodes the setpoint. Only meaningful in cool and heat mode.
func (v ModeView) Temperature() int {
	return int(v.f.At(4)&0x0F) + 16
}
