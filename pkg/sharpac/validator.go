// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"fmt"
	"slices"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyChecksum AnomalyType = iota
	AnomalyLengthMismatch
	AnomalyUnknownCode
	AnomalyNibbleMismatch
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyChecksum:
		return "checksum"
	case AnomalyLengthMismatch:
		return "length_mismatch"
	case AnomalyUnknownCode:
		return "unknown_code"
	case AnomalyNibbleMismatch:
		return "nibble_mismatch"
	default:
		return "unknown"
	}
}

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a multi-byte frame for anomalies.
// Returns a slice of validation errors (empty if the frame is valid)
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}
	if f.Len() < 2 {
		return errors
	}

	if !f.ValidChecksum() {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksum,
			Message: fmt.Sprintf("Checksum mismatch: received=0x%02X, calculated=0x%02X", f.data[f.Len()-1], f.Checksum()),
			Details: map[string]interface{}{"received": f.data[f.Len()-1], "calculated": f.Checksum()},
		})
	}

	if expected, ok := expectedSize(f); ok && expected != f.Len() {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("Length mismatch: received=%d, expected=%d", f.Len(), expected),
			Details: map[string]interface{}{"received": f.Len(), "expected": expected},
		})
	}

	if v, ok := AsMode(f); ok {
		errors = append(errors, validateMode(v)...)
	}

	return errors
}

// expectedSize returns the size implied by the header for frames whose size
// the reader knows how to infer.
func expectedSize(f *Frame) (int, bool) {
	if f.Len() < HeaderSize {
		return 0, false
	}
	size := FrameSize(f.data[:HeaderSize])
	if size == HeaderSize {
		return 0, false
	}
	return size, true
}

// validateMode checks the enumerated codes of a mode frame and, for command
// frames, the nibble checksum.
func validateMode(v ModeView) []ValidationError {
	errors := []ValidationError{}

	unknown := func(field string, code uint8) {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCode,
			Message: fmt.Sprintf("Unknown %s code 0x%X", field, code),
			Details: map[string]interface{}{"field": field, "code": code},
		})
	}

	if !slices.Contains(PowerModes, v.PowerMode()) {
		unknown("mode", uint8(v.PowerMode()))
	}
	if !slices.Contains(FanModes, v.FanMode()) {
		unknown("fan", uint8(v.FanMode()))
	}
	if !slices.Contains(VerticalPositions, v.SwingVertical()) {
		unknown("vertical swing", uint8(v.SwingVertical()))
	}
	if !slices.Contains(HorizontalPositions, v.SwingHorizontal()) {
		unknown("horizontal swing", uint8(v.SwingHorizontal()))
	}

	if !v.Response() && v.f.Len() == CommandSize {
		want := CalculateCommandNibble(v.f.data)
		if got := v.f.data[12]; got != want {
			errors = append(errors, ValidationError{
				Type:    AnomalyNibbleMismatch,
				Message: fmt.Sprintf("Nibble checksum mismatch: received=0x%02X, calculated=0x%02X", got, want),
				Details: map[string]interface{}{"received": got, "calculated": want},
			})
		}
	}

	return errors
}
