// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anomalyTypes(errs []ValidationError) []AnomalyType {
	out := make([]AnomalyType, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func TestValidateFrame_ValidFrames(t *testing.T) {
	for name, raw := range map[string][]byte{
		"cool":       coolFrame,
		"eco":        ecoFrame,
		"full power": fullPowerFrame,
		"response":   responseFrame,
		"status":     statusFrame(24),
		"ack":        {AckByte},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, ValidateFrame(NewFrame(raw)))
		})
	}
}

func TestValidateFrame_BuiltCommands(t *testing.T) {
	for _, mode := range PowerModes {
		for _, preset := range Presets {
			s := DefaultState()
			s.Power = true
			s.Mode = mode
			s.Preset = preset
			assert.Empty(t, ValidateFrame(BuildCommand(s)), s.String())
		}
	}
}

func TestValidateFrame_Checksum(t *testing.T) {
	raw := append([]byte(nil), responseFrame...)
	raw[13] = 0x00

	errs := ValidateFrame(NewFrame(raw))
	require.Len(t, errs, 1)
	assert.Equal(t, AnomalyChecksum, errs[0].Type)
	assert.Equal(t, "Checksum mismatch: received=0x00, calculated=0xB2", errs[0].Error())
}

func TestValidateFrame_Truncated(t *testing.T) {
	f := NewFrame(responseFrame[:10])
	assert.ElementsMatch(t, []AnomalyType{AnomalyChecksum, AnomalyLengthMismatch}, anomalyTypes(ValidateFrame(f)))
}

func TestValidateFrame_UnknownCodes(t *testing.T) {
	raw := append([]byte(nil), responseFrame...)
	raw[5] = 0x99 // fan 9, mode 9
	raw[6] = 0x50 // horizontal 5, vertical 0
	f := NewFrame(raw)
	f.StampChecksum()

	errs := ValidateFrame(f)
	require.Len(t, errs, 4)
	for _, e := range errs {
		assert.Equal(t, AnomalyUnknownCode, e.Type)
	}
	assert.Equal(t, "mode", errs[0].Details["field"])
}

func TestValidateFrame_NibbleMismatch(t *testing.T) {
	raw := append([]byte(nil), coolFrame...)
	raw[12] = 0x01
	f := NewFrame(raw)
	f.StampChecksum()

	assert.Equal(t, []AnomalyType{AnomalyNibbleMismatch}, anomalyTypes(ValidateFrame(f)))
}

func TestAnomalyType_String(t *testing.T) {
	assert.Equal(t, "checksum", AnomalyChecksum.String())
	assert.Equal(t, "nibble_mismatch", AnomalyNibbleMismatch.String())
	assert.Equal(t, "unknown", AnomalyType(42).String())
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newStatistics(func() time.Time { return now })

	frames := []*Frame{
		NewEmptyFrame(),
		NewAckFrame(),
		NewByteFrame(0x55),
		NewFrame(responseFrame),
		NewFrame(responseFrame[:10]),
	}
	for _, f := range frames {
		s.Update(f, ValidateFrame(f))
	}

	assert.Equal(t, uint64(4), s.TotalFrames)
	assert.Equal(t, uint64(3), s.ValidFrames)
	assert.Equal(t, uint64(1), s.Acks)
	assert.Equal(t, uint64(1), s.ResyncBytes)
	assert.Equal(t, uint64(1), s.ChecksumErrors)
	assert.Equal(t, uint64(1), s.LengthMismatches)
	assert.Equal(t, uint64(2), s.Errors())

	now = now.Add(2 * time.Second)
	s.CalculateRates()
	assert.InDelta(t, 2.0, s.FrameRate, 1e-9)
	assert.InDelta(t, 1.0, s.ErrorRate, 1e-9)

	out := s.String()
	assert.Contains(t, out, "=== Statistics (2 seconds) ===")
	assert.Contains(t, out, "Checksum Errors:        1 (25.0%)")
	assert.NotContains(t, out, "Nibble Errors")

	s.Reset()
	assert.Equal(t, uint64(0), s.TotalFrames)
	assert.Equal(t, now, s.StartTime)
}
