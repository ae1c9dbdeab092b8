// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"fmt"
	"time"
)

// Statistics tracks frame counts and error rates on a link
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	Acks             uint64
	ResyncBytes      uint64
	ChecksumErrors   uint64
	LengthMismatches uint64
	UnknownCodes     uint64
	NibbleErrors     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	now func() time.Time
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return newStatistics(time.Now)
}

func newStatistics(now func() time.Time) *Statistics {
	t := now()
	return &Statistics{
		StartTime:      t,
		LastUpdateTime: t,
		now:            now,
	}
}

// Update records one frame and the anomalies found in it. Empty frames are
// ignored; single bytes other than ack and idle count as resync bytes.
func (s *Statistics) Update(f *Frame, validationErrors []ValidationError) {
	switch f.Kind() {
	case KindEmpty:
		return
	case KindAck:
		s.Acks++
	case KindByte:
		s.ResyncBytes++
	}
	s.TotalFrames++

	if len(validationErrors) == 0 {
		s.ValidFrames++
	}
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyChecksum:
			s.ChecksumErrors++
		case AnomalyLengthMismatch:
			s.LengthMismatches++
		case AnomalyUnknownCode:
			s.UnknownCodes++
		case AnomalyNibbleMismatch:
			s.NibbleErrors++
		}
	}

	s.LastUpdateTime = s.now()
}

// Errors returns the number of anomalies counted so far.
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.LengthMismatches + s.UnknownCodes + s.NibbleErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := s.now().Sub(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := s.now().Sub(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))
	result += fmt.Sprintf("Acks:            %8d\n", s.Acks)

	if s.ResyncBytes > 0 {
		result += fmt.Sprintf("Resync Bytes:    %8d\n", s.ResyncBytes)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Length Mismatch: %8d (%.1f%%)\n", s.LengthMismatches, percent(s.LengthMismatches))
	}
	if s.UnknownCodes > 0 {
		result += fmt.Sprintf("Unknown Codes:   %8d (%.1f%%)\n", s.UnknownCodes, percent(s.UnknownCodes))
	}
	if s.NibbleErrors > 0 {
		result += fmt.Sprintf("Nibble Errors:   %8d (%.1f%%)\n", s.NibbleErrors, percent(s.NibbleErrors))
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *newStatistics(s.now)
}
