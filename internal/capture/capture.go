// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture stores link traffic as a stream of CBOR records and replays
// it through an engine.
//
// Each record is a CBOR map with integer keys:
//
//	0: time (unix nanoseconds)
//	1: direction (0 = RX, 1 = TX)
//	2: frame bytes
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

// Record is one frame seen on the link.
type Record struct {
	UnixNano  int64  `cbor:"0,keyasint"`
	Direction uint8  `cbor:"1,keyasint"`
	Data      []byte `cbor:"2,keyasint"`
}

// NewRecord builds a record for a frame.
func NewRecord(t time.Time, dir sharpac.Direction, data []byte) Record {
	return Record{UnixNano: t.UnixNano(), Direction: uint8(dir), Data: append([]byte(nil), data...)}
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.Unix(0, r.UnixNano)
}

// Dir returns the record direction.
func (r Record) Dir() sharpac.Direction {
	return sharpac.Direction(r.Direction)
}

// Frame rebuilds the recorded frame with its recorded timestamp.
func (r Record) Frame() *sharpac.Frame {
	return sharpac.NewFrameAt(r.Data, r.Time())
}

// Recorder appends records to a writer. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	count int
	err   error
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	return &Recorder{enc: em.NewEncoder(w)}, nil
}

// Write appends one record. After the first failure every call returns the
// same error.
func (r *Recorder) Write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("write capture record: %w", err)
		return r.err
	}
	r.count++
	return nil
}

// Tap records a frame. Its signature matches sharpac.TapFunc; write errors
// are kept and reported by Err.
func (r *Recorder) Tap(dir sharpac.Direction, f *sharpac.Frame) {
	_ = r.Write(NewRecord(f.Timestamp(), dir, f.Bytes()))
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Reader iterates over the records of a capture stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	if rec.Direction > uint8(sharpac.DirTX) {
		return Record{}, fmt.Errorf("read capture record: invalid direction %d", rec.Direction)
	}
	return rec, nil
}

// ReadAll reads every record from r.
func ReadAll(r io.Reader) ([]Record, error) {
	cr := NewReader(r)
	var out []Record
	for {
		rec, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
