// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"errors"
	"time"
)

// fakeTransport is an in-memory Transport with a manual clock.
type fakeTransport struct {
	rx       []byte
	tx       [][]byte
	now      time.Time
	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (t *fakeTransport) push(b ...byte) {
	t.rx = append(t.rx, b...)
}

func (t *fakeTransport) advance(d time.Duration) {
	t.now = t.now.Add(d)
}

// drain returns and clears the frames written so far.
func (t *fakeTransport) drain() [][]byte {
	out := t.tx
	t.tx = nil
	return out
}

func (t *fakeTransport) Available() int { return len(t.rx) }

func (t *fakeTransport) Peek() byte {
	if len(t.rx) == 0 {
		return 0
	}
	return t.rx[0]
}

func (t *fakeTransport) Read() byte {
	if len(t.rx) == 0 {
		return 0
	}
	b := t.rx[0]
	t.rx = t.rx[1:]
	return b
}

func (t *fakeTransport) ReadBlock(buf []byte) int {
	n := copy(buf, t.rx)
	t.rx = t.rx[n:]
	return n
}

func (t *fakeTransport) WriteBlock(data []byte) error {
	t.tx = append(t.tx, append([]byte(nil), data...))
	return t.writeErr
}

func (t *fakeTransport) Now() time.Time { return t.now }

var errWriteFailed = errors.New("write failed")

// recordingListener records every notification.
type recordingListener struct {
	stateChanges int
	ion          []bool
	horizontal   []SwingHorizontal
	vertical     []SwingVertical
	steps        []int
}

func (l *recordingListener) OnStateChanged()                            { l.stateChanges++ }
func (l *recordingListener) OnIonChanged(on bool)                       { l.ion = append(l.ion, on) }
func (l *recordingListener) OnHorizontalSwingChanged(p SwingHorizontal) { l.horizontal = append(l.horizontal, p) }
func (l *recordingListener) OnVerticalSwingChanged(p SwingVertical)     { l.vertical = append(l.vertical, p) }
func (l *recordingListener) OnConnectionStatusChanged(step int)         { l.steps = append(l.steps, step) }

func (l *recordingListener) countStep(step int) int {
	n := 0
	for _, s := range l.steps {
		if s == step {
			n++
		}
	}
	return n
}
