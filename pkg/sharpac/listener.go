// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

// Listener receives state change notifications from the engine. Callbacks run
// on the goroutine that called Service or a control method.
type Listener interface {
	OnStateChanged()
	OnIonChanged(on bool)
	OnHorizontalSwingChanged(pos SwingHorizontal)
	OnVerticalSwingChanged(pos SwingVertical)
	OnConnectionStatusChanged(step int)
}

// NopListener ignores every notification. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnStateChanged()                          {}
func (NopListener) OnIonChanged(bool)                        {}
func (NopListener) OnHorizontalSwingChanged(SwingHorizontal) {}
func (NopListener) OnVerticalSwingChanged(SwingVertical)     {}
func (NopListener) OnConnectionStatusChanged(int)            {}

// MultiListener fans notifications out to several listeners in order.
type MultiListener []Listener

func (m MultiListener) OnStateChanged() {
	for _, l := range m {
		l.OnStateChanged()
	}
}

func (m MultiListener) OnIonChanged(on bool) {
	for _, l := range m {
		l.OnIonChanged(on)
	}
}

func (m MultiListener) OnHorizontalSwingChanged(pos SwingHorizontal) {
	for _, l := range m {
		l.OnHorizontalSwingChanged(pos)
	}
}

func (m MultiListener) OnVerticalSwingChanged(pos SwingVertical) {
	for _, l := range m {
		l.OnVerticalSwingChanged(pos)
	}
}

func (m MultiListener) OnConnectionStatusChanged(step int) {
	for _, l := range m {
		l.OnConnectionStatusChanged(step)
	}
}
