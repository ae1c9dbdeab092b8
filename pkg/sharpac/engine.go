// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sharpac

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Engine drives one session with one unit. It is not safe for concurrent use:
// Service and the control methods must be called from the same goroutine.
type Engine struct {
	t        Transport
	reader   *FrameReader
	listener Listener
	logger   *zap.Logger
	tap      TapFunc
	msgs     Messages

	pollInterval      time.Duration
	responseTimeout   time.Duration
	reconnectInterval time.Duration

	state       DeviceState
	currentTemp int
	hasTemp     bool

	step            int
	connectionStart time.Time
	lastProbe       time.Time
	lastProgress    time.Time
	lastPoll        time.Time
	lastRequest     time.Time
	awaiting        bool

	resets      uint64
	writeErrors uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPollInterval sets how often the status is requested once connected.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithResponseTimeout sets how long a request may go unanswered before the
// session is reset.
func WithResponseTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.responseTimeout = d
		}
	}
}

// WithReconnectInterval sets how often the init probe is repeated while the
// unit stays silent.
func WithReconnectInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.reconnectInterval = d
		}
	}
}

// WithMessages overrides handshake literals. Empty literals keep their defaults.
func WithMessages(m Messages) Option {
	return func(e *Engine) {
		e.msgs = m.Merge(e.msgs)
	}
}

// WithTap registers a function that sees every frame read or written.
func WithTap(tap TapFunc) Option {
	return func(e *Engine) {
		e.tap = tap
	}
}

// NewEngine creates an engine over t reporting to l. A nil listener is
// replaced by NopListener.
func NewEngine(t Transport, l Listener, opts ...Option) *Engine {
	if l == nil {
		l = NopListener{}
	}
	e := &Engine{
		t:                 t,
		reader:            NewFrameReader(t),
		listener:          l,
		logger:            zap.NewNop(),
		msgs:              DefaultMessages(),
		pollInterval:      DefaultPollInterval,
		responseTimeout:   DefaultResponseTimeout,
		reconnectInterval: DefaultReconnectInterval,
		state:             DefaultState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger.Debug("engine initialized",
		zap.Duration("poll_interval", e.pollInterval),
		zap.Duration("response_timeout", e.responseTimeout))
	return e
}

// Service performs one tick: timeout check, at most one frame read and at most
// one write. It never blocks.
func (e *Engine) Service() {
	now := e.t.Now()
	e.checkTimeout(now)

	read := false
	if e.reader.Buffered() > 0 {
		f := e.reader.ReadFrame()
		if f.Len() > 0 {
			read = true
			e.received(f)
			if e.step < StepConnected {
				e.handshake(f)
			} else {
				e.steady(f)
			}
		}
	}

	if e.step < StepConnected {
		e.probe(now)
		return
	}
	if !read && now.Sub(e.lastPoll) >= e.pollInterval {
		e.lastPoll = now
		e.writeLiteral(e.msgs.GetStatus)
	}
}

func (e *Engine) received(f *Frame) {
	e.awaiting = false
	if f.IsAck() {
		e.logger.Debug("RX: ACK")
	} else {
		e.logger.Debug("RX", zap.String("frame", FormatHex(f.data)), zap.Stringer("kind", f.Kind()))
	}
	if e.tap != nil {
		e.tap(DirRX, f)
	}
}

// handshake advances the session when f carries the discriminator expected at
// the current step. Anything else is ignored.
func (e *Engine) handshake(f *Frame) {
	switch f.Discriminator() {
	case AckByte:
		if f.Len() == 1 && (e.step == 2 || e.step == 7) {
			e.advance()
		}
	case DiscInit:
		switch e.step {
		case 0:
			e.sendStep(e.msgs.InitFollowUp)
		case 1:
			e.sendStep(e.msgs.Subscribe)
		}
	case DiscSubscribe:
		switch e.step {
		case 3:
			e.sendStep(e.msgs.Subscribe2)
		case 4:
			e.sendStep(e.msgs.GetState)
		}
	case DiscState:
		switch e.step {
		case 5:
			e.sendStep(e.msgs.GetStatus)
		case 6:
			e.sendStep(e.msgs.Connected)
		}
		e.processUpdate(f)
	}
}

func (e *Engine) steady(f *Frame) {
	if f.Len() <= 1 {
		return
	}
	if !f.ValidChecksum() {
		e.logger.Debug("dropping frame with bad checksum",
			zap.String("frame", FormatHex(f.data)),
			zap.Uint8("want", f.Checksum()))
		return
	}
	e.write(NewAckFrame())
	e.processUpdate(f)
}

func (e *Engine) sendStep(literal []byte) {
	e.writeLiteral(literal)
	e.advance()
}

func (e *Engine) advance() {
	e.step++
	now := e.t.Now()
	e.lastProgress = now
	if e.step >= StepConnected {
		e.lastPoll = now
		e.logger.Info("Connected", zap.Duration("took", now.Sub(e.connectionStart)))
	} else {
		e.logger.Info(fmt.Sprintf("Connecting (%d/%d)...", e.step, StepConnected))
	}
	e.listener.OnConnectionStatusChanged(e.step)
}

// probe sends the init probe while the unit has not answered, repeating it
// every reconnect interval.
func (e *Engine) probe(now time.Time) {
	if e.step != 0 || e.awaiting {
		return
	}
	if !e.connectionStart.IsZero() && now.Sub(e.lastProbe) < e.reconnectInterval {
		return
	}
	if e.connectionStart.IsZero() {
		e.logger.Info("Initializing connection...")
		e.connectionStart = now
	}
	e.lastProbe = now
	e.writeLiteral(e.msgs.InitProbe)
}

func (e *Engine) checkTimeout(now time.Time) {
	if e.awaiting && now.Sub(e.lastRequest) >= e.responseTimeout {
		e.logger.Warn("no response, reconnecting", zap.Duration("timeout", e.responseTimeout), zap.Int("step", e.step))
		e.ResetConnection()
		return
	}
	if e.step > 0 && e.step < StepConnected && now.Sub(e.lastProgress) >= e.responseTimeout {
		e.logger.Warn("handshake stalled, reconnecting", zap.Int("step", e.step))
		e.ResetConnection()
	}
}

// processUpdate applies a status or mode frame to the mirror and notifies the
// listener. Nothing is published until a temperature has been seen.
func (e *Engine) processUpdate(f *Frame) {
	if v, ok := AsStatus(f); ok {
		e.currentTemp = v.Temperature()
		e.hasTemp = true
		e.logger.Debug("current temperature", zap.Int("celsius", e.currentTemp))
		e.publish()
		return
	}
	if v, ok := AsMode(f); ok {
		e.state.Apply(v)
		if !e.hasTemp {
			e.logger.Debug("waiting for temperature reading")
			return
		}
		e.publish()
	}
}

func (e *Engine) publish() {
	e.listener.OnStateChanged()
	e.listener.OnIonChanged(e.state.Ion)
	e.listener.OnHorizontalSwingChanged(e.state.Horizontal)
	e.listener.OnVerticalSwingChanged(e.state.Vertical)
}

func (e *Engine) writeLiteral(literal []byte) {
	e.write(literalFrame(literal))
}

func (e *Engine) write(f *Frame) {
	f.StampChecksum()
	if f.IsAck() {
		e.logger.Debug("TX: ACK")
	} else {
		e.logger.Debug("TX", zap.String("frame", FormatHex(f.data)))
		e.awaiting = true
		e.lastRequest = e.t.Now()
	}
	if e.tap != nil {
		e.tap(DirTX, f)
	}
	if err := e.t.WriteBlock(f.data); err != nil {
		e.writeErrors++
		e.logger.Warn("write failed", zap.Error(err))
	}
}

func (e *Engine) sendState() {
	e.write(e.state.Command())
}

// PollNow makes the next idle tick request the status instead of waiting for
// the poll interval. It has no effect before the handshake completes.
func (e *Engine) PollNow() {
	e.lastPoll = time.Time{}
}

// ResetConnection drops the session and restarts the handshake on the next tick.
func (e *Engine) ResetConnection() {
	e.step = 0
	e.awaiting = false
	e.connectionStart = time.Time{}
	e.resets++
	e.listener.OnConnectionStatusChanged(0)
}

// ControlMode sets power and, when turning on, the operating mode.
func (e *Engine) ControlMode(mode PowerMode, on bool) {
	e.state.Power = on
	if on {
		e.state.Mode = mode
	}
	e.sendState()
}

// ControlFan sets the fan speed.
func (e *Engine) ControlFan(fan FanMode) {
	e.state.Fan = fan
	e.sendState()
}

// ControlSwing sets both louver positions.
func (e *Engine) ControlSwing(h SwingHorizontal, v SwingVertical) {
	e.state.Horizontal = h
	e.state.Vertical = v
	e.sendState()
}

// ControlSwingMode sets the louvers from a combined swing mode.
func (e *Engine) ControlSwingMode(m SwingMode) {
	e.ControlSwing(SwingPositions(m))
}

// ControlTemperature sets the setpoint, clamped to 16..30 °C.
func (e *Engine) ControlTemperature(celsius int) {
	e.state.Temperature = ClampTemperature(celsius)
	e.sendState()
}

// ControlPreset sets the preset.
func (e *Engine) ControlPreset(p Preset) {
	e.state.Preset = p
	e.sendState()
}

// SetIon switches the ionizer.
func (e *Engine) SetIon(on bool) {
	e.state.Ion = on
	e.sendState()
}

// SetVaneHorizontal sets the horizontal louver position.
func (e *Engine) SetVaneHorizontal(h SwingHorizontal) {
	e.state.Horizontal = h
	e.sendState()
}

// SetVaneVertical sets the vertical louver position.
func (e *Engine) SetVaneVertical(v SwingVertical) {
	e.state.Vertical = v
	e.sendState()
}

// Control applies several changes and sends a single command.
func (e *Engine) Control(fn func(s *DeviceState)) {
	fn(&e.state)
	e.state.Temperature = ClampTemperature(e.state.Temperature)
	e.sendState()
}

// State returns a copy of the mirrored device state.
func (e *Engine) State() DeviceState {
	return e.state
}

// CurrentTemperature returns the last ambient reading and whether one has
// been received.
func (e *Engine) CurrentTemperature() (int, bool) {
	return e.currentTemp, e.hasTemp
}

// Step returns the handshake step (0..8).
func (e *Engine) Step() int {
	return e.step
}

// Connected reports whether the handshake has completed.
func (e *Engine) Connected() bool {
	return e.step >= StepConnected
}

// Awaiting reports whether a request is outstanding.
func (e *Engine) Awaiting() bool {
	return e.awaiting
}

// Resets returns how many times the session was reset.
func (e *Engine) Resets() uint64 {
	return e.resets
}

// WriteErrors returns how many writes failed.
func (e *Engine) WriteErrors() uint64 {
	return e.writeErrors
}

// Resyncs returns how many bytes were discarded to recover the stream.
func (e *Engine) Resyncs() uint64 {
	return e.reader.Resyncs()
}

// ConnectionStatus returns a display string for the handshake step.
func (e *Engine) ConnectionStatus() string {
	return ConnectionStatusText(e.step)
}

// ConnectionStatusText renders a handshake step for display.
func ConnectionStatusText(step int) string {
	switch {
	case step <= 0:
		return "Disconnected"
	case step >= StepConnected:
		return "Connected"
	}
	return fmt.Sprintf("Connecting (%d/%d)", step, StepConnected)
}
