// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/sharpstat/internal/logging"
	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling the unit",
	Long: `Control a Sharp air conditioner via an interactive terminal UI.

This command runs the connection handshake and keeps the session alive while
showing the unit state and accepting control keys.

Features:
  - Live state (power, mode, fan, setpoint, louvers, ionizer, preset)
  - Room temperature from status polls
  - Power, mode, fan, temperature, swing and preset control
  - Event log with engine messages
  - Automatic reconnection on connection loss

Press ? in the TUI for the key bindings.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// controller gives the TUI access to the engine of the current session.
type controller interface {
	// Do runs fn with the engine locked. It returns false while there is no
	// session.
	Do(fn func(e *sharpac.Engine)) bool
}

// connectionManager handles connection lifecycle and reconnection. Log lines
// go through events and are dropped when the TUI falls behind; link and state
// updates go through status and are never lost.
type connectionManager struct {
	mu     sync.RWMutex
	sess   *session
	events chan tea.Msg
	status *statusQueue
	logger *zap.Logger
}

func newConnectionManager() *connectionManager {
	cm := &connectionManager{events: make(chan tea.Msg, 256), status: newStatusQueue()}
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	cm.logger = logging.NewWriterLogger(&logPane{post: cm.post}, level)
	return cm
}

func (cm *connectionManager) current() *session {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.sess
}

func (cm *connectionManager) setSession(s *session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.sess = s
}

func (cm *connectionManager) Do(fn func(e *sharpac.Engine)) bool {
	s := cm.current()
	if s == nil {
		return false
	}
	s.Do(fn)
	return true
}

// post queues a message for the TUI without blocking. It is called from
// engine callbacks that run with the engine locked.
func (cm *connectionManager) post(msg tea.Msg) {
	select {
	case cm.events <- msg:
	default:
	}
}

// postStatus queues a link or state update. Only the newest message of each
// type is kept until the TUI takes them.
func (cm *connectionManager) postStatus(msg tea.Msg) {
	cm.status.put(msg)
}

// open starts a new session with the manager as listener.
func (cm *connectionManager) open() (*session, error) {
	return openSession(controlListener{cm}, sharpac.WithLogger(cm.logger))
}

// forward delivers queued messages to the program until ctx is done.
func (cm *connectionManager) forward(ctx context.Context, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-cm.status.ready:
			for _, msg := range cm.status.take() {
				p.Send(msg)
			}
		case msg := <-cm.events:
			p.Send(msg)
		}
	}
}

// run services the current session and reconnects with exponential backoff
// when the link drops.
func (cm *connectionManager) run(ctx context.Context) {
	for {
		s := cm.current()
		err := s.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		cm.postStatus(connectionLostMsg{err: err})
		cm.setSession(nil)
		s.Close()

		s, ok := cm.reconnect(ctx)
		if !ok {
			return
		}
		cm.setSession(s)
		cm.postStatus(reconnectedMsg{connInfo: s.info})
	}
}

// reconnect retries until a session opens. It returns false if ctx ends
// first.
func (cm *connectionManager) reconnect(ctx context.Context) (*session, bool) {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}

		s, err := cm.open()
		if err == nil {
			return s, true
		}
		cm.logger.Warn("Reconnect failed", zap.Error(err), zap.Duration("backoff", backoff))

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// statusQueue holds pending status messages in arrival order, one per type.
type statusQueue struct {
	mu      sync.Mutex
	pending []tea.Msg
	ready   chan struct{}
}

func newStatusQueue() *statusQueue {
	return &statusQueue{ready: make(chan struct{}, 1)}
}

// put replaces any pending message of the same type and signals ready.
func (q *statusQueue) put(msg tea.Msg) {
	q.mu.Lock()
	kind := reflect.TypeOf(msg)
	for i, m := range q.pending {
		if reflect.TypeOf(m) == kind {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *statusQueue) take() []tea.Msg {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.pending
	q.pending = nil
	return msgs
}

// controlListener turns engine callbacks into TUI messages.
type controlListener struct {
	cm *connectionManager
}

func (l controlListener) engine() *sharpac.Engine {
	if s := l.cm.current(); s != nil {
		return s.engine
	}
	return nil
}

func (l controlListener) OnStateChanged() {
	if e := l.engine(); e != nil {
		l.cm.postStatus(snapshotOf(e))
	}
}

func (l controlListener) OnIonChanged(bool)                                {}
func (l controlListener) OnHorizontalSwingChanged(sharpac.SwingHorizontal) {}
func (l controlListener) OnVerticalSwingChanged(sharpac.SwingVertical)     {}

func (l controlListener) OnConnectionStatusChanged(step int) {
	l.cm.postStatus(linkStatusMsg{step: step})
}

// logPane is an io.Writer that turns log lines into TUI events.
type logPane struct {
	post func(tea.Msg)
}

func (w *logPane) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) > 0 {
			w.post(logLineMsg{line: string(line)})
		}
	}
	return len(p), nil
}

func runControl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm := newConnectionManager()
	s, err := cm.open()
	if err != nil {
		return err
	}
	cm.setSession(s)
	defer func() {
		if s := cm.current(); s != nil {
			s.Close()
		}
	}()

	m := initialControlModel(cm, s.info)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cm.forward(runCtx, p)
	go cm.run(runCtx)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
