// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/sharpstat/internal/logging"
	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

// serviceTick is how often the engine is serviced. One tick reads at most one
// frame, which keeps up with a 9600 baud link.
const serviceTick = 10 * time.Millisecond

// session owns a connection and the engine driving it. Engine access goes
// through Do so the service loop and UI goroutines do not race.
type session struct {
	conn Connection
	info string
	st   *sharpac.StreamTransport

	mu     sync.Mutex
	engine *sharpac.Engine
}

// openSession opens the configured connection and starts an engine on it.
func openSession(l sharpac.Listener, extra ...sharpac.Option) (*session, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, sharpac.WithLogger(logging.Named("engine")))
	opts = append(opts, extra...)

	conn, info, err := OpenConnection()
	if err != nil {
		return nil, err
	}
	return newSession(conn, info, l, opts...), nil
}

// newSession starts an engine on an open connection.
func newSession(conn Connection, info string, l sharpac.Listener, opts ...sharpac.Option) *session {
	st := sharpac.NewStreamTransport(conn)
	return &session{
		conn:   conn,
		info:   info,
		st:     st,
		engine: sharpac.NewEngine(st, l, opts...),
	}
}

// Do runs fn with exclusive access to the engine.
func (s *session) Do(fn func(e *sharpac.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.engine)
}

// Run services the engine until ctx is done or the link drops.
func (s *session) Run(ctx context.Context) error {
	return s.RunUntil(ctx, nil)
}

// RunUntil services the engine until ctx is done, the link drops or stop
// returns true. stop is evaluated under the engine lock after every tick.
func (s *session) RunUntil(ctx context.Context, stop func(e *sharpac.Engine) bool) error {
	ticker := time.NewTicker(serviceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.st.Done():
			err := s.st.Err()
			if err == nil || errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
				logging.LogConnection(s.info, "closed")
				return nil
			}
			return fmt.Errorf("link lost: %w", err)
		case <-ticker.C:
			done := false
			s.Do(func(e *sharpac.Engine) {
				e.Service()
				done = stop != nil && stop(e)
			})
			if done {
				return nil
			}
		}
	}
}

// Close stops the reader and closes the connection.
func (s *session) Close() error {
	s.st.Close()
	return s.conn.Close()
}

// multiTap fans a frame out to several taps.
func multiTap(taps ...sharpac.TapFunc) sharpac.TapFunc {
	return func(dir sharpac.Direction, f *sharpac.Frame) {
		for _, tap := range taps {
			tap(dir, f)
		}
	}
}

// consoleListener prints state and connection changes to stdout.
type consoleListener struct {
	sharpac.NopListener
	engine func() *sharpac.Engine
}

func (c *consoleListener) OnStateChanged() {
	e := c.engine()
	if e == nil {
		return
	}
	current, ok := e.CurrentTemperature()
	fmt.Printf("[%s] STATE %s\n", time.Now().Format("15:04:05.000"), sharpac.FormatState(e.State(), current, ok))
}

func (c *consoleListener) OnConnectionStatusChanged(step int) {
	fmt.Printf("[%s] LINK %s\n", time.Now().Format("15:04:05.000"), sharpac.ConnectionStatusText(step))
}
