// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	handshakeTimeout int
)

var handshakeTestCmd = &cobra.Command{
	Use:   "handshake_test",
	Short: "Test the connection by running the handshake",
	Long: `Run the connection handshake until the unit reports connected or the
timeout expires.

The init probe is repeated every reconnect interval while the unit stays
silent, and a stalled handshake restarts from the beginning.

Exit codes:
  0 - Connected before timeout
  1 - Timeout reached without completing the handshake
  2 - Connection error

Useful for checking wiring, port settings and the WebSocket bridge.`,
	RunE: runHandshakeTest,
}

func init() {
	rootCmd.AddCommand(handshakeTestCmd)
	handshakeTestCmd.Flags().IntVar(&handshakeTimeout, "timeout", 30, "Timeout in seconds to wait for the handshake")
}

// waitConnected services the session until the handshake completes. It
// returns false on timeout.
func waitConnected(ctx context.Context, s *session, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	connected := false
	err := s.RunUntil(ctx, func(e *sharpac.Engine) bool {
		connected = e.Connected()
		return connected
	})
	return connected, err
}

func runHandshakeTest(cmd *cobra.Command, args []string) error {
	s, err := openSession(progressListener{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Sharpstat - Handshake Test\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds\n", handshakeTimeout)
	fmt.Printf("Waiting for the unit...\n\n")

	start := time.Now()
	connected, err := waitConnected(cmd.Context(), s, time.Duration(handshakeTimeout)*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	if !connected {
		var step int
		s.Do(func(e *sharpac.Engine) { step = e.Step() })
		fmt.Fprintf(os.Stderr, "TIMEOUT: Handshake incomplete after %d seconds (%s)\n",
			handshakeTimeout, sharpac.ConnectionStatusText(step))
		os.Exit(1)
	}

	s.Do(func(e *sharpac.Engine) {
		current, ok := e.CurrentTemperature()
		fmt.Printf("SUCCESS: Connected in %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("  State: %s\n", sharpac.FormatState(e.State(), current, ok))
		fmt.Printf("  Resets: %d\n", e.Resets())
		fmt.Printf("  Resyncs: %d\n", e.Resyncs())
	})
	return nil
}

// progressListener prints handshake progress.
type progressListener struct {
	sharpac.NopListener
}

func (progressListener) OnConnectionStatusChanged(step int) {
	fmt.Printf("  %s\n", sharpac.ConnectionStatusText(step))
}
