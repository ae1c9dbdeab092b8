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
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure status request round trips",
	Long: `Connect, then send status requests and wait for the status frame that
answers each one.

This command tests bidirectional communication with the unit after the
handshake. Each round trip is the time from the request being queued to the
status frame arriving, so it includes the service tick.

This is useful for verifying:
  - The unit answers polls once connected
  - The WebSocket bridge forwards in both directions
  - Latency added by a bridge

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	statusSeen := make(chan int, 1)
	tap := func(dir sharpac.Direction, f *sharpac.Frame) {
		if dir != sharpac.DirRX {
			return
		}
		if v, ok := sharpac.AsStatus(f); ok && f.ValidChecksum() {
			select {
			case statusSeen <- v.Temperature():
			default:
			}
		}
	}

	s, err := openSession(nil, sharpac.WithTap(tap))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Sharpstat - Status Ping\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	connected, err := waitConnected(cmd.Context(), s, cfg.Engine.ResponseTimeout*3)
	if err != nil || !connected {
		fmt.Fprintf(os.Stderr, "Connection error: handshake did not complete\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		// Drop replies to polls that were already in flight
		select {
		case <-statusSeen:
		default:
		}

		startTime := time.Now()
		s.Do(func(e *sharpac.Engine) { e.PollNow() })

		select {
		case temp := <-statusSeen:
			rtt := time.Since(startTime)
			fmt.Printf("STATUS from unit, room=%d°C, rtt=%v\n", temp, rtt.Round(time.Millisecond))
			successCount++

		case err := <-runErr:
			fmt.Printf("LINK FAILED: %v\n", err)
			failCount += pingCount - i + 1
			i = pingCount

		case <-time.After(time.Duration(pingTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
