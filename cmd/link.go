// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test raw link stability without talking to the unit",
	Long: `Open the serial port or WebSocket bridge and listen without sending
anything.

Every chunk of received bytes is logged with its size and contents, and a
heartbeat is printed once per second. The indoor unit does not talk until it
is probed, so a quiet line is normal; this command is for debugging bridges
that drop or stall connections.

Exit codes:
  0 - Test completed normally
  1 - Test failed (link closed)
  2 - Connection error`,
	RunE: runLinkTest,
}

var linkTestDuration int

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestDuration, "duration", 30, "Test duration in seconds")
}

// linkResult summarizes a passive link test.
type linkResult struct {
	Elapsed time.Duration
	Chunks  int
	Bytes   int
	Err     error
}

// listenLink reads from conn until ctx ends or the link fails, calling chunk
// for every read and tick once per heartbeat.
func listenLink(ctx context.Context, conn Connection, heartbeat time.Duration, chunk func([]byte), tick func(time.Duration)) linkResult {
	start := time.Now()
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	var res linkResult
	record := func(data []byte) {
		res.Chunks++
		res.Bytes += len(data)
		if chunk != nil {
			chunk(data)
		}
	}

	for {
		select {
		case data := <-readChan:
			record(data)
		case err := <-errChan:
			// the reader queues all data before the error
			for drained := false; !drained; {
				select {
				case data := <-readChan:
					record(data)
				default:
					drained = true
				}
			}
			res.Err = err
			res.Elapsed = time.Since(start)
			return res
		case <-ticker.C:
			if tick != nil {
				tick(time.Since(start))
			}
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res
		}
	}
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	duration := time.Duration(linkTestDuration) * time.Second

	fmt.Printf("Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkTestDuration)
	fmt.Printf("Listening for data...\n\n")

	ctx, cancel := context.WithTimeout(cmd.Context(), duration)
	defer cancel()

	res := listenLink(ctx, conn, time.Second,
		func(data []byte) {
			fmt.Printf("[%s] Received %d bytes: %s\n",
				time.Now().Format("15:04:05.000"), len(data), sharpac.FormatHex(data))
		},
		func(elapsed time.Duration) {
			fmt.Printf("[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), (duration - elapsed).Seconds())
		})

	fmt.Printf("\n--- Test Results ---\n")
	fmt.Printf("Duration: %s\n", formatElapsed(res.Elapsed))
	fmt.Printf("Chunks received: %d\n", res.Chunks)
	fmt.Printf("Bytes received: %d\n", res.Bytes)

	if res.Err != nil {
		reason := res.Err.Error()
		if errors.Is(res.Err, ErrConnectionClosed) {
			reason = "link closed by peer"
		}
		fmt.Printf("Result: FAILED (%s)\n", reason)
		os.Exit(1)
	}

	fmt.Printf("Result: PASSED (connection stable)\n")
	return nil
}
