// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames on the link",
	Long: `Passively read the link and track frame errors with statistics.

Nothing is written to the link, so this can run on a tap next to the real
controller. Each frame is validated and these anomalies are detected:
  - Checksum mismatches
  - Length mismatches (truncated frames)
  - Unknown mode, fan and louver codes
  - Command nibble checksum mismatches

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	st := sharpac.NewStreamTransport(conn)
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useTUI {
		return runTUIMode(ctx, st, connInfo)
	}
	return runTextMode(ctx, st, connInfo)
}

// readFrames reads frames from st until ctx is done or the link drops,
// calling fn for every non-empty frame.
func readFrames(ctx context.Context, st *sharpac.StreamTransport, fn func(f *sharpac.Frame)) error {
	reader := sharpac.NewFrameReader(st)
	ticker := time.NewTicker(serviceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-st.Done():
			// Drain what arrived before the link dropped
			for reader.Buffered() > 0 {
				if f := reader.ReadFrame(); f.Len() > 0 {
					fn(f)
				}
			}
			if err := st.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, ErrConnectionClosed) {
				return fmt.Errorf("link lost: %w", err)
			}
			return nil
		case <-ticker.C:
			for reader.Buffered() > 0 {
				f := reader.ReadFrame()
				if f.Len() == 0 {
					break
				}
				fn(f)
			}
		}
	}
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(f *sharpac.Frame, errs []sharpac.ValidationError) {
	timestamp := f.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X) len=%d\n", timestamp, f.Kind(), f.Discriminator(), f.Len())
	fmt.Printf("  Data: %s\n", sharpac.FormatHex(f.Bytes()))

	for i, err := range errs {
		switch err.Type {
		case sharpac.AnomalyChecksum, sharpac.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case sharpac.AnomalyUnknownCode:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if field, ok := err.Details["field"].(string); ok {
				fmt.Printf("    field=%s\n", field)
			}

		case sharpac.AnomalyNibbleMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(ctx context.Context, st *sharpac.StreamTransport, connInfo string) error {
	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	go func() {
		err := readFrames(ctx, st, func(f *sharpac.Frame) {
			p.Send(frameMsg{frame: f, validationErrors: sharpac.ValidateFrame(f)})
		})
		p.Send(linkClosedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(ctx context.Context, st *sharpac.StreamTransport, connInfo string) error {
	fmt.Printf("Sharpstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := sharpac.NewStatistics()
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	frames := make(chan *sharpac.Frame, 64)
	errc := make(chan error, 1)
	go func() {
		errc <- readFrames(ctx, st, func(f *sharpac.Frame) { frames <- f })
		close(frames)
	}()

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				fmt.Println()
				fmt.Print(stats.String())
				return <-errc
			}

			validationErrors := sharpac.ValidateFrame(f)
			stats.Update(f, validationErrors)

			if len(validationErrors) > 0 {
				printValidationErrors(f, validationErrors)
			} else if showAll {
				fmt.Print(sharpac.FormatFrame(f))
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
