// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/internal/capture"
	"github.com/Thermoquad/sharpstat/internal/logging"
	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	replayEngine bool
	replayBytes  bool
	replayErrors bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Decode a capture recorded with monitor --record",
	Long: `Print every frame of a capture file in recorded order, or feed the
received side through a fresh engine.

Without --engine the capture is decoded as recorded, both directions, with
the same output as monitor. With --engine the RX frames are replayed on a
virtual clock into a new engine, which shows how the session logic reacts to
the recorded traffic: handshake progress, state updates and the frames it
would have sent.

Statistics for the received frames are printed at the end.

No connection is opened.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayEngine, "engine", false, "Replay received frames through an engine")
	replayCmd.Flags().BoolVar(&replayBytes, "bytes", false, "Annotate every byte of each frame")
	replayCmd.Flags().BoolVar(&replayErrors, "errors", false, "Only print frames that fail validation")
}

func runReplay(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	records, err := capture.ReadAll(file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sharpstat - Replay\n")
	fmt.Fprintf(out, "Capture: %s (%d frames)\n\n", args[0], len(records))

	if replayEngine {
		return replayThroughEngine(out, records)
	}

	stats := sharpac.NewStatistics()
	for _, rec := range records {
		f := rec.Frame()
		errs := sharpac.ValidateFrame(f)
		if rec.Dir() == sharpac.DirRX {
			stats.Update(f, errs)
		}
		if replayErrors && len(errs) == 0 {
			continue
		}
		writeFrame(out, rec.Dir(), f, errs)
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, stats.String())
	return nil
}

// writeFrame prints one decoded frame and its anomalies.
func writeFrame(out io.Writer, dir sharpac.Direction, f *sharpac.Frame, errs []sharpac.ValidationError) {
	fmt.Fprintf(out, "%s %s", dir, sharpac.FormatFrame(f))
	if replayBytes && f.Len() > 1 {
		fmt.Fprint(out, sharpac.FormatBytes(f))
	}
	for _, err := range errs {
		fmt.Fprintf(out, "  ! %s\n", err.Message)
	}
}

// replayListener prints engine notifications during a replay.
type replayListener struct {
	sharpac.NopListener
	out    io.Writer
	engine *sharpac.Engine
}

func (l *replayListener) OnStateChanged() {
	current, ok := l.engine.CurrentTemperature()
	fmt.Fprintf(l.out, "   STATE %s\n", sharpac.FormatState(l.engine.State(), current, ok))
}

func (l *replayListener) OnConnectionStatusChanged(step int) {
	fmt.Fprintf(l.out, "   LINK %s\n", sharpac.ConnectionStatusText(step))
}

func replayThroughEngine(out io.Writer, records []capture.Record) error {
	rt := capture.NewReplayTransport(records)
	stats := sharpac.NewStatistics()

	tap := func(dir sharpac.Direction, f *sharpac.Frame) {
		errs := sharpac.ValidateFrame(f)
		if dir == sharpac.DirRX {
			stats.Update(f, errs)
		}
		if replayErrors && len(errs) == 0 {
			return
		}
		writeFrame(out, dir, f, errs)
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	l := &replayListener{out: out}
	opts = append(opts, sharpac.WithTap(tap), sharpac.WithLogger(logging.Named("replay")))
	e := sharpac.NewEngine(rt, l, opts...)
	l.engine = e

	ticks := rt.Run(e.Service, capture.DefaultStep, cfg.Engine.ResponseTimeout)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ticks: %d, frames sent: %d, resets: %d, resyncs: %d\n",
		ticks, len(rt.Written), e.Resets(), e.Resyncs())
	fmt.Fprintf(out, "Final: %s, %s\n", sharpac.ConnectionStatusText(e.Step()), e.State())
	fmt.Fprint(out, stats.String())
	return nil
}
