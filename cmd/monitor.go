// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/sharpstat/internal/capture"
	"github.com/Thermoquad/sharpstat/internal/logging"
	"github.com/Thermoquad/sharpstat/internal/metrics"
	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	monitorRecord      string
	monitorMetricsAddr string
	monitorBytes       bool
	monitorQuiet       bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to the unit and display decoded frames",
	Long: `Run the connection handshake, keep the session alive and decode every
frame in both directions as it is sent or received.

Each frame is shown with timestamp, kind, checksum result and decoded fields.
State changes reported by the unit are printed as they happen.

Optionally records the traffic to a capture file (--record) that can be
inspected later with the replay command, and serves Prometheus metrics
(--metrics-addr).

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorRecord, "record", "", "Record traffic to a capture file")
	monitorCmd.Flags().StringVar(&monitorMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9101)")
	monitorCmd.Flags().BoolVar(&monitorBytes, "bytes", false, "Annotate every byte of each frame")
	monitorCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "Only print state changes")
}

// printFrame is a tap that writes decoded frames to stdout.
func printFrame(dir sharpac.Direction, f *sharpac.Frame) {
	if monitorQuiet {
		return
	}
	fmt.Printf("%s %s", dir, sharpac.FormatFrame(f))
	if monitorBytes && f.Len() > 1 {
		fmt.Print(sharpac.FormatBytes(f))
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taps := []sharpac.TapFunc{printFrame}
	var listeners sharpac.MultiListener

	if monitorRecord != "" {
		file, err := os.Create(monitorRecord)
		if err != nil {
			return fmt.Errorf("create capture file: %w", err)
		}
		defer file.Close()

		rec, err := capture.NewRecorder(file)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Err(); err != nil {
				logging.Error("Capture incomplete", zap.Error(err))
			}
			fmt.Printf("Recorded %d frames to %s\n", rec.Count(), monitorRecord)
		}()
		taps = append(taps, rec.Tap)
	}

	addr := monitorMetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	var em *metrics.EngineMetrics
	if addr != "" {
		reg := metrics.NewRegistry()
		em = metrics.NewEngineMetrics(reg)
		taps = append(taps, em.Tap)
		listeners = append(listeners, em)

		srv := startMetricsServer(addr, metrics.Handler(reg))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var s *session
	listeners = append(listeners, &consoleListener{engine: func() *sharpac.Engine {
		if s == nil {
			return nil
		}
		return s.engine
	}})

	s, err := openSession(listeners, sharpac.WithTap(multiTap(taps...)))
	if err != nil {
		return err
	}
	defer s.Close()
	if em != nil {
		em.Bind(s.engine)
	}

	fmt.Printf("Sharpstat - Monitor\n")
	fmt.Printf("Connection: %s\n", s.info)
	if addr != "" {
		fmt.Printf("Metrics: http://%s/metrics\n", addr)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	return s.Run(ctx)
}

// startMetricsServer serves h on /metrics in the background.
func startMetricsServer(addr string, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}
