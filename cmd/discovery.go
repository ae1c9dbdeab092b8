// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Thermoquad/sharpstat/internal/logging"
	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	discoveryTimeout int
	discoveryList    bool
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find serial ports with a responding unit",
	Long: `Probe serial ports for a Sharp indoor unit.

Every port (or only --port, when given) is opened with the configured line
settings and sent the init probe. A port whose peer answers with an init
reply has a unit attached.

Examples:
  # Probe every serial port
  sharpstat discovery

  # List ports without probing
  sharpstat discovery --list

Exit codes:
  0 - Discovery successful (at least one unit found)
  1 - Discovery failed (no unit answered)
  2 - Port enumeration error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 3, "Seconds to wait for an answer on each port")
	discoveryCmd.Flags().BoolVar(&discoveryList, "list", false, "Only list serial ports")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	ports := []string{cfg.Serial.Port}
	if cfg.Serial.Port == "" {
		var err error
		ports, err = serial.GetPortsList()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Port enumeration error: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Printf("Sharpstat - Unit Discovery\n")
	fmt.Printf("Line settings: %s\n", serialDescription(cfg.Serial))
	fmt.Printf("Ports: %d\n\n", len(ports))

	if discoveryList {
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
		return nil
	}

	found := 0
	for _, p := range ports {
		fmt.Printf("Probing %s... ", p)
		ok, err := probePort(cmd.Context(), p, time.Duration(discoveryTimeout)*time.Second)
		switch {
		case err != nil:
			fmt.Printf("error: %v\n", err)
		case ok:
			found++
			fmt.Printf("unit found\n")
		default:
			fmt.Printf("no answer\n")
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Units found: %d\n", found)

	if found == 0 {
		fmt.Printf("No unit answered. Check wiring, line settings and unit power.\n")
		os.Exit(1)
	}

	return nil
}

// probePort reports whether a unit on port answers the init probe.
func probePort(ctx context.Context, port string, timeout time.Duration) (bool, error) {
	sc := cfg.Serial
	sc.Port = port
	conn, err := OpenSerialConnection(sc)
	if err != nil {
		return false, err
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		conn.Close()
		return false, err
	}
	opts = append(opts, sharpac.WithLogger(logging.Named("discovery").With(zap.String("port", port))))

	s := newSession(conn, port, nil, opts...)
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answered := false
	err = s.RunUntil(ctx, func(e *sharpac.Engine) bool {
		answered = e.Step() > 0
		return answered
	})
	return answered, err
}
