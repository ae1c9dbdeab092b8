// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

var (
	setPower      string
	setMode       string
	setFan        string
	setTemp       int
	setSwing      string
	setVertical   string
	setHorizontal string
	setPreset     string
	setIon        string
	setTimeout    int
	setSettle     int
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the unit settings and exit",
	Long: `Connect, wait for the handshake and the first state report, apply the
requested changes as a single command and print the resulting state.

Only the given flags are changed; everything else keeps the value reported
by the unit.

Examples:
  sharpstat set --port /dev/ttyUSB0 --power on --mode cool --temp 24
  sharpstat set --port /dev/ttyUSB0 --swing both --fan auto
  sharpstat set --port /dev/ttyUSB0 --power off`,
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	bindSetFlags(setCmd)
}

func bindSetFlags(c *cobra.Command) {
	c.Flags().StringVar(&setPower, "power", "", "Power: on or off")
	c.Flags().StringVar(&setMode, "mode", "", "Mode: heat, cool, dry or fan_only")
	c.Flags().StringVar(&setFan, "fan", "", "Fan: auto, low, mid, high or highest")
	c.Flags().IntVar(&setTemp, "temp", 0, "Target temperature in °C (16-30)")
	c.Flags().StringVar(&setSwing, "swing", "", "Swing: off, both, vertical or horizontal")
	c.Flags().StringVar(&setVertical, "vertical", "", "Vertical louver position")
	c.Flags().StringVar(&setHorizontal, "horizontal", "", "Horizontal louver position")
	c.Flags().StringVar(&setPreset, "preset", "", "Preset: none, eco or full_power")
	c.Flags().StringVar(&setIon, "ion", "", "Ionizer: on or off")
	c.Flags().IntVar(&setTimeout, "timeout", 30, "Seconds to wait for the handshake and state")
	c.Flags().IntVar(&setSettle, "settle", 3, "Seconds to wait for the unit to report the new state")
}

func parseOnOff(name, v string) (bool, error) {
	switch v {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("--%s must be on or off, got %q", name, v)
}

// buildChange turns the set flags into a state mutation. It fails before any
// connection is made if a value does not parse.
func buildChange(cmd *cobra.Command) (func(s *sharpac.DeviceState), error) {
	flags := cmd.Flags()
	var steps []func(s *sharpac.DeviceState)

	if flags.Changed("power") {
		on, err := parseOnOff("power", setPower)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Power = on })
	}
	if flags.Changed("mode") {
		mode, err := sharpac.ParsePowerMode(setMode)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Mode = mode })
	}
	if flags.Changed("fan") {
		fan, err := sharpac.ParseFanMode(setFan)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Fan = fan })
	}
	if flags.Changed("temp") {
		if setTemp < sharpac.MinTemperature || setTemp > sharpac.MaxTemperature {
			return nil, fmt.Errorf("--temp must be %d-%d, got %d", sharpac.MinTemperature, sharpac.MaxTemperature, setTemp)
		}
		temp := setTemp
		steps = append(steps, func(s *sharpac.DeviceState) { s.Temperature = temp })
	}
	if flags.Changed("swing") {
		mode, err := sharpac.ParseSwingMode(setSwing)
		if err != nil {
			return nil, err
		}
		h, v := sharpac.SwingPositions(mode)
		steps = append(steps, func(s *sharpac.DeviceState) { s.Horizontal, s.Vertical = h, v })
	}
	if flags.Changed("vertical") {
		v, err := sharpac.ParseSwingVertical(setVertical)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Vertical = v })
	}
	if flags.Changed("horizontal") {
		h, err := sharpac.ParseSwingHorizontal(setHorizontal)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Horizontal = h })
	}
	if flags.Changed("preset") {
		p, err := sharpac.ParsePreset(setPreset)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Preset = p })
	}
	if flags.Changed("ion") {
		on, err := parseOnOff("ion", setIon)
		if err != nil {
			return nil, err
		}
		steps = append(steps, func(s *sharpac.DeviceState) { s.Ion = on })
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("nothing to change; see --help for the available settings")
	}
	return func(s *sharpac.DeviceState) {
		for _, step := range steps {
			step(s)
		}
	}, nil
}

func runSet(cmd *cobra.Command, args []string) error {
	change, err := buildChange(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Connection: %s\n", s.info)

	// State is published only after the first status frame, so wait for a
	// room temperature as well as the handshake.
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(setTimeout)*time.Second)
	defer cancel()
	ready := false
	if err := s.RunUntil(waitCtx, func(e *sharpac.Engine) bool {
		_, ok := e.CurrentTemperature()
		ready = e.Connected() && ok
		return ready
	}); err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("unit did not report its state within %d seconds", setTimeout)
	}

	s.Do(func(e *sharpac.Engine) {
		fmt.Printf("Before: %s\n", e.State())
		e.Control(change)
		fmt.Printf("Sent:   %s\n", e.State())
	})

	settleCtx, cancelSettle := context.WithTimeout(ctx, time.Duration(setSettle)*time.Second)
	defer cancelSettle()
	if err := s.Run(settleCtx); err != nil {
		return err
	}

	s.Do(func(e *sharpac.Engine) {
		current, ok := e.CurrentTemperature()
		fmt.Printf("After:  %s\n", sharpac.FormatState(e.State(), current, ok))
		if n := e.WriteErrors(); n > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d write errors\n", n)
		}
	})
	return nil
}
