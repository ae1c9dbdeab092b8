// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sharpstat/internal/config"
	"github.com/Thermoquad/sharpstat/internal/logging"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	logLevel   string

	// cfg is the effective configuration: file values overridden by flags.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sharpstat",
	Short: "Sharp air conditioner serial protocol tool",
	Long: `Sharpstat - A CLI tool for talking to Sharp air conditioners over their
indoor unit UART.

Provides commands for monitoring and decoding frames, driving the connection
handshake, controlling the unit and analysing link errors.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

The serial link runs 8E1. Settings can also be kept in a YAML file
(--config, default $XDG_CONFIG_HOME/sharpstat/config.yaml); flags win over
the file.

For WebSocket authentication, the password is read from the SHARPSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $"+logging.LogLevelEnvVar+")")
}

// loadConfig reads the config file and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, args []string) error {
	path, required := configPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	if cmd == configInitCmd {
		// init creates the file
		required = false
	}

	loaded, err := config.Load(path, required)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Bridge.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Bridge.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Bridge.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return logging.Initialize(cfg.LogLevel)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
