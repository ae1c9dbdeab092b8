// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Sharpstat - Sharp air conditioner serial protocol tool
//
// A CLI tool for monitoring, decoding and controlling Sharp air conditioners
// through the indoor unit UART, directly or over a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/sharpstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
