// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

// parseSetArgs binds the set flags to a fresh command and parses args.
func parseSetArgs(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "set"}
	bindSetFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestParseOnOff(t *testing.T) {
	for _, v := range []string{"on", "true", "1"} {
		on, err := parseOnOff("power", v)
		require.NoError(t, err)
		assert.True(t, on)
	}
	for _, v := range []string{"off", "false", "0"} {
		on, err := parseOnOff("power", v)
		require.NoError(t, err)
		assert.False(t, on)
	}
	_, err := parseOnOff("ion", "maybe")
	assert.EqualError(t, err, `--ion must be on or off, got "maybe"`)
}

func TestBuildChange_OnlyGivenFields(t *testing.T) {
	c := parseSetArgs(t, "--power", "on", "--mode", "heat", "--temp", "22")
	change, err := buildChange(c)
	require.NoError(t, err)

	s := sharpac.DefaultState()
	s.Fan = sharpac.FanHigh
	change(&s)

	assert.True(t, s.Power)
	assert.Equal(t, sharpac.ModeHeat, s.Mode)
	assert.Equal(t, 22, s.Temperature)
	assert.Equal(t, sharpac.FanHigh, s.Fan)
}

func TestBuildChange_SwingThenVane(t *testing.T) {
	c := parseSetArgs(t, "--swing", "both", "--vertical", "lowest")
	change, err := buildChange(c)
	require.NoError(t, err)

	s := sharpac.DefaultState()
	change(&s)
	assert.Equal(t, sharpac.HorizontalSwing, s.Horizontal)
	assert.Equal(t, sharpac.VerticalLowest, s.Vertical)
}

func TestBuildChange_PresetAndIon(t *testing.T) {
	c := parseSetArgs(t, "--preset", "eco", "--ion", "on", "--fan", "auto")
	change, err := buildChange(c)
	require.NoError(t, err)

	s := sharpac.DefaultState()
	change(&s)
	assert.Equal(t, sharpac.PresetEco, s.Preset)
	assert.True(t, s.Ion)
	assert.Equal(t, sharpac.FanAuto, s.Fan)
}

func TestBuildChange_Errors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "nothing to change"},
		{[]string{"--temp", "35"}, "--temp must be 16-30"},
		{[]string{"--mode", "turbo"}, "unknown mode"},
		{[]string{"--fan", "max"}, "unknown fan speed"},
		{[]string{"--swing", "diagonal"}, "unknown swing mode"},
		{[]string{"--vertical", "up"}, "unknown vertical position"},
		{[]string{"--horizontal", "up"}, "unknown horizontal position"},
		{[]string{"--preset", "sleep"}, "unknown preset"},
		{[]string{"--power", "yes"}, "--power must be on or off"},
	}
	for _, tt := range tests {
		_, err := buildChange(parseSetArgs(t, tt.args...))
		assert.ErrorContains(t, err, tt.want, "%v", tt.args)
	}
}
