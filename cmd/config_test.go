// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/sharpstat/internal/config"
)

// resetFlags restores defaults so earlier runs do not leak into the next.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// runRoot executes the root command with args and returns its output.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	savedCfg, savedPath, savedForce := cfg, configPath, configForce
	t.Cleanup(func() {
		cfg, configPath, configForce = savedCfg, savedPath, savedForce
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags(rootCmd.PersistentFlags())
	resetFlags(configInitCmd.Flags())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigShow_AppliesFlags(t *testing.T) {
	out, err := runRoot(t, "config", "show", "--port", "/dev/ttyUSB3", "--baud", "4800")
	require.NoError(t, err)

	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "/dev/ttyUSB3", got.Serial.Port)
	assert.Equal(t, 4800, got.Serial.Baud)
	assert.Equal(t, "even", got.Serial.Parity)
}

func TestConfigInit_WritesAndRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "sharpstat.yaml")

	out, err := runRoot(t, "config", "init", "--config", path, "--port", "/dev/ttyAMA0")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	loaded, err := config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", loaded.Serial.Port)

	_, err = runRoot(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runRoot(t, "config", "init", "--config", path, "--force", "--baud", "1200")
	require.NoError(t, err)
	loaded, err = config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, 1200, loaded.Serial.Baud)
	assert.Equal(t, "/dev/ttyAMA0", loaded.Serial.Port)
}

func TestRoot_MissingNamedConfig(t *testing.T) {
	_, err := runRoot(t, "config", "show", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestRoot_InvalidFlagValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial:\n  stop_bits: 3\n"), 0o644))

	_, err := runRoot(t, "config", "show", "--config", path)
	assert.ErrorContains(t, err, "stop_bits")
}
