// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

// Configuration loading and validation for sharpstat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/sharpstat/pkg/sharpac"
)

// SerialConfig describes the UART link to the indoor unit.
type SerialConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // "none", "odd", "even"
	StopBits int    `yaml:"stop_bits"`
}

// BridgeConfig describes a WebSocket serial bridge.
type BridgeConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// EngineConfig holds session timings.
type EngineConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	ResponseTimeout   time.Duration `yaml:"response_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// MessagesConfig overrides handshake literals. Values are hex strings without
// the trailing checksum byte; empty values keep the built-in literal.
type MessagesConfig struct {
	InitProbe    string `yaml:"init_probe,omitempty"`
	InitFollowUp string `yaml:"init_follow_up,omitempty"`
	Subscribe    string `yaml:"subscribe,omitempty"`
	Subscribe2   string `yaml:"subscribe2,omitempty"`
	GetState     string `yaml:"get_state,omitempty"`
	GetStatus    string `yaml:"get_status,omitempty"`
	Connected    string `yaml:"connected,omitempty"`
}

// Config is the sharpstat configuration file.
type Config struct {
	Serial      SerialConfig   `yaml:"serial"`
	Bridge      BridgeConfig   `yaml:"bridge"`
	Engine      EngineConfig   `yaml:"engine"`
	Messages    MessagesConfig `yaml:"messages,omitempty"`
	MetricsAddr string         `yaml:"metrics_addr,omitempty"`
	LogLevel    string         `yaml:"log_level,omitempty"`
}

// Default returns the built-in configuration: 9600 baud 8E1 and the standard
// session timings.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:     9600,
			DataBits: 8,
			Parity:   "even",
			StopBits: 1,
		},
		Engine: EngineConfig{
			PollInterval:      sharpac.DefaultPollInterval,
			ResponseTimeout:   sharpac.DefaultResponseTimeout,
			ReconnectInterval: sharpac.DefaultReconnectInterval,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/sharpstat/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sharpstat", "config.yaml")
}

// Load reads the configuration at path on top of the defaults. A missing file
// is an error only when required is set, i.e. the user named the file.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults refills fields that the file explicitly zeroed.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.DataBits == 0 {
		c.Serial.DataBits = def.Serial.DataBits
	}
	if c.Serial.Parity == "" {
		c.Serial.Parity = def.Serial.Parity
	}
	if c.Serial.StopBits == 0 {
		c.Serial.StopBits = def.Serial.StopBits
	}
	if c.Engine.PollInterval == 0 {
		c.Engine.PollInterval = def.Engine.PollInterval
	}
	if c.Engine.ResponseTimeout == 0 {
		c.Engine.ResponseTimeout = def.Engine.ResponseTimeout
	}
	if c.Engine.ReconnectInterval == 0 {
		c.Engine.ReconnectInterval = def.Engine.ReconnectInterval
	}
}

// Validate checks value ranges and that message overrides parse.
func (c *Config) Validate() error {
	if c.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		return fmt.Errorf("serial.data_bits must be 5..8, got %d", c.Serial.DataBits)
	}
	switch strings.ToLower(c.Serial.Parity) {
	case "none", "odd", "even", "mark", "space":
	default:
		return fmt.Errorf("serial.parity must be none, odd, even, mark or space, got %q", c.Serial.Parity)
	}
	if c.Serial.StopBits != 1 && c.Serial.StopBits != 2 {
		return fmt.Errorf("serial.stop_bits must be 1 or 2, got %d", c.Serial.StopBits)
	}
	if c.Engine.PollInterval < 0 || c.Engine.ResponseTimeout < 0 || c.Engine.ReconnectInterval < 0 {
		return fmt.Errorf("engine timings must not be negative")
	}
	if _, err := c.Messages.Parse(); err != nil {
		return err
	}
	return nil
}

// Parse converts the hex overrides into a Messages table. Unset literals are
// left empty so they merge with the defaults.
func (m MessagesConfig) Parse() (sharpac.Messages, error) {
	var out sharpac.Messages
	fields := []struct {
		name string
		hex  string
		dst  *[]byte
	}{
		{"init_probe", m.InitProbe, &out.InitProbe},
		{"init_follow_up", m.InitFollowUp, &out.InitFollowUp},
		{"subscribe", m.Subscribe, &out.Subscribe},
		{"subscribe2", m.Subscribe2, &out.Subscribe2},
		{"get_state", m.GetState, &out.GetState},
		{"get_status", m.GetStatus, &out.GetStatus},
		{"connected", m.Connected, &out.Connected},
	}
	for _, f := range fields {
		b, err := sharpac.ParseHexBytes(f.hex)
		if err != nil {
			return sharpac.Messages{}, fmt.Errorf("messages.%s: %w", f.name, err)
		}
		*f.dst = b
	}
	return out, nil
}

// EngineOptions returns the engine options described by the configuration.
func (c *Config) EngineOptions() ([]sharpac.Option, error) {
	msgs, err := c.Messages.Parse()
	if err != nil {
		return nil, err
	}
	return []sharpac.Option{
		sharpac.WithPollInterval(c.Engine.PollInterval),
		sharpac.WithResponseTimeout(c.Engine.ResponseTimeout),
		sharpac.WithReconnectInterval(c.Engine.ReconnectInterval),
		sharpac.WithMessages(msgs),
	}, nil
}

// Write stores the configuration at path, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
