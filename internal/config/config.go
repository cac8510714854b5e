// Copyright 2024 The Gauntlet Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the optional harness configuration file.
//
// The file is YAML, named by the GAUNTLET_CONFIG environment variable.
// Everything in it has a default; an unset variable means a default
// configuration, while an unreadable or malformed file is a startup error.
package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/gauntlet-dev/gauntlet/internal/errors"
	"github.com/gauntlet-dev/gauntlet/internal/logging"
)

// EnvVar names the environment variable pointing at the configuration file.
const EnvVar = "GAUNTLET_CONFIG"

// ColorMode controls ANSI colors on the diagnostic stream.
type ColorMode int

const (
	// ColorAuto enables colors when the stream is a terminal.
	ColorAuto ColorMode = iota
	// ColorAlways enables colors unconditionally.
	ColorAlways
	// ColorNever disables colors.
	ColorNever
)

// Config is the effective harness configuration.
type Config struct {
	// LogLevel is the minimum severity displayed on the diagnostic stream.
	// Log-error counting is not affected; it always watches error level.
	LogLevel logging.Level
	// Color controls ANSI colors in terminal mode output.
	Color ColorMode
	// Sysinfo enables the process resource footprint line after the summary.
	Sysinfo bool
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: logging.LevelWarning,
		Color:    ColorAuto,
		Sysinfo:  false,
	}
}

// fileConfig is the raw YAML layout. Unknown keys are rejected.
type fileConfig struct {
	LogLevel string `yaml:"loglevel"`
	Color    string `yaml:"color"`
	Sysinfo  bool   `yaml:"sysinfo"`
}

var levelNames = map[string]logging.Level{
	"debug":   logging.LevelDebug,
	"info":    logging.LevelInfo,
	"warning": logging.LevelWarning,
	"error":   logging.LevelError,
}

var colorNames = map[string]ColorMode{
	"auto":   ColorAuto,
	"always": ColorAlways,
	"never":  ColorNever,
}

// Load returns the configuration from the file named by EnvVar, or the
// default configuration when the variable is unset or empty.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return Read(path)
}

// Read loads the configuration file at path. Keys left out keep their
// defaults.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	var fc fileConfig
	if err := yaml.UnmarshalStrict(b, &fc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	cfg := Default()
	if fc.LogLevel != "" {
		level, ok := levelNames[fc.LogLevel]
		if !ok {
			return nil, errors.Errorf("%s: unknown loglevel %q", path, fc.LogLevel)
		}
		cfg.LogLevel = level
	}
	if fc.Color != "" {
		mode, ok := colorNames[fc.Color]
		if !ok {
			return nil, errors.Errorf("%s: unknown color mode %q", path, fc.Color)
		}
		cfg.Color = mode
	}
	cfg.Sysinfo = fc.Sysinfo
	return cfg, nil
}
