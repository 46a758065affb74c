// Copyright (c) 2025 namachan10777
// SPDX-License-Identifier: MIT

package namaco

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
)

// Config holds the tunables that influence how a Trie is built and how the
// package logs. Every field is read from the process environment only; no
// config file is ever opened by this package, so callers are free to wire
// their own flag/file layer on top without conflict.
type Config struct {
	// InitialTreeCapacity is the number of cells the Trie starts with,
	// rounded up to a multiple of 256 by BuildWithConfig. Zero means "use the
	// package default" (256, one block, matching §3.2's "initial length
	// 256").
	InitialTreeCapacity int `env:"NAMACO_INITIAL_TREE_CAPACITY" env-default:"256"`

	// LogLevel is a zerolog level name ("debug", "info", "warn", "error",
	// "disabled"). Defaults to "info".
	LogLevel string `env:"NAMACO_LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads Config from the process environment, applying defaults
// for anything unset.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("namaco: load config: %w", err)
	}
	return cfg, nil
}

// zerologLevel parses cfg.LogLevel, falling back to InfoLevel on any
// unrecognized value rather than failing the build over a logging knob.
func (cfg Config) zerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// newLogger builds a zerolog.Logger writing to stderr at the level named by
// cfg.
func newLogger(cfg Config) zerolog.Logger {
	return zerolog.New(os.Stderr).
		Level(cfg.zerologLevel()).
		With().Timestamp().Str("component", "namaco").Logger()
}
