// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package rtconfig defines the TOML-loadable configuration a Runtime
// is constructed from (heap sizing, GC thresholds, coroutine limits,
// feature toggles), grounded on the teacher's own TOML-backed
// go-probe node configuration (naoina/toml, also used for gprobe's
// config file).
package rtconfig

import (
	"os"

	"github.com/naoina/toml"
)

// Config controls one Runtime's resource limits and feature set.
// Every field has a conservative default via Default() so an embedder
// may construct a Runtime with a zero-value Config only if they first
// merge it over Default().
type Config struct {
	// MaxLiveCoroutines bounds the number of generators and in-flight
	// async calls that may be suspended at once (internal/coroutine's
	// Executor).
	MaxLiveCoroutines int64 `toml:"max_live_coroutines"`

	// GCAllocThreshold is informational here — internal/object.Store
	// hardcodes spec.md §4.E's 5,000-allocation trigger — but is
	// surfaced in Config so a future tuning pass has a single place to
	// read it from without touching internal/object's own constant.
	GCAllocThreshold int `toml:"gc_alloc_threshold"`

	// StrictMode is loaded from strict_mode, but nothing outside this
	// package reads it: internal/frontend's writeIdentifier fallback
	// creates implicit globals whether it is set or not.
	StrictMode bool `toml:"strict_mode"`

	// EnableImportAssertions is loaded from enable_import_assertions,
	// but nothing outside this package reads it: Runtime.Import hands
	// assertion maps to the ImportResolver whether it is set or not.
	EnableImportAssertions bool `toml:"enable_import_assertions"`
}

// Default returns the configuration a bare `vela.New(nil)` runs with.
func Default() Config {
	return Config{
		MaxLiveCoroutines:      256,
		GCAllocThreshold:       5000,
		StrictMode:             false,
		EnableImportAssertions: true,
	}
}

// Load reads and decodes a TOML configuration file, merging it over
// Default() so a file that only sets one field still gets sane values
// for the rest.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
