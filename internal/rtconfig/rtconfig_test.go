// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package rtconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsable(t *testing.T) {
	cfg := Default()
	require.Greater(t, cfg.MaxLiveCoroutines, int64(0))
	require.True(t, cfg.EnableImportAssertions)
}

func TestLoadMergesOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vela.toml")
	require.NoError(t, os.WriteFile(path, []byte("strict_mode = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.StrictMode)
	require.Equal(t, Default().MaxLiveCoroutines, cfg.MaxLiveCoroutines, "unset fields keep Default()'s value")
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/vela.toml")
	require.Error(t, err)
}
