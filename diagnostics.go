// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vela

import (
	"strconv"

	"github.com/velajs/vela/internal/value"
)

// FormatValue renders v for a host-facing diagnostic surface (the
// `vela repl`/`vela run` CLI's printed result) — exported so cmd/vela
// never needs to reach past the package boundary into internal/value
// itself.
func (rt *Runtime) FormatValue(v value.Value) string { return rt.formatValue(v) }

// HeapStats reports cmd/vela dump's tabular object-store diagnostics:
// total slab slots and the ones currently free, mirroring go-ethereum's
// own tabular debug dumps (olekukonko/tablewriter) rather than a raw
// struct print.
func (rt *Runtime) HeapStats() [][]string {
	total := rt.Objects.Len()
	free := rt.Objects.FreeCount()
	return [][]string{
		{"runtime id", rt.ID.String()},
		{"object slots (total)", strconv.Itoa(total)},
		{"object slots (free)", strconv.Itoa(free)},
		{"object slots (live)", strconv.Itoa(total - free)},
	}
}
