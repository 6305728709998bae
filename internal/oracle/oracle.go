// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package oracle is a differential-testing helper comparing VELA's
// output for a script against a second, independent ES engine —
// spec.md §8's end-to-end scenarios are specified as "observable
// behavior", and the cheapest way to catch a VELA semantics bug is to
// run the same source through a battle-tested interpreter and diff
// the results. The Duktape-backed comparison (duktape.go) is built
// only with the `oracle` build tag: the teacher's own go.mod carries
// gopkg.in/olebedev/go-duktape.v3 (cgo-wrapped Duktape) but a cgo
// dependency has no business being in every ordinary `go test ./...`
// run. The Result type below builds without the tag.
package oracle

// Result is one oracle comparison's outcome.
type Result struct {
	Source   string
	Vela     string
	Duktape  string
	Mismatch bool
}
