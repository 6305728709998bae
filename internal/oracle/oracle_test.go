// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package oracle

import "testing"

func TestResultMismatchField(t *testing.T) {
	r := Result{Source: "1+1", Vela: "2", Duktape: "2"}
	if r.Mismatch {
		t.Fatal("zero-value Mismatch should be false for equal results constructed manually")
	}
}
