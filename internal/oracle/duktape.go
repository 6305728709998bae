// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

//go:build oracle

package oracle

import (
	duktape "gopkg.in/olebedev/go-duktape.v3"
)

// EvalDuktape runs src through Duktape and returns its final
// expression's string representation, the independent half of a
// Compare call.
func EvalDuktape(src string) (string, error) {
	ctx := duktape.New()
	defer ctx.DestroyHeap()

	if err := ctx.PevalString(src); err != nil {
		return "", err
	}
	s := ctx.SafeToString(-1)
	ctx.Pop()
	return s, nil
}

// Compare runs src through both velaEval (a caller-supplied closure
// over a *vela.Runtime, avoiding an import cycle — package oracle
// never imports the root vela package) and Duktape, reporting whether
// their string-rendered results disagree.
func Compare(src string, velaEval func(string) (string, error)) (Result, error) {
	vRes, vErr := velaEval(src)
	if vErr != nil {
		return Result{}, vErr
	}
	dRes, dErr := EvalDuktape(src)
	if dErr != nil {
		return Result{}, dErr
	}
	return Result{Source: src, Vela: vRes, Duktape: dRes, Mismatch: vRes != dRes}, nil
}
