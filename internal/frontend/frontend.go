// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package frontend adapts github.com/dop251/goja's parser and AST —
// a conforming ES2022 parser, taken as an external collaborator per
// spec.md §1 — into internal/bytecode.Builder calls. It is a
// tree-walking codegen, not a parser: syntax is goja's problem,
// lowering that syntax to VELA's register IR is this package's.
//
// A script compiles to a Program whose entry function reads the
// runtime's globals object out of capture slot 0 — every nested
// function transitively captures that same slot through the ordinary
// closure-capture machinery, so a bare identifier that resolves to
// nothing lexically falls back to a property lookup on it.
package frontend

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/intern"
	"github.com/velajs/vela/internal/jserr"
	"github.com/velajs/vela/internal/value"
)

// globalSlot is the name the compiler seeds into the entry function's
// own capture table for the globals object passed in by its caller
// (vela.Runtime's runProgram, spec.md §6). It can never collide with a
// real identifier: ES2022 identifiers never contain '@'.
const globalSlot = "@@global"

type compiler struct {
	b        *bytecode.Builder
	strings  *intern.StringInterner
}

// Compile parses src as an ES2022 script (never as a module body) and
// lowers it to a Program whose entry function expects exactly one
// capture: the runtime's globals object. The entry function returns
// the value of the script's final statement when that statement is an
// expression statement, and undefined otherwise.
func Compile(strings *intern.StringInterner, filename, src string) (*bytecode.Program, error) {
	prog, err := parser.ParseFile(nil, filename, src, 0)
	if err != nil {
		return nil, &jserr.InvalidExpression{Span: filename, Msg: err.Error()}
	}

	c := &compiler{b: bytecode.NewBuilder(), strings: strings}

	fn := c.b.StartFunction("<script>")
	fn.NumCaptures = 1
	fc := newFuncCtx(c, fn, nil)
	fc.captureIdx[globalSlot] = 0

	entry := c.b.NewBlock()
	c.b.SetBlock(entry)

	body := prog.Body
	var last ast.Expression
	if n := len(body); n > 0 {
		if es, ok := body[n-1].(*ast.ExpressionStatement); ok {
			last, body = es.Expression, body[:n-1]
		}
	}
	if err := c.compileStatements(fc, body); err != nil {
		return nil, err
	}
	if last != nil {
		r, err := c.compileExpr(fc, last)
		if err != nil {
			return nil, err
		}
		c.b.EmitReturn(r)
	} else {
		u := c.b.EmitLoadUndefined()
		c.b.EmitReturn(u)
	}

	program := c.b.Program()
	program.Entry = 0
	return program, nil
}

// addStringConstant interns name and adds it to the current
// function's constant pool, returning the pool index OpGetField/
// OpSetField/OpCallMethod expect in their Imm field.
func (c *compiler) addStringConstant(name string) int32 {
	return c.b.AddConstant(value.Str(c.strings.Intern(name)))
}

func (c *compiler) addNumberConstant(n float64) int32 {
	return c.b.AddConstant(value.Number(n))
}

func unsupported(n ast.Node, what string) error {
	return &jserr.InvalidExpression{Span: fmt.Sprintf("%T", n), Msg: "unsupported syntax: " + what}
}
