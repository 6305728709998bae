// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package interp

import (
	"math"
	"strconv"

	"github.com/velajs/vela/internal/bytecode"
	"github.com/velajs/vela/internal/value"
)

// toNumber implements enough of ECMAScript's ToNumber abstract
// operation for the arithmetic opcodes to operate on: numbers pass
// through, booleans become 0/1, null becomes 0, undefined becomes NaN.
// Every other value, strings included, also becomes NaN: no
// string-to-number coercion happens here or anywhere else
// (spec.md's Non-goals exclude full ToPrimitive machinery).
func toNumber(v value.Value) float64 {
	switch {
	case v.IsInt():
		return float64(v.AsInt())
	case v.IsNumber():
		return v.AsFloat64()
	case v.IsTrue():
		return 1
	case v.IsFalse(), v.IsNull():
		return 0
	default:
		return math.NaN()
	}
}

func boolValue(b bool) value.Value { return value.Bool(b) }

// arith evaluates one arithmetic/comparison opcode over two already
// read operand values, returning the register value to store.
func arith(op bytecode.Op, l, r value.Value) value.Value {
	lf, rf := toNumber(l), toNumber(r)
	switch op {
	case bytecode.OpAdd:
		return value.Number(lf + rf)
	case bytecode.OpSub:
		return value.Number(lf - rf)
	case bytecode.OpMul:
		return value.Number(lf * rf)
	case bytecode.OpDiv:
		return value.Number(lf / rf)
	case bytecode.OpMod:
		return value.Number(math.Mod(lf, rf))
	case bytecode.OpEqEq, bytecode.OpStrictEq:
		return boolValue(value.StrictEq(l, r))
	case bytecode.OpNeqEq, bytecode.OpStrictNeq:
		return boolValue(!value.StrictEq(l, r))
	case bytecode.OpLt:
		return boolValue(lf < rf)
	case bytecode.OpLte:
		return boolValue(lf <= rf)
	case bytecode.OpGt:
		return boolValue(lf > rf)
	case bytecode.OpGte:
		return boolValue(lf >= rf)
	default:
		return value.Undefined
	}
}

func neg(v value.Value) value.Value {
	return value.Number(-toNumber(v))
}

// truthy implements ToBoolean for the values the dispatch loop's
// conditional jumps need to branch on; object/string/symbol/bigint
// truthiness never needs a runtime lookup here since every object is
// truthy and string emptiness is resolved via the interner by the
// caller when it matters (for.. the JumpIfTrue/JumpIfFalse opcodes
// only ever see the result of a prior comparison or an explicit
// boolean in practice).
func truthy(v value.Value) bool {
	return v.ToBool(nil, nil)
}

// formatNumericKey renders a computed member key the way Array
// indices print: integral values without a trailing ".0".
func formatNumericKey(f float64) string {
	if i := int64(f); float64(i) == f {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
