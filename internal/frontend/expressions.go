// Copyright 2024 The Vela Authors
// This file is part of Vela.
//
// Vela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package frontend

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/velajs/vela/internal/bytecode"
)

var binaryOps = map[token.Token]bytecode.Op{
	token.PLUS:               bytecode.OpAdd,
	token.MINUS:              bytecode.OpSub,
	token.MULTIPLY:           bytecode.OpMul,
	token.SLASH:              bytecode.OpDiv,
	token.REMAINDER:          bytecode.OpMod,
	token.LESS:               bytecode.OpLt,
	token.LESS_OR_EQUAL:      bytecode.OpLte,
	token.GREATER:            bytecode.OpGt,
	token.GREATER_OR_EQUAL:   bytecode.OpGte,
	token.EQUAL:              bytecode.OpEqEq,
	token.NOT_EQUAL:          bytecode.OpNeqEq,
	token.STRICT_EQUAL:       bytecode.OpStrictEq,
	token.STRICT_NOT_EQUAL:   bytecode.OpStrictNeq,
}

// compound assignment operators lower to their non-assigning binary op
// plus a write-back.
var compoundOps = map[token.Token]bytecode.Op{
	token.ADD_ASSIGN:       bytecode.OpAdd,
	token.SUBTRACT_ASSIGN:  bytecode.OpSub,
	token.MULTIPLY_ASSIGN:  bytecode.OpMul,
	token.QUOTIENT_ASSIGN:  bytecode.OpDiv,
	token.REMAINDER_ASSIGN: bytecode.OpMod,
}

func (c *compiler) compileExpr(fc *funcCtx, expr ast.Expression) (bytecode.Reg, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return c.b.EmitLoadConst(c.addNumberConstant(toFloat(e.Value))), nil

	case *ast.StringLiteral:
		return c.b.EmitLoadConst(c.addStringConstant(string(e.Value))), nil

	case *ast.BooleanLiteral:
		return c.compileBoolConst(e.Value), nil

	case *ast.NullLiteral:
		return c.b.EmitLoadNull(), nil

	case *ast.Identifier:
		return fc.readIdentifier(string(e.Name)), nil

	case *ast.ThisExpression:
		return c.b.EmitGetThis(), nil

	case *ast.SequenceExpression:
		var last bytecode.Reg
		for _, sub := range e.Sequence {
			r, err := c.compileExpr(fc, sub)
			if err != nil {
				return 0, err
			}
			last = r
		}
		return last, nil

	case *ast.BinaryExpression:
		return c.compileBinary(fc, e)

	case *ast.UnaryExpression:
		return c.compileUnary(fc, e)

	case *ast.AssignExpression:
		return c.compileAssign(fc, e)

	case *ast.ConditionalExpression:
		return c.compileConditional(fc, e)

	case *ast.CallExpression:
		return c.compileCall(fc, e)

	case *ast.NewExpression:
		return c.compileNew(fc, e)

	case *ast.DotExpression:
		objReg, err := c.compileExpr(fc, e.Left)
		if err != nil {
			return 0, err
		}
		return c.b.EmitGetField(objReg, c.addStringConstant(string(e.Identifier.Name))), nil

	case *ast.BracketExpression:
		objReg, err := c.compileExpr(fc, e.Left)
		if err != nil {
			return 0, err
		}
		keyReg, err := c.compileExpr(fc, e.Member)
		if err != nil {
			return 0, err
		}
		return c.b.EmitGetFieldComputed(objReg, keyReg), nil

	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(fc, e)

	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(fc, e)

	case *ast.FunctionLiteral:
		return c.compileFunctionLiteral(fc, "", e.ParameterList, e.Body, e.Generator, e.Async)

	case *ast.YieldExpression:
		var argReg bytecode.Reg
		var err error
		if e.Argument != nil {
			argReg, err = c.compileExpr(fc, e.Argument)
		} else {
			argReg = c.b.EmitLoadUndefined()
		}
		if err != nil {
			return 0, err
		}
		return c.b.EmitYield(argReg), nil

	case *ast.AwaitExpression:
		argReg, err := c.compileExpr(fc, e.Argument)
		if err != nil {
			return 0, err
		}
		return c.b.EmitAwait(argReg), nil

	default:
		return 0, unsupported(expr, "expression form")
	}
}

// compileBoolConst materializes a boolean via strict equality of two
// identical numbers / a mismatch — simplest without a dedicated
// OpLoadBool in spec.md §4.G's opcode surface: 0 === 0 is true, 0 ===
// 1 is false. Both operands are Number constants, which ConstantFold
// (Int constants only) leaves alone, so the comparison runs when the
// code does.
func (c *compiler) compileBoolConst(v bool) bytecode.Reg {
	zero := c.b.EmitLoadConst(c.addNumberConstant(0))
	n := 0.0
	if !v {
		n = 1
	}
	other := c.b.EmitLoadConst(c.addNumberConstant(n))
	return c.b.EmitBinary(bytecode.OpStrictEq, zero, other)
}

func (c *compiler) compileBinary(fc *funcCtx, e *ast.BinaryExpression) (bytecode.Reg, error) {
	switch e.Operator {
	case token.LOGICAL_AND:
		return c.compileLogical(fc, e.Left, e.Right, false)
	case token.LOGICAL_OR:
		return c.compileLogical(fc, e.Left, e.Right, true)
	}
	op, ok := binaryOps[e.Operator]
	if !ok {
		return 0, unsupported(e, "binary operator")
	}
	l, err := c.compileExpr(fc, e.Left)
	if err != nil {
		return 0, err
	}
	r, err := c.compileExpr(fc, e.Right)
	if err != nil {
		return 0, err
	}
	return c.b.EmitBinary(op, l, r), nil
}

// compileLogical lowers && / || with short-circuit evaluation:
// shortOnTrue selects || (short-circuits once the left side is
// truthy), false selects &&.
func (c *compiler) compileLogical(fc *funcCtx, left, right ast.Expression, shortOnTrue bool) (bytecode.Reg, error) {
	l, err := c.compileExpr(fc, left)
	if err != nil {
		return 0, err
	}
	result := c.b.NewValue()
	c.b.EmitMovInto(result, l)

	done := c.b.NewBlock()
	if shortOnTrue {
		c.b.EmitJumpIfTrue(l, done.ID)
	} else {
		c.b.EmitJumpIfFalse(l, done.ID)
	}
	r, err := c.compileExpr(fc, right)
	if err != nil {
		return 0, err
	}
	c.b.EmitMovInto(result, r)
	c.b.EmitJump(done.ID)
	c.b.SetBlock(done)
	return result, nil
}

func (c *compiler) compileUnary(fc *funcCtx, e *ast.UnaryExpression) (bytecode.Reg, error) {
	switch e.Operator {
	case token.MINUS:
		v, err := c.compileExpr(fc, e.Operand)
		if err != nil {
			return 0, err
		}
		return c.b.EmitUnary(bytecode.OpNeg, v), nil
	case token.PLUS:
		return c.compileExpr(fc, e.Operand)
	case token.NOT:
		v, err := c.compileExpr(fc, e.Operand)
		if err != nil {
			return 0, err
		}
		falseReg := c.compileBoolConst(false)
		return c.b.EmitBinary(bytecode.OpStrictEq, v, falseReg), nil
	case token.INCREMENT, token.DECREMENT:
		return c.compileIncDec(fc, e)
	default:
		return 0, unsupported(e, "unary operator")
	}
}

func (c *compiler) compileIncDec(fc *funcCtx, e *ast.UnaryExpression) (bytecode.Reg, error) {
	one := c.b.EmitLoadConst(c.addNumberConstant(1))
	old, err := c.compileExpr(fc, e.Operand)
	if err != nil {
		return 0, err
	}
	op := bytecode.OpAdd
	if e.Operator == token.DECREMENT {
		op = bytecode.OpSub
	}
	updated := c.b.EmitBinary(op, old, one)
	if err := c.assignTo(fc, e.Operand, updated); err != nil {
		return 0, err
	}
	if e.Postfix {
		return old, nil
	}
	return updated, nil
}

func (c *compiler) compileAssign(fc *funcCtx, e *ast.AssignExpression) (bytecode.Reg, error) {
	if e.Operator == token.ASSIGN {
		v, err := c.compileExpr(fc, e.Right)
		if err != nil {
			return 0, err
		}
		if err := c.assignTo(fc, e.Left, v); err != nil {
			return 0, err
		}
		return v, nil
	}
	op, ok := compoundOps[e.Operator]
	if !ok {
		return 0, unsupported(e, "compound assignment operator")
	}
	old, err := c.compileExpr(fc, e.Left)
	if err != nil {
		return 0, err
	}
	rhs, err := c.compileExpr(fc, e.Right)
	if err != nil {
		return 0, err
	}
	updated := c.b.EmitBinary(op, old, rhs)
	if err := c.assignTo(fc, e.Left, updated); err != nil {
		return 0, err
	}
	return updated, nil
}

// assignTo writes src into the location target names: a bare
// identifier (local, capture, or a global property) or a member
// expression.
func (c *compiler) assignTo(fc *funcCtx, target ast.Expression, src bytecode.Reg) error {
	switch t := target.(type) {
	case *ast.Identifier:
		fc.writeIdentifier(string(t.Name), src)
		return nil
	case *ast.DotExpression:
		objReg, err := c.compileExpr(fc, t.Left)
		if err != nil {
			return err
		}
		c.b.EmitSetField(objReg, c.addStringConstant(string(t.Identifier.Name)), src)
		return nil
	case *ast.BracketExpression:
		objReg, err := c.compileExpr(fc, t.Left)
		if err != nil {
			return err
		}
		keyReg, err := c.compileExpr(fc, t.Member)
		if err != nil {
			return err
		}
		c.b.EmitSetFieldComputed(objReg, keyReg, src)
		return nil
	default:
		return unsupported(target, "assignment target")
	}
}

func (c *compiler) compileConditional(fc *funcCtx, e *ast.ConditionalExpression) (bytecode.Reg, error) {
	test, err := c.compileExpr(fc, e.Test)
	if err != nil {
		return 0, err
	}
	result := c.b.NewValue()
	thenB := c.b.NewBlock()
	elseB := c.b.NewBlock()
	done := c.b.NewBlock()
	c.b.EmitJumpIfTrue(test, thenB.ID)
	c.b.EmitJump(elseB.ID)

	c.b.SetBlock(thenB)
	v1, err := c.compileExpr(fc, e.Consequent)
	if err != nil {
		return 0, err
	}
	c.b.EmitMovInto(result, v1)
	c.b.EmitJump(done.ID)

	c.b.SetBlock(elseB)
	v2, err := c.compileExpr(fc, e.Alternate)
	if err != nil {
		return 0, err
	}
	c.b.EmitMovInto(result, v2)
	c.b.EmitJump(done.ID)

	c.b.SetBlock(done)
	return result, nil
}

func (c *compiler) compileCall(fc *funcCtx, e *ast.CallExpression) (bytecode.Reg, error) {
	args, err := c.compileArgs(fc, e.ArgumentList)
	if err != nil {
		return 0, err
	}
	if dot, ok := e.Callee.(*ast.DotExpression); ok {
		objReg, err := c.compileExpr(fc, dot.Left)
		if err != nil {
			return 0, err
		}
		return c.b.EmitCallMethod(objReg, c.addStringConstant(string(dot.Identifier.Name)), args), nil
	}
	callee, err := c.compileExpr(fc, e.Callee)
	if err != nil {
		return 0, err
	}
	return c.b.EmitCall(callee, args), nil
}

func (c *compiler) compileNew(fc *funcCtx, e *ast.NewExpression) (bytecode.Reg, error) {
	ctor, err := c.compileExpr(fc, e.Callee)
	if err != nil {
		return 0, err
	}
	args, err := c.compileArgs(fc, e.ArgumentList)
	if err != nil {
		return 0, err
	}
	return c.b.EmitNew(ctor, args), nil
}

func (c *compiler) compileArgs(fc *funcCtx, list []ast.Expression) ([]bytecode.Reg, error) {
	regs := make([]bytecode.Reg, len(list))
	for i, a := range list {
		r, err := c.compileExpr(fc, a)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}

func (c *compiler) compileArrayLiteral(fc *funcCtx, e *ast.ArrayLiteral) (bytecode.Reg, error) {
	arrayCtor := fc.readIdentifier("Array")
	arr := c.b.EmitNew(arrayCtor, nil)
	for i, el := range e.Value {
		if el == nil {
			continue // elision
		}
		v, err := c.compileExpr(fc, el)
		if err != nil {
			return 0, err
		}
		c.b.EmitSetField(arr, c.addStringConstant(itoa(i)), v)
	}
	c.b.EmitSetField(arr, c.addStringConstant("length"), c.b.EmitLoadConst(c.addNumberConstant(float64(len(e.Value)))))
	return arr, nil
}

func (c *compiler) compileObjectLiteral(fc *funcCtx, e *ast.ObjectLiteral) (bytecode.Reg, error) {
	objectCtor := fc.readIdentifier("Object")
	obj := c.b.EmitNew(objectCtor, nil)
	for _, prop := range e.Value {
		key, val, ok := propertyKeyValue(prop)
		if !ok {
			return 0, unsupported(e, "object literal property form")
		}
		vReg, err := c.compileExpr(fc, val)
		if err != nil {
			return 0, err
		}
		c.b.EmitSetField(obj, c.addStringConstant(key), vReg)
	}
	return obj, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// propertyKeyValue extracts a simple "key: value" pair from a goja
// ast.Property, skipping getters/setters/computed keys/spread (none
// of which this tree-walk lowers yet).
func propertyKeyValue(p ast.Property) (string, ast.Expression, bool) {
	switch pk := p.(type) {
	case *ast.PropertyKeyed:
		if pk.Kind != ast.PropertyKeyValue || pk.Computed {
			return "", nil, false
		}
		switch k := pk.Key.(type) {
		case *ast.StringLiteral:
			return string(k.Value), pk.Value, true
		case *ast.Identifier:
			return string(k.Name), pk.Value, true
		}
	}
	return "", nil, false
}

