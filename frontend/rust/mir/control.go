package mir

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/ir"
)

func (b *Builder) buildIf(e *ast.IfExpr) (Operand, ir.Type, error) {
	cond, _, err := b.buildExpr(e.Condition)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	thenBlk := b.newBlock()
	elseBlk := b.newBlock()
	b.terminate(Terminator{Kind: TermIf, Cond: cond, Then: thenBlk.ID, Else: elseBlk.ID})
	mergeBlk := b.newBlock()

	b.cur = thenBlk
	thenOperand, thenTy, err := b.buildBlockExprNested(e.Then)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	hasResult := e.Else != nil && thenTy.Kind != ir.TyVoid
	var resultLoc Local
	if hasResult {
		resultLoc = b.newLocal(thenTy)
		b.emitAssign(Place{Local: resultLoc}, Rvalue{Kind: RvUse, Operand: thenOperand, Type: thenTy})
	}
	b.terminate(Terminator{Kind: TermGoto, Goto: mergeBlk.ID})

	b.cur = elseBlk
	if e.Else != nil {
		elseOperand, elseTy, err := b.buildExpr(e.Else)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		if hasResult {
			b.emitAssign(Place{Local: resultLoc}, Rvalue{Kind: RvUse, Operand: elseOperand, Type: elseTy})
		}
	}
	b.terminate(Terminator{Kind: TermGoto, Goto: mergeBlk.ID})

	b.cur = mergeBlk
	if hasResult {
		return Copy(resultLoc), thenTy, nil
	}
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildWhile(e *ast.WhileExpr) (Operand, ir.Type, error) {
	condBlk := b.newBlock()
	bodyBlk := b.newBlock()
	exitBlk := b.newBlock()
	b.terminate(Terminator{Kind: TermGoto, Goto: condBlk.ID})

	b.cur = condBlk
	cond, _, err := b.buildExpr(e.Condition)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	b.terminate(Terminator{Kind: TermIf, Cond: cond, Then: bodyBlk.ID, Else: exitBlk.ID})

	b.cur = bodyBlk
	b.loopStack = append(b.loopStack, loopCtx{exit: exitBlk.ID, cont: condBlk.ID})
	if _, _, err := b.buildBlockExprNested(e.Body); err != nil {
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		return Operand{}, ir.Type{}, err
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.terminate(Terminator{Kind: TermGoto, Goto: condBlk.ID})

	b.cur = exitBlk
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildLoop(e *ast.LoopExpr) (Operand, ir.Type, error) {
	bodyBlk := b.newBlock()
	exitBlk := b.newBlock()
	b.terminate(Terminator{Kind: TermGoto, Goto: bodyBlk.ID})

	b.cur = bodyBlk
	b.loopStack = append(b.loopStack, loopCtx{exit: exitBlk.ID, cont: bodyBlk.ID})
	if _, _, err := b.buildBlockExprNested(e.Body); err != nil {
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		return Operand{}, ir.Type{}, err
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.terminate(Terminator{Kind: TermGoto, Goto: bodyBlk.ID})

	b.cur = exitBlk
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildFor(e *ast.ForExpr) (Operand, ir.Type, error) {
	low, lowTy, err := b.buildExpr(e.Range.Low)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	high, _, err := b.buildExpr(e.Range.High)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	loopVar := b.newLocal(lowTy)
	b.emitAssign(Place{Local: loopVar}, Rvalue{Kind: RvUse, Operand: low, Type: lowTy})

	condBlk := b.newBlock()
	bodyBlk := b.newBlock()
	stepBlk := b.newBlock()
	exitBlk := b.newBlock()
	b.terminate(Terminator{Kind: TermGoto, Goto: condBlk.ID})

	b.cur = condBlk
	cmpLoc := b.newLocal(ir.Uint8())
	b.emitAssign(Place{Local: cmpLoc}, Rvalue{Kind: RvBinary, BinOp: ir.OpLt, Left: Copy(loopVar), Right: high, Type: ir.Uint8()})
	b.terminate(Terminator{Kind: TermIf, Cond: Copy(cmpLoc), Then: bodyBlk.ID, Else: exitBlk.ID})

	b.cur = bodyBlk
	inner := newScope(b.scope)
	inner.define(e.Name, localBinding{Local: loopVar, Type: lowTy})
	b.loopStack = append(b.loopStack, loopCtx{exit: exitBlk.ID, cont: stepBlk.ID})
	if _, _, err := b.buildBlockExprIn(inner, e.Body); err != nil {
		b.loopStack = b.loopStack[:len(b.loopStack)-1]
		return Operand{}, ir.Type{}, err
	}
	b.loopStack = b.loopStack[:len(b.loopStack)-1]
	b.terminate(Terminator{Kind: TermGoto, Goto: stepBlk.ID})

	b.cur = stepBlk
	incLoc := b.newLocal(lowTy)
	b.emitAssign(Place{Local: incLoc}, Rvalue{Kind: RvBinary, BinOp: ir.OpAdd, Left: Copy(loopVar), Right: ConstInt(1), Type: lowTy})
	b.emitAssign(Place{Local: loopVar}, Rvalue{Kind: RvUse, Operand: Copy(incLoc), Type: lowTy})
	b.terminate(Terminator{Kind: TermGoto, Goto: condBlk.ID})

	b.cur = exitBlk
	op2, ty2 := unit()
	return op2, ty2, nil
}

// buildMatch lowers to a single Switch terminator over constant
// patterns, with the first wildcard or binding arm becoming the
// Switch's default target. Exhaustiveness is not checked: a match with
// no catch-all arm gets a synthesized default block ending in
// Unreachable.
func (b *Builder) buildMatch(e *ast.MatchExpr) (Operand, ir.Type, error) {
	scrut, scrutTy, err := b.buildExpr(e.Scrutinee)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	scrutLoc := b.materialize(scrut, scrutTy)
	switchBlk := b.cur
	mergeBlk := b.newBlock()

	var resultLoc *Local
	var resultTy ir.Type
	var targets []SwitchTarget
	var defaultBlk *BasicBlock

	for _, arm := range e.Arms {
		armBlk := b.newBlock()
		if arm.IsWildcard || arm.IsBinding {
			if defaultBlk == nil {
				defaultBlk = armBlk
			}
		} else {
			v, err := b.constIntOf(arm.Pattern)
			if err != nil {
				return Operand{}, ir.Type{}, err
			}
			targets = append(targets, SwitchTarget{Value: v, Block: armBlk.ID})
		}

		b.cur = armBlk
		armScope := b.scope
		if arm.IsBinding {
			armScope = newScope(b.scope)
			armScope.define(arm.BindingName, localBinding{Local: scrutLoc, Type: scrutTy})
		}
		savedScope := b.scope
		b.scope = armScope
		bodyOperand, bodyTy, err := b.buildExpr(arm.Body)
		b.scope = savedScope
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		if resultLoc == nil && bodyTy.Kind != ir.TyVoid {
			loc := b.newLocal(bodyTy)
			resultLoc = &loc
			resultTy = bodyTy
		}
		if resultLoc != nil {
			b.emitAssign(Place{Local: *resultLoc}, Rvalue{Kind: RvUse, Operand: bodyOperand, Type: resultTy})
		}
		b.terminate(Terminator{Kind: TermGoto, Goto: mergeBlk.ID})
	}

	if defaultBlk == nil {
		defaultBlk = b.newBlock()
		saved := b.cur
		b.cur = defaultBlk
		b.terminate(Terminator{Kind: TermUnreachable})
		b.cur = saved
	}

	b.cur = switchBlk
	b.terminate(Terminator{Kind: TermSwitch, SwitchOperand: Copy(scrutLoc), Targets: targets, Default: defaultBlk.ID})

	b.cur = mergeBlk
	if resultLoc != nil {
		return Copy(*resultLoc), resultTy, nil
	}
	op, ty := unit()
	return op, ty, nil
}

// constIntOf folds a match pattern to its switch value. It accepts
// integer and bool literals; anything else is rejected. There are no
// enum-variant, destructuring, range, or guard patterns: a bare name
// before `=>` parses as a binding arm instead.
func (b *Builder) constIntOf(expr ast.Expression) (int64, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return e.Value, nil
	case *ast.BoolLiteral:
		if e.Value {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, b.errf(diag.KindNonConstantExpr, "match pattern must be a literal constant")
	}
}
