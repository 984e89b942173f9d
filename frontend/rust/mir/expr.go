package mir

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/ir"
)

// buildExpr lowers expr in value (rvalue) position, returning an
// Operand usable wherever its value is needed plus its type. Every case
// that computes something nontrivial materializes the result into a
// fresh local and returns a Copy of it, mirroring how
// frontend/c/irbuild emits into a fresh Temp per subexpression.
func (b *Builder) buildExpr(expr ast.Expression) (Operand, ir.Type, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return ConstInt(e.Value), ir.Int32(), nil

	case *ast.BoolLiteral:
		v := int64(0)
		if e.Value {
			v = 1
		}
		return ConstInt(v), ir.Uint8(), nil

	case *ast.StringLiteral:
		return ConstString(e.Value), ir.Pointer(ir.Uint8()), nil

	case *ast.Identifier:
		if bind, ok := b.scope.resolve(e.Value); ok {
			return Copy(bind.Local), bind.Type, nil
		}
		if v, ok := b.consts[e.Value]; ok {
			return ConstInt(v), b.constTypes[e.Value], nil
		}
		return Operand{}, ir.Type{}, b.errf(diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)

	case *ast.UnaryExpression:
		return b.buildUnary(e)

	case *ast.BinaryExpression:
		return b.buildBinary(e)

	case *ast.AssignExpression:
		return b.buildAssign(e)

	case *ast.CallExpression:
		return b.buildCall(e)

	case *ast.FieldExpression, *ast.IndexExpression:
		place, ty, err := b.buildPlace(expr)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		return b.readPlace(place, ty), ty, nil

	case *ast.CastExpression:
		operand, _, err := b.buildExpr(e.Value)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		targetTy, err := b.types.Resolve(e.Type, diag.Span{File: b.file})
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		// Constant and runtime operands alike are copied with a plain Use
		// into a fresh local of the target type; nothing is folded here,
		// and any width change is left to the Load/Store sizing the
		// shared IR performs on its own operand access.
		loc := b.newLocal(targetTy)
		b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvUse, Operand: operand, Type: targetTy})
		return Copy(loc), targetTy, nil

	case *ast.StructLiteral:
		return b.buildStructLiteral(e)

	case *ast.BlockExpr:
		return b.buildBlockExprNested(e)

	case *ast.IfExpr:
		return b.buildIf(e)

	case *ast.WhileExpr:
		return b.buildWhile(e)

	case *ast.LoopExpr:
		return b.buildLoop(e)

	case *ast.ForExpr:
		return b.buildFor(e)

	case *ast.MatchExpr:
		return b.buildMatch(e)

	case *ast.ReturnExpr:
		if e.Value != nil {
			operand, ty, err := b.buildExpr(e.Value)
			if err != nil {
				return Operand{}, ir.Type{}, err
			}
			b.emitAssign(Place{Local: 0}, Rvalue{Kind: RvUse, Operand: operand, Type: ty})
		}
		b.terminate(Terminator{Kind: TermReturn})
		b.cur = b.newBlock()
		op, ty := unit()
		return op, ty, nil

	case *ast.BreakExpr:
		top := b.loopStack[len(b.loopStack)-1]
		b.terminate(Terminator{Kind: TermGoto, Goto: top.exit})
		b.cur = b.newBlock()
		op, ty := unit()
		return op, ty, nil

	case *ast.ContinueExpr:
		top := b.loopStack[len(b.loopStack)-1]
		b.terminate(Terminator{Kind: TermGoto, Goto: top.cont})
		b.cur = b.newBlock()
		op, ty := unit()
		return op, ty, nil
	}
	return Operand{}, ir.Type{}, b.errf(diag.KindTypeMismatch, "unsupported expression form in lowering")
}

func (b *Builder) buildUnary(e *ast.UnaryExpression) (Operand, ir.Type, error) {
	switch e.Operator {
	case "&", "&mut":
		place, ty, err := b.buildPlace(e.Operand)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		resTy := ir.Pointer(ty)
		loc := b.newLocal(resTy)
		b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvRef, RefMut: e.Operator == "&mut", RefPlace: place, Type: resTy})
		return Copy(loc), resTy, nil

	case "*":
		place, ty, err := b.buildPlace(e)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		return b.readPlace(place, ty), ty, nil

	default: // "-", "!"
		operand, ty, err := b.buildExpr(e.Operand)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		op := ir.OpNeg
		if e.Operator == "!" {
			op = ir.OpNot
		}
		loc := b.newLocal(ty)
		b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvUnary, UnOp: op, Un: operand, Type: ty})
		return Copy(loc), ty, nil
	}
}

func (b *Builder) buildBinary(e *ast.BinaryExpression) (Operand, ir.Type, error) {
	if e.Operator == "&&" || e.Operator == "||" {
		return b.buildShortCircuit(e)
	}
	left, lty, err := b.buildExpr(e.Left)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	right, _, err := b.buildExpr(e.Right)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	resTy := lty
	switch e.Operator {
	case "==", "!=", "<", ">", "<=", ">=":
		resTy = ir.Uint8()
	}
	op, ok := signedAwareBinOp(e.Operator, lty)
	if !ok {
		return Operand{}, ir.Type{}, b.errf(diag.KindTypeMismatch, "unsupported binary operator %q", e.Operator)
	}
	loc := b.newLocal(resTy)
	b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvBinary, BinOp: op, Left: left, Right: right, Type: resTy})
	return Copy(loc), resTy, nil
}

// signedAwareBinOp resolves "/" and "%" to the signed or unsigned IR
// opcode based on the operand type — the one spot this subset's
// operator set isn't a 1:1 map to ir.BinOp the way constfold's is.
func signedAwareBinOp(operator string, ty ir.Type) (ir.BinOp, bool) {
	switch operator {
	case "/":
		if ty.Signed() {
			return ir.OpSDiv, true
		}
		return ir.OpUDiv, true
	case "%":
		if ty.Signed() {
			return ir.OpSMod, true
		}
		return ir.OpUMod, true
	default:
		return binOpOf(operator)
	}
}

// buildShortCircuit lowers `&&`/`||` through an explicit branch rather
// than a binary opcode, since the shared IR has no lazy logical
// operator — the usual short-circuit-via-CFG expansion.
func (b *Builder) buildShortCircuit(e *ast.BinaryExpression) (Operand, ir.Type, error) {
	resultLoc := b.newLocal(ir.Uint8())
	left, _, err := b.buildExpr(e.Left)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	rhsBlk := b.newBlock()
	shortBlk := b.newBlock()
	mergeBlk := b.newBlock()

	if e.Operator == "&&" {
		b.terminate(Terminator{Kind: TermIf, Cond: left, Then: rhsBlk.ID, Else: shortBlk.ID})
	} else {
		b.terminate(Terminator{Kind: TermIf, Cond: left, Then: shortBlk.ID, Else: rhsBlk.ID})
	}

	b.cur = rhsBlk
	right, _, err := b.buildExpr(e.Right)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	b.emitAssign(Place{Local: resultLoc}, Rvalue{Kind: RvUse, Operand: right, Type: ir.Uint8()})
	b.terminate(Terminator{Kind: TermGoto, Goto: mergeBlk.ID})

	b.cur = shortBlk
	shortVal := int64(0)
	if e.Operator == "||" {
		shortVal = 1
	}
	b.emitAssign(Place{Local: resultLoc}, Rvalue{Kind: RvUse, Operand: ConstInt(shortVal), Type: ir.Uint8()})
	b.terminate(Terminator{Kind: TermGoto, Goto: mergeBlk.ID})

	b.cur = mergeBlk
	return Copy(resultLoc), ir.Uint8(), nil
}

func (b *Builder) buildAssign(e *ast.AssignExpression) (Operand, ir.Type, error) {
	place, targetTy, err := b.buildPlace(e.Target)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	value, _, err := b.buildExpr(e.Value)
	if err != nil {
		return Operand{}, ir.Type{}, err
	}
	if e.Operator != "=" {
		cur := b.readPlace(place, targetTy)
		op, _ := signedAwareBinOp(e.Operator[:len(e.Operator)-1], targetTy)
		combinedLoc := b.newLocal(targetTy)
		b.emitAssign(Place{Local: combinedLoc}, Rvalue{Kind: RvBinary, BinOp: op, Left: cur, Right: value, Type: targetTy})
		value = Copy(combinedLoc)
	}
	b.emitAssign(place, Rvalue{Kind: RvUse, Operand: value, Type: targetTy})
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildCall(e *ast.CallExpression) (Operand, ir.Type, error) {
	ident, ok := e.Function.(*ast.Identifier)
	if !ok {
		return Operand{}, ir.Type{}, b.errf(diag.KindTypeMismatch, "call target must be a function name")
	}
	sig := b.funcs[ident.Value]
	args := make([]Operand, len(e.Args))
	for i, a := range e.Args {
		operand, _, err := b.buildExpr(a)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		args[i] = operand
	}
	var dest *Place
	if sig.Return.Kind != ir.TyVoid {
		loc := b.newLocal(sig.Return)
		p := Place{Local: loc}
		dest = &p
	}
	nextBlk := b.newBlock()
	b.terminate(Terminator{Kind: TermCall, CallFunc: ident.Value, CallArgs: args, CallDest: dest, CallTarget: nextBlk.ID})
	b.cur = nextBlk
	if dest != nil {
		return CopyPlace(*dest), sig.Return, nil
	}
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildStructLiteral(e *ast.StructLiteral) (Operand, ir.Type, error) {
	sty, ok := b.types.LookupStruct(e.Name)
	if !ok {
		return Operand{}, ir.Type{}, b.errf(diag.KindUndefinedIdentifier, "undefined struct %q", e.Name)
	}
	var fields []FieldAssign
	for _, f := range e.Fields {
		off, fty, ok := sty.FieldOffset(f.Name)
		if !ok {
			return Operand{}, ir.Type{}, b.errf(diag.KindMemberNotFound, "no field %q on struct %s", f.Name, e.Name)
		}
		val, _, err := b.buildExpr(f.Value)
		if err != nil {
			return Operand{}, ir.Type{}, err
		}
		fields = append(fields, FieldAssign{Offset: off, Type: fty, Value: val})
	}
	loc := b.newLocal(sty)
	b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvAggregate, AggFields: fields, Type: sty})
	return Copy(loc), sty, nil
}
