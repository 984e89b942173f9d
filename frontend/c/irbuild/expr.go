package irbuild

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/ir"
)

// buildAddr lowers an addressable (lvalue) expression to the Value used as
// a Load/Store address operand, plus the type stored at that address.
func (b *Builder) buildAddr(expr ast.Expression) (ir.Value, ir.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if bind, ok := b.scope.resolve(e.Value); ok {
			return bind.Addr, bind.Type, nil
		}
		if bind, ok := b.global.resolve(e.Value); ok {
			return bind.Addr, bind.Type, nil
		}
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
	case *ast.UnaryExpression:
		if e.Operator == "*" {
			ptrVal, ptrTy, err := b.buildRValue(e.Operand)
			if err != nil {
				return ir.Value{}, ir.Type{}, err
			}
			return ptrVal, *ptrTy.Elem, nil
		}
	case *ast.IndexExpression:
		return b.buildIndexAddr(e)
	case *ast.MemberExpression:
		return b.buildMemberAddr(e)
	}
	return ir.Value{}, ir.Type{}, b.errf(0, 0, diag.KindTypeMismatch, "expression is not an lvalue")
}

func (b *Builder) buildIndexAddr(e *ast.IndexExpression) (ir.Value, ir.Type, error) {
	arrTy, err := b.typeOf(e.Array)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}

	var base ir.Value
	if arrTy.Kind == ir.TyArray {
		base, _, err = b.buildAddr(e.Array)
	} else {
		base, _, err = b.buildRValue(e.Array)
	}
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	elemTy := *arrTy.Elem

	idxVal, _, err := b.buildRValue(e.Index)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}

	off := b.newTemp()
	b.emit(ir.Binary(off, ir.OpMul, idxVal, ir.IntConst(int64(elemTy.Size()))))
	addr := b.newTemp()
	b.emit(ir.Binary(addr, ir.OpAdd, base, ir.TempVal(off)))
	return ir.TempVal(addr), elemTy, nil
}

func (b *Builder) buildMemberAddr(e *ast.MemberExpression) (ir.Value, ir.Type, error) {
	var structAddr ir.Value
	var structTy ir.Type
	var err error
	if e.Arrow {
		structAddr, structTy, err = b.buildRValue(e.Object)
		structTy = *structTy.Elem
	} else {
		structAddr, structTy, err = b.buildAddr(e.Object)
	}
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	off, fty, ok := structTy.FieldOffset(e.Field)
	if !ok {
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindMemberNotFound, "struct %q has no member %q", structTy.Name, e.Field)
	}
	if off == 0 {
		return structAddr, fty, nil
	}
	addr := b.newTemp()
	b.emit(ir.Binary(addr, ir.OpAdd, structAddr, ir.IntConst(int64(off))))
	return ir.TempVal(addr), fty, nil
}

// buildRValue lowers expr to the Value holding its result.
func (b *Builder) buildRValue(expr ast.Expression) (ir.Value, ir.Type, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return ir.IntConst(e.Value), ir.Int32(), nil
	case *ast.CharLiteral:
		return ir.IntConst(int64(e.Value)), ir.Int8(), nil
	case *ast.StringLiteral:
		return ir.StringConst(b.internString(e.Value)), ir.Pointer(ir.Uint8()), nil
	case *ast.Identifier, *ast.IndexExpression, *ast.MemberExpression:
		addr, ty, err := b.buildAddr(expr)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		if ty.Kind == ir.TyArray {
			return addr, ir.Pointer(*ty.Elem), nil
		}
		dest := b.newTemp()
		b.emit(ir.Load(dest, addr, ty.Size(), ty.Signed(), ty.Volatile))
		return ir.TempVal(dest), ty, nil
	case *ast.UnaryExpression:
		return b.buildUnary(e)
	case *ast.PostfixExpression:
		return b.buildPostfix(e)
	case *ast.BinaryExpression:
		return b.buildBinary(e)
	case *ast.AssignExpression:
		return b.buildAssign(e)
	case *ast.TernaryExpression:
		return b.buildTernary(e)
	case *ast.CallExpression:
		return b.buildCall(e)
	case *ast.CastExpression:
		val, _, err := b.buildRValue(e.Value)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		ty, err := b.resolveType(e.Type, e.Token.Line, e.Token.Column)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		return val, ty, nil
	case *ast.SizeofExpression:
		var ty ir.Type
		var err error
		if e.Type != nil {
			ty, err = b.resolveType(e.Type, e.Token.Line, e.Token.Column)
		} else {
			ty, err = b.typeOf(e.Value)
		}
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		return ir.IntConst(int64(ty.Size())), ir.Uint32(), nil
	default:
		return ir.Value{}, ir.Type{}, b.errf(0, 0, diag.KindTypeMismatch, "expression cannot be lowered")
	}
}

func (b *Builder) buildUnary(e *ast.UnaryExpression) (ir.Value, ir.Type, error) {
	switch e.Operator {
	case "&":
		addr, ty, err := b.buildAddr(e.Operand)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		return addr, ir.Pointer(ty), nil
	case "++", "--":
		addr, ty, err := b.buildAddr(e.Operand)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		old := b.newTemp()
		b.emit(ir.Load(old, addr, ty.Size(), ty.Signed(), ty.Volatile))
		step := int64(1)
		if ty.Kind == ir.TyPointer {
			step = int64(ty.Elem.Size())
		}
		op := ir.OpAdd
		if e.Operator == "--" {
			op = ir.OpSub
		}
		next := b.newTemp()
		b.emit(ir.Binary(next, op, ir.TempVal(old), ir.IntConst(step)))
		b.emit(ir.Store(addr, ir.TempVal(next), ty.Size(), ty.Volatile))
		return ir.TempVal(next), ty, nil
	}

	val, ty, err := b.buildRValue(e.Operand)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	if e.Operator == "*" {
		dest := b.newTemp()
		elemTy := *ty.Elem
		b.emit(ir.Load(dest, val, elemTy.Size(), elemTy.Signed(), elemTy.Volatile))
		return ir.TempVal(dest), elemTy, nil
	}

	dest := b.newTemp()
	switch e.Operator {
	case "-":
		b.emit(ir.Unary(dest, ir.OpNeg, val))
	case "~":
		b.emit(ir.Unary(dest, ir.OpBitNot, val))
	case "!":
		b.emit(ir.Unary(dest, ir.OpNot, val))
	default:
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "unsupported unary operator %q", e.Operator)
	}
	if e.Operator == "!" {
		ty = ir.Int32()
	}
	return ir.TempVal(dest), ty, nil
}

func (b *Builder) buildPostfix(e *ast.PostfixExpression) (ir.Value, ir.Type, error) {
	addr, ty, err := b.buildAddr(e.Operand)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	old := b.newTemp()
	b.emit(ir.Load(old, addr, ty.Size(), ty.Signed(), ty.Volatile))
	step := int64(1)
	if ty.Kind == ir.TyPointer {
		step = int64(ty.Elem.Size())
	}
	op := ir.OpAdd
	if e.Operator == "--" {
		op = ir.OpSub
	}
	next := b.newTemp()
	b.emit(ir.Binary(next, op, ir.TempVal(old), ir.IntConst(step)))
	b.emit(ir.Store(addr, ir.TempVal(next), ty.Size(), ty.Volatile))
	return ir.TempVal(old), ty, nil
}

var binOps = map[string]ir.BinOp{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul,
	"&": ir.OpAnd, "|": ir.OpOr, "^": ir.OpXor,
	"<<": ir.OpShl, ">>": ir.OpShr,
	"==": ir.OpEq, "!=": ir.OpNe,
	"<": ir.OpLt, "<=": ir.OpLe, ">": ir.OpGt, ">=": ir.OpGe,
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (b *Builder) buildBinary(e *ast.BinaryExpression) (ir.Value, ir.Type, error) {
	if e.Operator == "&&" || e.Operator == "||" {
		return b.buildShortCircuit(e)
	}

	lhs, lty, err := b.buildRValue(e.Left)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	rhs, rty, err := b.buildRValue(e.Right)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}

	resultTy := lty
	if (e.Operator == "+" || e.Operator == "-") && lty.Kind == ir.TyPointer && rty.Kind != ir.TyPointer {
		scaled := b.newTemp()
		b.emit(ir.Binary(scaled, ir.OpMul, rhs, ir.IntConst(int64(lty.Elem.Size()))))
		rhs = ir.TempVal(scaled)
	}

	if e.Operator == "/" || e.Operator == "%" {
		signed := lty.Signed()
		var op ir.BinOp
		if e.Operator == "/" {
			if signed {
				op = ir.OpSDiv
			} else {
				op = ir.OpUDiv
			}
		} else {
			if signed {
				op = ir.OpSMod
			} else {
				op = ir.OpUMod
			}
		}
		dest := b.newTemp()
		b.emit(ir.Binary(dest, op, lhs, rhs))
		return ir.TempVal(dest), resultTy, nil
	}

	op, ok := binOps[e.Operator]
	if !ok {
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "unsupported binary operator %q", e.Operator)
	}
	if isComparison(e.Operator) {
		resultTy = ir.Int32()
	}
	dest := b.newTemp()
	b.emit(ir.Binary(dest, op, lhs, rhs))
	return ir.TempVal(dest), resultTy, nil
}

// buildShortCircuit lowers && and || with branching so the right operand is
// only evaluated when it can affect the result.
func (b *Builder) buildShortCircuit(e *ast.BinaryExpression) (ir.Value, ir.Type, error) {
	lhs, _, err := b.buildRValue(e.Left)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	result := b.newTemp()
	short := b.newLabel(".Lsc")
	end := b.newLabel(".Lscend")

	if e.Operator == "&&" {
		b.emit(ir.CondJumpFalse(lhs, short))
	} else {
		b.emit(ir.CondJumpTrue(lhs, short))
	}

	rhs, _, err := b.buildRValue(e.Right)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	bool1 := b.newTemp()
	b.emit(ir.Binary(bool1, ir.OpNe, rhs, ir.IntConst(0)))
	b.emit(ir.Copy(result, ir.TempVal(bool1)))
	b.emit(ir.Jump(end))

	b.emit(ir.LabelInst(short))
	if e.Operator == "&&" {
		b.emit(ir.Copy(result, ir.IntConst(0)))
	} else {
		b.emit(ir.Copy(result, ir.IntConst(1)))
	}
	b.emit(ir.LabelInst(end))
	return ir.TempVal(result), ir.Int32(), nil
}

func (b *Builder) buildAssign(e *ast.AssignExpression) (ir.Value, ir.Type, error) {
	addr, ty, err := b.buildAddr(e.Target)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}

	if e.Operator == "=" {
		if ty.Kind == ir.TyStruct || ty.Kind == ir.TyArray {
			srcAddr, _, err := b.buildAddr(e.Value)
			if err != nil {
				return ir.Value{}, ir.Type{}, err
			}
			b.copyBlock(addr, srcAddr, ty.Size())
			return addr, ty, nil
		}
		val, _, err := b.buildRValue(e.Value)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		b.emit(ir.Store(addr, val, ty.Size(), ty.Volatile))
		return val, ty, nil
	}

	old := b.newTemp()
	b.emit(ir.Load(old, addr, ty.Size(), ty.Signed(), ty.Volatile))
	rhs, _, err := b.buildRValue(e.Value)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	if (e.Operator == "+=" || e.Operator == "-=") && ty.Kind == ir.TyPointer {
		scaled := b.newTemp()
		b.emit(ir.Binary(scaled, ir.OpMul, rhs, ir.IntConst(int64(ty.Elem.Size()))))
		rhs = ir.TempVal(scaled)
	}
	var op ir.BinOp
	switch e.Operator {
	case "+=":
		op = ir.OpAdd
	case "-=":
		op = ir.OpSub
	case "*=":
		op = ir.OpMul
	case "/=":
		if ty.Signed() {
			op = ir.OpSDiv
		} else {
			op = ir.OpUDiv
		}
	default:
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "unsupported compound assignment %q", e.Operator)
	}
	next := b.newTemp()
	b.emit(ir.Binary(next, op, ir.TempVal(old), rhs))
	b.emit(ir.Store(addr, ir.TempVal(next), ty.Size(), ty.Volatile))
	return ir.TempVal(next), ty, nil
}

func (b *Builder) buildTernary(e *ast.TernaryExpression) (ir.Value, ir.Type, error) {
	cond, _, err := b.buildRValue(e.Condition)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	elseLbl := b.newLabel(".Lternelse")
	endLbl := b.newLabel(".Lternend")
	b.emit(ir.CondJumpFalse(cond, elseLbl))

	result := b.newTemp()
	thenVal, ty, err := b.buildRValue(e.Then)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	b.emit(ir.Copy(result, thenVal))
	b.emit(ir.Jump(endLbl))

	b.emit(ir.LabelInst(elseLbl))
	elseVal, _, err := b.buildRValue(e.Else)
	if err != nil {
		return ir.Value{}, ir.Type{}, err
	}
	b.emit(ir.Copy(result, elseVal))
	b.emit(ir.LabelInst(endLbl))
	return ir.TempVal(result), ty, nil
}

func (b *Builder) buildCall(e *ast.CallExpression) (ir.Value, ir.Type, error) {
	name, ok := e.Function.(*ast.Identifier)
	if !ok {
		return ir.Value{}, ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "call target is not a function name")
	}
	sig, ok := b.funcs[name.Value]
	if !ok {
		return ir.Value{}, ir.Type{}, b.errf(name.Token.Line, name.Token.Column, diag.KindUndefinedIdentifier, "call to undeclared function %q", name.Value)
	}
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		val, _, err := b.buildRValue(a)
		if err != nil {
			return ir.Value{}, ir.Type{}, err
		}
		args[i] = val
	}
	if sig.Return.Kind == ir.TyVoid {
		b.emit(ir.Call(nil, name.Value, args))
		return ir.Value{}, ir.Void(), nil
	}
	dest := b.newTemp()
	destT := dest
	b.emit(ir.Call(&destT, name.Value, args))
	return ir.TempVal(dest), sig.Return, nil
}

// copyBlock copies n bytes from src to dst in 4/2/1-byte chunks, used for
// whole-struct and whole-array assignment.
func (b *Builder) copyBlock(dst, src ir.Value, n int) {
	off := 0
	for n-off >= 4 {
		t := b.newTemp()
		b.emit(ir.Load(t, offsetAddr(b, src, off), 4, false, false))
		b.emit(ir.Store(offsetAddr(b, dst, off), ir.TempVal(t), 4, false))
		off += 4
	}
	for n-off >= 2 {
		t := b.newTemp()
		b.emit(ir.Load(t, offsetAddr(b, src, off), 2, false, false))
		b.emit(ir.Store(offsetAddr(b, dst, off), ir.TempVal(t), 2, false))
		off += 2
	}
	for n-off >= 1 {
		t := b.newTemp()
		b.emit(ir.Load(t, offsetAddr(b, src, off), 1, false, false))
		b.emit(ir.Store(offsetAddr(b, dst, off), ir.TempVal(t), 1, false))
		off += 1
	}
}

func offsetAddr(b *Builder, base ir.Value, off int) ir.Value {
	if off == 0 {
		return base
	}
	t := b.newTemp()
	b.emit(ir.Binary(t, ir.OpAdd, base, ir.IntConst(int64(off))))
	return ir.TempVal(t)
}

// typeOf computes expr's static type without emitting any instructions,
// for contexts (sizeof) that need only the type.
func (b *Builder) typeOf(expr ast.Expression) (ir.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if bind, ok := b.scope.resolve(e.Value); ok {
			return bind.Type, nil
		}
		if bind, ok := b.global.resolve(e.Value); ok {
			return bind.Type, nil
		}
		if sig, ok := b.funcs[e.Value]; ok {
			return sig.Return, nil
		}
		return ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
	case *ast.IntLiteral:
		return ir.Int32(), nil
	case *ast.CharLiteral:
		return ir.Int8(), nil
	case *ast.StringLiteral:
		return ir.Pointer(ir.Uint8()), nil
	case *ast.UnaryExpression:
		if e.Operator == "&" {
			ty, err := b.typeOf(e.Operand)
			return ir.Pointer(ty), err
		}
		if e.Operator == "*" {
			ty, err := b.typeOf(e.Operand)
			if err != nil {
				return ir.Type{}, err
			}
			return *ty.Elem, nil
		}
		return b.typeOf(e.Operand)
	case *ast.PostfixExpression:
		return b.typeOf(e.Operand)
	case *ast.BinaryExpression:
		if isComparison(e.Operator) || e.Operator == "&&" || e.Operator == "||" {
			return ir.Int32(), nil
		}
		return b.typeOf(e.Left)
	case *ast.AssignExpression:
		return b.typeOf(e.Target)
	case *ast.TernaryExpression:
		return b.typeOf(e.Then)
	case *ast.CallExpression:
		if name, ok := e.Function.(*ast.Identifier); ok {
			if sig, ok := b.funcs[name.Value]; ok {
				return sig.Return, nil
			}
		}
		return ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindUndefinedIdentifier, "call to undeclared function")
	case *ast.IndexExpression:
		ty, err := b.typeOf(e.Array)
		if err != nil {
			return ir.Type{}, err
		}
		return *ty.Elem, nil
	case *ast.MemberExpression:
		ty, err := b.typeOf(e.Object)
		if err != nil {
			return ir.Type{}, err
		}
		if e.Arrow {
			ty = *ty.Elem
		}
		_, fty, ok := ty.FieldOffset(e.Field)
		if !ok {
			return ir.Type{}, b.errf(e.Token.Line, e.Token.Column, diag.KindMemberNotFound, "struct %q has no member %q", ty.Name, e.Field)
		}
		return fty, nil
	case *ast.CastExpression:
		return b.resolveType(e.Type, e.Token.Line, e.Token.Column)
	case *ast.SizeofExpression:
		return ir.Uint32(), nil
	default:
		return ir.Type{}, b.errf(0, 0, diag.KindTypeMismatch, "cannot determine type of expression")
	}
}
