package irbuild

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/ir"
	"smdc/ir/constfold"
)

// toConstExpr translates a C constant-expression AST node into the
// front-end-agnostic constfold.Expr tree, rejecting anything not
// representable (identifiers, calls, floats) with KindNonConstantExpr.
func (b *Builder) toConstExpr(expr ast.Expression) (*constfold.Expr, error) {
	span := diag.Span{File: b.file}
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return constfold.IntLit(e.Value, span), nil
	case *ast.CharLiteral:
		return constfold.IntLit(int64(e.Value), span), nil
	case *ast.UnaryExpression:
		var op ir.UnOp
		switch e.Operator {
		case "-":
			op = ir.OpNeg
		case "~":
			op = ir.OpBitNot
		case "!":
			op = ir.OpNot
		default:
			return nil, b.errf(e.Token.Line, e.Token.Column, diag.KindNonConstantExpr, "operator %q is not constant-foldable", e.Operator)
		}
		x, err := b.toConstExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		return constfold.Unary(op, x, span), nil
	case *ast.BinaryExpression:
		var op ir.BinOp
		switch e.Operator {
		case "/":
			op = ir.OpSDiv
		case "%":
			op = ir.OpSMod
		default:
			var ok bool
			op, ok = binOps[e.Operator]
			if !ok {
				return nil, b.errf(e.Token.Line, e.Token.Column, diag.KindNonConstantExpr, "operator %q is not constant-foldable", e.Operator)
			}
		}
		l, err := b.toConstExpr(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.toConstExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return constfold.Binary(op, l, r, span), nil
	case *ast.TernaryExpression:
		cond, err := b.toConstExpr(e.Condition)
		if err != nil {
			return nil, err
		}
		then, err := b.toConstExpr(e.Then)
		if err != nil {
			return nil, err
		}
		els, err := b.toConstExpr(e.Else)
		if err != nil {
			return nil, err
		}
		return constfold.Ternary(cond, then, els, span), nil
	case *ast.SizeofExpression:
		var ty ir.Type
		var err error
		if e.Type != nil {
			ty, err = b.resolveType(e.Type, e.Token.Line, e.Token.Column)
		} else {
			ty, err = b.typeOf(e.Value)
		}
		if err != nil {
			return nil, err
		}
		return constfold.Sizeof(ty, span), nil
	case *ast.CastExpression:
		ty, err := b.resolveType(e.Type, e.Token.Line, e.Token.Column)
		if err != nil {
			return nil, err
		}
		x, err := b.toConstExpr(e.Value)
		if err != nil {
			return nil, err
		}
		return constfold.Cast(ty, x, span), nil
	default:
		return nil, b.errf(0, 0, diag.KindNonConstantExpr, "expression is not a compile-time constant")
	}
}

// constEvalInt folds a compile-time-constant integer expression, the form
// required for switch case labels.
func (b *Builder) constEvalInt(expr ast.Expression) (int64, error) {
	ce, err := b.toConstExpr(expr)
	if err != nil {
		return 0, err
	}
	return constfold.Eval(ce)
}

// encodeGlobalInit produces a global's big-endian initial-image bytes,
// zero-filled when init is nil.
func (b *Builder) encodeGlobalInit(ty ir.Type, init ast.Expression) ([]byte, error) {
	buf := make([]byte, ty.Size())
	if init == nil {
		return buf, nil
	}
	if err := b.encodeInto(buf, 0, ty, init); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Builder) encodeInto(buf []byte, off int, ty ir.Type, init ast.Expression) error {
	if ci, ok := init.(*ast.CompoundInit); ok {
		switch ty.Kind {
		case ir.TyArray:
			elemTy := *ty.Elem
			for i := 0; i < ty.Len && i < len(ci.Elements); i++ {
				if err := b.encodeInto(buf, off+i*elemTy.Size(), elemTy, ci.Elements[i]); err != nil {
					return err
				}
			}
			return nil
		case ir.TyStruct:
			for i, m := range ty.Members {
				if i >= len(ci.Elements) {
					break
				}
				foff, _, _ := ty.FieldOffset(m.Name)
				if err := b.encodeInto(buf, off+foff, m.Type, ci.Elements[i]); err != nil {
					return err
				}
			}
			return nil
		default:
			return b.errf(0, 0, diag.KindTypeMismatch, "brace initializer used on a scalar type")
		}
	}

	if ty.Kind == ir.TyArray && ty.Elem.Size() == 1 {
		if sl, ok := init.(*ast.StringLiteral); ok {
			data := append([]byte(sl.Value), 0)
			for i := 0; i < ty.Len && i < len(data); i++ {
				buf[off+i] = data[i]
			}
			return nil
		}
	}

	if ty.Kind == ir.TyPointer || ty.Kind == ir.TyStruct || ty.Kind == ir.TyArray {
		return b.errf(0, 0, diag.KindNonConstantExpr, "global initializer requires link-time relocation, unsupported here")
	}

	ce, err := b.toConstExpr(init)
	if err != nil {
		return err
	}
	encoded, err := constfold.EvalBytes(ce, ty)
	if err != nil {
		return err
	}
	copy(buf[off:off+ty.Size()], encoded)
	return nil
}
