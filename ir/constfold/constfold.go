// Package constfold evaluates constant expressions that appear in global
// initializers. Both front-ends translate their own expression ASTs into
// the small Expr tree below before handing it to Eval; this keeps the
// evaluator itself front-end-agnostic, mirroring how rush/compiler.go keeps
// its emitter decoupled from any one AST shape by switching on a closed
// set of node kinds.
package constfold

import (
	"fmt"

	"smdc/diag"
	"smdc/ir"
)

// Kind discriminates the constant-expression tree.
type Kind int

const (
	KindInt Kind = iota
	KindSizeof
	KindUnary
	KindBinary
	KindTernary
	KindCast
)

// Expr is a constant-evaluable expression node.
type Expr struct {
	Kind Kind
	Span diag.Span

	IntVal int64 // KindInt

	SizeofType ir.Type // KindSizeof

	UnOp ir.UnOp // KindUnary
	X    *Expr

	BinOp ir.BinOp // KindBinary
	L, R  *Expr

	Cond, Then, Else *Expr // KindTernary

	CastType ir.Type // KindCast (pass-through: value is reinterpreted, not converted)
}

func IntLit(v int64, span diag.Span) *Expr { return &Expr{Kind: KindInt, IntVal: v, Span: span} }

func Sizeof(t ir.Type, span diag.Span) *Expr { return &Expr{Kind: KindSizeof, SizeofType: t, Span: span} }

func Unary(op ir.UnOp, x *Expr, span diag.Span) *Expr {
	return &Expr{Kind: KindUnary, UnOp: op, X: x, Span: span}
}

func Binary(op ir.BinOp, l, r *Expr, span diag.Span) *Expr {
	return &Expr{Kind: KindBinary, BinOp: op, L: l, R: r, Span: span}
}

func Ternary(cond, then, els *Expr, span diag.Span) *Expr {
	return &Expr{Kind: KindTernary, Cond: cond, Then: then, Else: els, Span: span}
}

func Cast(t ir.Type, x *Expr, span diag.Span) *Expr {
	return &Expr{Kind: KindCast, CastType: t, X: x, Span: span}
}

// Eval folds a constant expression tree to an int64. Identifiers, function
// calls, and floating point are not representable in Expr at all — the
// front-end must reject those before building one, with
// diag.KindNonConstantExpr, per the design note this package implements.
func Eval(e *Expr) (int64, error) {
	switch e.Kind {
	case KindInt:
		return e.IntVal, nil
	case KindSizeof:
		return int64(e.SizeofType.Size()), nil
	case KindUnary:
		x, err := Eval(e.X)
		if err != nil {
			return 0, err
		}
		switch e.UnOp {
		case ir.OpNeg:
			return -x, nil
		case ir.OpNot:
			if x == 0 {
				return 1, nil
			}
			return 0, nil
		case ir.OpBitNot:
			return ^x, nil
		default:
			return 0, diag.New(diag.KindNonConstantExpr, e.Span, "unsupported unary operator in constant expression")
		}
	case KindBinary:
		l, err := Eval(e.L)
		if err != nil {
			return 0, err
		}
		r, err := Eval(e.R)
		if err != nil {
			return 0, err
		}
		switch e.BinOp {
		case ir.OpAdd:
			return l + r, nil
		case ir.OpSub:
			return l - r, nil
		case ir.OpMul:
			return l * r, nil
		case ir.OpSDiv:
			if r == 0 {
				return 0, diag.New(diag.KindDivisionByZero, e.Span, "division by zero")
			}
			return l / r, nil
		case ir.OpSMod:
			if r == 0 {
				return 0, diag.New(diag.KindDivisionByZero, e.Span, "division by zero")
			}
			return l % r, nil
		case ir.OpAnd:
			return l & r, nil
		case ir.OpOr:
			return l | r, nil
		case ir.OpXor:
			return l ^ r, nil
		case ir.OpShl:
			return l << uint(r), nil
		case ir.OpShr:
			return l >> uint(r), nil
		case ir.OpEq:
			return boolInt(l == r), nil
		case ir.OpNe:
			return boolInt(l != r), nil
		case ir.OpLt:
			return boolInt(l < r), nil
		case ir.OpLe:
			return boolInt(l <= r), nil
		case ir.OpGt:
			return boolInt(l > r), nil
		case ir.OpGe:
			return boolInt(l >= r), nil
		default:
			return 0, diag.New(diag.KindNonConstantExpr, e.Span, "unsupported binary operator in constant expression")
		}
	case KindTernary:
		cond, err := Eval(e.Cond)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return Eval(e.Then)
		}
		return Eval(e.Else)
	case KindCast:
		// Pass-through: casts of a constant expression reinterpret width,
		// they don't change the evaluated int64.
		return Eval(e.X)
	default:
		return 0, diag.New(diag.KindNonConstantExpr, e.Span, "not a constant expression")
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// EvalBytes evaluates e and renders it as a big-endian byte sequence sized
// to t, the shape every Global.Init and compound-initializer element needs.
func EvalBytes(e *Expr, t ir.Type) ([]byte, error) {
	v, err := Eval(e)
	if err != nil {
		return nil, err
	}
	size := t.Size()
	if size == 0 || size > 8 {
		return nil, fmt.Errorf("constfold: cannot size constant to type %v", t.Kind)
	}
	out := make([]byte, size)
	u := uint64(v)
	for i := 0; i < size; i++ {
		shift := uint((size - 1 - i) * 8)
		out[i] = byte(u >> shift)
	}
	return out, nil
}
