package mir

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/ir"
	"smdc/ir/constfold"
)

// toConstExpr translates a module-constant initializer into the shared
// constfold.Expr tree, the same bridge the C front-end's global
// initializers use to reach constfold.Eval without constfold knowing
// anything about either front-end's AST.
func (b *Builder) toConstExpr(expr ast.Expression) (*constfold.Expr, error) {
	span := diag.Span{File: b.file}
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return constfold.IntLit(e.Value, span), nil
	case *ast.BoolLiteral:
		v := int64(0)
		if e.Value {
			v = 1
		}
		return constfold.IntLit(v, span), nil
	case *ast.Identifier:
		if v, ok := b.consts[e.Value]; ok {
			return constfold.IntLit(v, span), nil
		}
		return nil, b.errf(diag.KindNonConstantExpr, "%q is not a constant", e.Value)
	case *ast.UnaryExpression:
		var op ir.UnOp
		switch e.Operator {
		case "-":
			op = ir.OpNeg
		case "!":
			op = ir.OpNot
		default:
			return nil, b.errf(diag.KindNonConstantExpr, "operator %q is not allowed in a constant expression", e.Operator)
		}
		x, err := b.toConstExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		return constfold.Unary(op, x, span), nil
	case *ast.BinaryExpression:
		op, ok := binOpOf(e.Operator)
		if !ok {
			return nil, b.errf(diag.KindNonConstantExpr, "operator %q is not allowed in a constant expression", e.Operator)
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
	case *ast.CastExpression:
		ty, err := b.types.Resolve(e.Type, span)
		if err != nil {
			return nil, err
		}
		x, err := b.toConstExpr(e.Value)
		if err != nil {
			return nil, err
		}
		return constfold.Cast(ty, x, span), nil
	default:
		return nil, b.errf(diag.KindNonConstantExpr, "not a constant expression")
	}
}

func (b *Builder) evalConstInt(expr ast.Expression) (int64, error) {
	ce, err := b.toConstExpr(expr)
	if err != nil {
		return 0, err
	}
	return constfold.Eval(ce)
}

func binOpOf(operator string) (ir.BinOp, bool) {
	switch operator {
	case "+":
		return ir.OpAdd, true
	case "-":
		return ir.OpSub, true
	case "*":
		return ir.OpMul, true
	case "/":
		return ir.OpSDiv, true
	case "%":
		return ir.OpSMod, true
	case "&":
		return ir.OpAnd, true
	case "|":
		return ir.OpOr, true
	case "^":
		return ir.OpXor, true
	case "<<":
		return ir.OpShl, true
	case ">>":
		return ir.OpShr, true
	case "==":
		return ir.OpEq, true
	case "!=":
		return ir.OpNe, true
	case "<":
		return ir.OpLt, true
	case ">":
		return ir.OpGt, true
	case "<=":
		return ir.OpLe, true
	case ">=":
		return ir.OpGe, true
	default:
		return 0, false
	}
}
