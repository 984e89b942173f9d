package mir

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/ir"
)

// buildPlace resolves expr to a Place without reading through it — the
// MIR-level counterpart of sema.Checker.checkPlace, and for the same
// reason: an assignment target, the operand of `&`/`&mut`/`*`, or the
// object of a field/index access must not materialize a Load the way a
// value-position use would.
func (b *Builder) buildPlace(expr ast.Expression) (Place, ir.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		bind, ok := b.scope.resolve(e.Value)
		if !ok {
			return Place{}, ir.Type{}, b.errf(diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
		}
		return Place{Local: bind.Local}, bind.Type, nil

	case *ast.FieldExpression:
		objPlace, objTy, err := b.buildPlace(e.Object)
		if err != nil {
			return Place{}, ir.Type{}, err
		}
		base := objTy
		if base.Kind == ir.TyPointer {
			objPlace = objPlace.WithProj(Projection{Kind: ProjDeref, Type: *base.Elem})
			base = *base.Elem
		}
		off, fty, ok := base.FieldOffset(e.Field)
		if !ok {
			return Place{}, ir.Type{}, b.errf(diag.KindMemberNotFound, "no field %q on struct %s", e.Field, base.Name)
		}
		return objPlace.WithProj(Projection{Kind: ProjField, Offset: off, Type: fty}), fty, nil

	case *ast.IndexExpression:
		arrPlace, arrTy, err := b.buildPlace(e.Array)
		if err != nil {
			return Place{}, ir.Type{}, err
		}
		base := arrTy
		if base.Kind == ir.TyPointer {
			arrPlace = arrPlace.WithProj(Projection{Kind: ProjDeref, Type: *base.Elem})
			base = *base.Elem
		}
		idxOperand, _, err := b.buildExpr(e.Index)
		if err != nil {
			return Place{}, ir.Type{}, err
		}
		elem := *base.Elem
		idx := idxOperand
		return arrPlace.WithProj(Projection{Kind: ProjIndex, Index: &idx, Stride: elem.Size(), Type: elem}), elem, nil

	case *ast.UnaryExpression:
		if e.Operator == "*" {
			ptrOperand, ptrTy, err := b.buildExpr(e.Operand)
			if err != nil {
				return Place{}, ir.Type{}, err
			}
			ptrLoc := b.materialize(ptrOperand, ptrTy)
			elem := *ptrTy.Elem
			return Place{Local: ptrLoc}.WithProj(Projection{Kind: ProjDeref, Type: elem}), elem, nil
		}
	}
	op, ty, err := b.buildExpr(expr)
	if err != nil {
		return Place{}, ir.Type{}, err
	}
	return Place{Local: b.materialize(op, ty)}, ty, nil
}
