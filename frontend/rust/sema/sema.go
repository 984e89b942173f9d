// Package sema resolves names and types over a parsed Rust-like subset
// program and reports the semantic failures spec.md enumerates for this
// front-end: undefined identifiers, type mismatches, break/continue
// outside a loop, and use of a moved value.
//
// Grounded on frontend/c/sema's Checker shape (Outer-chained Scope,
// fail-fast single-error Check pass), extended with a move-tracking
// discipline the C front-end has no need for: every scope binding
// carries a Moved flag, flipped when a move-only value (a struct, array,
// or enum — never a primitive scalar or reference) is read by value, and
// checked again before any later read.
package sema

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/frontend/rust/lexer"
	"smdc/ir"
)

// FuncSig is a checked function's call shape.
type FuncSig struct {
	Params []ir.Type
	Return ir.Type
}

// Checker resolves names and types over one parsed program, surfacing
// the first semantic error it finds.
type Checker struct {
	file    string
	Types   *TypeTable
	Funcs   map[string]FuncSig
	globals *Scope

	currentReturn ir.Type
	loopDepth     int
}

func NewChecker(file string) *Checker {
	return &Checker{
		file:    file,
		Types:   NewTypeTable(),
		Funcs:   make(map[string]FuncSig),
		globals: NewScope(nil),
	}
}

func (c *Checker) spanOf(tok lexer.Token) diag.Span {
	return diag.Span{File: c.file, Line: tok.Line, Column: tok.Column}
}

func (c *Checker) errf(tok lexer.Token, kind diag.Kind, format string, args ...interface{}) error {
	return diag.New(kind, c.spanOf(tok), format, args...)
}

// Check walks prog, registering every top-level item and then checking
// each function body.
func (c *Checker) Check(prog *ast.Program) error {
	// Pass 1: struct and enum shapes need to exist before any
	// declaration referencing them is resolved.
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.StructItem:
			if err := c.registerStruct(it); err != nil {
				return err
			}
		case *ast.EnumItem:
			if err := c.registerEnum(it); err != nil {
				return err
			}
		}
	}

	// Pass 2: module constants, which may themselves reference structs
	// and enums from pass 1.
	for _, item := range prog.Items {
		if it, ok := item.(*ast.ConstItem); ok {
			if err := c.registerConst(c.globals, it); err != nil {
				return err
			}
		}
	}

	// Pass 3: function signatures, so forward and mutually recursive
	// calls resolve regardless of declaration order.
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FunctionItem); ok {
			if err := c.registerFunction(fn); err != nil {
				return err
			}
		}
	}

	// Pass 4: check every function body.
	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FunctionItem); ok {
			if err := c.checkFunction(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) registerStruct(item *ast.StructItem) error {
	var members []ir.Member
	for _, f := range item.Fields {
		fty, err := c.Types.Resolve(f.Type, c.spanOf(item.Token))
		if err != nil {
			return err
		}
		members = append(members, ir.Member{Name: f.Name, Type: fty})
	}
	c.Types.DefineStruct(item.Name, ir.Struct(item.Name, members))
	return nil
}

func (c *Checker) registerEnum(item *ast.EnumItem) error {
	info := &EnumInfo{Name: item.Name}
	for i, v := range item.Variants {
		var fieldTypes []ir.Type
		for _, ft := range v.Fields {
			t, err := c.Types.Resolve(ft, c.spanOf(item.Token))
			if err != nil {
				return err
			}
			fieldTypes = append(fieldTypes, t)
		}
		info.Variants = append(info.Variants, EnumVariantInfo{Name: v.Name, Discriminant: i, FieldTypes: fieldTypes})
	}
	c.Types.DefineEnum(info)
	return nil
}

func (c *Checker) registerConst(scope *Scope, item *ast.ConstItem) error {
	declTy, err := c.Types.Resolve(item.Type, c.spanOf(item.Token))
	if err != nil {
		return err
	}
	vty, err := c.checkExpr(scope, item.Value)
	if err != nil {
		return err
	}
	if !typesCompatible(declTy, vty) {
		return c.errf(item.Token, diag.KindTypeMismatch, "const %q initializer does not match its declared type", item.Name)
	}
	scope.Define(item.Name, declTy, false)
	return nil
}

func (c *Checker) registerFunction(fn *ast.FunctionItem) error {
	ret, err := c.Types.Resolve(fn.Return, c.spanOf(fn.Token))
	if err != nil {
		return err
	}
	var params []ir.Type
	for _, p := range fn.Params {
		pty, err := c.Types.Resolve(p.Type, c.spanOf(fn.Token))
		if err != nil {
			return err
		}
		params = append(params, pty)
	}
	if _, exists := c.Funcs[fn.Name]; exists {
		return c.errf(fn.Token, diag.KindDuplicateDefinition, "duplicate function %q", fn.Name)
	}
	c.Funcs[fn.Name] = FuncSig{Params: params, Return: ret}
	return nil
}

func (c *Checker) checkFunction(fn *ast.FunctionItem) error {
	sig := c.Funcs[fn.Name]
	scope := NewScope(c.globals)
	for i, p := range fn.Params {
		scope.Define(p.Name, sig.Params[i], p.Mut)
	}
	prevReturn, prevDepth := c.currentReturn, c.loopDepth
	c.currentReturn, c.loopDepth = sig.Return, 0
	bodyTy, err := c.checkBlockIn(scope, fn.Body)
	c.currentReturn, c.loopDepth = prevReturn, prevDepth
	if err != nil {
		return err
	}
	if sig.Return.Kind != ir.TyVoid && fn.Body.Tail != nil && !typesCompatible(sig.Return, bodyTy) {
		return c.errf(fn.Token, diag.KindTypeMismatch, "function %q's body does not evaluate to its declared return type", fn.Name)
	}
	return nil
}

// checkBlock opens a fresh child scope and checks block inside it,
// returning the type of the block's tail expression (unit if none).
func (c *Checker) checkBlock(parent *Scope, block *ast.BlockExpr) (ir.Type, error) {
	return c.checkBlockIn(NewScope(parent), block)
}

func (c *Checker) checkBlockIn(scope *Scope, block *ast.BlockExpr) (ir.Type, error) {
	for _, stmt := range block.Statements {
		if err := c.checkStatement(scope, stmt); err != nil {
			return ir.Type{}, err
		}
	}
	if block.Tail != nil {
		return c.checkExpr(scope, block.Tail)
	}
	return ir.Void(), nil
}

func (c *Checker) checkStatement(scope *Scope, stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		return c.checkLet(scope, s)
	case *ast.ExprStatement:
		_, err := c.checkExpr(scope, s.Expr)
		return err
	case *ast.ItemStatement:
		switch it := s.Item.(type) {
		case *ast.StructItem:
			return c.registerStruct(it)
		case *ast.EnumItem:
			return c.registerEnum(it)
		case *ast.ConstItem:
			return c.registerConst(scope, it)
		default:
			return nil
		}
	default:
		return nil
	}
}

func (c *Checker) checkLet(scope *Scope, s *ast.LetStatement) error {
	var ty ir.Type
	if s.Value != nil {
		vty, err := c.checkExpr(scope, s.Value)
		if err != nil {
			return err
		}
		ty = vty
		if s.Type != nil {
			declTy, err := c.Types.Resolve(s.Type, c.spanOf(s.Token))
			if err != nil {
				return err
			}
			if !typesCompatible(declTy, vty) {
				return c.errf(s.Token, diag.KindTypeMismatch, "let %q initializer does not match its declared type", s.Name)
			}
			ty = declTy
		}
	} else {
		if s.Type == nil {
			return c.errf(s.Token, diag.KindTypeMismatch, "let %q needs either a type annotation or an initializer", s.Name)
		}
		declTy, err := c.Types.Resolve(s.Type, c.spanOf(s.Token))
		if err != nil {
			return err
		}
		ty = declTy
	}
	scope.Define(s.Name, ty, s.Mut)
	return nil
}

// checkPlace resolves the type of an lvalue-ish expression (one that
// names a storage location) without marking any identifier it touches
// as moved — reading through a place to borrow or overwrite it is not a
// move of the whole binding.
func (c *Checker) checkPlace(scope *Scope, expr ast.Expression) (ir.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		vi, ok := scope.resolve(e.Value)
		if !ok {
			return ir.Type{}, c.errf(e.Token, diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
		}
		return vi.Type, nil
	case *ast.FieldExpression:
		objTy, err := c.checkPlace(scope, e.Object)
		if err != nil {
			return ir.Type{}, err
		}
		base := objTy
		if base.Kind == ir.TyPointer {
			base = *base.Elem
		}
		if base.Kind != ir.TyStruct {
			return ir.Type{}, c.errf(e.Token, diag.KindMemberNotFound, "%q is not a struct value", e.Field)
		}
		_, fty, ok := base.FieldOffset(e.Field)
		if !ok {
			return ir.Type{}, c.errf(e.Token, diag.KindMemberNotFound, "no field %q on struct %s", e.Field, base.Name)
		}
		return fty, nil
	case *ast.IndexExpression:
		arrTy, err := c.checkPlace(scope, e.Array)
		if err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(scope, e.Index); err != nil {
			return ir.Type{}, err
		}
		base := arrTy
		if base.Kind == ir.TyPointer {
			base = *base.Elem
		}
		if base.Kind != ir.TyArray {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "cannot index a non-array value")
		}
		return *base.Elem, nil
	case *ast.UnaryExpression:
		if e.Operator == "*" {
			ty, err := c.checkExpr(scope, e.Operand)
			if err != nil {
				return ir.Type{}, err
			}
			if ty.Kind != ir.TyPointer {
				return ir.Type{}, c.errf(e.Token, diag.KindDerefOfNonPointer, "cannot dereference a non-pointer value")
			}
			return *ty.Elem, nil
		}
	}
	return c.checkExpr(scope, expr)
}

// checkExpr resolves expr's type in value (rvalue) position: a bare
// identifier read here is a use that moves a move-only binding.
func (c *Checker) checkExpr(scope *Scope, expr ast.Expression) (ir.Type, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return ir.Int32(), nil
	case *ast.BoolLiteral:
		return ir.Uint8(), nil
	case *ast.StringLiteral:
		return ir.Pointer(ir.Uint8()), nil

	case *ast.Identifier:
		vi, ok := scope.resolve(e.Value)
		if !ok {
			return ir.Type{}, c.errf(e.Token, diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
		}
		if vi.Moved {
			return ir.Type{}, c.errf(e.Token, diag.KindUseOfMovedValue, "use of moved value %q", e.Value)
		}
		if isMoveOnly(vi.Type) {
			vi.Moved = true
		}
		return vi.Type, nil

	case *ast.UnaryExpression:
		return c.checkUnary(scope, e)

	case *ast.BinaryExpression:
		return c.checkBinary(scope, e)

	case *ast.AssignExpression:
		return c.checkAssign(scope, e)

	case *ast.CallExpression:
		return c.checkCall(scope, e)

	case *ast.FieldExpression:
		objTy, err := c.checkPlace(scope, e.Object)
		if err != nil {
			return ir.Type{}, err
		}
		base := objTy
		if base.Kind == ir.TyPointer {
			base = *base.Elem
		}
		if base.Kind != ir.TyStruct {
			return ir.Type{}, c.errf(e.Token, diag.KindMemberNotFound, "%q is not a struct value", e.Field)
		}
		_, fty, ok := base.FieldOffset(e.Field)
		if !ok {
			return ir.Type{}, c.errf(e.Token, diag.KindMemberNotFound, "no field %q on struct %s", e.Field, base.Name)
		}
		return fty, nil

	case *ast.IndexExpression:
		return c.checkPlace(scope, e)

	case *ast.CastExpression:
		if _, err := c.checkExpr(scope, e.Value); err != nil {
			return ir.Type{}, err
		}
		return c.Types.Resolve(e.Type, c.spanOf(e.Token))

	case *ast.RangeExpression:
		if _, err := c.checkExpr(scope, e.Low); err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(scope, e.High); err != nil {
			return ir.Type{}, err
		}
		return ir.Uint32(), nil

	case *ast.StructLiteral:
		return c.checkStructLiteral(scope, e)

	case *ast.BlockExpr:
		return c.checkBlock(scope, e)

	case *ast.IfExpr:
		return c.checkIf(scope, e)

	case *ast.WhileExpr:
		if _, err := c.checkExpr(scope, e.Condition); err != nil {
			return ir.Type{}, err
		}
		c.loopDepth++
		_, err := c.checkBlock(scope, e.Body)
		c.loopDepth--
		return ir.Void(), err

	case *ast.LoopExpr:
		c.loopDepth++
		_, err := c.checkBlock(scope, e.Body)
		c.loopDepth--
		return ir.Void(), err

	case *ast.ForExpr:
		lowTy, err := c.checkExpr(scope, e.Range.Low)
		if err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(scope, e.Range.High); err != nil {
			return ir.Type{}, err
		}
		inner := NewScope(scope)
		inner.Define(e.Name, lowTy, false)
		c.loopDepth++
		_, err = c.checkBlockIn(inner, e.Body)
		c.loopDepth--
		return ir.Void(), err

	case *ast.MatchExpr:
		return c.checkMatch(scope, e)

	case *ast.ReturnExpr:
		if e.Value != nil {
			vty, err := c.checkExpr(scope, e.Value)
			if err != nil {
				return ir.Type{}, err
			}
			if !typesCompatible(c.currentReturn, vty) {
				return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "returned value does not match the function's return type")
			}
		} else if c.currentReturn.Kind != ir.TyVoid {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "missing return value")
		}
		return ir.Void(), nil

	case *ast.BreakExpr:
		if c.loopDepth == 0 {
			return ir.Type{}, c.errf(e.Token, diag.KindBreakOutsideLoop, "break outside a loop")
		}
		return ir.Void(), nil

	case *ast.ContinueExpr:
		if c.loopDepth == 0 {
			return ir.Type{}, c.errf(e.Token, diag.KindContinueOutsideLoop, "continue outside a loop")
		}
		return ir.Void(), nil
	}
	return ir.Type{}, diag.New(diag.KindTypeMismatch, diag.Span{File: c.file}, "unsupported expression form")
}

func (c *Checker) checkUnary(scope *Scope, e *ast.UnaryExpression) (ir.Type, error) {
	switch e.Operator {
	case "&", "&mut":
		ty, err := c.checkPlace(scope, e.Operand)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.Pointer(ty), nil
	case "*":
		ty, err := c.checkExpr(scope, e.Operand)
		if err != nil {
			return ir.Type{}, err
		}
		if ty.Kind != ir.TyPointer {
			return ir.Type{}, c.errf(e.Token, diag.KindDerefOfNonPointer, "cannot dereference a non-pointer value")
		}
		return *ty.Elem, nil
	default: // "-", "!"
		return c.checkExpr(scope, e.Operand)
	}
}

func (c *Checker) checkBinary(scope *Scope, e *ast.BinaryExpression) (ir.Type, error) {
	lty, err := c.checkExpr(scope, e.Left)
	if err != nil {
		return ir.Type{}, err
	}
	rty, err := c.checkExpr(scope, e.Right)
	if err != nil {
		return ir.Type{}, err
	}
	switch e.Operator {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return ir.Uint8(), nil
	default:
		if !typesCompatible(lty, rty) {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "mismatched operand types for %q", e.Operator)
		}
		return lty, nil
	}
}

func (c *Checker) checkAssign(scope *Scope, e *ast.AssignExpression) (ir.Type, error) {
	targetTy, err := c.checkPlace(scope, e.Target)
	if err != nil {
		return ir.Type{}, err
	}
	if ident, ok := e.Target.(*ast.Identifier); ok {
		vi, _ := scope.resolve(ident.Value)
		if vi != nil && !vi.Mut {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "cannot assign to immutable binding %q", ident.Value)
		}
	}
	valTy, err := c.checkExpr(scope, e.Value)
	if err != nil {
		return ir.Type{}, err
	}
	if !typesCompatible(targetTy, valTy) {
		return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "assigned value does not match the target's type")
	}
	if ident, ok := e.Target.(*ast.Identifier); ok {
		if vi, ok := scope.resolve(ident.Value); ok {
			vi.Moved = false
		}
	}
	return ir.Void(), nil
}

func (c *Checker) checkCall(scope *Scope, e *ast.CallExpression) (ir.Type, error) {
	ident, ok := e.Function.(*ast.Identifier)
	if !ok {
		return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "call target must be a function name")
	}
	sig, ok := c.Funcs[ident.Value]
	if !ok {
		return ir.Type{}, c.errf(e.Token, diag.KindUndefinedIdentifier, "call to undefined function %q", ident.Value)
	}
	if len(e.Args) != len(sig.Params) {
		return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "function %q takes %d arguments, got %d", ident.Value, len(sig.Params), len(e.Args))
	}
	for i, a := range e.Args {
		aty, err := c.checkExpr(scope, a)
		if err != nil {
			return ir.Type{}, err
		}
		if !typesCompatible(sig.Params[i], aty) {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "argument %d to %q has the wrong type", i+1, ident.Value)
		}
	}
	return sig.Return, nil
}

func (c *Checker) checkStructLiteral(scope *Scope, e *ast.StructLiteral) (ir.Type, error) {
	sty, ok := c.Types.LookupStruct(e.Name)
	if !ok {
		return ir.Type{}, c.errf(e.Token, diag.KindUndefinedIdentifier, "undefined struct %q", e.Name)
	}
	for _, f := range e.Fields {
		_, fty, ok := sty.FieldOffset(f.Name)
		if !ok {
			return ir.Type{}, c.errf(e.Token, diag.KindMemberNotFound, "no field %q on struct %s", f.Name, e.Name)
		}
		vty, err := c.checkExpr(scope, f.Value)
		if err != nil {
			return ir.Type{}, err
		}
		if !typesCompatible(fty, vty) {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "field %q of %s has the wrong type", f.Name, e.Name)
		}
	}
	return sty, nil
}

func (c *Checker) checkIf(scope *Scope, e *ast.IfExpr) (ir.Type, error) {
	if _, err := c.checkExpr(scope, e.Condition); err != nil {
		return ir.Type{}, err
	}
	thenTy, err := c.checkBlock(scope, e.Then)
	if err != nil {
		return ir.Type{}, err
	}
	if e.Else == nil {
		return ir.Void(), nil
	}
	elseTy, err := c.checkExpr(scope, e.Else)
	if err != nil {
		return ir.Type{}, err
	}
	if !typesCompatible(thenTy, elseTy) {
		return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "if and else branches have different types")
	}
	return thenTy, nil
}

func (c *Checker) checkMatch(scope *Scope, e *ast.MatchExpr) (ir.Type, error) {
	scrutTy, err := c.checkExpr(scope, e.Scrutinee)
	if err != nil {
		return ir.Type{}, err
	}
	var resultTy ir.Type
	haveResult := false
	for _, arm := range e.Arms {
		armScope := scope
		if arm.IsBinding {
			armScope = NewScope(scope)
			armScope.Define(arm.BindingName, scrutTy, false)
		} else if !arm.IsWildcard {
			if _, err := c.checkExpr(scope, arm.Pattern); err != nil {
				return ir.Type{}, err
			}
		}
		bty, err := c.checkExpr(armScope, arm.Body)
		if err != nil {
			return ir.Type{}, err
		}
		if !haveResult {
			resultTy, haveResult = bty, true
		} else if !typesCompatible(resultTy, bty) {
			return ir.Type{}, c.errf(e.Token, diag.KindTypeMismatch, "match arms have different types")
		}
	}
	return resultTy, nil
}

// typesCompatible reports whether a value of type b may be used where a
// is expected — structural equality over the shared-IR type shape.
func typesCompatible(a, b ir.Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.TyPointer:
		return typesCompatible(*a.Elem, *b.Elem)
	case ir.TyArray:
		return a.Len == b.Len && typesCompatible(*a.Elem, *b.Elem)
	case ir.TyStruct:
		return a.Name == b.Name
	default:
		return true
	}
}
