package sema

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/ir"
)

// FuncSig is a checked function's call shape.
type FuncSig struct {
	Params   []ir.Type
	Return   ir.Type
	Variadic bool
}

// gotoRef is a goto statement awaiting label-existence verification,
// deferred until its whole enclosing function has been walked so a
// forward reference to a label declared later in the function resolves.
type gotoRef struct {
	label string
	span  diag.Span
}

// Checker resolves names and types over one translation unit,
// surfacing the first semantic error it finds.
type Checker struct {
	file    string
	Types   *TypeTable
	Funcs   map[string]FuncSig
	globals *Scope

	loopDepth   int
	switchDepth int
	labels      map[string]bool
	gotos       []gotoRef
}

// NewChecker returns a Checker ready to check one file's translation unit.
func NewChecker(file string) *Checker {
	return &Checker{
		file:    file,
		Types:   NewTypeTable(),
		Funcs:   make(map[string]FuncSig),
		globals: NewScope(nil),
	}
}

func spanOf(file string, line, col int) diag.Span {
	return diag.Span{File: file, Line: line, Column: col}
}

func (c *Checker) errf(line, col int, kind diag.Kind, format string, args ...interface{}) error {
	return diag.New(kind, spanOf(c.file, line, col), format, args...)
}

// Check walks tu, registering every top-level declaration and then
// checking each function body.
func (c *Checker) Check(tu *ast.TranslationUnit) error {
	// Pass 1: struct tags and typedefs need to exist before any
	// declaration using them is resolved.
	for _, d := range tu.Decls {
		switch decl := d.(type) {
		case *ast.StructDecl:
			if err := c.registerStruct(decl); err != nil {
				return err
			}
		case *ast.TypedefDecl:
			c.Types.DefineTypedef(decl.Name, decl.Type)
		}
	}

	// Pass 2: function signatures and globals, so forward/mutually
	// recursive calls resolve regardless of declaration order.
	for _, d := range tu.Decls {
		switch decl := d.(type) {
		case *ast.FunctionDecl:
			if err := c.registerFunction(decl); err != nil {
				return err
			}
		case *ast.VarDecl:
			ty, err := c.Types.Resolve(decl.Type, spanOf(c.file, decl.Token.Line, decl.Token.Column))
			if err != nil {
				return err
			}
			if !c.globals.Define(decl.Name, ty) {
				return c.errf(decl.Token.Line, decl.Token.Column, diag.KindDuplicateDefinition, "duplicate global %q", decl.Name)
			}
		}
	}

	// Pass 3: check every function body.
	for _, d := range tu.Decls {
		fn, ok := d.(*ast.FunctionDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if err := c.checkFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) registerStruct(decl *ast.StructDecl) error {
	var members []ir.Member
	for _, f := range decl.Fields {
		ty, err := c.Types.Resolve(f.Type, spanOf(c.file, decl.Token.Line, decl.Token.Column))
		if err != nil {
			return err
		}
		members = append(members, ir.Member{Name: f.Name, Type: ty})
	}
	c.Types.DefineStruct(decl.Tag, ir.Struct(decl.Tag, members))
	return nil
}

func (c *Checker) registerFunction(fn *ast.FunctionDecl) error {
	ret, err := c.Types.Resolve(fn.ReturnType, spanOf(c.file, fn.Token.Line, fn.Token.Column))
	if err != nil {
		return err
	}
	var params []ir.Type
	for _, p := range fn.Params {
		pty, err := c.Types.Resolve(p.Type, spanOf(c.file, fn.Token.Line, fn.Token.Column))
		if err != nil {
			return err
		}
		params = append(params, pty)
	}
	if existing, ok := c.Funcs[fn.Name]; ok {
		if len(existing.Params) != len(params) {
			return c.errf(fn.Token.Line, fn.Token.Column, diag.KindTypeMismatch, "conflicting redeclaration of %q", fn.Name)
		}
	}
	c.Funcs[fn.Name] = FuncSig{Params: params, Return: ret}
	return nil
}

func (c *Checker) checkFunction(fn *ast.FunctionDecl) error {
	c.loopDepth = 0
	c.switchDepth = 0
	c.labels = make(map[string]bool)
	c.gotos = nil

	scope := NewScope(c.globals)
	for _, p := range fn.Params {
		pty, err := c.Types.Resolve(p.Type, spanOf(c.file, fn.Token.Line, fn.Token.Column))
		if err != nil {
			return err
		}
		scope.Define(p.Name, pty)
	}

	if err := c.collectLabels(fn.Body); err != nil {
		return err
	}
	if err := c.checkBlock(fn.Body, scope); err != nil {
		return err
	}
	for _, g := range c.gotos {
		if !c.labels[g.label] {
			return diag.New(diag.KindUndefinedLabel, g.span, "undefined label %q", g.label)
		}
	}
	return nil
}

func (c *Checker) collectLabels(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LabeledStatement:
		if c.labels[s.Label] {
			return c.errf(s.Token.Line, s.Token.Column, diag.KindDuplicateDefinition, "duplicate label %q", s.Label)
		}
		c.labels[s.Label] = true
		return c.collectLabels(s.Stmt)
	case *ast.BlockStatement:
		for _, sub := range s.Statements {
			if err := c.collectLabels(sub); err != nil {
				return err
			}
		}
	case *ast.IfStatement:
		if err := c.collectLabels(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return c.collectLabels(s.Else)
		}
	case *ast.WhileStatement:
		return c.collectLabels(s.Body)
	case *ast.DoWhileStatement:
		return c.collectLabels(s.Body)
	case *ast.ForStatement:
		return c.collectLabels(s.Body)
	case *ast.SwitchStatement:
		for _, cc := range s.Cases {
			for _, sub := range cc.Statements {
				if err := c.collectLabels(sub); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Checker) checkBlock(block *ast.BlockStatement, outer *Scope) error {
	scope := NewScope(outer)
	for _, stmt := range block.Statements {
		if err := c.checkStmt(stmt, scope); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkStmt(stmt ast.Statement, scope *Scope) error {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		return c.checkBlock(s, scope)
	case *ast.VarDecl:
		ty, err := c.Types.Resolve(s.Type, spanOf(c.file, s.Token.Line, s.Token.Column))
		if err != nil {
			return err
		}
		if s.Init != nil {
			if _, err := c.checkInitializer(s.Init, ty, scope); err != nil {
				return err
			}
		}
		if !scope.Define(s.Name, ty) {
			return c.errf(s.Token.Line, s.Token.Column, diag.KindDuplicateDefinition, "duplicate local %q", s.Name)
		}
		return nil
	case *ast.ExpressionStatement:
		if s.Expr == nil {
			return nil
		}
		_, err := c.checkExpr(s.Expr, scope)
		return err
	case *ast.IfStatement:
		if _, err := c.checkExpr(s.Condition, scope); err != nil {
			return err
		}
		if err := c.checkBlock(s.Then, scope); err != nil {
			return err
		}
		if s.Else != nil {
			return c.checkStmt(s.Else, scope)
		}
		return nil
	case *ast.WhileStatement:
		if _, err := c.checkExpr(s.Condition, scope); err != nil {
			return err
		}
		c.loopDepth++
		err := c.checkBlock(s.Body, scope)
		c.loopDepth--
		return err
	case *ast.DoWhileStatement:
		c.loopDepth++
		err := c.checkBlock(s.Body, scope)
		c.loopDepth--
		if err != nil {
			return err
		}
		_, err = c.checkExpr(s.Condition, scope)
		return err
	case *ast.ForStatement:
		inner := NewScope(scope)
		if s.Init != nil {
			if err := c.checkStmt(s.Init, inner); err != nil {
				return err
			}
		}
		if s.Condition != nil {
			if _, err := c.checkExprIn(s.Condition, inner); err != nil {
				return err
			}
		}
		if s.Post != nil {
			if _, err := c.checkExprIn(s.Post, inner); err != nil {
				return err
			}
		}
		c.loopDepth++
		err := c.checkBlock(s.Body, inner)
		c.loopDepth--
		return err
	case *ast.ReturnStatement:
		if s.Value != nil {
			_, err := c.checkExpr(s.Value, scope)
			return err
		}
		return nil
	case *ast.BreakStatement:
		if c.loopDepth == 0 && c.switchDepth == 0 {
			return c.errf(s.Token.Line, s.Token.Column, diag.KindBreakOutsideLoop, "break outside loop or switch")
		}
		return nil
	case *ast.ContinueStatement:
		if c.loopDepth == 0 {
			return c.errf(s.Token.Line, s.Token.Column, diag.KindContinueOutsideLoop, "continue outside loop")
		}
		return nil
	case *ast.GotoStatement:
		c.gotos = append(c.gotos, gotoRef{label: s.Label, span: spanOf(c.file, s.Token.Line, s.Token.Column)})
		return nil
	case *ast.LabeledStatement:
		return c.checkStmt(s.Stmt, scope)
	case *ast.SwitchStatement:
		if _, err := c.checkExpr(s.Tag, scope); err != nil {
			return err
		}
		c.switchDepth++
		defer func() { c.switchDepth-- }()
		seenDefault := false
		for _, cc := range s.Cases {
			if cc.IsDefault {
				if seenDefault {
					return c.errf(cc.Token.Line, cc.Token.Column, diag.KindDuplicateDefinition, "duplicate default case")
				}
				seenDefault = true
			} else if _, err := c.checkExpr(cc.Value, scope); err != nil {
				return err
			}
			inner := NewScope(scope)
			for _, sub := range cc.Statements {
				if err := c.checkStmt(sub, inner); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return nil
	}
}

// checkExprIn and checkExpr are the same operation; checkExprIn exists
// only so for-loop header expressions read naturally against the
// header's own inner scope at the call site.
func (c *Checker) checkExprIn(expr ast.Expression, scope *Scope) (ir.Type, error) {
	return c.checkExpr(expr, scope)
}

func (c *Checker) checkInitializer(expr ast.Expression, target ir.Type, scope *Scope) (ir.Type, error) {
	if ci, ok := expr.(*ast.CompoundInit); ok {
		elemType := target
		if target.Kind == ir.TyArray {
			elemType = *target.Elem
		}
		for i, el := range ci.Elements {
			var want ir.Type
			switch target.Kind {
			case ir.TyArray:
				want = elemType
			case ir.TyStruct:
				if i < len(target.Members) {
					want = target.Members[i].Type
				}
			}
			if _, err := c.checkInitializer(el, want, scope); err != nil {
				return ir.Type{}, err
			}
		}
		return target, nil
	}
	return c.checkExpr(expr, scope)
}

func (c *Checker) checkExpr(expr ast.Expression, scope *Scope) (ir.Type, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if ty, ok := scope.Resolve(e.Value); ok {
			return ty, nil
		}
		if sig, ok := c.Funcs[e.Value]; ok {
			return sig.Return, nil
		}
		return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindUndefinedIdentifier, "undefined identifier %q", e.Value)
	case *ast.IntLiteral:
		return ir.Int32(), nil
	case *ast.CharLiteral:
		return ir.Int8(), nil
	case *ast.StringLiteral:
		return ir.Pointer(ir.Uint8()), nil
	case *ast.UnaryExpression:
		operand, err := c.checkExpr(e.Operand, scope)
		if err != nil {
			return ir.Type{}, err
		}
		switch e.Operator {
		case "*":
			if operand.Kind != ir.TyPointer && operand.Kind != ir.TyArray {
				return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindDerefOfNonPointer, "dereference of non-pointer type")
			}
			return *operand.Elem, nil
		case "&":
			return ir.Pointer(operand), nil
		default:
			return operand, nil
		}
	case *ast.PostfixExpression:
		return c.checkExpr(e.Operand, scope)
	case *ast.BinaryExpression:
		lt, err := c.checkExpr(e.Left, scope)
		if err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(e.Right, scope); err != nil {
			return ir.Type{}, err
		}
		switch e.Operator {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return ir.Int32(), nil
		default:
			return lt, nil
		}
	case *ast.AssignExpression:
		if err := c.checkLValue(e.Target, scope); err != nil {
			return ir.Type{}, err
		}
		target, err := c.checkExpr(e.Target, scope)
		if err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(e.Value, scope); err != nil {
			return ir.Type{}, err
		}
		return target, nil
	case *ast.TernaryExpression:
		if _, err := c.checkExpr(e.Condition, scope); err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(e.Else, scope); err != nil {
			return ir.Type{}, err
		}
		return c.checkExpr(e.Then, scope)
	case *ast.CallExpression:
		name, ok := e.Function.(*ast.Identifier)
		if !ok {
			return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "call target is not a function name")
		}
		sig, ok := c.Funcs[name.Value]
		if !ok {
			return ir.Type{}, c.errf(name.Token.Line, name.Token.Column, diag.KindUndefinedIdentifier, "call to undeclared function %q", name.Value)
		}
		for _, arg := range e.Args {
			if _, err := c.checkExpr(arg, scope); err != nil {
				return ir.Type{}, err
			}
		}
		return sig.Return, nil
	case *ast.IndexExpression:
		arr, err := c.checkExpr(e.Array, scope)
		if err != nil {
			return ir.Type{}, err
		}
		if _, err := c.checkExpr(e.Index, scope); err != nil {
			return ir.Type{}, err
		}
		if arr.Kind != ir.TyArray && arr.Kind != ir.TyPointer {
			return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindTypeMismatch, "indexing non-array, non-pointer type")
		}
		return *arr.Elem, nil
	case *ast.MemberExpression:
		obj, err := c.checkExpr(e.Object, scope)
		if err != nil {
			return ir.Type{}, err
		}
		structTy := obj
		if e.Arrow {
			if obj.Kind != ir.TyPointer {
				return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindArrowOnNonPointer, "-> on non-pointer type")
			}
			structTy = *obj.Elem
		}
		if structTy.Kind != ir.TyStruct {
			return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindMemberNotFound, "member access on non-struct type")
		}
		_, fty, ok := structTy.FieldOffset(e.Field)
		if !ok {
			return ir.Type{}, c.errf(e.Token.Line, e.Token.Column, diag.KindMemberNotFound, "struct %q has no member %q", structTy.Name, e.Field)
		}
		return fty, nil
	case *ast.CastExpression:
		if _, err := c.checkExpr(e.Value, scope); err != nil {
			return ir.Type{}, err
		}
		return c.Types.Resolve(e.Type, spanOf(c.file, e.Token.Line, e.Token.Column))
	case *ast.SizeofExpression:
		if e.Type != nil {
			if _, err := c.Types.Resolve(e.Type, spanOf(c.file, e.Token.Line, e.Token.Column)); err != nil {
				return ir.Type{}, err
			}
		} else if _, err := c.checkExpr(e.Value, scope); err != nil {
			return ir.Type{}, err
		}
		return ir.Uint32(), nil
	default:
		return ir.Type{}, nil
	}
}

// checkLValue verifies expr denotes something assignable: an
// identifier, an index, a member/arrow access, or a dereference.
func (c *Checker) checkLValue(expr ast.Expression, scope *Scope) error {
	switch e := expr.(type) {
	case *ast.Identifier, *ast.IndexExpression, *ast.MemberExpression:
		_ = e
		return nil
	case *ast.UnaryExpression:
		if e.Operator == "*" {
			return nil
		}
	}
	return c.errf(0, 0, diag.KindTypeMismatch, "invalid assignment target")
}
