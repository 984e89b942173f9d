package irbuild

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/ir"
)

func (b *Builder) buildStatements(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := b.buildStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildBlock(block *ast.BlockStatement) error {
	outer := b.scope
	b.scope = newEnvScope(outer)
	err := b.buildStatements(block.Statements)
	b.scope = outer
	return err
}

func (b *Builder) buildStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		return b.buildBlock(s)

	case *ast.VarDecl:
		ty, err := b.resolveType(s.Type, s.Token.Line, s.Token.Column)
		if err != nil {
			return err
		}
		addr := b.newTemp()
		b.emit(ir.Alloca(addr, ty.Size(), ty.Align()))
		b.scope.define(s.Name, binding{Addr: ir.TempVal(addr), Type: ty})
		if s.Init != nil {
			return b.buildInitializer(ir.TempVal(addr), ty, s.Init)
		}
		return nil

	case *ast.ExpressionStatement:
		if s.Expr == nil {
			return nil
		}
		_, _, err := b.buildRValue(s.Expr)
		return err

	case *ast.IfStatement:
		return b.buildIf(s)

	case *ast.WhileStatement:
		return b.buildWhile(s)

	case *ast.DoWhileStatement:
		return b.buildDoWhile(s)

	case *ast.ForStatement:
		return b.buildFor(s)

	case *ast.ReturnStatement:
		if s.Value == nil {
			b.emit(ir.Return(nil))
			return nil
		}
		val, _, err := b.buildRValue(s.Value)
		if err != nil {
			return err
		}
		b.emit(ir.Return(&val))
		return nil

	case *ast.BreakStatement:
		if len(b.breakStk) == 0 {
			return b.errf(s.Token.Line, s.Token.Column, diag.KindBreakOutsideLoop, "break outside loop or switch")
		}
		b.emit(ir.Jump(b.breakStk[len(b.breakStk)-1]))
		return nil

	case *ast.ContinueStatement:
		if len(b.continueStk) == 0 {
			return b.errf(s.Token.Line, s.Token.Column, diag.KindContinueOutsideLoop, "continue outside loop")
		}
		b.emit(ir.Jump(b.continueStk[len(b.continueStk)-1]))
		return nil

	case *ast.GotoStatement:
		b.emit(ir.Jump(ir.Label(s.Label)))
		return nil

	case *ast.LabeledStatement:
		b.emit(ir.LabelInst(ir.Label(s.Label)))
		return b.buildStmt(s.Stmt)

	case *ast.SwitchStatement:
		return b.buildSwitch(s)

	default:
		return nil
	}
}

func (b *Builder) buildIf(s *ast.IfStatement) error {
	cond, _, err := b.buildRValue(s.Condition)
	if err != nil {
		return err
	}
	if s.Else == nil {
		end := b.newLabel(".Lifend")
		b.emit(ir.CondJumpFalse(cond, end))
		if err := b.buildBlock(s.Then); err != nil {
			return err
		}
		b.emit(ir.LabelInst(end))
		return nil
	}

	elseLbl := b.newLabel(".Lelse")
	end := b.newLabel(".Lifend")
	b.emit(ir.CondJumpFalse(cond, elseLbl))
	if err := b.buildBlock(s.Then); err != nil {
		return err
	}
	b.emit(ir.Jump(end))
	b.emit(ir.LabelInst(elseLbl))
	if err := b.buildStmt(s.Else); err != nil {
		return err
	}
	b.emit(ir.LabelInst(end))
	return nil
}

func (b *Builder) buildWhile(s *ast.WhileStatement) error {
	start := b.newLabel(".Lwhile")
	end := b.newLabel(".Lwhileend")
	b.breakStk = append(b.breakStk, end)
	b.continueStk = append(b.continueStk, start)
	defer b.popLoop()

	b.emit(ir.LabelInst(start))
	cond, _, err := b.buildRValue(s.Condition)
	if err != nil {
		return err
	}
	b.emit(ir.CondJumpFalse(cond, end))
	if err := b.buildBlock(s.Body); err != nil {
		return err
	}
	b.emit(ir.Jump(start))
	b.emit(ir.LabelInst(end))
	return nil
}

func (b *Builder) buildDoWhile(s *ast.DoWhileStatement) error {
	start := b.newLabel(".Ldo")
	condLbl := b.newLabel(".Ldocond")
	end := b.newLabel(".Ldoend")
	b.breakStk = append(b.breakStk, end)
	b.continueStk = append(b.continueStk, condLbl)
	defer b.popLoop()

	b.emit(ir.LabelInst(start))
	if err := b.buildBlock(s.Body); err != nil {
		return err
	}
	b.emit(ir.LabelInst(condLbl))
	cond, _, err := b.buildRValue(s.Condition)
	if err != nil {
		return err
	}
	b.emit(ir.CondJumpTrue(cond, start))
	b.emit(ir.LabelInst(end))
	return nil
}

func (b *Builder) buildFor(s *ast.ForStatement) error {
	outer := b.scope
	b.scope = newEnvScope(outer)
	defer func() { b.scope = outer }()

	if s.Init != nil {
		if err := b.buildStmt(s.Init); err != nil {
			return err
		}
	}

	start := b.newLabel(".Lfor")
	post := b.newLabel(".Lforpost")
	end := b.newLabel(".Lforend")
	b.breakStk = append(b.breakStk, end)
	b.continueStk = append(b.continueStk, post)
	defer b.popLoop()

	b.emit(ir.LabelInst(start))
	if s.Condition != nil {
		cond, _, err := b.buildRValue(s.Condition)
		if err != nil {
			return err
		}
		b.emit(ir.CondJumpFalse(cond, end))
	}
	if err := b.buildBlock(s.Body); err != nil {
		return err
	}
	b.emit(ir.LabelInst(post))
	if s.Post != nil {
		if _, _, err := b.buildRValue(s.Post); err != nil {
			return err
		}
	}
	b.emit(ir.Jump(start))
	b.emit(ir.LabelInst(end))
	return nil
}

func (b *Builder) popLoop() {
	b.breakStk = b.breakStk[:len(b.breakStk)-1]
	b.continueStk = b.continueStk[:len(b.continueStk)-1]
}

func (b *Builder) buildSwitch(s *ast.SwitchStatement) error {
	tagVal, _, err := b.buildRValue(s.Tag)
	if err != nil {
		return err
	}
	tag := b.newTemp()
	b.emit(ir.Copy(tag, tagVal))

	end := b.newLabel(".Lswitchend")
	b.breakStk = append(b.breakStk, end)
	defer func() { b.breakStk = b.breakStk[:len(b.breakStk)-1] }()

	caseLbls := make([]ir.Label, len(s.Cases))
	defaultIdx := -1
	for i, cc := range s.Cases {
		caseLbls[i] = b.newLabel(".Lcase")
		if cc.IsDefault {
			defaultIdx = i
		}
	}

	for i, cc := range s.Cases {
		if cc.IsDefault {
			continue
		}
		v, err := b.constEvalInt(cc.Value)
		if err != nil {
			return err
		}
		cmp := b.newTemp()
		b.emit(ir.Binary(cmp, ir.OpEq, ir.TempVal(tag), ir.IntConst(v)))
		b.emit(ir.CondJumpTrue(ir.TempVal(cmp), caseLbls[i]))
	}
	if defaultIdx >= 0 {
		b.emit(ir.Jump(caseLbls[defaultIdx]))
	} else {
		b.emit(ir.Jump(end))
	}

	for i, cc := range s.Cases {
		b.emit(ir.LabelInst(caseLbls[i]))
		for _, sub := range cc.Statements {
			if err := b.buildStmt(sub); err != nil {
				return err
			}
		}
	}
	b.emit(ir.LabelInst(end))
	return nil
}

// buildInitializer lowers a variable's initializer, recursing through
// CompoundInit for arrays and structs and zero-filling any elements or
// fields the initializer left unspecified.
func (b *Builder) buildInitializer(addr ir.Value, ty ir.Type, init ast.Expression) error {
	ci, ok := init.(*ast.CompoundInit)
	if !ok {
		if ty.Kind == ir.TyArray && ty.Elem.Size() == 1 {
			if sl, ok := init.(*ast.StringLiteral); ok {
				return b.initCharArrayFromString(addr, ty, sl.Value)
			}
		}
		val, _, err := b.buildRValue(init)
		if err != nil {
			return err
		}
		b.emit(ir.Store(addr, val, ty.Size(), ty.Volatile))
		return nil
	}

	switch ty.Kind {
	case ir.TyArray:
		elemTy := *ty.Elem
		for i := 0; i < ty.Len; i++ {
			elemAddr := offsetAddr(b, addr, i*elemTy.Size())
			if i < len(ci.Elements) {
				if err := b.buildInitializer(elemAddr, elemTy, ci.Elements[i]); err != nil {
					return err
				}
			} else if elemTy.Kind == ir.TyArray || elemTy.Kind == ir.TyStruct {
				if err := b.buildInitializer(elemAddr, elemTy, &ast.CompoundInit{}); err != nil {
					return err
				}
			} else {
				b.emit(ir.Store(elemAddr, ir.IntConst(0), elemTy.Size(), false))
			}
		}
		return nil
	case ir.TyStruct:
		for i, m := range ty.Members {
			off, _, _ := ty.FieldOffset(m.Name)
			fieldAddr := offsetAddr(b, addr, off)
			if i < len(ci.Elements) {
				if err := b.buildInitializer(fieldAddr, m.Type, ci.Elements[i]); err != nil {
					return err
				}
			} else if m.Type.Kind == ir.TyArray || m.Type.Kind == ir.TyStruct {
				if err := b.buildInitializer(fieldAddr, m.Type, &ast.CompoundInit{}); err != nil {
					return err
				}
			} else {
				b.emit(ir.Store(fieldAddr, ir.IntConst(0), m.Type.Size(), false))
			}
		}
		return nil
	default:
		return b.errf(0, 0, diag.KindTypeMismatch, "brace initializer used on a scalar type")
	}
}

func (b *Builder) initCharArrayFromString(addr ir.Value, ty ir.Type, s string) error {
	data := append([]byte(s), 0)
	for i := 0; i < ty.Len; i++ {
		var v int64
		if i < len(data) {
			v = int64(data[i])
		}
		b.emit(ir.Store(offsetAddr(b, addr, i), ir.IntConst(v), 1, false))
	}
	return nil
}
