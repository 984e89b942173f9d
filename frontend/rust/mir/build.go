package mir

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/frontend/rust/sema"
	"smdc/ir"
)

// localBinding is one addressable name in a lowering scope: the MIR
// local it lives in and its checked type. Parallel to
// frontend/c/irbuild's envScope, generalized with the binding's Mut flag
// as declared; lowering does not read it, since sema.Checker already
// rejects assignment to an immutable binding.
type localBinding struct {
	Local Local
	Type  ir.Type
	Mut   bool
}

type scope struct {
	outer *scope
	vars  map[string]localBinding
}

func newScope(outer *scope) *scope {
	return &scope{outer: outer, vars: make(map[string]localBinding)}
}

func (s *scope) define(name string, b localBinding) { s.vars[name] = b }

func (s *scope) resolve(name string) (localBinding, bool) {
	if b, ok := s.vars[name]; ok {
		return b, true
	}
	if s.outer != nil {
		return s.outer.resolve(name)
	}
	return localBinding{}, false
}

// loopCtx is one live loop's break/continue targets, pushed and popped
// across while/loop/for lowering exactly like the C front-end's
// breakStk/continueStk in frontend/c/irbuild.
type loopCtx struct {
	exit BlockID
	cont BlockID
}

// Builder lowers one checked Rust-like program to MIR. Grounded on
// frontend/c/irbuild.Builder's shape (file/types/funcs/scope fields, a
// per-function fresh temp counter), extended with a block counter and a
// loop-target stack the C front-end's flat instruction stream never
// needed.
type Builder struct {
	file  string
	types *sema.TypeTable
	funcs map[string]sema.FuncSig

	consts     map[string]int64
	constTypes map[string]ir.Type

	fn        *Function
	cur       *BasicBlock
	scope     *scope
	loopStack []loopCtx
}

// Build lowers every function item in prog to MIR, using checker's
// already-resolved struct/enum/const/function tables instead of
// re-deriving them.
func Build(file string, prog *ast.Program, checker *sema.Checker) (*Module, error) {
	b := &Builder{
		file:       file,
		types:      checker.Types,
		funcs:      checker.Funcs,
		consts:     make(map[string]int64),
		constTypes: make(map[string]ir.Type),
	}
	for _, item := range prog.Items {
		if ci, ok := item.(*ast.ConstItem); ok {
			v, err := b.evalConstInt(ci.Value)
			if err != nil {
				return nil, err
			}
			ty, err := b.types.Resolve(ci.Type, diag.Span{File: file})
			if err != nil {
				return nil, err
			}
			b.consts[ci.Name] = v
			b.constTypes[ci.Name] = ty
		}
	}
	mod := &Module{}
	for _, item := range prog.Items {
		fi, ok := item.(*ast.FunctionItem)
		if !ok || fi.Body == nil {
			continue
		}
		fn, err := b.buildFunction(fi)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, fn)
	}
	return mod, nil
}

func (b *Builder) errf(kind diag.Kind, format string, args ...interface{}) error {
	return diag.New(kind, diag.Span{File: b.file}, format, args...)
}

func (b *Builder) newBlock() *BasicBlock {
	blk := &BasicBlock{ID: BlockID(len(b.fn.Blocks))}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *Builder) newLocal(ty ir.Type) Local {
	idx := Local(len(b.fn.LocalTypes))
	b.fn.LocalTypes = append(b.fn.LocalTypes, ty)
	return idx
}

// terminate sets cur's terminator unless it was already ended by an
// earlier return/break/continue inside the same block.
func (b *Builder) terminate(term Terminator) {
	if b.cur.Terminated {
		return
	}
	b.cur.Term = term
	b.cur.Terminated = true
}

func (b *Builder) emit(stmt Statement) { b.cur.Stmts = append(b.cur.Stmts, stmt) }

func (b *Builder) emitAssign(place Place, rv Rvalue) {
	b.emit(Statement{Kind: StAssign, Place: place, Rvalue: rv})
}

// unit is the operand produced by expressions whose value is `()` —
// never read by well-typed code, since the checker only accepts it
// where nothing downstream consumes it.
func unit() (Operand, ir.Type) { return ConstInt(0), ir.Void() }

func (b *Builder) buildFunction(item *ast.FunctionItem) (*Function, error) {
	sig := b.funcs[item.Name]
	fn := &Function{Name: item.Name, ParamCount: len(item.Params), ReturnType: sig.Return}
	fn.LocalTypes = append(fn.LocalTypes, sig.Return) // local 0: return slot
	b.fn = fn

	entry := b.newBlock()
	b.cur = entry
	top := newScope(nil)
	for i, p := range item.Params {
		loc := b.newLocal(sig.Params[i])
		fn.ParamNames = append(fn.ParamNames, p.Name)
		top.define(p.Name, localBinding{Local: loc, Type: sig.Params[i], Mut: p.Mut})
	}
	b.scope = top
	b.loopStack = nil

	tailOperand, tailTy, err := b.buildBlockExprIn(top, item.Body)
	if err != nil {
		return nil, err
	}
	if !b.cur.Terminated {
		if sig.Return.Kind != ir.TyVoid && tailTy.Kind != ir.TyVoid {
			b.emitAssign(Place{Local: 0}, Rvalue{Kind: RvUse, Operand: tailOperand, Type: sig.Return})
		}
		b.terminate(Terminator{Kind: TermReturn})
	}

	for _, blk := range fn.Blocks {
		if !blk.Terminated {
			blk.Term = Terminator{Kind: TermUnreachable}
			blk.Terminated = true
		}
	}
	return fn, nil
}

func (b *Builder) buildBlockExprIn(sc *scope, block *ast.BlockExpr) (Operand, ir.Type, error) {
	saved := b.scope
	b.scope = sc
	defer func() { b.scope = saved }()

	for _, stmt := range block.Statements {
		if err := b.buildStatement(stmt); err != nil {
			return Operand{}, ir.Type{}, err
		}
	}
	if block.Tail != nil {
		return b.buildExpr(block.Tail)
	}
	op, ty := unit()
	return op, ty, nil
}

func (b *Builder) buildBlockExprNested(block *ast.BlockExpr) (Operand, ir.Type, error) {
	return b.buildBlockExprIn(newScope(b.scope), block)
}

func (b *Builder) buildStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		return b.buildLet(s)
	case *ast.ExprStatement:
		_, _, err := b.buildExpr(s.Expr)
		return err
	case *ast.ItemStatement:
		// Struct/enum/const items nested in a block carry no runtime
		// instructions of their own. sema.Check already registered the
		// struct/enum shapes in the shared b.types; a nested const is
		// folded into b.consts here, the same way Build folds module ones.
		if ci, ok := s.Item.(*ast.ConstItem); ok {
			v, err := b.evalConstInt(ci.Value)
			if err != nil {
				return err
			}
			ty, err := b.types.Resolve(ci.Type, diag.Span{File: b.file})
			if err != nil {
				return err
			}
			b.consts[ci.Name] = v
			b.constTypes[ci.Name] = ty
		}
		return nil
	default:
		return nil
	}
}

func (b *Builder) buildLet(s *ast.LetStatement) error {
	span := diag.Span{File: b.file}
	if s.Value == nil {
		ty, err := b.types.Resolve(s.Type, span)
		if err != nil {
			return err
		}
		loc := b.newLocal(ty)
		b.scope.define(s.Name, localBinding{Local: loc, Type: ty, Mut: s.Mut})
		return nil
	}
	operand, ty, err := b.buildExpr(s.Value)
	if err != nil {
		return err
	}
	if s.Type != nil {
		declTy, err := b.types.Resolve(s.Type, span)
		if err != nil {
			return err
		}
		ty = declTy
	}
	loc := b.newLocal(ty)
	b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvUse, Operand: operand, Type: ty})
	b.scope.define(s.Name, localBinding{Local: loc, Type: ty, Mut: s.Mut})
	return nil
}

// materialize ensures operand is backed by a Place, introducing a fresh
// temp to hold a constant if needed — used wherever a value must be
// read more than once (a match scrutinee, a dereferenced pointer).
func (b *Builder) materialize(operand Operand, ty ir.Type) Local {
	if operand.Kind == OperandCopy && len(operand.Place.Projs) == 0 {
		return operand.Place.Local
	}
	loc := b.newLocal(ty)
	b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvUse, Operand: operand, Type: ty})
	return loc
}

// readPlace materializes a read of place into a fresh temp, the MIR
// equivalent of the shared IR's Load.
func (b *Builder) readPlace(place Place, ty ir.Type) Operand {
	loc := b.newLocal(ty)
	b.emitAssign(Place{Local: loc}, Rvalue{Kind: RvUse, Operand: CopyPlace(place), Type: ty})
	return Copy(loc)
}
