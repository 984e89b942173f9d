// Package irbuild lowers a checked C translation unit into the shared
// intermediate representation the M68k code generator consumes.
//
// Grounded on the lvalue-as-address discipline spec.md requires of the C
// front-end: every addressable expression (a variable, an array element, a
// struct field, a dereference) is first lowered to an address Value, and
// reads/writes go through explicit ir.Load/ir.Store against that address —
// mirroring how rush/compiler's Compile walks its AST emitting bytecode
// against a single growing instruction stream, generalized here to a
// two-phase lvalue/rvalue split C's assignment and pointer semantics need
// that rush's expression-oriented language never did.
package irbuild

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/frontend/c/sema"
	"smdc/ir"
)

// binding is one variable's storage location and type, shared by locals,
// parameters (whose address LoadParam computes just like Alloca does for
// locals), and globals (addressed directly by name).
type binding struct {
	Addr ir.Value
	Type ir.Type
}

// envScope is a lexical block's variable table, chained to its enclosing
// scope exactly like sema.Scope.
type envScope struct {
	Outer *envScope
	vars  map[string]binding
}

func newEnvScope(outer *envScope) *envScope {
	return &envScope{Outer: outer, vars: make(map[string]binding)}
}

func (s *envScope) define(name string, b binding) { s.vars[name] = b }

func (s *envScope) resolve(name string) (binding, bool) {
	if b, ok := s.vars[name]; ok {
		return b, true
	}
	if s.Outer != nil {
		return s.Outer.resolve(name)
	}
	return binding{}, false
}

// Builder lowers one translation unit's declarations into an ir.Module.
type Builder struct {
	file    string
	types   *sema.TypeTable
	funcs   map[string]sema.FuncSig
	module  *ir.Module
	strings map[string]ir.Label

	global *envScope

	fn         *ir.Function
	scope      *envScope
	tempN      int
	labelN     int
	breakStk   []ir.Label
	continueStk []ir.Label
}

// Build lowers tu into an ir.Module. checker must already have completed
// Check(tu) successfully, so Types and Funcs are fully populated.
func Build(file string, tu *ast.TranslationUnit, checker *sema.Checker) (*ir.Module, error) {
	b := &Builder{
		file:    file,
		types:   checker.Types,
		funcs:   checker.Funcs,
		module:  ir.NewModule(),
		strings: make(map[string]ir.Label),
		global:  newEnvScope(nil),
	}

	for _, d := range tu.Decls {
		if vd, ok := d.(*ast.VarDecl); ok {
			if err := b.buildGlobal(vd); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range tu.Decls {
		if fn, ok := d.(*ast.FunctionDecl); ok && fn.Body != nil {
			if err := b.buildFunction(fn); err != nil {
				return nil, err
			}
		}
	}
	return b.module, nil
}

func (b *Builder) span(line, col int) diag.Span { return diag.Span{File: b.file, Line: line, Column: col} }

func (b *Builder) errf(line, col int, kind diag.Kind, format string, args ...interface{}) error {
	return diag.New(kind, b.span(line, col), format, args...)
}

func (b *Builder) resolveType(ts *ast.TypeSpec, line, col int) (ir.Type, error) {
	return b.types.Resolve(ts, b.span(line, col))
}

func (b *Builder) newTemp() ir.Temp {
	t := ir.Temp(b.tempN)
	b.tempN++
	return t
}

func (b *Builder) newLabel(prefix string) ir.Label {
	l := ir.Label(prefix + itoa(b.labelN))
	b.labelN++
	return l
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (b *Builder) emit(inst ir.Inst) { b.fn.Insts = append(b.fn.Insts, inst) }

func (b *Builder) internString(s string) ir.Label {
	if l, ok := b.strings[s]; ok {
		return l
	}
	l := ir.Label(".LC" + itoa(len(b.strings)))
	bytes := append([]byte(s), 0)
	b.module.AddString(&ir.StringLit{Label: l, Bytes: bytes})
	b.strings[s] = l
	return l
}

func (b *Builder) buildGlobal(decl *ast.VarDecl) error {
	ty, err := b.resolveType(decl.Type, decl.Token.Line, decl.Token.Column)
	if err != nil {
		return err
	}
	init, err := b.encodeGlobalInit(ty, decl.Init)
	if err != nil {
		return err
	}
	b.module.AddGlobal(&ir.Global{Name: decl.Name, Type: ty, Init: init})
	b.global.define(decl.Name, binding{Addr: ir.NameVal(decl.Name), Type: ty})
	return nil
}

func (b *Builder) buildFunction(fn *ast.FunctionDecl) error {
	retTy, err := b.resolveType(fn.ReturnType, fn.Token.Line, fn.Token.Column)
	if err != nil {
		return err
	}
	params := make([]ir.Param, len(fn.Params))
	paramTypes := make([]ir.Type, len(fn.Params))
	for i, p := range fn.Params {
		pty, err := b.resolveType(p.Type, fn.Token.Line, fn.Token.Column)
		if err != nil {
			return err
		}
		params[i] = ir.Param{Name: p.Name, Type: pty}
		paramTypes[i] = pty
	}

	b.fn = &ir.Function{Name: fn.Name, Params: params, ReturnType: retTy}
	b.tempN = 0
	b.labelN = 0
	b.breakStk = nil
	b.continueStk = nil

	fnScope := newEnvScope(b.global)
	for i, p := range fn.Params {
		addr := b.newTemp()
		b.emit(ir.LoadParam(addr, i, paramTypes[i].Size()))
		fnScope.define(p.Name, binding{Addr: ir.TempVal(addr), Type: paramTypes[i]})
	}

	b.scope = fnScope
	if err := b.buildStatements(fn.Body.Statements); err != nil {
		return err
	}

	if len(b.fn.Insts) == 0 || b.fn.Insts[len(b.fn.Insts)-1].Op != ir.OpReturn {
		b.emit(ir.Return(nil))
	}

	b.fn.NumTemps = b.tempN
	b.module.AddFunction(b.fn)
	return nil
}
