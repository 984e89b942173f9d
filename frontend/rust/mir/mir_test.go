package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/rust/lexer"
	"smdc/frontend/rust/parser"
	"smdc/frontend/rust/sema"
	"smdc/ir"
)

// buildSrc parses and checks src, then lowers it to MIR, exactly the way
// frontend/rust/sema's own checkSrc helper drives the front half of the
// pipeline.
func buildSrc(t *testing.T, src string) *Module {
	t.Helper()
	p, err := parser.New("test.rs", lexer.New("test.rs", src))
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	c := sema.NewChecker("test.rs")
	require.NoError(t, c.Check(prog))
	mod, err := Build("test.rs", prog, c)
	require.NoError(t, err)
	return mod
}

func findFunc(t *testing.T, mod *Module, name string) *Function {
	t.Helper()
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function %q in lowered module", name)
	return nil
}

func TestBuildArithmeticReturn(t *testing.T) {
	mod := buildSrc(t, `fn add(a: i32, b: i32) -> i32 { a + b }`)
	fn := findFunc(t, mod, "add")
	assert.Equal(t, 2, fn.ParamCount)
	assert.Equal(t, []string{"a", "b"}, fn.ParamNames)
	require.Len(t, fn.Blocks, 1)
	blk := fn.Blocks[0]
	assert.True(t, blk.Terminated)
	assert.Equal(t, TermReturn, blk.Term.Kind)
	require.Len(t, blk.Stmts, 2)
	assert.Equal(t, RvBinary, blk.Stmts[0].Rvalue.Kind)
	assert.Equal(t, ir.OpAdd, blk.Stmts[0].Rvalue.BinOp)
	assert.Equal(t, RvUse, blk.Stmts[1].Rvalue.Kind)
	assert.Equal(t, Place{Local: 0}, blk.Stmts[1].Place)
}

func TestBuildIfElseTailValue(t *testing.T) {
	mod := buildSrc(t, `
		fn pick(cond: bool) -> i32 {
			if cond { 1 } else { 2 }
		}
	`)
	fn := findFunc(t, mod, "pick")
	require.True(t, len(fn.Blocks) >= 4)
	entry := fn.Blocks[0]
	require.Equal(t, TermIf, entry.Term.Kind)

	thenBlk := fn.Blocks[entry.Term.Then]
	require.Equal(t, TermGoto, thenBlk.Term.Kind)
	elseBlk := fn.Blocks[entry.Term.Else]
	require.Equal(t, TermGoto, elseBlk.Term.Kind)
	assert.Equal(t, thenBlk.Term.Goto, elseBlk.Term.Goto, "both arms must join at the same merge block")

	mergeBlk := fn.Blocks[thenBlk.Term.Goto]
	assert.Equal(t, TermReturn, mergeBlk.Term.Kind)
}

func TestBuildWhileBreakContinue(t *testing.T) {
	mod := buildSrc(t, `
		fn f() -> i32 {
			let mut i: i32 = 0;
			while i < 10 {
				if i == 5 {
					break;
				}
				i = i + 1;
				continue;
			}
			i
		}
	`)
	fn := findFunc(t, mod, "f")

	var condBlk, exitBlk *BasicBlock
	for _, blk := range fn.Blocks {
		if blk.Term.Kind == TermIf && len(blk.Stmts) > 0 {
			if blk.Stmts[len(blk.Stmts)-1].Rvalue.Kind == RvBinary && blk.Stmts[len(blk.Stmts)-1].Rvalue.BinOp == ir.OpLt {
				condBlk = blk
			}
		}
	}
	require.NotNil(t, condBlk, "expected a while-condition block comparing with <")
	exitBlk = fn.Blocks[condBlk.Term.Else]

	// The break inside the nested if must target the same exit block the
	// loop condition falls through to, and the continue at the bottom of
	// the loop body must target the condition block itself.
	var sawBreakToExit, sawContinueToCond bool
	for _, blk := range fn.Blocks {
		if blk.Term.Kind == TermGoto && blk.Term.Goto == exitBlk.ID && blk != condBlk {
			sawBreakToExit = true
		}
		if blk.Term.Kind == TermGoto && blk.Term.Goto == condBlk.ID && blk != fn.Blocks[0] {
			sawContinueToCond = true
		}
	}
	assert.True(t, sawBreakToExit, "break must jump to the loop's exit block")
	assert.True(t, sawContinueToCond, "continue must jump back to the condition block")
}

func TestBuildForLoopVarType(t *testing.T) {
	mod := buildSrc(t, `
		fn sum(n: i32) -> i32 {
			let mut total: i32 = 0;
			for i in 0..n {
				total = total + i;
			}
			total
		}
	`)
	fn := findFunc(t, mod, "sum")

	var condBlk *BasicBlock
	for _, blk := range fn.Blocks {
		if blk.Term.Kind == TermIf {
			for _, stmt := range blk.Stmts {
				if stmt.Rvalue.Kind == RvBinary && stmt.Rvalue.BinOp == ir.OpLt {
					condBlk = blk
				}
			}
		}
	}
	require.NotNil(t, condBlk)
	cmpStmt := condBlk.Stmts[len(condBlk.Stmts)-1]
	loopVarLocal := cmpStmt.Rvalue.Left.Place.Local
	assert.Equal(t, ir.Int32(), fn.LocalTypes[loopVarLocal], "loop variable must take its type from the range bound, not a hardcoded usize")
}

func TestBuildMatchLiteralPatternsWithWildcard(t *testing.T) {
	mod := buildSrc(t, `
		fn classify(n: i32) -> i32 {
			match n {
				0 => 10,
				1 => 20,
				_ => 30,
			}
		}
	`)
	fn := findFunc(t, mod, "classify")
	var switchBlk *BasicBlock
	for _, blk := range fn.Blocks {
		if blk.Term.Kind == TermSwitch {
			switchBlk = blk
		}
	}
	require.NotNil(t, switchBlk)
	require.Len(t, switchBlk.Term.Targets, 2)
	assert.ElementsMatch(t, []int64{0, 1}, []int64{switchBlk.Term.Targets[0].Value, switchBlk.Term.Targets[1].Value})
	assert.NotEqual(t, BlockID(0), switchBlk.Term.Default)
	defaultBlk := fn.Blocks[switchBlk.Term.Default]
	assert.NotEqual(t, TermUnreachable, defaultBlk.Term.Kind, "the wildcard arm must supply a real default block")
}

func TestBuildMatchSynthesizesUnreachableDefaultWhenNoWildcard(t *testing.T) {
	mod := buildSrc(t, `
		fn classify(n: bool) -> i32 {
			match n {
				true => 1,
				false => 0,
			}
		}
	`)
	fn := findFunc(t, mod, "classify")
	var switchBlk *BasicBlock
	for _, blk := range fn.Blocks {
		if blk.Term.Kind == TermSwitch {
			switchBlk = blk
		}
	}
	require.NotNil(t, switchBlk)
	defaultBlk := fn.Blocks[switchBlk.Term.Default]
	assert.Equal(t, TermUnreachable, defaultBlk.Term.Kind)
}

func TestBuildStructLiteralAndFieldAccess(t *testing.T) {
	mod := buildSrc(t, `
		struct Point { x: i32, y: i32 }
		fn make_x() -> i32 {
			let p = Point { x: 7, y: 9 };
			p.x
		}
	`)
	fn := findFunc(t, mod, "make_x")
	entry := fn.Blocks[0]

	var aggStmt *Statement
	for i := range entry.Stmts {
		if entry.Stmts[i].Rvalue.Kind == RvAggregate {
			aggStmt = &entry.Stmts[i]
		}
	}
	require.NotNil(t, aggStmt)
	require.Len(t, aggStmt.Rvalue.AggFields, 2)

	var sawFieldRead bool
	for _, stmt := range entry.Stmts {
		if stmt.Rvalue.Kind == RvUse && stmt.Rvalue.Operand.Kind == OperandCopy {
			if len(stmt.Rvalue.Operand.Place.Projs) == 1 && stmt.Rvalue.Operand.Place.Projs[0].Kind == ProjField {
				sawFieldRead = true
			}
		}
	}
	assert.True(t, sawFieldRead, "p.x must read through a field projection")
}

func TestBuildReferenceAndDereference(t *testing.T) {
	mod := buildSrc(t, `
		fn deref_it(p: &i32) -> i32 {
			*p
		}
		fn take_ref() -> i32 {
			let x: i32 = 5;
			deref_it(&x)
		}
	`)
	derefFn := findFunc(t, mod, "deref_it")
	entry := derefFn.Blocks[0]
	var sawDeref bool
	for _, stmt := range entry.Stmts {
		if stmt.Rvalue.Kind == RvUse && stmt.Rvalue.Operand.Kind == OperandCopy {
			for _, proj := range stmt.Rvalue.Operand.Place.Projs {
				if proj.Kind == ProjDeref {
					sawDeref = true
				}
			}
		}
	}
	assert.True(t, sawDeref)

	takeRefFn := findFunc(t, mod, "take_ref")
	var sawRef bool
	for _, blk := range takeRefFn.Blocks {
		for _, stmt := range blk.Stmts {
			if stmt.Rvalue.Kind == RvRef {
				sawRef = true
				assert.False(t, stmt.Rvalue.RefMut)
			}
		}
	}
	assert.True(t, sawRef)
}
