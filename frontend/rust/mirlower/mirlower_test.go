package mirlower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/rust/lexer"
	"smdc/frontend/rust/mir"
	"smdc/frontend/rust/parser"
	"smdc/frontend/rust/sema"
	"smdc/ir"
)

func lowerSrc(t *testing.T, src string) *ir.Module {
	t.Helper()
	p, err := parser.New("test.rs", lexer.New("test.rs", src))
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	c := sema.NewChecker("test.rs")
	require.NoError(t, c.Check(prog))
	mod, err := mir.Build("test.rs", prog, c)
	require.NoError(t, err)
	return Lower(mod)
}

func findIRFunc(t *testing.T, mod *ir.Module, name string) *ir.Function {
	t.Helper()
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function %q in ir module", name)
	return nil
}

func opSeq(fn *ir.Function) []ir.Op {
	seq := make([]ir.Op, len(fn.Insts))
	for i, inst := range fn.Insts {
		seq[i] = inst.Op
	}
	return seq
}

func containsSubseq(haystack, needle []ir.Op) bool {
	if len(needle) == 0 {
		return true
	}
	j := 0
	for _, op := range haystack {
		if op == needle[j] {
			j++
			if j == len(needle) {
				return true
			}
		}
	}
	return false
}

func TestLowerParamsUseLoadParam(t *testing.T) {
	out := lowerSrc(t, `fn add(a: i32, b: i32) -> i32 { a + b }`)
	fn := findIRFunc(t, out, "add")
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)

	var loadParamCount int
	for _, inst := range fn.Insts {
		if inst.Op == ir.OpLoadParam {
			loadParamCount++
		}
	}
	assert.Equal(t, 2, loadParamCount, "both parameters must be materialized via LoadParam")
	assert.True(t, containsSubseq(opSeq(fn), []ir.Op{ir.OpLoadParam, ir.OpLoadParam, ir.OpBinary, ir.OpStore, ir.OpLoad, ir.OpReturn}))
}

func TestLowerLocalsUseAlloca(t *testing.T) {
	out := lowerSrc(t, `
		fn f() -> i32 {
			let x: i32 = 5;
			x
		}
	`)
	fn := findIRFunc(t, out, "f")
	var sawAlloca bool
	for _, inst := range fn.Insts {
		if inst.Op == ir.OpAlloca {
			sawAlloca = true
		}
	}
	assert.True(t, sawAlloca, "a non-parameter local must get its own stack slot")
}

func TestLowerIfBecomesCondJumpAndJump(t *testing.T) {
	out := lowerSrc(t, `
		fn pick(cond: bool) -> i32 {
			if cond { 1 } else { 2 }
		}
	`)
	fn := findIRFunc(t, out, "pick")
	seq := opSeq(fn)
	assert.True(t, containsSubseq(seq, []ir.Op{ir.OpLoadParam, ir.OpLoad, ir.OpCondJumpTrue, ir.OpJump}))

	var sawLabel bool
	for _, inst := range fn.Insts {
		if inst.Op == ir.OpLabel {
			sawLabel = true
		}
	}
	assert.True(t, sawLabel, "every basic block must begin with a label instruction")
}

func TestLowerMatchBecomesEqCompareChainWithDefaultJump(t *testing.T) {
	out := lowerSrc(t, `
		fn classify(n: i32) -> i32 {
			match n {
				0 => 10,
				1 => 20,
				_ => 30,
			}
		}
	`)
	fn := findIRFunc(t, out, "classify")
	var eqCount, condJumps, jumps int
	for _, inst := range fn.Insts {
		if inst.Op == ir.OpBinary && inst.BinOp == ir.OpEq {
			eqCount++
		}
		if inst.Op == ir.OpCondJumpTrue {
			condJumps++
		}
		if inst.Op == ir.OpJump {
			jumps++
		}
	}
	assert.Equal(t, 2, eqCount, "one equality compare per literal match arm")
	assert.GreaterOrEqual(t, condJumps, 2)
	assert.GreaterOrEqual(t, jumps, 1, "the switch must fall through to its default via an unconditional jump")
}

func TestLowerCallEmitsCallThenJumpToContinuation(t *testing.T) {
	out := lowerSrc(t, `
		fn inc(x: i32) -> i32 { x + 1 }
		fn caller(y: i32) -> i32 {
			inc(y)
		}
	`)
	fn := findIRFunc(t, out, "caller")
	seq := opSeq(fn)
	assert.True(t, containsSubseq(seq, []ir.Op{ir.OpCall, ir.OpStore, ir.OpJump}))
}

func TestLowerFieldAccessComputesOffsetThenLoad(t *testing.T) {
	out := lowerSrc(t, `
		struct Point { x: i32, y: i32 }
		fn get_y() -> i32 {
			let p = Point { x: 1, y: 2 };
			p.y
		}
	`)
	fn := findIRFunc(t, out, "get_y")
	var sawNonZeroOffsetAdd bool
	for _, inst := range fn.Insts {
		if inst.Op == ir.OpBinary && inst.BinOp == ir.OpAdd {
			if inst.Rhs.Kind == ir.ValIntConst && inst.Rhs.Int != 0 {
				sawNonZeroOffsetAdd = true
			}
		}
	}
	assert.True(t, sawNonZeroOffsetAdd, "the y field access must add its byte offset to the struct's base address")
}

func TestLowerStringLiteralInternedOnceAcrossFunctions(t *testing.T) {
	out := lowerSrc(t, `
		fn a() -> bool {
			let s: &u8 = "hi";
			true
		}
		fn b() -> bool {
			let s: &u8 = "hi";
			true
		}
	`)
	assert.Len(t, out.Strings, 1, "identical string literals across functions must share one module-wide label")
}

func TestLowerFunctionAlwaysEndsInReturn(t *testing.T) {
	out := lowerSrc(t, `fn f() { }`)
	fn := findIRFunc(t, out, "f")
	require.NotEmpty(t, fn.Insts)
	assert.Equal(t, ir.OpReturn, fn.Insts[len(fn.Insts)-1].Op)
}
