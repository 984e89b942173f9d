package irbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/c/lexer"
	"smdc/frontend/c/parser"
	"smdc/frontend/c/sema"
	"smdc/ir"
)

func build(t *testing.T, src string) *ir.Module {
	t.Helper()
	l := lexer.New("test.c", src)
	p, err := parser.New("test.c", l)
	require.NoError(t, err)
	tu, err := p.ParseTranslationUnit()
	require.NoError(t, err)
	c := sema.NewChecker("test.c")
	require.NoError(t, c.Check(tu))
	mod, err := Build("test.c", tu, c)
	require.NoError(t, err)
	return mod
}

func findFunc(mod *ir.Module, name string) *ir.Function {
	for _, f := range mod.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func countOp(insts []ir.Inst, op ir.Op) int {
	n := 0
	for _, i := range insts {
		if i.Op == op {
			n++
		}
	}
	return n
}

func TestBuildsSimpleReturn(t *testing.T) {
	mod := build(t, "int main(void) { return 42; }")
	fn := findFunc(mod, "main")
	require.NotNil(t, fn)
	require.NotEmpty(t, fn.Insts)
	last := fn.Insts[len(fn.Insts)-1]
	assert.Equal(t, ir.OpReturn, last.Op)
	assert.True(t, last.HasRet)
	assert.Equal(t, ir.ValIntConst, last.RetVal.Kind)
	assert.EqualValues(t, 42, last.RetVal.Int)
}

func TestBuildsArithmeticAndCall(t *testing.T) {
	mod := build(t, `
int add(int a, int b) { return a + b; }
int main(void) { return add(1, 2); }`)
	add := findFunc(mod, "add")
	require.NotNil(t, add)
	assert.Equal(t, 2, countOp(add.Insts, ir.OpLoadParam))

	main := findFunc(mod, "main")
	require.NotNil(t, main)
	assert.Equal(t, 1, countOp(main.Insts, ir.OpCall))
}

func TestBuildsLoopControlFlow(t *testing.T) {
	mod := build(t, `
int sum(int n) {
	int total;
	int i;
	total = 0;
	for (i = 0; i < n; i = i + 1) {
		total = total + i;
	}
	return total;
}`)
	fn := findFunc(mod, "sum")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpLabel), 3)
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpCondJumpFalse), 1)
}

func TestBuildsBreakContinue(t *testing.T) {
	mod := build(t, `
void f(void) {
	int i;
	for (i = 0; i < 10; i = i + 1) {
		if (i == 5) { break; }
		if (i == 2) { continue; }
	}
}`)
	fn := findFunc(mod, "f")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpJump), 2)
}

func TestBuildsStructFieldAccess(t *testing.T) {
	mod := build(t, `
struct Point { int x; int y; };
int getx(struct Point *p) { return p->x; }`)
	fn := findFunc(mod, "getx")
	require.NotNil(t, fn)
	// one load to fetch the pointer value of p, one to read *p.x
	assert.Equal(t, 2, countOp(fn.Insts, ir.OpLoad))
}

func TestBuildsArrayIndexing(t *testing.T) {
	mod := build(t, `
int f(void) {
	int arr[4];
	arr[0] = 1;
	arr[1] = 2;
	return arr[0] + arr[1];
}`)
	fn := findFunc(mod, "f")
	require.NotNil(t, fn)
	assert.Equal(t, 1, countOp(fn.Insts, ir.OpAlloca))
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpStore), 2)
}

func TestBuildsGlobalWithInitializer(t *testing.T) {
	mod := build(t, "int counter = 7;")
	require.Len(t, mod.Globals, 1)
	g := mod.Globals[0]
	assert.Equal(t, "counter", g.Name)
	require.Len(t, g.Init, 4)
	assert.EqualValues(t, 7, g.Init[3])
}

func TestBuildsStringLiteral(t *testing.T) {
	mod := build(t, `
int puts_wrapper(void);
void f(void) {
	char *msg;
	msg = "hi";
}`)
	fn := findFunc(mod, "f")
	require.NotNil(t, fn)
	require.Len(t, mod.Strings, 1)
	assert.Equal(t, "hi\x00", string(mod.Strings[0].Bytes))
}

func TestBuildsSwitchWithReturningCases(t *testing.T) {
	mod := build(t, `
int f(int x) {
	switch (x) {
	case 1:
		return 10;
	case 2:
		return 20;
	default:
		return 0;
	}
}`)
	fn := findFunc(mod, "f")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpReturn), 3)
}

func TestBuildsShortCircuit(t *testing.T) {
	mod := build(t, `
int f(int a, int b) {
	return a && b;
}`)
	fn := findFunc(mod, "f")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, countOp(fn.Insts, ir.OpCondJumpFalse), 1)
}
