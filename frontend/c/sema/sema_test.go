package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/c/lexer"
	"smdc/frontend/c/parser"
)

func checkSrc(t *testing.T, src string) error {
	t.Helper()
	l := lexer.New("test.c", src)
	p, err := parser.New("test.c", l)
	require.NoError(t, err)
	tu, err := p.ParseTranslationUnit()
	require.NoError(t, err)
	c := NewChecker("test.c")
	return c.Check(tu)
}

func TestChecksValidProgram(t *testing.T) {
	err := checkSrc(t, `
struct Point { int x; int y; };
int add(int a, int b) { return a + b; }
int main(void) {
	struct Point p;
	int i;
	i = add(1, 2);
	p.x = i;
	return p.x;
}`)
	assert.NoError(t, err)
}

func TestUndefinedIdentifier(t *testing.T) {
	err := checkSrc(t, "int f(void) { return x; }")
	require.Error(t, err)
}

func TestUndefinedFunction(t *testing.T) {
	err := checkSrc(t, "int f(void) { return g(); }")
	require.Error(t, err)
}

func TestBreakOutsideLoop(t *testing.T) {
	err := checkSrc(t, "void f(void) { break; }")
	require.Error(t, err)
}

func TestContinueOutsideLoop(t *testing.T) {
	err := checkSrc(t, "void f(void) { continue; }")
	require.Error(t, err)
}

func TestBreakInsideSwitchOk(t *testing.T) {
	err := checkSrc(t, `
int f(int x) {
	switch (x) {
	case 1:
		break;
	default:
		break;
	}
	return 0;
}`)
	assert.NoError(t, err)
}

func TestDuplicateLocal(t *testing.T) {
	err := checkSrc(t, "void f(void) { int a; int a; }")
	require.Error(t, err)
}

func TestShadowingAllowed(t *testing.T) {
	err := checkSrc(t, "void f(void) { int a; { int a; } }")
	assert.NoError(t, err)
}

func TestUndefinedGotoLabel(t *testing.T) {
	err := checkSrc(t, "void f(void) { goto nowhere; }")
	require.Error(t, err)
}

func TestForwardGotoLabelOk(t *testing.T) {
	err := checkSrc(t, `
void f(void) {
	goto done;
	done: ;
}`)
	assert.NoError(t, err)
}

func TestDuplicateLabel(t *testing.T) {
	err := checkSrc(t, `
void f(void) {
	l1: ;
	l1: ;
}`)
	require.Error(t, err)
}

func TestMemberNotFound(t *testing.T) {
	err := checkSrc(t, `
struct Point { int x; };
int f(struct Point p) { return p.z; }
`)
	require.Error(t, err)
}

func TestArrowOnNonPointer(t *testing.T) {
	err := checkSrc(t, `
struct Point { int x; };
int f(struct Point p) { return p->x; }
`)
	require.Error(t, err)
}

func TestDerefOfNonPointer(t *testing.T) {
	err := checkSrc(t, "int f(int a) { return *a; }")
	require.Error(t, err)
}

func TestUndefinedStructTag(t *testing.T) {
	err := checkSrc(t, "int f(struct Missing *p) { return 0; }")
	require.Error(t, err)
}

func TestTypedefResolves(t *testing.T) {
	err := checkSrc(t, `
typedef int my_int;
my_int f(my_int a) { return a; }
`)
	assert.NoError(t, err)
}

func TestArrayIndexing(t *testing.T) {
	err := checkSrc(t, `
int f(void) {
	int arr[10];
	arr[0] = 5;
	return arr[0];
}`)
	assert.NoError(t, err)
}
