package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/c/ast"
	"smdc/frontend/c/lexer"
)

func parseFile(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	l := lexer.New("test.c", src)
	p, err := New("test.c", l)
	require.NoError(t, err)
	tu, err := p.ParseTranslationUnit()
	require.NoError(t, err)
	return tu
}

func TestParsesMinimalMain(t *testing.T) {
	tu := parseFile(t, "int main(void) { return 0; }")
	require.Len(t, tu.Decls, 1)
	fn, ok := tu.Decls[0].(*ast.FunctionDecl)
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, "int", fn.ReturnType.Base)
	require.NotNil(t, fn.Body)
	require.Len(t, fn.Body.Statements, 1)
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStatement)
	require.True(t, ok)
	lit, ok := ret.Value.(*ast.IntLiteral)
	require.True(t, ok)
	assert.EqualValues(t, 0, lit.Value)
}

func TestParsesGlobalAndParams(t *testing.T) {
	tu := parseFile(t, "int counter;\nint add(int a, int b) { return a + b; }")
	require.Len(t, tu.Decls, 2)

	gv, ok := tu.Decls[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "counter", gv.Name)

	fn, ok := tu.Decls[1].(*ast.FunctionDecl)
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
}

func TestOperatorPrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"2 + 3 * 4;", "(2 + (3 * 4))"},
		{"(2 + 3) * 4;", "((2 + 3) * 4)"},
		{"a = b = 1;", "(a = (b = 1))"},
		{"a < b && c > d;", "((a < b) && (c > d))"},
		{"x ? y : z;", "(x ? y : z)"},
	}
	for _, c := range cases {
		tu := parseFile(t, "void f(void) { "+c.src+" }")
		fn := tu.Decls[0].(*ast.FunctionDecl)
		es := fn.Body.Statements[0].(*ast.ExpressionStatement)
		assert.Equal(t, c.want, es.Expr.String(), "source %q", c.src)
	}
}

func TestParsesIfWhileFor(t *testing.T) {
	tu := parseFile(t, `
int f(void) {
	int i;
	if (i == 0) { return 1; } else { return 2; }
	while (i < 10) { i = i + 1; }
	for (i = 0; i < 10; i = i + 1) { i = i; }
	return i;
}`)
	fn := tu.Decls[0].(*ast.FunctionDecl)
	require.Len(t, fn.Body.Statements, 5)
	_, ok := fn.Body.Statements[1].(*ast.IfStatement)
	assert.True(t, ok)
	_, ok = fn.Body.Statements[2].(*ast.WhileStatement)
	assert.True(t, ok)
	_, ok = fn.Body.Statements[3].(*ast.ForStatement)
	assert.True(t, ok)
}

func TestParsesStructDeclAndMemberAccess(t *testing.T) {
	tu := parseFile(t, `
struct Point { int x; int y; };
int get_x(struct Point *p) { return p->x; }
`)
	require.Len(t, tu.Decls, 2)
	sd, ok := tu.Decls[0].(*ast.StructDecl)
	require.True(t, ok)
	assert.Equal(t, "Point", sd.Tag)
	require.Len(t, sd.Fields, 2)

	fn := tu.Decls[1].(*ast.FunctionDecl)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, 1, fn.Params[0].Type.PointerDepth)
	ret := fn.Body.Statements[0].(*ast.ReturnStatement)
	me, ok := ret.Value.(*ast.MemberExpression)
	require.True(t, ok)
	assert.True(t, me.Arrow)
	assert.Equal(t, "x", me.Field)
}

func TestParsesSwitchStatement(t *testing.T) {
	tu := parseFile(t, `
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
	fn := tu.Decls[0].(*ast.FunctionDecl)
	sw, ok := fn.Body.Statements[0].(*ast.SwitchStatement)
	require.True(t, ok)
	require.Len(t, sw.Cases, 3)
	assert.True(t, sw.Cases[2].IsDefault)
}

func TestParsesSizeofAndCast(t *testing.T) {
	tu := parseFile(t, "void f(void) { int n; n = sizeof(int); n = (int)n; }")
	fn := tu.Decls[0].(*ast.FunctionDecl)
	es := fn.Body.Statements[1].(*ast.ExpressionStatement)
	assign := es.Expr.(*ast.AssignExpression)
	sz, ok := assign.Value.(*ast.SizeofExpression)
	require.True(t, ok)
	assert.Equal(t, "int", sz.Type.Base)

	es2 := fn.Body.Statements[2].(*ast.ExpressionStatement)
	assign2 := es2.Expr.(*ast.AssignExpression)
	cast, ok := assign2.Value.(*ast.CastExpression)
	require.True(t, ok)
	assert.Equal(t, "int", cast.Type.Base)
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	l := lexer.New("test.c", "int f(void) { return 0 }")
	p, err := New("test.c", l)
	require.NoError(t, err)
	_, err = p.ParseTranslationUnit()
	require.Error(t, err)
}
