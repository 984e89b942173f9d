package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/frontend/rust/ast"
	"smdc/frontend/rust/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := New("test.rs", lexer.New("test.rs", src))
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	return prog
}

func TestParseSimpleFunction(t *testing.T) {
	prog := parseProgram(t, `
		fn add(a: i32, b: i32) -> i32 {
			a + b
		}
	`)
	require.Len(t, prog.Items, 1)
	fn, ok := prog.Items[0].(*ast.FunctionItem)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "i32", fn.Return.Name)
	require.NotNil(t, fn.Body.Tail)
	bin, ok := fn.Body.Tail.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Operator)
}

func TestParseLetAndIf(t *testing.T) {
	prog := parseProgram(t, `
		fn classify(x: i32) -> i32 {
			let mut y = 0;
			if x > 0 {
				y = 1;
			} else if x < 0 {
				y = -1;
			} else {
				y = 0;
			}
			y
		}
	`)
	fn := prog.Items[0].(*ast.FunctionItem)
	require.Len(t, fn.Body.Statements, 2)
	let, ok := fn.Body.Statements[0].(*ast.LetStatement)
	require.True(t, ok)
	assert.True(t, let.Mut)
	exprStmt := fn.Body.Statements[1].(*ast.ExprStatement)
	ifExpr, ok := exprStmt.Expr.(*ast.IfExpr)
	require.True(t, ok)
	_, isElseIf := ifExpr.Else.(*ast.IfExpr)
	assert.True(t, isElseIf)
}

func TestParseStructLiteralAndField(t *testing.T) {
	prog := parseProgram(t, `
		struct Point { x: i32, y: i32 }
		fn origin() -> Point {
			let p = Point { x: 0, y: 0 };
			p.x
		}
	`)
	require.Len(t, prog.Items, 2)
	fn := prog.Items[1].(*ast.FunctionItem)
	let := fn.Body.Statements[0].(*ast.LetStatement)
	lit, ok := let.Value.(*ast.StructLiteral)
	require.True(t, ok)
	assert.Equal(t, "Point", lit.Name)
	require.Len(t, lit.Fields, 2)
	field, ok := fn.Body.Tail.(*ast.FieldExpression)
	require.True(t, ok)
	assert.Equal(t, "x", field.Field)
}

func TestParseForRangeAndMatch(t *testing.T) {
	prog := parseProgram(t, `
		fn sum(n: i32) -> i32 {
			let mut total = 0;
			for i in 0..n {
				total = total + i;
			}
			match n {
				0 => 0,
				_ => total,
			}
		}
	`)
	fn := prog.Items[0].(*ast.FunctionItem)
	forStmt := fn.Body.Statements[1].(*ast.ExprStatement)
	forExpr, ok := forStmt.Expr.(*ast.ForExpr)
	require.True(t, ok)
	assert.Equal(t, "i", forExpr.Name)

	matchExpr, ok := fn.Body.Tail.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, matchExpr.Arms, 2)
	assert.True(t, matchExpr.Arms[1].IsWildcard)
}

func TestParseReferencesAndDeref(t *testing.T) {
	prog := parseProgram(t, `
		fn bump(x: &mut i32) {
			*x = *x + 1;
		}
	`)
	fn := prog.Items[0].(*ast.FunctionItem)
	assert.True(t, fn.Params[0].Type.Ref)
	assert.True(t, fn.Params[0].Type.RefMut)
	stmt := fn.Body.Statements[0].(*ast.ExprStatement)
	assign, ok := stmt.Expr.(*ast.AssignExpression)
	require.True(t, ok)
	target, ok := assign.Target.(*ast.UnaryExpression)
	require.True(t, ok)
	assert.Equal(t, "*", target.Operator)
}

func TestParseEnumAndConst(t *testing.T) {
	prog := parseProgram(t, `
		enum Direction { North, South, East, West }
		const MAX: i32 = 100;
	`)
	require.Len(t, prog.Items, 2)
	en, ok := prog.Items[0].(*ast.EnumItem)
	require.True(t, ok)
	assert.Len(t, en.Variants, 4)
	c, ok := prog.Items[1].(*ast.ConstItem)
	require.True(t, ok)
	assert.Equal(t, "MAX", c.Name)
}

func TestParseLoopBreak(t *testing.T) {
	prog := parseProgram(t, `
		fn run() -> i32 {
			let mut i = 0;
			loop {
				i = i + 1;
				if i > 10 {
					break;
				}
			}
			i
		}
	`)
	fn := prog.Items[0].(*ast.FunctionItem)
	loopStmt := fn.Body.Statements[1].(*ast.ExprStatement)
	_, ok := loopStmt.Expr.(*ast.LoopExpr)
	assert.True(t, ok)
}

func TestParseArrayType(t *testing.T) {
	prog := parseProgram(t, `
		fn first(arr: [i32; 4]) -> i32 {
			arr[0]
		}
	`)
	fn := prog.Items[0].(*ast.FunctionItem)
	ty := fn.Params[0].Type
	require.NotNil(t, ty.ArrayLen)
	assert.Equal(t, int64(4), *ty.ArrayLen)
}
