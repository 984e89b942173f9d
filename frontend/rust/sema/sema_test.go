package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/diag"
	"smdc/frontend/rust/lexer"
	"smdc/frontend/rust/parser"
)

func checkSrc(t *testing.T, src string) error {
	t.Helper()
	p, err := parser.New("test.rs", lexer.New("test.rs", src))
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	c := NewChecker("test.rs")
	return c.Check(prog)
}

func TestChecksValidProgram(t *testing.T) {
	err := checkSrc(t, `
		struct Point { x: i32, y: i32 }
		fn add(a: i32, b: i32) -> i32 { a + b }
		fn origin() -> i32 {
			let p = Point { x: 1, y: 2 };
			add(p.x, p.y)
		}
	`)
	assert.NoError(t, err)
}

func TestUndefinedIdentifier(t *testing.T) {
	err := checkSrc(t, `fn f() -> i32 { x }`)
	require.Error(t, err)
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, diag.KindUndefinedIdentifier, derr.Kind)
}

func TestBreakOutsideLoop(t *testing.T) {
	err := checkSrc(t, `
		fn f() {
			break;
		}
	`)
	require.Error(t, err)
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, diag.KindBreakOutsideLoop, derr.Kind)
}

func TestBreakInsideLoopOk(t *testing.T) {
	err := checkSrc(t, `
		fn f() {
			loop {
				break;
			}
		}
	`)
	assert.NoError(t, err)
}

func TestUseOfMovedValue(t *testing.T) {
	err := checkSrc(t, `
		struct Pair { a: i32, b: i32 }
		fn consume(p: Pair) -> i32 { p.a }
		fn f() -> i32 {
			let p = Pair { a: 1, b: 2 };
			let x = consume(p);
			let y = consume(p);
			x + y
		}
	`)
	require.Error(t, err)
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, diag.KindUseOfMovedValue, derr.Kind)
}

func TestBorrowDoesNotMove(t *testing.T) {
	err := checkSrc(t, `
		struct Pair { a: i32, b: i32 }
		fn peek(p: &Pair) -> i32 { p.a }
		fn f() -> i32 {
			let p = Pair { a: 1, b: 2 };
			let x = peek(&p);
			let y = peek(&p);
			x + y
		}
	`)
	assert.NoError(t, err)
}

func TestAssignToImmutableFails(t *testing.T) {
	err := checkSrc(t, `
		fn f() {
			let x = 1;
			x = 2;
		}
	`)
	require.Error(t, err)
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, diag.KindTypeMismatch, derr.Kind)
}

func TestReassignResetsMove(t *testing.T) {
	err := checkSrc(t, `
		struct Pair { a: i32, b: i32 }
		fn consume(p: Pair) -> i32 { p.a }
		fn f() -> i32 {
			let mut p = Pair { a: 1, b: 2 };
			let x = consume(p);
			p = Pair { a: 3, b: 4 };
			let y = consume(p);
			x + y
		}
	`)
	assert.NoError(t, err)
}

func TestChecksUnitEnumDeclaration(t *testing.T) {
	err := checkSrc(t, `
		enum Direction { North, South, East, West }
		fn f() {
		}
	`)
	assert.NoError(t, err)
}

func TestIfElseTypeMismatch(t *testing.T) {
	err := checkSrc(t, `
		fn f() -> i32 {
			if true {
				1
			} else {
				let x: bool = false;
			}
		}
	`)
	require.Error(t, err)
}

func TestForRangeLoop(t *testing.T) {
	err := checkSrc(t, `
		fn sum(n: i32) -> i32 {
			let mut total = 0;
			for i in 0..n {
				total = total + i;
			}
			total
		}
	`)
	assert.NoError(t, err)
}
