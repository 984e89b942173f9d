package constfold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/diag"
	"smdc/ir"
)

func TestEvalArithmetic(t *testing.T) {
	// (2 + 3) * 4 == 20
	sum := Binary(ir.OpAdd, IntLit(2, diag.Span{}), IntLit(3, diag.Span{}), diag.Span{})
	expr := Binary(ir.OpMul, sum, IntLit(4, diag.Span{}), diag.Span{})
	v, err := Eval(expr)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)
}

func TestEvalSizeof(t *testing.T) {
	v, err := Eval(Sizeof(ir.Int32(), diag.Span{}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestEvalTernary(t *testing.T) {
	expr := Ternary(IntLit(0, diag.Span{}), IntLit(1, diag.Span{}), IntLit(2, diag.Span{}), diag.Span{})
	v, err := Eval(expr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestEvalDivisionByZero(t *testing.T) {
	expr := Binary(ir.OpSDiv, IntLit(1, diag.Span{}), IntLit(0, diag.Span{}), diag.Span{})
	_, err := Eval(expr)
	require.Error(t, err)
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, diag.KindDivisionByZero, derr.Kind)
}

func TestEvalBytesBigEndian(t *testing.T) {
	b, err := EvalBytes(IntLit(1, diag.Span{}), ir.Int32())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, b)
}
