package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructFieldOffsetAlignsEachMember(t *testing.T) {
	st := Struct("point3", []Member{
		{Name: "flag", Type: Uint8()},  // offset 0, size 1
		{Name: "x", Type: Int32()},     // aligned to 4 -> offset 4
		{Name: "y", Type: Int16()},     // offset 8
		{Name: "z", Type: Uint8()},     // offset 10
	})

	off, ty, ok := st.FieldOffset("x")
	assert.True(t, ok)
	assert.Equal(t, 4, off)
	assert.Equal(t, TyInt32, ty.Kind)

	off, _, ok = st.FieldOffset("y")
	assert.True(t, ok)
	assert.Equal(t, 8, off)

	off, _, ok = st.FieldOffset("z")
	assert.True(t, ok)
	assert.Equal(t, 10, off)
}

func TestArraySize(t *testing.T) {
	arr := Array(Int32(), 4)
	assert.Equal(t, 16, arr.Size())
	assert.Equal(t, 4, arr.Align())
}

func TestSignedness(t *testing.T) {
	assert.True(t, Int8().Signed())
	assert.False(t, Uint8().Signed())
	assert.True(t, Int16().Signed())
	assert.False(t, Uint32().Signed())
}
