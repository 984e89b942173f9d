package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/m68k"
)

func TestAssembleNopRts(t *testing.T) {
	insts := []m68k.Inst{m68k.Nop(), m68k.Rts()}
	result, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x4E, 0x71, 0x4E, 0x75}, result.Bytes)
}

func TestAssembleBackwardBranch(t *testing.T) {
	insts := []m68k.Inst{
		m68k.Lbl("start"),
		m68k.Nop(),
		m68k.Bra("start"),
	}
	result, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	require.Len(t, result.Bytes, 6)
	assert.Equal(t, []byte{0x4E, 0x71}, result.Bytes[0:2])
	assert.Equal(t, []byte{0x60, 0x00}, result.Bytes[2:4])
	assert.Equal(t, []byte{0xFF, 0xFC}, result.Bytes[4:6])
}

func TestEncodeLink(t *testing.T) {
	insts := []m68k.Inst{m68k.Link(6, 64)}
	result, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x4E, 0x56, 0xFF, 0xC0}, result.Bytes)
}

func TestAssembleDeterministic(t *testing.T) {
	insts := []m68k.Inst{
		m68k.Lbl("loop"),
		m68k.I(m68k.MOVEQ, m68k.SizeLong, m68k.Imm32(5), m68k.Dn(0)),
		m68k.Bra("loop"),
	}
	r1, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	r2, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	assert.Equal(t, r1.Bytes, r2.Bytes)
}

func TestUnresolvedSymbolFails(t *testing.T) {
	insts := []m68k.Inst{m68k.Bra("nowhere")}
	_, err := Assemble(insts, DefaultBaseAddress)
	require.Error(t, err)
}

func TestDuplicateLabelFails(t *testing.T) {
	insts := []m68k.Inst{
		m68k.Lbl("dup"),
		m68k.Nop(),
		m68k.Lbl("dup"),
		m68k.Rts(),
	}
	_, err := Assemble(insts, DefaultBaseAddress)
	require.Error(t, err)
}

func TestBranchOutOfRangeFails(t *testing.T) {
	insts := []m68k.Inst{m68k.Bra("far")}
	for i := 0; i < 20000; i++ {
		insts = append(insts, m68k.Nop())
	}
	insts = append(insts, m68k.Lbl("far"))
	_, err := Assemble(insts, DefaultBaseAddress)
	require.Error(t, err)
}

func TestAlignDirective(t *testing.T) {
	insts := []m68k.Inst{
		m68k.Bytes(0x01),
		m68k.Align(4),
		m68k.Lbl("aligned"),
		m68k.Nop(),
	}
	layout, err := RunLayout(insts, 0x200)
	require.NoError(t, err)
	addr, ok := layout.Symbols.Lookup("aligned")
	require.True(t, ok)
	assert.Equal(t, uint32(0x204), addr)
}

func TestMovemEncoding(t *testing.T) {
	insts := []m68k.Inst{
		m68k.Movem(true, 0x00FC, m68k.AnPreDec(7)), // D2-D7
	}
	result, err := Assemble(insts, DefaultBaseAddress)
	require.NoError(t, err)
	require.Len(t, result.Bytes, 4)
	assert.Equal(t, byte(0x48), result.Bytes[0])
	assert.Equal(t, byte(0xA7), result.Bytes[1])
	// Pre-decrement destinations bit-reverse the register mask so
	// higher-numbered registers land at higher addresses.
	assert.Equal(t, []byte{0x3F, 0x00}, result.Bytes[2:4])
}
