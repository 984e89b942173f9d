package m68k

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smdc/asm"
	"smdc/ir"
	target "smdc/m68k"
)

// intMain0 builds `int main(void) { return 0; }` directly in the shared
// IR, matching spec.md's scenario 1.
func intMain0() *ir.Module {
	mod := ir.NewModule()
	fn := &ir.Function{
		Name:       "main",
		ReturnType: ir.Int32(),
		NumTemps:   0,
	}
	ret := ir.IntConst(0)
	fn.Insts = []ir.Inst{ir.Return(&ret)}
	mod.AddFunction(fn)
	return mod
}

func TestEntryStubContainsStartAndJsrMain(t *testing.T) {
	g := NewGenerator()
	insts, err := g.Generate(intMain0(), StartConfig{InitialSP: 0x00FFE000})
	require.NoError(t, err)

	require.True(t, len(insts) > 4)
	assert.Equal(t, target.LABEL, insts[0].Op)
	assert.Equal(t, "_start", insts[0].Label)

	foundJsrMain := false
	for _, inst := range insts {
		if inst.Op == target.JSR && inst.Dst.Kind == target.OpSymbol && inst.Dst.Symbol == "main" {
			foundJsrMain = true
		}
	}
	assert.True(t, foundJsrMain, "entry stub must JSR main")
}

func TestMainFunctionHasPrologueAndEpilogue(t *testing.T) {
	g := NewGenerator()
	insts, err := g.Generate(intMain0(), StartConfig{InitialSP: 0x00FFE000})
	require.NoError(t, err)

	mainIdx := -1
	for i, inst := range insts {
		if inst.Op == target.LABEL && inst.Label == "main" {
			mainIdx = i
			break
		}
	}
	require.GreaterOrEqual(t, mainIdx, 0)

	link := insts[mainIdx+1]
	require.Equal(t, target.LINK, link.Op)
	assert.Equal(t, 6, link.Src.Reg)
	assert.True(t, link.Dst.Imm <= -16, "frame size must include the 16-byte saved-register headroom")

	save := insts[mainIdx+2]
	assert.Equal(t, target.MOVEM, save.Op)
	assert.True(t, save.MoveMToMem)
	assert.Equal(t, calleeSavedMask(), save.RegList)

	var tailOps []target.Mnemonic
	for _, inst := range insts[mainIdx:] {
		tailOps = append(tailOps, inst.Op)
		if inst.Op == target.RTS {
			break
		}
	}
	assert.Contains(t, tailOps, target.UNLK)
	assert.Contains(t, tailOps, target.RTS)
}

func TestGeneratedProgramAssemblesCleanly(t *testing.T) {
	g := NewGenerator()
	insts, err := g.Generate(intMain0(), StartConfig{InitialSP: 0x00FFE000})
	require.NoError(t, err)

	_, err = asm.Assemble(insts, asm.DefaultBaseAddress)
	require.NoError(t, err)
}

func TestBinaryAddLowering(t *testing.T) {
	g := NewGenerator()
	fn := &ir.Function{
		Name:     "add_two",
		NumTemps: 1,
		Insts: []ir.Inst{
			ir.Binary(0, ir.OpAdd, ir.IntConst(2), ir.IntConst(3)),
			ir.Return(valPtr(ir.TempVal(0))),
		},
	}
	lowered, err := g.genFunction(fn)
	require.NoError(t, err)

	var sawAdd bool
	for _, inst := range lowered {
		if inst.Op == target.ADD {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd)
}

func TestDivisionLoweringUsesExtL(t *testing.T) {
	g := NewGenerator()
	fn := &ir.Function{
		Name:     "divide",
		NumTemps: 1,
		Insts: []ir.Inst{
			ir.Binary(0, ir.OpSDiv, ir.IntConst(10), ir.IntConst(3)),
			ir.Return(valPtr(ir.TempVal(0))),
		},
	}
	lowered, err := g.genFunction(fn)
	require.NoError(t, err)

	var sawDivs, sawExt bool
	for _, inst := range lowered {
		if inst.Op == target.DIVS {
			sawDivs = true
		}
		if inst.Op == target.EXT && inst.Size == target.SizeLong {
			sawExt = true
		}
	}
	assert.True(t, sawDivs)
	assert.True(t, sawExt)
}

func TestInlineSDKCallSkipsJSR(t *testing.T) {
	g := NewGenerator()
	fn := &ir.Function{
		Name: "flip_vblank",
		Insts: []ir.Inst{
			ir.Call(nil, "wait_vblank", nil),
			ir.Return(nil),
		},
	}
	lowered, err := g.genFunction(fn)
	require.NoError(t, err)

	for _, inst := range lowered {
		if inst.Op == target.JSR {
			t.Fatalf("inline SDK call must not JSR")
		}
	}
}

func TestLibraryCallTracksNeeded(t *testing.T) {
	g := NewGenerator()
	mod := ir.NewModule()
	fn := &ir.Function{
		Name: "uses_memcpy",
		Insts: []ir.Inst{
			ir.Call(nil, "memcpy", []ir.Value{ir.IntConst(0), ir.IntConst(0), ir.IntConst(4)}),
			ir.Return(nil),
		},
	}
	mod.AddFunction(fn)

	insts, err := g.Generate(mod, StartConfig{InitialSP: 0x00FFE000})
	require.NoError(t, err)

	foundMemcpyBody := false
	for _, inst := range insts {
		if inst.Op == target.LABEL && inst.Label == "memcpy" {
			foundMemcpyBody = true
		}
	}
	assert.True(t, foundMemcpyBody, "a library SDK call's body must be emitted once")
}

func valPtr(v ir.Value) *ir.Value { return &v }
