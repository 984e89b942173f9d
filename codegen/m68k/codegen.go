// Package m68k lowers the shared IR (package ir) into the M68000 target
// instruction model (package m68k, imported here as target) using a fixed
// calling convention and a naive but correct stack-frame strategy.
//
// Grounded structurally on rush/aot's ARM64CodeGenerator: a generator
// struct carrying the pieces a linker needs (here: the SDK "needed" set
// standing in for ARM64CodeGenerator's symbolTable/relocations), a single
// driving entry point, and per-opcode lowering functions.
package m68k

import (
	"fmt"

	"smdc/diag"
	"smdc/ir"
	target "smdc/m68k"
)

// Generator lowers one ir.Module into a linear target-IR instruction
// stream, plus the ROM's fixed entry stub and SDK runtime bodies.
type Generator struct {
	needed   map[string]bool // SDK library functions referenced so far
	emitted  map[string]bool // SDK library functions already emitted
	userFunc map[string]bool // names shadowing SDK functions
}

// NewGenerator returns a fresh Generator.
func NewGenerator() *Generator {
	return &Generator{
		needed:   make(map[string]bool),
		emitted:  make(map[string]bool),
		userFunc: make(map[string]bool),
	}
}

// StartConfig carries the value the entry stub needs that isn't part of
// the shared IR: the initial stack pointer. The TMSS/VDP bring-up
// constants are fixed package-level values in entry.go.
type StartConfig struct {
	InitialSP uint32
}

// Generate lowers mod into a complete target-IR program: the entry stub,
// every user function, any SDK library bodies those functions transitively
// require, and the data segment (globals and string literals).
func (g *Generator) Generate(mod *ir.Module, cfg StartConfig) ([]target.Inst, error) {
	for _, fn := range mod.Functions {
		g.userFunc[fn.Name] = true
	}

	var out []target.Inst
	out = append(out, g.entryStub(cfg)...)

	for _, fn := range mod.Functions {
		body, err := g.genFunction(fn)
		if err != nil {
			return nil, fmt.Errorf("codegen: function %q: %w", fn.Name, err)
		}
		out = append(out, body...)
	}

	// SDK library bodies transitively close over each other's
	// dependencies; keep emitting until a full pass adds nothing new.
	for {
		pending := g.pendingLibraryCalls()
		if len(pending) == 0 {
			break
		}
		for _, name := range pending {
			g.emitted[name] = true
			body, deps, err := sdkLibraryBody(name)
			if err != nil {
				return nil, err
			}
			out = append(out, body...)
			for _, d := range deps {
				if !g.userFunc[d] {
					g.needed[d] = true
				}
			}
		}
	}

	out = append(out, target.Lbl("__data_rom_start"))
	out = append(out, target.Section(".data"))
	out = append(out, target.Lbl("__data_ram_start"))
	for _, gl := range mod.Globals {
		out = append(out, target.Lbl(gl.Name))
		if gl.Init != nil {
			out = append(out, target.Longs(padToLong(gl.Init)))
		} else {
			out = append(out, target.Space(int32(gl.Type.Size())))
		}
	}
	out = append(out, target.Lbl("__data_ram_end"))

	out = append(out, target.Section(".rodata"))
	for _, s := range mod.Strings {
		out = append(out, target.Lbl(string(s.Label)))
		out = append(out, target.Asciz(string(trimNUL(s.Bytes))))
	}

	return out, nil
}

func (g *Generator) pendingLibraryCalls() []string {
	var out []string
	for name := range g.needed {
		if !g.emitted[name] && !g.userFunc[name] {
			out = append(out, name)
		}
	}
	return out
}

func padToLong(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func trimNUL(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return b[:len(b)-1]
	}
	return b
}

// genFunction lowers one IR function into its labeled prologue, body, and
// every epilogue its return paths need.
func (g *Generator) genFunction(fn *ir.Function) ([]target.Inst, error) {
	fr := buildFrame(fn)

	var out []target.Inst
	out = append(out, target.Lbl(fn.Name))
	out = append(out, target.Link(6, fr.size))
	save := target.Movem(true, calleeSavedMask(), target.AnPreDec(7))
	save.Size = target.SizeLong
	out = append(out, save)

	for _, inst := range fn.Insts {
		lowered, err := g.lowerInst(inst, fr)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}

	if len(fn.Insts) == 0 || fn.Insts[len(fn.Insts)-1].Op != ir.OpReturn {
		out = append(out, epilogue()...)
	}

	return out, nil
}

func epilogue() []target.Inst {
	restore := target.Movem(false, calleeSavedMask(), target.AnPostInc(7))
	restore.Size = target.SizeLong
	return []target.Inst{
		restore,
		target.Unlk(6),
		target.Rts(),
	}
}

func condFor(op ir.BinOp) (target.Cond, bool) {
	switch op {
	case ir.OpEq:
		return target.CEQ, true
	case ir.OpNe:
		return target.CNE, true
	case ir.OpLt:
		return target.CLT, true
	case ir.OpLe:
		return target.CLE, true
	case ir.OpGt:
		return target.CGT, true
	case ir.OpGe:
		return target.CGE, true
	default:
		return 0, false
	}
}

func (g *Generator) lowerInst(inst ir.Inst, fr *frame) ([]target.Inst, error) {
	switch inst.Op {
	case ir.OpLabel:
		return []target.Inst{target.Lbl(string(inst.Label))}, nil
	case ir.OpComment:
		return []target.Inst{target.Cmt(inst.Comment)}, nil
	case ir.OpCopy:
		out := loadValue(inst.Src, 0, fr)
		out = append(out, storeDest(inst.Dest, 0, fr)...)
		return out, nil
	case ir.OpUnary:
		return g.lowerUnary(inst, fr), nil
	case ir.OpBinary:
		return g.lowerBinary(inst, fr), nil
	case ir.OpLoad:
		return lowerLoad(inst, fr), nil
	case ir.OpStore:
		return lowerStore(inst, fr), nil
	case ir.OpJump:
		return []target.Inst{target.Bra(string(inst.Target))}, nil
	case ir.OpCondJumpTrue:
		out := loadValue(inst.Cond, 0, fr)
		out = append(out, target.I(target.TST, target.SizeLong, target.Operand{}, target.Dn(0)))
		out = append(out, target.Bcc(target.CNE, string(inst.Target)))
		return out, nil
	case ir.OpCondJumpFalse:
		out := loadValue(inst.Cond, 0, fr)
		out = append(out, target.I(target.TST, target.SizeLong, target.Operand{}, target.Dn(0)))
		out = append(out, target.Bcc(target.CEQ, string(inst.Target)))
		return out, nil
	case ir.OpCall:
		return g.lowerCall(inst, fr), nil
	case ir.OpReturn:
		var out []target.Inst
		if inst.HasRet {
			out = append(out, loadValue(inst.RetVal, 0, fr)...)
		}
		out = append(out, epilogue()...)
		return out, nil
	case ir.OpAlloca:
		out := []target.Inst{
			target.I(target.LEA, target.SizeLong, target.Disp16(fr.allocaAddr(inst.Dest), 6), target.An(0)),
			target.I(target.MOVE, target.SizeLong, target.An(0), target.Disp16(fr.slot(inst.Dest), 6)),
		}
		return out, nil
	case ir.OpAddrOfGlobal:
		out := []target.Inst{
			target.I(target.LEA, target.SizeLong, target.Sym(inst.GlobalName), target.An(0)),
			target.I(target.MOVE, target.SizeLong, target.An(0), target.Disp16(fr.slot(inst.Dest), 6)),
		}
		return out, nil
	case ir.OpLoadParam:
		sizeAdjust := int32(0)
		switch inst.Size {
		case 1:
			sizeAdjust = 3
		case 2:
			sizeAdjust = 2
		}
		disp := int32(8) + int32(inst.ParamIndex)*4 + sizeAdjust
		return []target.Inst{
			target.I(target.LEA, target.SizeLong, target.Disp16(disp, 6), target.An(0)),
			target.I(target.MOVE, target.SizeLong, target.An(0), target.Disp16(fr.slot(inst.Dest), 6)),
		}, nil
	default:
		return nil, diag.New(diag.KindUnsupportedInstruction, diag.Span{}, "codegen: unhandled IR opcode %d", inst.Op)
	}
}
