package m68k

import (
	"smdc/ir"
	target "smdc/m68k"
)

// loadValue emits the instructions that materialize v into data register
// dn. A temp or integer constant is loaded as a value; a global/function
// name or a string label is materialized as its address; a Mem operand is
// loaded as a long through its inner address.
func loadValue(v ir.Value, dn int, fr *frame) []target.Inst {
	switch v.Kind {
	case ir.ValTemp:
		return []target.Inst{
			target.I(target.MOVE, target.SizeLong, target.Disp16(fr.slot(v.Temp), 6), target.Dn(dn)),
		}
	case ir.ValIntConst:
		if v.Int >= -128 && v.Int <= 127 {
			return []target.Inst{target.I(target.MOVEQ, target.SizeLong, target.Imm32(int32(v.Int)), target.Dn(dn))}
		}
		return []target.Inst{target.I(target.MOVE, target.SizeLong, target.Imm32(int32(v.Int)), target.Dn(dn))}
	case ir.ValName:
		return []target.Inst{
			target.I(target.LEA, target.SizeLong, target.Sym(v.Name), addrReg(dn)),
			target.I(target.MOVE, target.SizeLong, addrReg(dn), target.Dn(dn)),
		}
	case ir.ValStringConst:
		return []target.Inst{
			target.I(target.LEA, target.SizeLong, target.Sym(string(v.Label)), addrReg(dn)),
			target.I(target.MOVE, target.SizeLong, addrReg(dn), target.Dn(dn)),
		}
	case ir.ValMem:
		out := loadAddr(*v.Inner, 0, fr)
		out = append(out, target.I(target.MOVE, target.SizeLong, target.AnInd(0), target.Dn(dn)))
		return out
	default:
		return nil
	}
}

// addrReg is a scratch address register distinct from A6 (frame pointer)
// and A7 (stack pointer), indexed the same way the data register being
// loaded is, so loadValue's two-instruction LEA+MOVE sequences for
// different destinations never clobber each other's scratch register when
// chained back to back (e.g. loading lhs into D0 via A0, then rhs into D1
// via A1).
func addrReg(dn int) target.Operand { return target.An(dn) }

// loadAddr emits the instructions that materialize the address denoted by
// v into address register an.
func loadAddr(v ir.Value, an int, fr *frame) []target.Inst {
	switch v.Kind {
	case ir.ValTemp:
		return []target.Inst{
			target.I(target.MOVE, target.SizeLong, target.Disp16(fr.slot(v.Temp), 6), target.An(an)),
		}
	case ir.ValName:
		return []target.Inst{target.I(target.LEA, target.SizeLong, target.Sym(v.Name), target.An(an))}
	case ir.ValStringConst:
		return []target.Inst{target.I(target.LEA, target.SizeLong, target.Sym(string(v.Label)), target.An(an))}
	case ir.ValIntConst:
		return []target.Inst{target.I(target.MOVE, target.SizeLong, target.Imm32(int32(v.Int)), target.An(an))}
	case ir.ValMem:
		out := loadAddr(*v.Inner, an, fr)
		out = append(out, target.I(target.MOVE, target.SizeLong, target.AnInd(an), target.An(an)))
		return out
	default:
		return nil
	}
}

// storeDest writes register dn back to a temp's spill slot.
func storeDest(dest ir.Temp, dn int, fr *frame) []target.Inst {
	return []target.Inst{
		target.I(target.MOVE, target.SizeLong, target.Dn(dn), target.Disp16(fr.slot(dest), 6)),
	}
}

func (g *Generator) lowerUnary(inst ir.Inst, fr *frame) []target.Inst {
	out := loadValue(inst.Src, 0, fr)
	switch inst.UnOp {
	case ir.OpNeg:
		out = append(out, target.I(target.NEG, target.SizeLong, target.Operand{}, target.Dn(0)))
	case ir.OpBitNot:
		out = append(out, target.I(target.NOT, target.SizeLong, target.Operand{}, target.Dn(0)))
	case ir.OpNot:
		out = append(out,
			target.I(target.TST, target.SizeLong, target.Operand{}, target.Dn(0)),
			target.Inst{Op: target.SCC, Size: target.SizeByte, Cond: target.CEQ, Dst: target.Dn(0)},
			target.I(target.AND, target.SizeLong, target.Imm32(1), target.Dn(0)),
		)
	}
	out = append(out, storeDest(inst.Dest, 0, fr)...)
	return out
}

func (g *Generator) lowerBinary(inst ir.Inst, fr *frame) []target.Inst {
	out := loadValue(inst.Lhs, 0, fr)
	out = append(out, loadValue(inst.Rhs, 1, fr)...)

	switch inst.BinOp {
	case ir.OpAdd:
		out = append(out, target.I(target.ADD, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpSub:
		out = append(out, target.I(target.SUB, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpAnd:
		out = append(out, target.I(target.AND, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpOr:
		out = append(out, target.I(target.OR, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpXor:
		out = append(out, target.I(target.EOR, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpShl:
		out = append(out, target.I(target.LSL, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpShr:
		out = append(out, target.I(target.ASR, target.SizeLong, target.Dn(1), target.Dn(0)))
	case ir.OpMul:
		out = append(out, target.I(target.MULS, target.SizeWord, target.Dn(1), target.Dn(0)))
	case ir.OpSDiv:
		out = append(out,
			target.I(target.DIVS, target.SizeWord, target.Dn(1), target.Dn(0)),
			target.I(target.EXT, target.SizeLong, target.Operand{}, target.Dn(0)),
		)
	case ir.OpUDiv:
		out = append(out,
			target.I(target.DIVU, target.SizeWord, target.Dn(1), target.Dn(0)),
			target.I(target.ANDI, target.SizeLong, target.Imm32(0xFFFF), target.Dn(0)),
		)
	case ir.OpSMod:
		out = append(out,
			target.I(target.DIVS, target.SizeWord, target.Dn(1), target.Dn(0)),
			target.Inst{Op: target.SWAP, Dst: target.Dn(0)},
			target.I(target.EXT, target.SizeLong, target.Operand{}, target.Dn(0)),
		)
	case ir.OpUMod:
		out = append(out,
			target.I(target.DIVU, target.SizeWord, target.Dn(1), target.Dn(0)),
			target.Inst{Op: target.SWAP, Dst: target.Dn(0)},
			target.I(target.ANDI, target.SizeLong, target.Imm32(0xFFFF), target.Dn(0)),
		)
	default:
		if cond, ok := condFor(inst.BinOp); ok {
			out = append(out,
				target.I(target.CMP, target.SizeLong, target.Dn(1), target.Dn(0)),
				target.Inst{Op: target.SCC, Size: target.SizeByte, Cond: cond, Dst: target.Dn(0)},
				target.I(target.AND, target.SizeLong, target.Imm32(1), target.Dn(0)),
			)
		}
	}

	out = append(out, storeDest(inst.Dest, 0, fr)...)
	return out
}

func lowerLoad(inst ir.Inst, fr *frame) []target.Inst {
	out := loadAddr(inst.Addr, 0, fr)

	var size target.Size
	switch inst.Size {
	case 1:
		size = target.SizeByte
	case 2:
		size = target.SizeWord
	default:
		size = target.SizeLong
	}
	out = append(out, target.I(target.MOVE, size, target.AnInd(0), target.Dn(0)))

	switch inst.Size {
	case 1:
		if inst.Signed {
			out = append(out,
				target.I(target.EXT, target.SizeWord, target.Operand{}, target.Dn(0)),
				target.I(target.EXT, target.SizeLong, target.Operand{}, target.Dn(0)),
			)
		} else {
			out = append(out, target.I(target.ANDI, target.SizeLong, target.Imm32(0xFF), target.Dn(0)))
		}
	case 2:
		if inst.Signed {
			out = append(out, target.I(target.EXT, target.SizeLong, target.Operand{}, target.Dn(0)))
		} else {
			out = append(out, target.I(target.ANDI, target.SizeLong, target.Imm32(0xFFFF), target.Dn(0)))
		}
	}

	out = append(out, storeDest(inst.Dest, 0, fr)...)
	return out
}

func lowerStore(inst ir.Inst, fr *frame) []target.Inst {
	out := loadAddr(inst.Addr, 0, fr)
	out = append(out, loadValue(inst.StoreVal, 1, fr)...)

	var size target.Size
	switch inst.Size {
	case 1:
		size = target.SizeByte
	case 2:
		size = target.SizeWord
	default:
		size = target.SizeLong
	}
	out = append(out, target.I(target.MOVE, size, target.Dn(1), target.AnInd(0)))
	return out
}

func (g *Generator) lowerCall(inst ir.Inst, fr *frame) []target.Inst {
	if shape, ok := sdkInline(inst.Callee); ok && !g.userFunc[inst.Callee] {
		return g.lowerInlineCall(inst, shape, fr)
	}

	var out []target.Inst
	for i := len(inst.Args) - 1; i >= 0; i-- {
		out = append(out, loadValue(inst.Args[i], 0, fr)...)
		out = append(out, target.I(target.MOVE, target.SizeLong, target.Dn(0), target.AnPreDec(7)))
	}

	if !g.userFunc[inst.Callee] {
		if _, ok := sdkLibrary(inst.Callee); ok {
			g.needed[inst.Callee] = true
		}
	}
	out = append(out, target.Jsr(target.Sym(inst.Callee)))

	argBytes := int32(len(inst.Args)) * 4
	if argBytes > 0 {
		if argBytes <= 8 {
			out = append(out, target.I(target.ADDQ, target.SizeLong, target.Imm32(argBytes), target.An(7)))
		} else {
			out = append(out, target.I(target.ADDA, target.SizeLong, target.Imm32(argBytes), target.An(7)))
		}
	}

	if inst.HasDest {
		out = append(out, storeDest(inst.Dest, 0, fr)...)
	}
	return out
}

func (g *Generator) lowerInlineCall(inst ir.Inst, shape inlineShape, fr *frame) []target.Inst {
	var out []target.Inst
	for i, arg := range inst.Args {
		if i > 3 {
			break
		}
		out = append(out, loadValue(arg, i, fr)...)
	}
	out = append(out, shape(inst.Args)...)
	if inst.HasDest {
		out = append(out, storeDest(inst.Dest, 0, fr)...)
	}
	return out
}
