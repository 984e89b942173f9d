package asm

import (
	"encoding/binary"

	"smdc/diag"
	"smdc/m68k"
)

// Encoder is pass 2: given the symbol table pass 1 produced, it walks the
// instruction stream again and emits exact big-endian M68000 bytes,
// recording a Relocation wherever a referenced symbol is not yet in the
// table (a label that truly never gets defined surfaces as
// UnresolvedSymbol once fixupRelocations runs).
type Encoder struct {
	symtab *SymbolTable
	base   uint32
	pos    uint32
	out    []byte
	relocs []Relocation
}

func NewEncoder(symtab *SymbolTable, base uint32) *Encoder {
	return &Encoder{symtab: symtab, base: base, pos: base}
}

// Encode runs pass 2 over insts and returns the final, relocation-fixed-up
// byte stream.
func Encode(insts []m68k.Inst, symtab *SymbolTable, base uint32) ([]byte, error) {
	e := NewEncoder(symtab, base)
	for _, inst := range insts {
		if err := e.emit(inst); err != nil {
			return nil, err
		}
	}
	if err := e.fixupRelocations(); err != nil {
		return nil, err
	}
	return e.out, nil
}

func (e *Encoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.out = append(e.out, b[:]...)
	e.pos += 2
}

func (e *Encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.out = append(e.out, b[:]...)
	e.pos += 4
}

func (e *Encoder) bytes(b []byte) {
	e.out = append(e.out, b...)
	e.pos += uint32(len(b))
}

func (e *Encoder) pushReloc(symbol string, siteOffset uint32, pcRelative bool) {
	e.relocs = append(e.relocs, Relocation{Site: siteOffset, Symbol: symbol, PCRelative: pcRelative})
}

func (e *Encoder) emit(inst m68k.Inst) error {
	switch inst.Op {
	case m68k.LABEL, m68k.COMMENT:
		return nil
	case m68k.DIRECTIVE:
		return e.emitDirective(inst)
	default:
		return e.emitInst(inst)
	}
}

func (e *Encoder) emitDirective(inst m68k.Inst) error {
	switch inst.Directive {
	case m68k.DirSection, m68k.DirGlobal:
		return nil
	case m68k.DirAlign:
		n := uint32(inst.DirArg)
		if n > 1 {
			rem := e.pos % n
			if rem != 0 {
				pad := n - rem
				e.bytes(make([]byte, pad))
			}
		}
		return nil
	case m68k.DirByte, m68k.DirWord, m68k.DirLong:
		e.bytes(inst.DirBytes)
		return nil
	case m68k.DirSpace:
		if inst.DirArg > 0 {
			e.bytes(make([]byte, inst.DirArg))
		}
		return nil
	case m68k.DirAsciz:
		e.bytes(append([]byte(inst.DirString), 0))
		return nil
	}
	return nil
}

// eaModeReg returns an operand's (mode, register) field pair without
// emitting any bytes. The opword is always written before any extension
// words, so instruction handlers compute mode/reg first, write the
// opword, then call emitEAExt to append the extension.
func eaModeReg(op m68k.Operand) (mode, reg uint16, err error) {
	switch op.Kind {
	case m68k.OpDataReg:
		return 0, uint16(op.Reg), nil
	case m68k.OpAddrReg:
		return 1, uint16(op.Reg), nil
	case m68k.OpAddrIndirect:
		return 2, uint16(op.Reg), nil
	case m68k.OpPostInc:
		return 3, uint16(op.Reg), nil
	case m68k.OpPreDec:
		return 4, uint16(op.Reg), nil
	case m68k.OpDisp:
		return 5, uint16(op.Reg), nil
	case m68k.OpIndexed:
		return 6, uint16(op.Reg), nil
	case m68k.OpAbsShort:
		return 7, 0, nil
	case m68k.OpAbsLong:
		return 7, 1, nil
	case m68k.OpImmediate:
		return 7, 4, nil
	case m68k.OpPCRelative:
		return 7, 2, nil
	case m68k.OpSymbol:
		return 7, 1, nil
	case m68k.OpSR:
		return 0, 0, nil
	default:
		return 0, 0, diag.New(diag.KindInvalidOperandCombination, diag.Span{}, "unsupported operand kind")
	}
}

// emitEAExt appends the extension word(s) for an addressing-mode operand,
// pushing a relocation if a referenced symbol is not yet known.
func (e *Encoder) emitEAExt(op m68k.Operand, size m68k.Size) error {
	switch op.Kind {
	case m68k.OpDataReg, m68k.OpAddrReg, m68k.OpAddrIndirect, m68k.OpPostInc, m68k.OpPreDec, m68k.OpSR:
		return nil
	case m68k.OpDisp:
		e.u16(uint16(int16(op.Disp)))
		return nil
	case m68k.OpIndexed:
		ext := (uint16(op.Index&7) << 12) | (1 << 11) | (uint16(op.Disp) & 0xFF)
		e.u16(ext)
		return nil
	case m68k.OpAbsShort:
		e.u16(uint16(int16(op.Abs)))
		return nil
	case m68k.OpAbsLong:
		e.u32(uint32(op.Abs))
		return nil
	case m68k.OpImmediate:
		switch size {
		case m68k.SizeByte:
			e.u16(uint16(int16(int8(op.Imm))))
		case m68k.SizeWord:
			e.u16(uint16(int16(op.Imm)))
		default:
			e.u32(uint32(op.Imm))
		}
		return nil
	case m68k.OpPCRelative:
		e.u16(uint16(int16(op.Disp)))
		return nil
	case m68k.OpSymbol:
		siteOffset := uint32(len(e.out))
		if addr, ok := e.symtab.Lookup(op.Symbol); ok {
			e.u32(addr)
		} else {
			e.pushReloc(op.Symbol, siteOffset, false)
			e.u32(0)
		}
		return nil
	default:
		return diag.New(diag.KindInvalidOperandCombination, diag.Span{}, "unsupported operand kind")
	}
}

func sizeBitsTwo(s m68k.Size) uint16 {
	switch s {
	case m68k.SizeByte:
		return 0
	case m68k.SizeWord:
		return 1
	default:
		return 2
	}
}

func moveSizeBits(s m68k.Size) uint16 {
	switch s {
	case m68k.SizeByte:
		return 1
	case m68k.SizeWord:
		return 3
	default:
		return 2
	}
}

func (e *Encoder) emitBranchFamily(inst m68k.Inst) error {
	var opwordBase uint16
	switch inst.Op {
	case m68k.BRA:
		opwordBase = 0x6000 | m68k.CT.Bits()<<8
	case m68k.BSR:
		opwordBase = 0x6000 | m68k.CF.Bits()<<8
	case m68k.BCC:
		opwordBase = 0x6000 | inst.Cond.Bits()<<8
	case m68k.DBF:
		opwordBase = 0x50C8 | m68k.CF.Bits()<<8 | uint16(inst.Src.Reg)
	}
	e.u16(opwordBase)
	site := e.pos
	target := inst.Dst.Symbol
	if addr, ok := e.symtab.Lookup(target); ok {
		disp := int64(addr) - int64(site)
		if disp < -32768 || disp > 32767 {
			return diag.New(diag.KindBranchOutOfRange, diag.Span{}, "branch displacement out of range to %q", target)
		}
		e.u16(uint16(int16(disp)))
	} else {
		e.pushReloc(target, uint32(len(e.out)), true)
		e.u16(0)
	}
	return nil
}

// emitOneEA writes an opword built from base|mode<<3|reg (mode/reg from
// ea), then ea's extension.
func (e *Encoder) emitOneEA(base uint16, ea m68k.Operand, size m68k.Size) error {
	mode, reg, err := eaModeReg(ea)
	if err != nil {
		return err
	}
	e.u16(base | mode<<3 | reg)
	return e.emitEAExt(ea, size)
}

func (e *Encoder) emitInst(inst m68k.Inst) error {
	switch inst.Op {
	case m68k.NOP:
		e.u16(0x4E71)
		return nil
	case m68k.RTS:
		e.u16(0x4E75)
		return nil
	case m68k.RTE:
		e.u16(0x4E73)
		return nil
	case m68k.UNLK:
		e.u16(0x4E58 | uint16(inst.Src.Reg))
		return nil
	case m68k.LINK:
		e.u16(0x4E50 | uint16(inst.Src.Reg))
		e.u16(uint16(int16(inst.Dst.Imm)))
		return nil
	case m68k.MOVEQ:
		e.u16(0x7000 | uint16(inst.Dst.Reg)<<9 | uint16(inst.Src.Imm)&0xFF)
		return nil
	case m68k.BRA, m68k.BSR, m68k.BCC, m68k.DBF:
		return e.emitBranchFamily(inst)
	case m68k.MOVE:
		if inst.Dst.Kind == m68k.OpSR {
			return e.emitOneEA(0x46C0, inst.Src, m68k.SizeWord)
		}
		if inst.Src.Kind == m68k.OpSR {
			return e.emitOneEA(0x40C0, inst.Dst, m68k.SizeWord)
		}
		srcMode, srcReg, err := eaModeReg(inst.Src)
		if err != nil {
			return err
		}
		dstMode, dstReg, err := eaModeReg(inst.Dst)
		if err != nil {
			return err
		}
		opword := moveSizeBits(inst.Size)<<12 | dstReg<<9 | dstMode<<6 | srcMode<<3 | srcReg
		e.u16(opword)
		if err := e.emitEAExt(inst.Src, inst.Size); err != nil {
			return err
		}
		return e.emitEAExt(inst.Dst, inst.Size)
	case m68k.LEA:
		return e.emitOneEA(0x41C0|uint16(inst.Dst.Reg)<<9, inst.Src, m68k.SizeLong)
	case m68k.PEA:
		return e.emitOneEA(0x4840, inst.Src, m68k.SizeLong)
	case m68k.CLR, m68k.NEG, m68k.NOT, m68k.TST:
		base := map[m68k.Mnemonic]uint16{m68k.CLR: 0x4200, m68k.NEG: 0x4400, m68k.NOT: 0x4600, m68k.TST: 0x4A00}[inst.Op]
		return e.emitOneEA(base|sizeBitsTwo(inst.Size)<<6, inst.Dst, inst.Size)
	case m68k.EXT:
		if inst.Size == m68k.SizeLong {
			e.u16(0x48C0 | uint16(inst.Dst.Reg))
		} else {
			e.u16(0x4880 | uint16(inst.Dst.Reg))
		}
		return nil
	case m68k.SWAP:
		e.u16(0x4840 | uint16(inst.Dst.Reg))
		return nil
	case m68k.EXG:
		if inst.Src.Kind == m68k.OpDataReg && inst.Dst.Kind == m68k.OpDataReg {
			e.u16(0xC140 | uint16(inst.Src.Reg)<<9 | uint16(inst.Dst.Reg))
		} else if inst.Src.Kind == m68k.OpAddrReg && inst.Dst.Kind == m68k.OpAddrReg {
			e.u16(0xC148 | uint16(inst.Src.Reg)<<9 | uint16(inst.Dst.Reg))
		} else {
			e.u16(0xC188 | uint16(inst.Src.Reg)<<9 | uint16(inst.Dst.Reg))
		}
		return nil
	case m68k.ADD, m68k.SUB, m68k.AND, m68k.OR:
		base := map[m68k.Mnemonic]uint16{m68k.ADD: 0xD000, m68k.SUB: 0x9000, m68k.AND: 0xC000, m68k.OR: 0x8000}[inst.Op]
		return e.emitRegEa(base, inst)
	case m68k.EOR:
		return e.emitOneEA(0xB100|uint16(inst.Src.Reg)<<9|sizeBitsTwo(inst.Size)<<6, inst.Dst, inst.Size)
	case m68k.CMP:
		return e.emitOneEA(0xB000|uint16(inst.Dst.Reg)<<9|sizeBitsTwo(inst.Size)<<6, inst.Src, inst.Size)
	case m68k.ADDA, m68k.SUBA, m68k.CMPA:
		wordBase := map[m68k.Mnemonic]uint16{m68k.ADDA: 0xD0C0, m68k.SUBA: 0x90C0, m68k.CMPA: 0xB0C0}[inst.Op]
		base := wordBase
		if inst.Size == m68k.SizeLong {
			base = wordBase | 0x0100
		}
		return e.emitOneEA(base|uint16(inst.Dst.Reg)<<9, inst.Src, m68k.SizeLong)
	case m68k.ADDQ, m68k.SUBQ:
		data := uint16(inst.Src.Imm)
		if data == 8 {
			data = 0
		}
		subBit := uint16(0)
		if inst.Op == m68k.SUBQ {
			subBit = 1
		}
		return e.emitOneEA(0x5000|data<<9|subBit<<8|sizeBitsTwo(inst.Size)<<6, inst.Dst, inst.Size)
	case m68k.ADDI, m68k.SUBI, m68k.ANDI, m68k.ORI, m68k.EORI, m68k.CMPI:
		base := map[m68k.Mnemonic]uint16{
			m68k.ORI: 0x0000, m68k.ANDI: 0x0200, m68k.SUBI: 0x0400,
			m68k.ADDI: 0x0600, m68k.EORI: 0x0A00, m68k.CMPI: 0x0C00,
		}[inst.Op]
		mode, reg, err := eaModeReg(inst.Dst)
		if err != nil {
			return err
		}
		e.u16(base | sizeBitsTwo(inst.Size)<<6 | mode<<3 | reg)
		imm := inst.Src.Imm
		switch inst.Size {
		case m68k.SizeByte:
			e.u16(uint16(int16(int8(imm))))
		case m68k.SizeWord:
			e.u16(uint16(int16(imm)))
		default:
			e.u32(uint32(imm))
		}
		return e.emitEAExt(inst.Dst, inst.Size)
	case m68k.MULS, m68k.MULU, m68k.DIVS, m68k.DIVU:
		base := map[m68k.Mnemonic]uint16{m68k.MULU: 0xC0C0, m68k.MULS: 0xC1C0, m68k.DIVU: 0x80C0, m68k.DIVS: 0x81C0}[inst.Op]
		return e.emitOneEA(base|uint16(inst.Dst.Reg)<<9, inst.Src, m68k.SizeWord)
	case m68k.BTST, m68k.BSET, m68k.BCLR, m68k.BCHG:
		opBit := map[m68k.Mnemonic]uint16{m68k.BTST: 0x00, m68k.BCHG: 0x40, m68k.BCLR: 0x80, m68k.BSET: 0xC0}[inst.Op]
		if inst.Src.Kind == m68k.OpImmediate {
			mode, reg, err := eaModeReg(inst.Dst)
			if err != nil {
				return err
			}
			e.u16(0x0800 | opBit | mode<<3 | reg)
			e.u16(uint16(inst.Src.Imm))
			return e.emitEAExt(inst.Dst, m68k.SizeByte)
		}
		return e.emitOneEA(0x0100|opBit<<2|uint16(inst.Src.Reg)<<9, inst.Dst, m68k.SizeByte)
	case m68k.SCC:
		return e.emitOneEA(0x50C0|inst.Cond.Bits()<<8, inst.Dst, m68k.SizeByte)
	case m68k.JMP, m68k.JSR:
		base := map[m68k.Mnemonic]uint16{m68k.JMP: 0x4EC0, m68k.JSR: 0x4E80}[inst.Op]
		return e.emitOneEA(base, inst.Dst, m68k.SizeLong)
	case m68k.MOVEM:
		mem := inst.Dst
		toMem := inst.MoveMToMem
		if !toMem {
			mem = inst.Src
		}
		base := uint16(0x4880)
		if !toMem {
			base = 0x4C80
		}
		sizeBit := uint16(0)
		if inst.Size == m68k.SizeLong {
			sizeBit = 1
		}
		mask := inst.RegList
		if toMem && mem.Kind == m68k.OpPreDec {
			mask = reverseBits16(mask)
		}
		mode, reg, err := eaModeReg(mem)
		if err != nil {
			return err
		}
		e.u16(base | sizeBit<<6 | mode<<3 | reg)
		e.u16(mask)
		return e.emitEAExt(mem, m68k.SizeWord)
	default:
		return diag.New(diag.KindUnsupportedInstruction, diag.Span{}, "unsupported instruction %v", inst.Op)
	}
}

// emitRegEa handles the common "Dn,<ea> / <ea>,Dn" two-operand integer
// instructions (ADD, SUB, AND, OR), selecting direction by which side is a
// data register.
func (e *Encoder) emitRegEa(base uint16, inst m68k.Inst) error {
	var dataReg int
	var dir uint16
	var ea m68k.Operand
	if inst.Dst.Kind == m68k.OpDataReg {
		dataReg = inst.Dst.Reg
		dir = 0
		ea = inst.Src
	} else {
		dataReg = inst.Src.Reg
		dir = 1
		ea = inst.Dst
	}
	mode, reg, err := eaModeReg(ea)
	if err != nil {
		return err
	}
	e.u16(base | uint16(dataReg)<<9 | dir<<8 | sizeBitsTwo(inst.Size)<<6 | mode<<3 | reg)
	return e.emitEAExt(ea, inst.Size)
}

func reverseBits16(v uint16) uint16 {
	var out uint16
	for i := 0; i < 16; i++ {
		if v&(1<<uint(i)) != 0 {
			out |= 1 << uint(15-i)
		}
	}
	return out
}

// fixupRelocations resolves every relocation recorded during emission
// against the (now presumably complete) symbol table, overwriting the
// zero placeholder bytes in e.out in place.
func (e *Encoder) fixupRelocations() error {
	for _, r := range e.relocs {
		addr, ok := e.symtab.Lookup(r.Symbol)
		if !ok {
			return diag.New(diag.KindUnresolvedSymbol, diag.Span{}, "unresolved symbol %q", r.Symbol)
		}
		if r.PCRelative {
			disp := int64(addr) - int64(e.base+r.Site)
			if disp < -32768 || disp > 32767 {
				return diag.New(diag.KindBranchOutOfRange, diag.Span{}, "relocation out of range for %q", r.Symbol)
			}
			binary.BigEndian.PutUint16(e.out[r.Site:r.Site+2], uint16(int16(disp)))
		} else {
			binary.BigEndian.PutUint32(e.out[r.Site:r.Site+4], addr)
		}
	}
	return nil
}
