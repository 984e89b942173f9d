package asm

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"smdc/m68k"
)

// mnemonicNames renders a Mnemonic the way the human-readable assembly
// text format spells it — lowercase, '.'-free (size suffixes are appended
// by the caller). Grounded on the line-classification/rendering style of
// ajroetker-goat's arm64_parser.go, which builds its text form by mapping
// each internal instruction tag to its textual mnemonic rather than
// hand-formatting every case inline.
var mnemonicNames = map[m68k.Mnemonic]string{
	m68k.MOVE: "move", m68k.MOVEQ: "moveq", m68k.MOVEM: "movem", m68k.LEA: "lea",
	m68k.PEA: "pea", m68k.CLR: "clr", m68k.EXG: "exg",
	m68k.ADD: "add", m68k.SUB: "sub", m68k.ADDA: "adda", m68k.SUBA: "suba",
	m68k.ADDQ: "addq", m68k.SUBQ: "subq", m68k.ADDI: "addi", m68k.SUBI: "subi",
	m68k.MULS: "muls", m68k.MULU: "mulu", m68k.DIVS: "divs", m68k.DIVU: "divu",
	m68k.NEG: "neg", m68k.NOT: "not", m68k.TST: "tst", m68k.EXT: "ext",
	m68k.AND: "and", m68k.OR: "or", m68k.EOR: "eor",
	m68k.ANDI: "andi", m68k.ORI: "ori", m68k.EORI: "eori",
	m68k.LSL: "lsl", m68k.LSR: "lsr", m68k.ASL: "asl", m68k.ASR: "asr",
	m68k.ROL: "rol", m68k.ROR: "ror",
	m68k.BTST: "btst", m68k.BSET: "bset", m68k.BCLR: "bclr", m68k.BCHG: "bchg",
	m68k.CMP: "cmp", m68k.CMPA: "cmpa", m68k.CMPI: "cmpi",
	m68k.BRA: "bra", m68k.BSR: "bsr", m68k.DBF: "dbf",
	m68k.JMP: "jmp", m68k.JSR: "jsr",
	m68k.LINK: "link", m68k.UNLK: "unlk", m68k.RTS: "rts", m68k.RTE: "rte",
	m68k.SWAP: "swap", m68k.NOP: "nop",
}

// RenderText renders a target-IR instruction stream into the human-
// readable assembly text format described in spec.md §6: four-space
// indent, label: at column 0, ';' comments, '.'-prefixed directives. This
// form is never read back by the binary encoder, which works directly
// from the target-IR.
func RenderText(insts []m68k.Inst) string {
	lines := lo.Map(insts, func(inst m68k.Inst, _ int) string {
		return renderLine(inst)
	})
	nonEmpty := lo.Filter(lines, func(l string, _ int) bool { return l != "" })
	return strings.Join(nonEmpty, "\n") + "\n"
}

func renderLine(inst m68k.Inst) string {
	switch inst.Op {
	case m68k.LABEL:
		return inst.Label + ":"
	case m68k.COMMENT:
		return "    ; " + inst.Comment
	case m68k.DIRECTIVE:
		return renderDirective(inst)
	case m68k.BCC:
		return fmt.Sprintf("    b%s %s", inst.Cond, inst.Dst.Symbol)
	case m68k.SCC:
		return fmt.Sprintf("    s%s %s", inst.Cond, renderOperand(inst.Dst))
	case m68k.BRA, m68k.BSR, m68k.DBF:
		if inst.Op == m68k.DBF {
			return fmt.Sprintf("    dbf %s,%s", renderOperand(inst.Src), inst.Dst.Symbol)
		}
		return fmt.Sprintf("    %s %s", mnemonicNames[inst.Op], inst.Dst.Symbol)
	case m68k.LINK:
		return fmt.Sprintf("    link %s,#%d", renderOperand(inst.Src), inst.Dst.Imm)
	case m68k.UNLK:
		return fmt.Sprintf("    unlk %s", renderOperand(inst.Src))
	case m68k.RTS, m68k.RTE, m68k.NOP:
		return "    " + mnemonicNames[inst.Op]
	case m68k.MOVEM:
		mem := inst.Dst
		if !inst.MoveMToMem {
			mem = inst.Src
			return fmt.Sprintf("    movem.%s %s,%s", inst.Size, renderOperand(mem), renderRegList(inst.RegList))
		}
		return fmt.Sprintf("    movem.%s %s,%s", inst.Size, renderRegList(inst.RegList), renderOperand(mem))
	default:
		name := mnemonicNames[inst.Op]
		if name == "" {
			name = "?"
		}
		hasSize := inst.Size != 0
		mnem := name
		if hasSize {
			mnem = fmt.Sprintf("%s.%s", name, inst.Size)
		}
		switch {
		case inst.Src == (m68k.Operand{}) && inst.Dst != (m68k.Operand{}):
			return fmt.Sprintf("    %s %s", mnem, renderOperand(inst.Dst))
		case inst.Dst == (m68k.Operand{}):
			return fmt.Sprintf("    %s", mnem)
		default:
			return fmt.Sprintf("    %s %s,%s", mnem, renderOperand(inst.Src), renderOperand(inst.Dst))
		}
	}
}

func renderOperand(op m68k.Operand) string { return op.String() }

func renderRegList(mask uint16) string {
	var parts []string
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) != 0 {
			parts = append(parts, fmt.Sprintf("d%d", i))
		}
	}
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(8+i)) != 0 {
			parts = append(parts, fmt.Sprintf("a%d", i))
		}
	}
	return strings.Join(parts, "/")
}

func renderDirective(inst m68k.Inst) string {
	switch inst.Directive {
	case m68k.DirSection:
		return "    ." + inst.DirSection_
	case m68k.DirGlobal:
		return "    .global " + inst.DirSection_
	case m68k.DirAlign:
		return fmt.Sprintf("    .align %d", inst.DirArg)
	case m68k.DirByte:
		return "    .byte " + joinBytes(inst.DirBytes)
	case m68k.DirWord:
		return "    .word " + joinBytes(inst.DirBytes)
	case m68k.DirLong:
		return "    .long " + joinBytes(inst.DirBytes)
	case m68k.DirSpace:
		return fmt.Sprintf("    .space %d", inst.DirArg)
	case m68k.DirAsciz:
		return fmt.Sprintf("    .asciz %q", inst.DirString)
	default:
		return ""
	}
}

func joinBytes(b []byte) string {
	parts := lo.Map(b, func(v byte, _ int) string { return fmt.Sprintf("0x%02x", v) })
	return strings.Join(parts, ", ")
}
