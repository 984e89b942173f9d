// Package m68k is the target-specific instruction model the code
// generator emits into and the assembler/encoder consumes. It mirrors the
// shape of rush/aot's ARM64CodeGenerator (a small closed instruction set
// plus a relocation/symbol-table pair) but generalizes the operand side to
// the full M68000 addressing-mode table instead of ARM64's flat register
// file.
package m68k

import "fmt"

// Size is an M68000 operation size.
type Size int

const (
	SizeByte Size = 1
	SizeWord Size = 2
	SizeLong Size = 4
)

func (s Size) String() string {
	switch s {
	case SizeByte:
		return "b"
	case SizeWord:
		return "w"
	case SizeLong:
		return "l"
	default:
		return "?"
	}
}

// Cond is one of the sixteen M68000 condition codes.
type Cond int

const (
	CT  Cond = iota // true
	CF              // false
	CHI             // high
	CLS             // low or same
	CCC             // carry clear
	CCS             // carry set
	CNE             // not equal
	CEQ             // equal
	CVC             // overflow clear
	CVS             // overflow set
	CPL             // plus
	CMI             // minus
	CGE             // greater or equal
	CLT             // less than
	CGT             // greater than
	CLE             // less or equal
)

var condNames = map[Cond]string{
	CT: "t", CF: "f", CHI: "hi", CLS: "ls", CCC: "cc", CCS: "cs", CNE: "ne", CEQ: "eq",
	CVC: "vc", CVS: "vs", CPL: "pl", CMI: "mi", CGE: "ge", CLT: "lt", CGT: "gt", CLE: "le",
}

func (c Cond) String() string { return condNames[c] }

// condBits is the four-bit condition field used by Bcc, DBcc, and Scc
// opwords, in M68000 encoding order.
var condBits = map[Cond]uint16{
	CT: 0x0, CF: 0x1, CHI: 0x2, CLS: 0x3, CCC: 0x4, CCS: 0x5, CNE: 0x6, CEQ: 0x7,
	CVC: 0x8, CVS: 0x9, CPL: 0xA, CMI: 0xB, CGE: 0xC, CLT: 0xD, CGT: 0xE, CLE: 0xF,
}

func (c Cond) Bits() uint16 { return condBits[c] }

// OperandKind enumerates the M68000 addressing modes this toolchain emits.
type OperandKind int

const (
	OpDataReg       OperandKind = iota // Dn
	OpAddrReg                          // An
	OpAddrIndirect                     // (An)
	OpPostInc                          // (An)+
	OpPreDec                           // -(An)
	OpDisp                             // d(An), 16-bit displacement
	OpIndexed                          // d(An,Dn)
	OpAbsShort                         // $addr.w
	OpAbsLong                          // $addr
	OpImmediate                        // #imm
	OpPCRelative                       // d(PC)
	OpSymbol                           // unresolved label, resolved by the assembler
	OpSR                               // status register
)

// Operand is one operand of an M68k instruction.
type Operand struct {
	Kind OperandKind

	Reg   int   // DataReg, AddrReg, AddrIndirect, PostInc, PreDec, Disp, Indexed base register
	Index int   // Indexed: the data register used as index
	Disp  int32 // Disp, Indexed, PCRelative: signed displacement

	Abs int32 // AbsShort, AbsLong: absolute address

	Imm int32 // Immediate: the constant value

	Symbol      string // Symbol, PCRelative-to-label: the referenced label
	PCRelative  bool   // Symbol used in a PC-relative context (branch) vs absolute
}

func Dn(n int) Operand  { return Operand{Kind: OpDataReg, Reg: n} }
func An(n int) Operand  { return Operand{Kind: OpAddrReg, Reg: n} }
func AnInd(n int) Operand { return Operand{Kind: OpAddrIndirect, Reg: n} }
func AnPostInc(n int) Operand { return Operand{Kind: OpPostInc, Reg: n} }
func AnPreDec(n int) Operand  { return Operand{Kind: OpPreDec, Reg: n} }
func Disp16(disp int32, an int) Operand { return Operand{Kind: OpDisp, Reg: an, Disp: disp} }
func Indexed(disp int32, an, dn int) Operand {
	return Operand{Kind: OpIndexed, Reg: an, Index: dn, Disp: disp}
}
func AbsShort(addr int32) Operand { return Operand{Kind: OpAbsShort, Abs: addr} }
func AbsLong(addr int32) Operand  { return Operand{Kind: OpAbsLong, Abs: addr} }
func Imm32(v int32) Operand       { return Operand{Kind: OpImmediate, Imm: v} }
func Sym(name string) Operand     { return Operand{Kind: OpSymbol, Symbol: name} }
func PCRel(name string) Operand   { return Operand{Kind: OpSymbol, Symbol: name, PCRelative: true} }

// SR is the status-register pseudo-operand used by privileged MOVE forms.
var SR = Operand{Kind: OpSR}

func (o Operand) String() string {
	switch o.Kind {
	case OpDataReg:
		return fmt.Sprintf("d%d", o.Reg)
	case OpAddrReg:
		return fmt.Sprintf("a%d", o.Reg)
	case OpAddrIndirect:
		return fmt.Sprintf("(a%d)", o.Reg)
	case OpPostInc:
		return fmt.Sprintf("(a%d)+", o.Reg)
	case OpPreDec:
		return fmt.Sprintf("-(a%d)", o.Reg)
	case OpDisp:
		return fmt.Sprintf("%d(a%d)", o.Disp, o.Reg)
	case OpIndexed:
		return fmt.Sprintf("(%d,a%d,d%d)", o.Disp, o.Reg, o.Index)
	case OpAbsShort:
		return fmt.Sprintf("$%x.w", uint16(o.Abs))
	case OpAbsLong:
		return fmt.Sprintf("$%x", uint32(o.Abs))
	case OpImmediate:
		if o.Imm < 0 {
			return fmt.Sprintf("#-$%x", -o.Imm)
		}
		return fmt.Sprintf("#$%x", o.Imm)
	case OpSymbol:
		return o.Symbol
	case OpSR:
		return "sr"
	default:
		return "?"
	}
}
