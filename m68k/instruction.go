package m68k

// Mnemonic tags the instruction sum type. Grouped the way spec.md §3
// groups the M68000 instruction model.
type Mnemonic int

const (
	MOVE Mnemonic = iota
	MOVEQ
	MOVEM
	LEA
	PEA
	CLR
	EXG

	ADD
	SUB
	ADDA
	SUBA
	ADDQ
	SUBQ
	ADDI
	SUBI

	MULS
	MULU
	DIVS
	DIVU

	NEG
	NOT
	TST
	EXT

	AND
	OR
	EOR
	ANDI
	ORI
	EORI

	LSL
	LSR
	ASL
	ASR
	ROL
	ROR

	BTST
	BSET
	BCLR
	BCHG

	CMP
	CMPA
	CMPI

	BRA
	BSR
	BCC // Bcc, condition carried in Cond
	DBF

	JMP
	JSR

	LINK
	UNLK
	RTS
	RTE

	SCC // Scc, condition carried in Cond

	SWAP
	NOP

	// Pseudo-items
	LABEL
	COMMENT
	DIRECTIVE
)

// DirectiveKind enumerates the assembler directive pseudo-instructions.
type DirectiveKind int

const (
	DirSection DirectiveKind = iota
	DirAlign
	DirByte
	DirWord
	DirLong
	DirSpace
	DirAsciz
	DirGlobal
)

// Inst is one target-IR instruction: either a real M68000 opcode or a
// pseudo-item (label, comment, directive) consumed by the assembler.
type Inst struct {
	Op   Mnemonic
	Size Size
	Cond Cond

	Src Operand
	Dst Operand

	// MOVEM register list: bit i = Di, bit 8+i = Ai, pre-mask-reversal
	// order (the encoder reverses it for pre-decrement destinations).
	RegList uint16
	MoveMToMem bool // true: registers -> memory; false: memory -> registers

	Label string // LABEL

	Comment string // COMMENT

	Directive DirectiveKind
	DirArg    int32    // Align N, Space N
	DirBytes  []byte   // Byte/Word/Long raw payload (already sized)
	DirString string   // Asciz string payload (without trailing NUL)
	DirSection_ string // Section name for DirSection
}

func I(op Mnemonic, size Size, src, dst Operand) Inst {
	return Inst{Op: op, Size: size, Src: src, Dst: dst}
}

func Lbl(name string) Inst { return Inst{Op: LABEL, Label: name} }

func Cmt(c string) Inst { return Inst{Op: COMMENT, Comment: c} }

func Section(name string) Inst { return Inst{Op: DIRECTIVE, Directive: DirSection, DirSection_: name} }
func Align(n int32) Inst       { return Inst{Op: DIRECTIVE, Directive: DirAlign, DirArg: n} }
func Bytes(b ...byte) Inst     { return Inst{Op: DIRECTIVE, Directive: DirByte, DirBytes: b} }
func Words(b []byte) Inst      { return Inst{Op: DIRECTIVE, Directive: DirWord, DirBytes: b} }
func Longs(b []byte) Inst      { return Inst{Op: DIRECTIVE, Directive: DirLong, DirBytes: b} }
func Space(n int32) Inst       { return Inst{Op: DIRECTIVE, Directive: DirSpace, DirArg: n} }
func Asciz(s string) Inst      { return Inst{Op: DIRECTIVE, Directive: DirAsciz, DirString: s} }
func Global(name string) Inst  { return Inst{Op: DIRECTIVE, Directive: DirGlobal, DirSection_: name} }

func Nop() Inst { return Inst{Op: NOP} }
func Rts() Inst { return Inst{Op: RTS} }
func Rte() Inst { return Inst{Op: RTE} }

func Bra(target string) Inst { return Inst{Op: BRA, Dst: Sym(target)} }
func Bsr(target string) Inst { return Inst{Op: BSR, Dst: Sym(target)} }
func Bcc(c Cond, target string) Inst { return Inst{Op: BCC, Cond: c, Dst: Sym(target)} }
func Dbf(dn int, target string) Inst { return Inst{Op: DBF, Src: Dn(dn), Dst: Sym(target)} }

func Link(an int, frameSize int32) Inst {
	return Inst{Op: LINK, Src: An(an), Dst: Operand{Kind: OpImmediate, Imm: -frameSize}}
}
func Unlk(an int) Inst { return Inst{Op: UNLK, Src: An(an)} }

func Jmp(target Operand) Inst { return Inst{Op: JMP, Dst: target} }
func Jsr(target Operand) Inst { return Inst{Op: JSR, Dst: target} }

func Movem(toMemory bool, regList uint16, mem Operand) Inst {
	if toMemory {
		return Inst{Op: MOVEM, MoveMToMem: true, RegList: regList, Dst: mem}
	}
	return Inst{Op: MOVEM, MoveMToMem: false, RegList: regList, Src: mem}
}
