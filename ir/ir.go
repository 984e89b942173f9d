// Package ir is the shared intermediate representation produced by both
// front-ends (C and the Rust-like language) and consumed by the M68k code
// generator. It is a flat, linear, three-address form over an infinite
// supply of virtual registers (Temps) with explicit memory operations:
// front-ends never hand the back-end a value that lives anywhere but a
// Temp, a constant, or an address computed through Load/Store.
package ir

import "fmt"

// Temp is a virtual register, dense and non-negative within one function's
// namespace. Construction discipline (not a verifier) guarantees each Temp
// is assigned exactly once before use.
type Temp int

// Label names a program point, unique within the function that defines it
// (or, for SDK/runtime helpers, unique within the whole emitted object).
type Label string

// ValueKind tags the variant carried by a Value.
type ValueKind int

const (
	ValTemp ValueKind = iota
	ValIntConst
	ValStringConst
	ValName
	ValMem
)

// Value is an IR operand: a Temp, an integer constant, a reference to a
// string-literal label, a Name (global or function), or a Mem wrapping
// another Value for a load-through-address.
type Value struct {
	Kind   ValueKind
	Temp   Temp
	Int    int64
	Label  Label  // StringConst
	Name   string // Name
	Inner  *Value // Mem
}

func TempVal(t Temp) Value       { return Value{Kind: ValTemp, Temp: t} }
func IntConst(v int64) Value     { return Value{Kind: ValIntConst, Int: v} }
func StringConst(l Label) Value  { return Value{Kind: ValStringConst, Label: l} }
func NameVal(n string) Value     { return Value{Kind: ValName, Name: n} }
func MemVal(inner Value) Value   { return Value{Kind: ValMem, Inner: &inner} }

func (v Value) String() string {
	switch v.Kind {
	case ValTemp:
		return fmt.Sprintf("t%d", v.Temp)
	case ValIntConst:
		return fmt.Sprintf("%d", v.Int)
	case ValStringConst:
		return fmt.Sprintf("str(%s)", v.Label)
	case ValName:
		return v.Name
	case ValMem:
		return fmt.Sprintf("[%s]", v.Inner.String())
	default:
		return "<invalid>"
	}
}

// BinOp enumerates the shared-IR binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpSDiv
	OpUDiv
	OpSMod
	OpUMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// UnOp enumerates the shared-IR unary operators.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
	OpBitNot
)

// Op is the instruction opcode tag (the IR's sum-type discriminant).
type Op int

const (
	OpCopy Op = iota
	OpUnary
	OpBinary
	OpLoad
	OpStore
	OpJump
	OpCondJumpTrue
	OpCondJumpFalse
	OpCall
	OpReturn
	OpAlloca
	OpAddrOfGlobal
	OpLoadParam
	OpLabel
	OpComment
)

// Inst is a single shared-IR instruction. Only the fields relevant to Op
// are meaningful; the rest are zero.
type Inst struct {
	Op Op

	Dest Temp // valid for Copy, Unary, Binary, Load, Call(with dest), Alloca, AddrOfGlobal, LoadParam
	HasDest bool

	Src   Value // Copy operand, Unary operand
	Lhs   Value // Binary
	Rhs   Value // Binary
	BinOp BinOp
	UnOp  UnOp

	Addr     Value // Load/Store address operand
	StoreVal Value // Store source value
	Size     int   // Load/Store: 1, 2, or 4 bytes; Alloca: the slot's full size
	Signed   bool  // Load: sign-extend (true) or zero-extend (false)
	Volatile bool  // Load/Store: must not be elided, reordered, or merged

	Target Label // Jump, CondJumpTrue, CondJumpFalse
	Cond   Value // CondJumpTrue/False condition operand

	Callee   string  // Call
	Args     []Value // Call
	RetVal   Value   // Return operand
	HasRet   bool    // Return: whether RetVal is present

	Align int // Alloca

	GlobalName string // AddrOfGlobal

	ParamIndex int // LoadParam

	Label   Label  // Label instruction
	Comment string // Comment instruction
}

func Copy(dest Temp, src Value) Inst {
	return Inst{Op: OpCopy, Dest: dest, HasDest: true, Src: src}
}

func Unary(dest Temp, op UnOp, src Value) Inst {
	return Inst{Op: OpUnary, Dest: dest, HasDest: true, UnOp: op, Src: src}
}

func Binary(dest Temp, op BinOp, lhs, rhs Value) Inst {
	return Inst{Op: OpBinary, Dest: dest, HasDest: true, BinOp: op, Lhs: lhs, Rhs: rhs}
}

func Load(dest Temp, addr Value, size int, signed, volatile bool) Inst {
	return Inst{Op: OpLoad, Dest: dest, HasDest: true, Addr: addr, Size: size, Signed: signed, Volatile: volatile}
}

func Store(addr, src Value, size int, volatile bool) Inst {
	return Inst{Op: OpStore, Addr: addr, StoreVal: src, Size: size, Volatile: volatile}
}

func Jump(target Label) Inst { return Inst{Op: OpJump, Target: target} }

func CondJumpTrue(cond Value, target Label) Inst {
	return Inst{Op: OpCondJumpTrue, Cond: cond, Target: target}
}

func CondJumpFalse(cond Value, target Label) Inst {
	return Inst{Op: OpCondJumpFalse, Cond: cond, Target: target}
}

func Call(dest *Temp, callee string, args []Value) Inst {
	i := Inst{Op: OpCall, Callee: callee, Args: args}
	if dest != nil {
		i.Dest = *dest
		i.HasDest = true
	}
	return i
}

func Return(val *Value) Inst {
	i := Inst{Op: OpReturn}
	if val != nil {
		i.RetVal = *val
		i.HasRet = true
	}
	return i
}

func Alloca(dest Temp, size, align int) Inst {
	return Inst{Op: OpAlloca, Dest: dest, HasDest: true, Size: size, Align: align}
}

func AddrOfGlobal(dest Temp, name string) Inst {
	return Inst{Op: OpAddrOfGlobal, Dest: dest, HasDest: true, GlobalName: name}
}

func LoadParam(dest Temp, index, size int) Inst {
	return Inst{Op: OpLoadParam, Dest: dest, HasDest: true, ParamIndex: index, Size: size}
}

func LabelInst(l Label) Inst { return Inst{Op: OpLabel, Label: l} }

func Comment(c string) Inst { return Inst{Op: OpComment, Comment: c} }

// Param is a function parameter: a name paired with its declared type.
type Param struct {
	Name string
	Type Type
}

// Local is a function-local variable tracked only for stack sizing; the
// front-ends otherwise address locals entirely through Temps and Allocas.
type Local struct {
	Name string
	Type Type
}

// Function is an ordered list of instructions plus the metadata the back
// end needs to build a stack frame and calling sequence.
type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	Insts      []Inst
	Locals     []Local
	NumTemps   int // dense count of Temps used, for frame sizing
}

// Global is a module-level variable. Init, when non-nil, is already sized
// and laid out (big-endian) to match Type.
type Global struct {
	Name string
	Type Type
	Init []byte
}

// StringLit is a string literal promoted to its own label; emitted as a
// null-terminated byte sequence.
type StringLit struct {
	Label Label
	Bytes []byte
}

// Module is the complete output of a front-end: an ordered, name-unique set
// of functions, globals, and string literals.
type Module struct {
	Functions []*Function
	Globals   []*Global
	Strings   []*StringLit
}

func NewModule() *Module { return &Module{} }

func (m *Module) AddFunction(f *Function) { m.Functions = append(m.Functions, f) }
func (m *Module) AddGlobal(g *Global)     { m.Globals = append(m.Globals, g) }
func (m *Module) AddString(s *StringLit)  { m.Strings = append(m.Strings, s) }
