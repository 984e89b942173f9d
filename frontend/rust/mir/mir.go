// Package mir defines the control-flow-graph intermediate form the
// Rust-like front-end lowers its checked AST into before flattening to
// the shared linear IR in frontend/rust/mirlower.
//
// A Function is a set of basic blocks, each a straight-line list of
// Statements ended by exactly one Terminator. Local 0 always holds the
// function's return value; locals 1..=ParamCount are its parameters in
// order; every other local is a compiler-introduced temporary or a
// surface `let` binding. This two-step AST -> MIR -> IR pipeline differs from
// how the C front-end goes straight from AST to the linear IR in one
// pass (frontend/c/irbuild) — the Rust-like subset's expression-oriented
// control flow (if/loop/match as values) needs the explicit CFG a
// flat instruction stream can't represent as directly.
package mir

import "smdc/ir"

// Local names one of a function's storage slots.
type Local int

// BlockID names one of a function's basic blocks, stable for the
// lifetime of the Function (never renumbered after creation).
type BlockID int

// ProjKind discriminates one step of a Place's projection chain.
type ProjKind int

const (
	ProjField ProjKind = iota
	ProjIndex
	ProjDeref
)

// Projection is one step of a Place's path from its base local: a
// struct field at a byte offset, an array element at a computed byte
// offset, or a pointer dereference. Type is the type of the place
// after this projection is applied.
type Projection struct {
	Kind   ProjKind
	Offset int      // Field: byte offset added to the base address
	Index  *Operand // Index: element-index operand
	Stride int       // Index: element size in bytes
	Type   ir.Type
}

// Place is a storage location: a local plus zero or more projections.
type Place struct {
	Local Local
	Projs []Projection
}

// WithProj returns a new Place extending p by one projection, never
// aliasing p's projection slice.
func (p Place) WithProj(proj Projection) Place {
	projs := make([]Projection, len(p.Projs)+1)
	copy(projs, p.Projs)
	projs[len(p.Projs)] = proj
	return Place{Local: p.Local, Projs: projs}
}

// Type reports the place's type: baseType if it has no projections, or
// the type of its last projection otherwise.
func (p Place) Type(baseType ir.Type) ir.Type {
	if len(p.Projs) == 0 {
		return baseType
	}
	return p.Projs[len(p.Projs)-1].Type
}

// OperandKind discriminates an Operand's variant.
type OperandKind int

const (
	OperandCopy OperandKind = iota
	OperandConstInt
	OperandConstString
)

// Operand is an MIR value reference: a read of a place, or a literal
// constant.
type Operand struct {
	Kind  OperandKind
	Place Place  // Copy
	Int   int64  // ConstInt (also bool, 0 or 1)
	Str   string // ConstString
}

func Copy(l Local) Operand           { return Operand{Kind: OperandCopy, Place: Place{Local: l}} }
func CopyPlace(p Place) Operand      { return Operand{Kind: OperandCopy, Place: p} }
func ConstInt(v int64) Operand       { return Operand{Kind: OperandConstInt, Int: v} }
func ConstString(s string) Operand   { return Operand{Kind: OperandConstString, Str: s} }

// RvalueKind discriminates an Rvalue's variant.
type RvalueKind int

const (
	RvUse RvalueKind = iota
	RvRef
	RvBinary
	RvUnary
	RvAggregate
)

// FieldAssign is one member's value within an aggregate construction,
// addressed by byte offset so literal fields may appear in any order.
type FieldAssign struct {
	Offset int
	Type   ir.Type
	Value  Operand
}

// Rvalue is the right-hand side of an Assign statement.
type Rvalue struct {
	Kind RvalueKind
	Type ir.Type // result type

	Operand Operand // Use

	RefMut   bool // Ref
	RefPlace Place

	BinOp ir.BinOp // Binary
	Left  Operand
	Right Operand

	UnOp UnOp // Unary
	Un   Operand

	AggFields []FieldAssign // Aggregate
}

// UnOp enumerates MIR's unary operators — identical to ir.UnOp, kept as
// its own type so mir doesn't force every caller to import ir just to
// write OpNeg.
type UnOp = ir.UnOp

// StmtKind discriminates a Statement's variant.
type StmtKind int

const (
	StAssign StmtKind = iota
	StDrop
	StNop
)

// Statement is one instruction inside a basic block.
type Statement struct {
	Kind    StmtKind
	Place   Place // Assign, Drop
	Rvalue  Rvalue // Assign
}

// TermKind discriminates a Terminator's variant.
type TermKind int

const (
	TermReturn TermKind = iota
	TermGoto
	TermIf
	TermSwitch
	TermCall
	TermUnreachable
)

// SwitchTarget is one (constant, target) arm of a Switch terminator.
type SwitchTarget struct {
	Value int64
	Block BlockID
}

// Terminator ends a basic block's straight-line statement list with an
// explicit transfer of control.
type Terminator struct {
	Kind TermKind

	Goto BlockID // Goto

	Cond Value
	Then BlockID // If
	Else BlockID

	SwitchOperand Operand // Switch
	Targets       []SwitchTarget
	Default       BlockID

	CallFunc   string // Call
	CallArgs   []Operand
	CallDest   *Place
	CallTarget BlockID
}

// Value is an alias kept distinct from Operand at the type level for
// documentation purposes only — a Terminator's condition is read the
// same way any other operand is.
type Value = Operand

// BasicBlock is a straight-line run of Statements ended by one
// Terminator. Terminated guards against double-terminating a block that
// already ended in a return, break, or continue.
type BasicBlock struct {
	ID         BlockID
	Stmts      []Statement
	Term       Terminator
	Terminated bool
}

// Function is one lowered Rust-like function: Local 0 is the return
// slot, locals 1..=ParamCount are parameters, LocalTypes gives every
// local's type by index.
type Function struct {
	Name       string
	ParamCount int
	ParamNames []string
	ReturnType ir.Type
	LocalTypes []ir.Type
	Blocks     []*BasicBlock
}

// Module is the complete output of lowering one Rust-like program to MIR.
type Module struct {
	Functions []*Function
}
