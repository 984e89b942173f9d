package driver

import (
	"fmt"
	"strings"

	clexer "smdc/frontend/c/lexer"
	rustlexer "smdc/frontend/rust/lexer"
	rustmir "smdc/frontend/rust/mir"
	"smdc/ir"
)

// dumpCTokens relexes src (the already-preprocessed text, matching what
// the parser actually consumes) and prints one line per token, the
// --dump-tokens contract of spec.md §6.
func dumpCTokens(file, src string) {
	l := clexer.New(file, src)
	for {
		tok, err := l.Next()
		if err != nil {
			fmt.Printf("<lex error: %v>\n", err)
			return
		}
		fmt.Printf("%-16s %q  %d:%d\n", tok.Type, tok.Literal, tok.Line, tok.Column)
		if tok.Type == clexer.EOF {
			return
		}
	}
}

func dumpRustTokens(file, src string) {
	l := rustlexer.New(file, src)
	for {
		tok, err := l.Next()
		if err != nil {
			fmt.Printf("<lex error: %v>\n", err)
			return
		}
		fmt.Printf("%-16s %q  %d:%d\n", tok.Type, tok.Literal, tok.Line, tok.Column)
		if tok.Type == rustlexer.EOF {
			return
		}
	}
}

// opNames gives every ir.Op a mnemonic for textual dumping — ir.Op itself
// carries no String method (package ir, by design, stays a thin data
// model with no formatting behavior baked in).
var opNames = map[ir.Op]string{
	ir.OpCopy:         "copy",
	ir.OpUnary:        "unary",
	ir.OpBinary:       "binary",
	ir.OpLoad:         "load",
	ir.OpStore:        "store",
	ir.OpJump:         "jump",
	ir.OpCondJumpTrue: "jump_if",
	ir.OpCondJumpFalse: "jump_ifnot",
	ir.OpCall:         "call",
	ir.OpReturn:       "return",
	ir.OpAlloca:       "alloca",
	ir.OpAddrOfGlobal: "addr_of_global",
	ir.OpLoadParam:    "load_param",
	ir.OpLabel:        "label",
	ir.OpComment:      "comment",
}

// DumpIR renders mod as a flat, human-readable instruction listing — the
// --dump-ir contract. Not meant to round-trip; a debugging aid only, in
// the same spirit as asm.RenderText's --output-type asm listing but one
// level lower, over the shared IR rather than the M68k target-IR.
func DumpIR(mod *ir.Module) string {
	var b strings.Builder
	for _, fn := range mod.Functions {
		fmt.Fprintf(&b, "fn %s(", fn.Name)
		for i, p := range fn.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s", p.Name)
		}
		fmt.Fprintf(&b, ") -> %d temps\n", fn.NumTemps)
		for _, inst := range fn.Insts {
			b.WriteString("    ")
			b.WriteString(dumpInst(inst))
			b.WriteByte('\n')
		}
	}
	for _, g := range mod.Globals {
		fmt.Fprintf(&b, "global %s (%d bytes)\n", g.Name, g.Type.Size())
	}
	for _, s := range mod.Strings {
		fmt.Fprintf(&b, "string %s = %q\n", s.Label, s.Bytes)
	}
	return b.String()
}

func dumpInst(inst ir.Inst) string {
	name := opNames[inst.Op]
	switch inst.Op {
	case ir.OpLabel:
		return fmt.Sprintf("%s:", inst.Label)
	case ir.OpComment:
		return fmt.Sprintf("; %s", inst.Comment)
	case ir.OpBinary:
		return fmt.Sprintf("t%d = %s %s, %s", inst.Dest, name, inst.Lhs, inst.Rhs)
	case ir.OpUnary:
		return fmt.Sprintf("t%d = %s %s", inst.Dest, name, inst.Src)
	case ir.OpCopy:
		return fmt.Sprintf("t%d = %s", inst.Dest, inst.Src)
	case ir.OpLoad:
		return fmt.Sprintf("t%d = %s %s (size %d)", inst.Dest, name, inst.Addr, inst.Size)
	case ir.OpStore:
		return fmt.Sprintf("%s %s -> %s (size %d)", name, inst.StoreVal, inst.Addr, inst.Size)
	case ir.OpLoadParam:
		return fmt.Sprintf("t%d = %s #%d", inst.Dest, name, inst.ParamIndex)
	case ir.OpAlloca:
		return fmt.Sprintf("t%d = %s %d", inst.Dest, name, inst.Size)
	case ir.OpAddrOfGlobal:
		return fmt.Sprintf("t%d = %s %s", inst.Dest, name, inst.GlobalName)
	case ir.OpJump:
		return fmt.Sprintf("%s %s", name, inst.Target)
	case ir.OpCondJumpTrue, ir.OpCondJumpFalse:
		return fmt.Sprintf("%s %s, %s", name, inst.Cond, inst.Target)
	case ir.OpCall:
		args := make([]string, len(inst.Args))
		for i, a := range inst.Args {
			args[i] = a.String()
		}
		if inst.HasDest {
			return fmt.Sprintf("t%d = %s %s(%s)", inst.Dest, name, inst.Callee, strings.Join(args, ", "))
		}
		return fmt.Sprintf("%s %s(%s)", name, inst.Callee, strings.Join(args, ", "))
	case ir.OpReturn:
		if inst.HasRet {
			return fmt.Sprintf("%s %s", name, inst.RetVal)
		}
		return name
	default:
		return name
	}
}

// DumpMIR renders a Rust-like module's control-flow-graph form — the
// --dump-mir contract — each function followed by its blocks, every
// block printed as bbN with the same N that mirlower.blockLabel puts in
// the corresponding flattened label.
func DumpMIR(mod *rustmir.Module) string {
	var b strings.Builder
	for _, fn := range mod.Functions {
		fmt.Fprintf(&b, "fn %s (%d locals)\n", fn.Name, len(fn.LocalTypes))
		for _, blk := range fn.Blocks {
			fmt.Fprintf(&b, "  bb%d:\n", blk.ID)
			for _, stmt := range blk.Stmts {
				fmt.Fprintf(&b, "    %s\n", dumpMIRStmt(stmt))
			}
			fmt.Fprintf(&b, "    %s\n", dumpMIRTerm(blk.Term))
		}
	}
	return b.String()
}

func dumpMIRStmt(stmt rustmir.Statement) string {
	switch stmt.Kind {
	case rustmir.StAssign:
		return fmt.Sprintf("_%d = %s", stmt.Place.Local, dumpMIRRvalue(stmt.Rvalue))
	case rustmir.StDrop:
		return fmt.Sprintf("drop _%d", stmt.Place.Local)
	default:
		return "nop"
	}
}

func dumpMIRRvalue(rv rustmir.Rvalue) string {
	switch rv.Kind {
	case rustmir.RvUse:
		return fmt.Sprintf("use(%v)", rv.Operand)
	case rustmir.RvRef:
		return fmt.Sprintf("ref(_%d)", rv.RefPlace.Local)
	case rustmir.RvBinary:
		return fmt.Sprintf("binary(%v, %v)", rv.Left, rv.Right)
	case rustmir.RvUnary:
		return fmt.Sprintf("unary(%v)", rv.Un)
	case rustmir.RvAggregate:
		return fmt.Sprintf("aggregate(%d fields)", len(rv.AggFields))
	default:
		return "?"
	}
}

func dumpMIRTerm(term rustmir.Terminator) string {
	switch term.Kind {
	case rustmir.TermReturn:
		return "return"
	case rustmir.TermGoto:
		return fmt.Sprintf("goto bb%d", term.Goto)
	case rustmir.TermIf:
		return fmt.Sprintf("if %v then bb%d else bb%d", term.Cond, term.Then, term.Else)
	case rustmir.TermSwitch:
		return fmt.Sprintf("switch %v (%d targets) default bb%d", term.SwitchOperand, len(term.Targets), term.Default)
	case rustmir.TermCall:
		return fmt.Sprintf("call %s -> bb%d", term.CallFunc, term.CallTarget)
	case rustmir.TermUnreachable:
		return "unreachable"
	default:
		return "?"
	}
}
