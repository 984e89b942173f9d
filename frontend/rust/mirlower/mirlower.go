// Package mirlower flattens the Rust-like front-end's control-flow-graph
// MIR (frontend/rust/mir) into the same linear, address-based shared IR
// the C front-end builds directly in frontend/c/irbuild. Every MIR local
// becomes either a LoadParam-computed address (parameters) or an
// Alloca'd address (everything else); every Place read/write becomes an
// explicit Load/Store against that address plus its projection offsets,
// the identical lvalue-as-address discipline irbuild.Builder documents.
package mirlower

import (
	"smdc/frontend/rust/mir"
	"smdc/ir"
)

// Lower flattens every function in mod into an ir.Module.
func Lower(mod *mir.Module) *ir.Module {
	out := ir.NewModule()
	strings := make(map[string]ir.Label)
	for _, fn := range mod.Functions {
		out.AddFunction(lowerFunction(fn, out, strings))
	}
	return out
}

type lowering struct {
	fn      *mir.Function
	irfn    *ir.Function
	addrs   []ir.Value // address of each MIR local, indexed by mir.Local
	tempN   int
	module  *ir.Module
	strings map[string]ir.Label
}

func (l *lowering) newTemp() ir.Temp {
	t := ir.Temp(l.tempN)
	l.tempN++
	return t
}

func (l *lowering) emit(inst ir.Inst) { l.irfn.Insts = append(l.irfn.Insts, inst) }

func blockLabel(fnName string, id mir.BlockID) ir.Label {
	return ir.Label(".L" + fnName + "_bb" + itoa(int(id)))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func lowerFunction(fn *mir.Function, module *ir.Module, strings map[string]ir.Label) *ir.Function {
	params := make([]ir.Param, fn.ParamCount)
	for i := 0; i < fn.ParamCount; i++ {
		params[i] = ir.Param{Name: fn.ParamNames[i], Type: fn.LocalTypes[i+1]}
	}
	l := &lowering{
		fn:      fn,
		irfn:    &ir.Function{Name: fn.Name, Params: params, ReturnType: fn.ReturnType},
		addrs:   make([]ir.Value, len(fn.LocalTypes)),
		module:  module,
		strings: strings,
	}

	// Local 0 is the return slot; locals 1..=ParamCount are parameters,
	// addressed by LoadParam exactly like irbuild addresses them.
	// Everything else — including local 0 when the function returns a
	// value — gets its own stack slot via Alloca.
	for i, ty := range fn.LocalTypes {
		switch {
		case i >= 1 && i <= fn.ParamCount:
			addr := l.newTemp()
			l.emit(ir.LoadParam(addr, i-1, ty.Size()))
			l.addrs[i] = ir.TempVal(addr)
		case i == 0 && ty.Kind == ir.TyVoid:
			// no storage needed for a void return
		default:
			addr := l.newTemp()
			l.emit(ir.Alloca(addr, ty.Size(), ty.Align()))
			l.addrs[i] = ir.TempVal(addr)
		}
	}

	for _, blk := range fn.Blocks {
		l.emit(ir.LabelInst(blockLabel(fn.Name, blk.ID)))
		for _, stmt := range blk.Stmts {
			l.lowerStmt(stmt)
		}
		l.lowerTerm(blk.Term)
	}

	if len(l.irfn.Insts) == 0 || l.irfn.Insts[len(l.irfn.Insts)-1].Op != ir.OpReturn {
		l.emit(ir.Return(nil))
	}
	l.irfn.NumTemps = l.tempN
	return l.irfn
}

// addr resolves place to an address Value and the type stored there,
// walking its projection chain one step at a time exactly like
// frontend/c/irbuild's offsetAddr-based member/index lowering.
func (l *lowering) addr(place mir.Place) (ir.Value, ir.Type) {
	addr := l.addrs[place.Local]
	ty := l.fn.LocalTypes[place.Local]
	for _, proj := range place.Projs {
		switch proj.Kind {
		case mir.ProjField:
			addr = l.offsetAddr(addr, proj.Offset)
			ty = proj.Type
		case mir.ProjIndex:
			idx := l.lowerOperand(*proj.Index)
			scaled := l.newTemp()
			l.emit(ir.Binary(scaled, ir.OpMul, idx, ir.IntConst(int64(proj.Stride))))
			sum := l.newTemp()
			l.emit(ir.Binary(sum, ir.OpAdd, addr, ir.TempVal(scaled)))
			addr = ir.TempVal(sum)
			ty = proj.Type
		case mir.ProjDeref:
			loaded := l.newTemp()
			l.emit(ir.Load(loaded, addr, 4, false, ty.Volatile))
			addr = ir.TempVal(loaded)
			ty = proj.Type
		}
	}
	return addr, ty
}

func (l *lowering) offsetAddr(base ir.Value, off int) ir.Value {
	if off == 0 {
		return base
	}
	t := l.newTemp()
	l.emit(ir.Binary(t, ir.OpAdd, base, ir.IntConst(int64(off))))
	return ir.TempVal(t)
}

// lowerOperand reads an Operand's current value into a fresh Temp (or
// returns a constant directly, without emitting anything).
func (l *lowering) lowerOperand(op mir.Operand) ir.Value {
	switch op.Kind {
	case mir.OperandConstInt:
		return ir.IntConst(op.Int)
	case mir.OperandConstString:
		lbl := l.internString(op.Str)
		return ir.StringConst(lbl)
	default: // OperandCopy
		addr, ty := l.addr(op.Place)
		dest := l.newTemp()
		l.emit(ir.Load(dest, addr, ty.Size(), ty.Signed(), ty.Volatile))
		return ir.TempVal(dest)
	}
}

func (l *lowering) lowerStmt(stmt mir.Statement) {
	switch stmt.Kind {
	case mir.StAssign:
		l.lowerAssign(stmt.Place, stmt.Rvalue)
	case mir.StDrop, mir.StNop:
		// Drop has no runtime effect for this back end: every type here
		// is trivially destructible (no destructors in this subset).
	}
}

func (l *lowering) lowerAssign(place mir.Place, rv mir.Rvalue) {
	destAddr, destTy := l.addr(place)
	switch rv.Kind {
	case mir.RvUse:
		if (destTy.Kind == ir.TyStruct || destTy.Kind == ir.TyArray) && rv.Operand.Kind == mir.OperandCopy {
			// An aggregate is copied in chunks of its own alignment, since
			// one Load/Store moves at most 4 bytes.
			srcAddr, _ := l.addr(rv.Operand.Place)
			step := destTy.Align()
			for off := 0; off < destTy.Size(); off += step {
				v := l.newTemp()
				l.emit(ir.Load(v, l.offsetAddr(srcAddr, off), step, false, destTy.Volatile))
				l.emit(ir.Store(l.offsetAddr(destAddr, off), ir.TempVal(v), step, destTy.Volatile))
			}
			break
		}
		val := l.lowerOperand(rv.Operand)
		l.emit(ir.Store(destAddr, val, destTy.Size(), destTy.Volatile))

	case mir.RvRef:
		srcAddr, _ := l.addr(rv.RefPlace)
		l.emit(ir.Store(destAddr, srcAddr, destTy.Size(), destTy.Volatile))

	case mir.RvBinary:
		lhs := l.lowerOperand(rv.Left)
		rhs := l.lowerOperand(rv.Right)
		res := l.newTemp()
		l.emit(ir.Binary(res, rv.BinOp, lhs, rhs))
		l.emit(ir.Store(destAddr, ir.TempVal(res), destTy.Size(), destTy.Volatile))

	case mir.RvUnary:
		src := l.lowerOperand(rv.Un)
		res := l.newTemp()
		l.emit(ir.Unary(res, rv.UnOp, src))
		l.emit(ir.Store(destAddr, ir.TempVal(res), destTy.Size(), destTy.Volatile))

	case mir.RvAggregate:
		for _, f := range rv.AggFields {
			val := l.lowerOperand(f.Value)
			fieldAddr := l.offsetAddr(destAddr, f.Offset)
			l.emit(ir.Store(fieldAddr, val, f.Type.Size(), f.Type.Volatile))
		}
	}
}

// internString dedupes string literals by content into module-wide
// ".LRS<n>" labels, identical in spirit to irbuild.Builder.internString
// — here shared across every function via the map Lower threads in,
// since string-literal labels must be unique across the whole module,
// not just within one function.
func (l *lowering) internString(s string) ir.Label {
	if lbl, ok := l.strings[s]; ok {
		return lbl
	}
	lbl := ir.Label(".LRS" + itoa(len(l.strings)))
	l.module.AddString(&ir.StringLit{Label: lbl, Bytes: append([]byte(s), 0)})
	l.strings[s] = lbl
	return lbl
}

func (l *lowering) lowerTerm(term mir.Terminator) {
	switch term.Kind {
	case mir.TermReturn:
		if l.fn.ReturnType.Kind == ir.TyVoid {
			l.emit(ir.Return(nil))
			return
		}
		retAddr := l.addrs[0]
		val := l.newTemp()
		l.emit(ir.Load(val, retAddr, l.fn.ReturnType.Size(), l.fn.ReturnType.Signed(), false))
		rv := ir.TempVal(val)
		l.emit(ir.Return(&rv))

	case mir.TermGoto:
		l.emit(ir.Jump(blockLabel(l.fn.Name, term.Goto)))

	case mir.TermIf:
		cond := l.lowerOperand(term.Cond)
		l.emit(ir.CondJumpTrue(cond, blockLabel(l.fn.Name, term.Then)))
		l.emit(ir.Jump(blockLabel(l.fn.Name, term.Else)))

	case mir.TermSwitch:
		val := l.lowerOperand(term.SwitchOperand)
		for _, target := range term.Targets {
			cmp := l.newTemp()
			l.emit(ir.Binary(cmp, ir.OpEq, val, ir.IntConst(target.Value)))
			l.emit(ir.CondJumpTrue(ir.TempVal(cmp), blockLabel(l.fn.Name, target.Block)))
		}
		l.emit(ir.Jump(blockLabel(l.fn.Name, term.Default)))

	case mir.TermCall:
		args := make([]ir.Value, len(term.CallArgs))
		for i, a := range term.CallArgs {
			args[i] = l.lowerOperand(a)
		}
		if term.CallDest != nil {
			destAddr, destTy := l.addr(*term.CallDest)
			resultTemp := l.newTemp()
			l.emit(ir.Call(&resultTemp, term.CallFunc, args))
			l.emit(ir.Store(destAddr, ir.TempVal(resultTemp), destTy.Size(), destTy.Volatile))
		} else {
			l.emit(ir.Call(nil, term.CallFunc, args))
		}
		l.emit(ir.Jump(blockLabel(l.fn.Name, term.CallTarget)))

	case mir.TermUnreachable:
		l.emit(ir.Return(nil))
	}
}
