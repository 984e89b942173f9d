package asm

import (
	"fmt"
	"os"
	"strings"

	"smdc/m68k"
)

// Result is the product of assembling a target-IR instruction stream: the
// final byte string plus the symbol table pass 1 built, useful to callers
// that need to locate `main` or section boundaries afterward (the ROM
// builder and the _start copy-loop wiring both do).
type Result struct {
	Bytes   []byte
	Symbols *SymbolTable
	Base    uint32
}

// Assemble runs the full two-pass pipeline: layout (pass 1) then encode
// (pass 2). The first failure is returned with no partial output, per
// spec.md §4.3's failure semantics.
func Assemble(insts []m68k.Inst, base uint32) (*Result, error) {
	if err := checkAll(insts); err != nil {
		return nil, err
	}
	layout, err := RunLayout(insts, base)
	if err != nil {
		return nil, err
	}
	bytes, err := Encode(insts, layout.Symbols, base)
	if err != nil {
		return nil, err
	}
	dumpSymbolsIfRequested(layout.Symbols)
	return &Result{Bytes: bytes, Symbols: layout.Symbols, Base: base}, nil
}

// dumpSymbolsIfRequested implements spec.md §6's DEBUG_ASM environment
// variable: when set, dump the resolved symbol table to stderr for every
// non-local symbol (by convention here, any symbol not prefixed with a
// dot — local block labels like ".Lfn_bb3" are the assembler's own
// internal naming and aren't meaningful to a human debugging linkage).
func dumpSymbolsIfRequested(symtab *SymbolTable) {
	if os.Getenv("DEBUG_ASM") == "" {
		return
	}
	for _, name := range symtab.Names() {
		if strings.HasPrefix(name, ".") {
			continue
		}
		addr, _ := symtab.Lookup(name)
		fmt.Fprintf(os.Stderr, "%s = $%08x\n", name, addr)
	}
}
