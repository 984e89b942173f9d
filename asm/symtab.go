// Package asm implements the two-pass symbolic assembler and binary
// encoder: pass one lays out sections and resolves label addresses, pass
// two emits exact M68000 machine code and patches relocations. Grounded on
// rush/aot/linker.go's two-stage "assemble a format, then patch offsets"
// shape, generalized from Mach-O/ELF/PE section synthesis to the M68000's
// symbol table + relocation list.
package asm

import (
	"fmt"

	"smdc/diag"
)

// SymbolTable maps a symbol name to its resolved 32-bit address. Populated
// during layout (pass 1), consumed during encoding (pass 2).
type SymbolTable struct {
	addrs map[string]uint32
	order []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{addrs: make(map[string]uint32)}
}

// Define records a symbol's address. A duplicate name is the
// DuplicateSymbol failure spec.md's layout pass requires.
func (s *SymbolTable) Define(name string, addr uint32) error {
	if _, exists := s.addrs[name]; exists {
		return diag.New(diag.KindDuplicateSymbol, diag.Span{}, "duplicate symbol %q", name)
	}
	s.addrs[name] = addr
	s.order = append(s.order, name)
	return nil
}

func (s *SymbolTable) Lookup(name string) (uint32, bool) {
	addr, ok := s.addrs[name]
	return addr, ok
}

// Names returns symbol names in definition order — spec.md's open question
// (c) resolves this as "definition order is the only ordering contract."
func (s *SymbolTable) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *SymbolTable) String() string {
	out := ""
	for _, n := range s.order {
		out += fmt.Sprintf("%s = $%08x\n", n, s.addrs[n])
	}
	return out
}

// RelocKind distinguishes how a relocation site is fixed up.
type RelocKind int

const (
	RelocPCRelative16 RelocKind = iota
	RelocAbsolute32
)

// Relocation records a site whose bytes were unknown at encode time because
// the symbol they reference had not yet been defined (it never is, in this
// single-pass-per-phase model, until pass 2 resolves every symbol at once
// from the pass-1 table — a relocation only remains truly unresolved when
// the symbol is absent from the whole module).
type Relocation struct {
	Site       uint32
	Symbol     string
	PCRelative bool
}
