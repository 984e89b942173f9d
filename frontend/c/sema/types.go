// Package sema resolves names and types over a parsed C translation
// unit and reports the semantic failures spec.md enumerates: undefined
// identifiers, type mismatches, break/continue outside a loop, duplicate
// labels, and undefined goto targets. A case label outside a switch never
// reaches this package: the parser rejects it as an unexpected token.
//
// Grounded on rush/compiler's SymbolTable (Outer-chain enclosed scopes,
// Define/Resolve), generalized from rush's untyped variable slots to a
// typed one built over the shared ir.Type representation so the result
// can feed directly into frontend/c/irbuild without re-deriving types.
package sema

import (
	"smdc/diag"
	"smdc/frontend/c/ast"
	"smdc/ir"
)

// TypeTable resolves ast.TypeSpec values into ir.Type, maintaining the
// struct-tag and typedef-name registries a translation unit builds up
// as it's declared.
type TypeTable struct {
	structs  map[string]ir.Type
	typedefs map[string]*ast.TypeSpec
}

func NewTypeTable() *TypeTable {
	return &TypeTable{structs: make(map[string]ir.Type), typedefs: make(map[string]*ast.TypeSpec)}
}

func (t *TypeTable) DefineStruct(tag string, ty ir.Type) { t.structs[tag] = ty }
func (t *TypeTable) DefineTypedef(name string, ts *ast.TypeSpec) { t.typedefs[name] = ts }

func (t *TypeTable) LookupStruct(tag string) (ir.Type, bool) {
	ty, ok := t.structs[tag]
	return ty, ok
}

// baseScalarType maps one of the C89 subset's scalar base-type spellings to
// its shared-IR type, independent of pointer/array derivation.
func baseScalarType(base string) (ir.Type, bool) {
	switch base {
	case "void":
		return ir.Void(), true
	case "char", "signed char":
		return ir.Int8(), true
	case "unsigned char":
		return ir.Uint8(), true
	case "short", "short int", "signed short":
		return ir.Int16(), true
	case "unsigned short", "unsigned short int":
		return ir.Uint16(), true
	case "int", "signed", "signed int", "long", "long int", "signed long":
		return ir.Int32(), true
	case "unsigned", "unsigned int", "unsigned long", "unsigned long int":
		return ir.Uint32(), true
	default:
		return ir.Type{}, false
	}
}

// Resolve converts a parsed TypeSpec into its shared-IR type, expanding
// typedef aliases and struct tags through the table, and applying any
// pointer/array derivation the declarator added.
func (t *TypeTable) Resolve(ts *ast.TypeSpec, span diag.Span) (ir.Type, error) {
	var base ir.Type
	if sc, ok := baseScalarType(ts.Base); ok {
		base = sc
	} else if ts.StructTag != "" {
		st, ok := t.LookupStruct(ts.StructTag)
		if !ok {
			return ir.Type{}, diag.New(diag.KindUndefinedIdentifier, span, "undefined struct tag %q", ts.StructTag)
		}
		base = st
	} else if alias, ok := t.typedefs[ts.Base]; ok {
		resolved, err := t.Resolve(alias, span)
		if err != nil {
			return ir.Type{}, err
		}
		base = resolved
	} else {
		return ir.Type{}, diag.New(diag.KindUndefinedIdentifier, span, "undefined type %q", ts.Base)
	}

	for i := 0; i < ts.PointerDepth; i++ {
		base = ir.Pointer(base)
	}
	if ts.ArrayLen != nil {
		base = ir.Array(base, int(*ts.ArrayLen))
	}
	base.Volatile = ts.IsVolatile
	return base, nil
}

