package sema

import (
	"smdc/diag"
	"smdc/frontend/rust/ast"
	"smdc/ir"
)

// EnumVariantInfo is one checked enum variant: its declaration-order
// discriminant and, for a tuple-style variant, its field types.
type EnumVariantInfo struct {
	Name         string
	Discriminant int
	FieldTypes   []ir.Type
}

// EnumInfo is a checked enum declaration.
type EnumInfo struct {
	Name     string
	Variants []EnumVariantInfo
}

// VariantOf looks up one of the enum's variants by name.
func (e *EnumInfo) VariantOf(name string) (EnumVariantInfo, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return EnumVariantInfo{}, false
}

// TypeTable resolves ast.TypeRef values into ir.Type, maintaining the
// struct and enum registries a program builds up as it's declared.
// Grounded on frontend/c/sema.TypeTable, generalized from C's
// struct-tag/typedef registries to this subset's struct/enum items —
// this subset has no typedef equivalent.
type TypeTable struct {
	structs map[string]ir.Type
	enums   map[string]*EnumInfo
}

func NewTypeTable() *TypeTable {
	return &TypeTable{structs: make(map[string]ir.Type), enums: make(map[string]*EnumInfo)}
}

func (t *TypeTable) DefineStruct(name string, ty ir.Type) { t.structs[name] = ty }

func (t *TypeTable) LookupStruct(name string) (ir.Type, bool) {
	ty, ok := t.structs[name]
	return ty, ok
}

func (t *TypeTable) DefineEnum(info *EnumInfo) { t.enums[info.Name] = info }

func (t *TypeTable) LookupEnum(name string) (*EnumInfo, bool) {
	e, ok := t.enums[name]
	return e, ok
}

// primitiveTypes maps this subset's fixed scalar type-name spellings to
// their shared-IR type. usize is carried as a 32-bit unsigned value: the
// M68000 target has no wider native word to spend on it.
var primitiveTypes = map[string]ir.Type{
	"i8": ir.Int8(), "u8": ir.Uint8(),
	"i16": ir.Int16(), "u16": ir.Uint16(),
	"i32": ir.Int32(), "u32": ir.Uint32(),
	"bool":  ir.Uint8(),
	"usize": ir.Uint32(),
}

// IsBool reports whether ty has this subset's runtime representation of
// bool, a 1-byte unsigned value (the same shape as u8). The checker does
// not call it: condition expressions are not type-checked against bool.
func IsBool(ty ir.Type) bool { return ty.Kind == ir.TyUint8 && ty.Size() == 1 }

// Resolve converts a parsed TypeRef into its shared-IR type, expanding
// struct and enum names through the table and applying any
// reference/array derivation the syntax added.
func (t *TypeTable) Resolve(tr *ast.TypeRef, span diag.Span) (ir.Type, error) {
	if tr == nil {
		return ir.Void(), nil
	}
	if tr.ArrayLen != nil {
		elem, err := t.Resolve(tr.Elem, span)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.Array(elem, int(*tr.ArrayLen)), nil
	}
	if tr.Ref {
		elem, err := t.Resolve(tr.Elem, span)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.Pointer(elem), nil
	}
	if prim, ok := primitiveTypes[tr.Name]; ok {
		return prim, nil
	}
	if st, ok := t.structs[tr.Name]; ok {
		return st, nil
	}
	if en, ok := t.enums[tr.Name]; ok {
		return enumRepr(en), nil
	}
	return ir.Type{}, diag.New(diag.KindUndefinedIdentifier, span, "undefined type %q", tr.Name)
}

// enumRepr lowers an enum declaration to its runtime shape: a u32
// discriminant tag followed by a byte payload sized to the largest
// variant's fields, the usual tagged-union encoding.
func enumRepr(en *EnumInfo) ir.Type {
	payload := 0
	for _, v := range en.Variants {
		sz := 0
		for _, f := range v.FieldTypes {
			sz += f.Size()
		}
		if sz > payload {
			payload = sz
		}
	}
	members := []ir.Member{{Name: "tag", Type: ir.Uint32()}}
	if payload > 0 {
		members = append(members, ir.Member{Name: "payload", Type: ir.Array(ir.Uint8(), payload)})
	}
	return ir.Struct(en.Name, members)
}

// isMoveOnly reports whether a value of type ty must be moved rather
// than copied on use. Primitive scalars and references are Copy;
// aggregates (arrays, structs, and enums — lowered to structs) are not.
func isMoveOnly(ty ir.Type) bool {
	switch ty.Kind {
	case ir.TyArray, ir.TyStruct:
		return true
	default:
		return false
	}
}
