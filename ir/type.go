package ir

// TypeKind discriminates the shared-IR type representation. The type
// system is deliberately thin: it exists to answer two questions the back
// end needs — how many bytes does a value of this type occupy, and what is
// its alignment — plus enough structure for the front-ends to compute
// field offsets and element strides.
type TypeKind int

const (
	TyVoid TypeKind = iota
	TyInt8
	TyUint8
	TyInt16
	TyUint16
	TyInt32
	TyUint32
	TyPointer
	TyArray
	TyStruct
)

// Type is a value type shared by both front-ends and the IR.
type Type struct {
	Kind     TypeKind
	Elem     *Type    // Pointer, Array
	Len      int      // Array
	Members  []Member // Struct, in declaration order
	Volatile bool      // propagated from the pointed-to type of a load/store
	Name     string    // Struct tag, for diagnostics
}

// Member is one field of a struct type.
type Member struct {
	Name string
	Type Type
}

func Void() Type    { return Type{Kind: TyVoid} }
func Int8() Type    { return Type{Kind: TyInt8} }
func Uint8() Type   { return Type{Kind: TyUint8} }
func Int16() Type   { return Type{Kind: TyInt16} }
func Uint16() Type  { return Type{Kind: TyUint16} }
func Int32() Type   { return Type{Kind: TyInt32} }
func Uint32() Type  { return Type{Kind: TyUint32} }

func Pointer(to Type) Type { return Type{Kind: TyPointer, Elem: &to} }
func Array(of Type, n int) Type { return Type{Kind: TyArray, Elem: &of, Len: n} }
func Struct(name string, members []Member) Type {
	return Type{Kind: TyStruct, Name: name, Members: members}
}

// Size returns the type's size in bytes, the value the generator uses for
// Load/Store sizing, alloca sizing, and struct layout.
func (t Type) Size() int {
	switch t.Kind {
	case TyVoid:
		return 0
	case TyInt8, TyUint8:
		return 1
	case TyInt16, TyUint16:
		return 2
	case TyInt32, TyUint32, TyPointer:
		return 4
	case TyArray:
		return t.Elem.Size() * t.Len
	case TyStruct:
		off := 0
		for _, m := range t.Members {
			off = alignUp(off, m.Type.Align())
			off += m.Type.Size()
		}
		return alignUp(off, t.Align())
	default:
		return 0
	}
}

// Align returns the type's required alignment in bytes.
func (t Type) Align() int {
	switch t.Kind {
	case TyInt8, TyUint8:
		return 1
	case TyInt16, TyUint16:
		return 2
	case TyInt32, TyUint32, TyPointer:
		return 4
	case TyArray:
		return t.Elem.Align()
	case TyStruct:
		max := 1
		for _, m := range t.Members {
			if a := m.Type.Align(); a > max {
				max = a
			}
		}
		return max
	default:
		return 1
	}
}

// Signed reports whether loads of this type should sign-extend.
func (t Type) Signed() bool {
	switch t.Kind {
	case TyInt8, TyInt16, TyInt32:
		return true
	default:
		return false
	}
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	rem := off % align
	if rem == 0 {
		return off
	}
	return off + (align - rem)
}

// FieldOffset computes the byte offset of member `name` within a struct
// type by scanning members in declared order, aligning the running offset
// to each member's alignment before allocating its size — the invariant
// spec'd in the struct-layout testable property.
func (t Type) FieldOffset(name string) (int, Type, bool) {
	if t.Kind != TyStruct {
		return 0, Type{}, false
	}
	off := 0
	for _, m := range t.Members {
		off = alignUp(off, m.Type.Align())
		if m.Name == name {
			return off, m.Type, true
		}
		off += m.Type.Size()
	}
	return 0, Type{}, false
}
