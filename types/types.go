// Package types implements MiniLang's type model: a small closed sum type
// of primitive, array, struct, reference, function, and null types.
package types

import "fmt"

// Kind tags which variant of Type a value holds.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindVoid
	KindArray
	KindStruct
	KindReference
	KindFunction
	KindNull
)

// Type is MiniLang's algebraic type value. Only the fields relevant to Kind
// are populated; callers switch on Kind before reading them.
type Type struct {
	Kind Kind

	// KindArray
	Elem *Type
	Size *int // nil means a heap-backed dynamic array

	// KindStruct
	Name   string
	Fields []Field // ordered; nil/empty until the struct is resolved

	// KindReference
	Target *Type

	// KindFunction
	Params []Type
	Return *Type
}

// Field is one named, typed member of a struct, in declaration order.
type Field struct {
	Name string
	Type Type
}

var (
	Int    = Type{Kind: KindInt}
	Float  = Type{Kind: KindFloat}
	String = Type{Kind: KindString}
	Bool   = Type{Kind: KindBool}
	Void   = Type{Kind: KindVoid}
	Null   = Type{Kind: KindNull}
)

// Array builds a Type describing an array of elem. A nil size means a
// heap-backed dynamic array; a non-nil size means a fixed inline array.
func Array(elem Type, size *int) Type {
	return Type{Kind: KindArray, Elem: &elem, Size: size}
}

// FixedArray is a convenience constructor for an inline array of known size.
func FixedArray(elem Type, size int) Type {
	return Array(elem, &size)
}

// StructPlaceholder returns an unresolved, field-less struct reference by
// name, used by the parser before the struct's definition has been seen.
func StructPlaceholder(name string) Type {
	return Type{Kind: KindStruct, Name: name}
}

// StructOf builds a fully resolved struct type.
func StructOf(name string, fields []Field) Type {
	return Type{Kind: KindStruct, Name: name, Fields: fields}
}

// Reference wraps target in a Reference(target) type.
func Reference(target Type) Type {
	return Type{Kind: KindReference, Target: &target}
}

// Function builds a Function(params, return) signature type.
func Function(params []Type, ret Type) Type {
	return Type{Kind: KindFunction, Params: params, Return: &ret}
}

// IsStruct reports whether t is a struct type (resolved or placeholder).
func (t Type) IsStruct() bool { return t.Kind == KindStruct }

// IsReference reports whether t is a Reference(...) type.
func (t Type) IsReference() bool { return t.Kind == KindReference }

// IsArray reports whether t is an Array(...) type.
func (t Type) IsArray() bool { return t.Kind == KindArray }

// IsNumeric reports whether t is Int or Float.
func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }

// FieldIndex returns the ordinal of name within a resolved struct type, or
// -1 if the struct has no such field.
func (t Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// FieldType returns the declared type of name within a resolved struct
// type and whether it was found.
func (t Type) FieldType(name string) (Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

// Equal reports structural equality for primitives/arrays/references and
// nominal (by-name) equality for structs, matching §4.3.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		if (a.Size == nil) != (b.Size == nil) {
			return false
		}
		if a.Size != nil && *a.Size != *b.Size {
			return false
		}
		return Equal(*a.Elem, *b.Elem)
	case KindStruct:
		return a.Name == b.Name
	case KindReference:
		return Equal(*a.Target, *b.Target)
	case KindFunction:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Equal(*a.Return, *b.Return)
	default:
		return true
	}
}

// String renders t the way MiniLang source would spell it, for diagnostics.
func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindVoid:
		return "void"
	case KindNull:
		return "null"
	case KindArray:
		if t.Size != nil {
			return fmt.Sprintf("%s[%d]", t.Elem.String(), *t.Size)
		}
		return fmt.Sprintf("%s[]", t.Elem.String())
	case KindStruct:
		return t.Name
	case KindReference:
		return "ref " + t.Target.String()
	case KindFunction:
		return "func(...)"
	default:
		return "?"
	}
}
