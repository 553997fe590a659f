package emit

import (
	"fmt"

	"github.com/codeassociates/minilang/types"
)

// llvmType maps a MiniLang type to its IR-level representation per §4.4:
// Int->i64, Float->double, Bool->i1, String->i8*, Void->void, inline
// arrays to a literal `[n x T]`, heap/unsized arrays decay to `T*`,
// structs to a pointer to their named layout, and references to a struct
// collapse to i8* (the cycle-breaking rule in §4.4.2) while references to
// anything else keep the target's pointer type.
func (e *Emitter) llvmType(t types.Type) string {
	switch t.Kind {
	case types.KindInt:
		return "i64"
	case types.KindFloat:
		return "double"
	case types.KindBool:
		return "i1"
	case types.KindString:
		return "i8*"
	case types.KindVoid:
		return "void"
	case types.KindNull:
		return "i8*"
	case types.KindArray:
		elem := e.llvmType(*t.Elem)
		if t.Size != nil {
			return fmt.Sprintf("[%d x %s]", *t.Size, elem)
		}
		return elem + "*"
	case types.KindStruct:
		return "%struct." + t.Name + "*"
	case types.KindReference:
		if t.Target.Kind == types.KindStruct {
			return "i8*"
		}
		return e.llvmType(*t.Target) + "*"
	case types.KindFunction:
		return e.llvmType(*t.Return)
	default:
		e.fail("unsupported type %s", t.String())
		return ""
	}
}

// paramIRType is the IR type of a function parameter's declared slot.
// Array parameters always decay to a pointer to their element type — even
// when declared with an inline size — per §4.4.5's no-copy rule: the
// parameter is a pointer value, never the `[n x T]` aggregate `llvmType`
// would otherwise produce for an inline-sized array.
func (e *Emitter) paramIRType(t types.Type) string {
	if t.Kind == types.KindArray {
		return e.llvmType(*t.Elem) + "*"
	}
	return e.llvmType(t)
}

// structFieldIRType is the IR type of a struct field's declared slot,
// applying the reference-to-struct -> i8* rule field-by-field (§4.4.2).
func (e *Emitter) structFieldIRType(t types.Type) string {
	if t.Kind == types.KindReference && t.Target.Kind == types.KindStruct {
		return "i8*"
	}
	return e.llvmType(t)
}

// resolveStruct returns the fully resolved struct type registered for
// name, failing if it was never defined.
func (e *Emitter) resolveStruct(name string) types.Type {
	st, ok := e.structs[name]
	if !ok {
		e.fail("undefined struct %q", name)
	}
	return st
}

// writeStructDecls emits the named IR struct layouts in declaration order
// (generation-order step 1 product): fields laid out positionally, with
// reference-to-struct fields forced to i8* so no struct layout refers to
// another struct's layout, breaking cycles per §4.4.2/§9.
func (e *Emitter) writeStructDecls() {
	for _, name := range e.structOrder {
		st := e.structs[name]
		fmt.Fprintf(&e.out, "%%struct.%s = type {", name)
		for i, f := range st.Fields {
			if i > 0 {
				e.out.WriteString(", ")
			}
			e.out.WriteString(e.structFieldIRType(f.Type))
		}
		e.out.WriteString("}\n")
	}
	if len(e.structOrder) > 0 {
		e.out.WriteString("\n")
	}
}

// fieldGEP returns the IR instructions (as already-written side effects)
// needed to compute a pointer to struct field index idx of a
// %struct.Name* value held in ptrReg, returning the register holding the
// field pointer.
func (e *Emitter) fieldGEP(structName, ptrReg string, idx int) string {
	dst := e.newTemp()
	e.writeLine("%s = getelementptr %%struct.%s, %%struct.%s* %s, i32 0, i32 %d",
		dst, structName, structName, ptrReg, idx)
	return dst
}

// zeroValue returns the IR literal for the zero/default value of t, used
// for zeros(n) element initialization and default-return fallbacks.
func (e *Emitter) zeroValue(t types.Type) string {
	switch t.Kind {
	case types.KindInt:
		return "0"
	case types.KindFloat:
		return "0.0"
	case types.KindBool:
		return "0"
	case types.KindString, types.KindReference, types.KindStruct, types.KindNull:
		return "null"
	default:
		return "0"
	}
}
