package emit

import (
	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/types"
)

// lowerFieldAssignment implements §4.4.4's (possibly nested) struct field
// assignment. Every field in Path except the last is an intermediate: if
// its reference-typed slot is currently null, a fresh struct is allocated
// on the spot, bitcast to i8*, stored back into the parent field, and used
// as the pointer to continue navigating; a conditional branch and merging
// phi let both the null and non-null paths converge on one valid pointer
// before the terminal field receives the evaluated RHS.
func (e *Emitter) lowerFieldAssignment(a *ast.FieldAssignment) {
	structPtr, structType := e.baseStructPointer(a.Base)

	for _, fieldName := range a.Path[:len(a.Path)-1] {
		structPtr, structType = e.navigateOrAllocate(structPtr, structType, fieldName)
	}

	terminal := a.Path[len(a.Path)-1]
	idx := structType.FieldIndex(terminal)
	if idx < 0 {
		e.fail("struct %s has no field %q", structType.Name, terminal)
	}
	fieldType, _ := structType.FieldType(terminal)
	irFieldType := e.structFieldIRType(fieldType)
	fieldPtr := e.fieldGEP(structType.Name, structPtr, idx)

	if _, isNull := a.Value.(*ast.NullLiteral); isNull {
		e.writeLine("store %s null, %s* %s", irFieldType, irFieldType, fieldPtr)
		return
	}
	v := e.lowerExpr(a.Value)
	reg := v.reg
	if fieldType.Kind == types.KindReference && fieldType.Target.Kind == types.KindStruct && v.typ.Kind == types.KindStruct {
		cast := e.newTemp()
		e.writeLine("%s = bitcast %%struct.%s* %s to i8*", cast, v.typ.Name, reg)
		reg = cast
	}
	e.writeLine("store %s %s, %s* %s", irFieldType, reg, irFieldType, fieldPtr)
}

// baseStructPointer resolves a.Base (a plain local/global/param) to its
// %struct.Name* value and resolved struct type.
func (e *Emitter) baseStructPointer(name string) (string, types.Type) {
	v := e.lowerIdentifier(name)
	if v.typ.Kind != types.KindStruct {
		e.fail("%q is not a struct", name)
	}
	return v.reg, e.resolveStruct(v.typ.Name)
}

// navigateOrAllocate loads structPtr's fieldName slot (a reference to a
// struct, stored as i8*) and returns a pointer to the target struct,
// allocating a fresh one in place when the slot was null.
func (e *Emitter) navigateOrAllocate(structPtr string, structType types.Type, fieldName string) (string, types.Type) {
	idx := structType.FieldIndex(fieldName)
	if idx < 0 {
		e.fail("struct %s has no field %q", structType.Name, fieldName)
	}
	fieldType, _ := structType.FieldType(fieldName)
	if fieldType.Kind != types.KindReference || fieldType.Target.Kind != types.KindStruct {
		e.fail("field %q is not a struct reference", fieldName)
	}
	targetType := e.resolveStruct(fieldType.Target.Name)

	fieldPtr := e.fieldGEP(structType.Name, structPtr, idx) // i8**
	loaded := e.newTemp()
	e.writeLine("%s = load i8*, i8** %s", loaded, fieldPtr)
	isNull := e.newTemp()
	e.writeLine("%s = icmp eq i8* %s, null", isNull, loaded)

	allocLbl := e.newLabel("fld.alloc")
	haveLbl := e.newLabel("fld.have")
	mergeLbl := e.newLabel("fld.merge")
	e.writeLine("br i1 %s, label %%%s, label %%%s", isNull, allocLbl, haveLbl)

	e.writeLabel(allocLbl)
	rawAlloc := e.newTemp()
	e.writeLine("%s = call i8* @malloc(i64 ptrtoint (%%struct.%s* getelementptr (%%struct.%s, %%struct.%s* null, i32 1) to i64))",
		rawAlloc, targetType.Name, targetType.Name, targetType.Name)
	e.trackAlloc(rawAlloc)
	e.writeLine("store i8* %s, i8** %s", rawAlloc, fieldPtr)
	allocCast := e.newTemp()
	e.writeLine("%s = bitcast i8* %s to %%struct.%s*", allocCast, rawAlloc, targetType.Name)
	e.writeLine("br label %%%s", mergeLbl)

	e.writeLabel(haveLbl)
	haveCast := e.newTemp()
	e.writeLine("%s = bitcast i8* %s to %%struct.%s*", haveCast, loaded, targetType.Name)
	e.writeLine("br label %%%s", mergeLbl)

	e.writeLabel(mergeLbl)
	merged := e.newTemp()
	e.writeLine("%s = phi %%struct.%s* [ %s, %%%s ], [ %s, %%%s ]",
		merged, targetType.Name, allocCast, allocLbl, haveCast, haveLbl)

	return merged, targetType
}
