package emit

import (
	"fmt"
	"strings"

	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/token"
	"github.com/codeassociates/minilang/types"
)

// value is the result of lowering an expression: the IR register (or
// literal) holding it and its static MiniLang type.
type value struct {
	reg string
	typ types.Type
}

// lowerExpr dispatches on the AST expression's dynamic type and returns
// its lowered value, per §4.4.4.
func (e *Emitter) lowerExpr(expr ast.Expression) value {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return value{reg: fmt.Sprintf("%d", n.Value), typ: types.Int}
	case *ast.FloatLiteral:
		return value{reg: formatFloat(n.Value), typ: types.Float}
	case *ast.BoolLiteral:
		if n.Value {
			return value{reg: "1", typ: types.Bool}
		}
		return value{reg: "0", typ: types.Bool}
	case *ast.StringLiteral:
		return value{reg: e.stringConstant(n.Value), typ: types.String}
	case *ast.NullLiteral:
		return value{reg: "null", typ: types.Null}
	case *ast.Identifier:
		return e.lowerIdentifier(n.Name)
	case *ast.ArrayLiteral:
		return e.lowerArrayLiteral(n)
	case *ast.ZerosExpr:
		return e.lowerZeros(n)
	case *ast.IndexExpr:
		return e.lowerIndexExpr(n)
	case *ast.UnaryExpr:
		return e.lowerUnary(n)
	case *ast.BinaryExpr:
		return e.lowerBinary(n)
	case *ast.CastExpr:
		return e.lowerCast(n)
	case *ast.FieldAccess:
		return e.lowerFieldAccess(n)
	case *ast.StructLiteral:
		return e.lowerStructLiteral(n)
	case *ast.CallExpr:
		return e.lowerCall(n)
	default:
		e.fail("unsupported expression node %T", expr)
		return value{}
	}
}

func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// stringConstant emits a private constant global holding s with a null
// terminator and returns an i8* to its first byte (a getelementptr), per
// §4.4.4's literal rule.
func (e *Emitter) stringConstant(s string) string {
	e.strCounter++
	name := fmt.Sprintf("@.str.%d", e.strCounter)
	n := len(s) + 1
	fmt.Fprintf(&e.out, "%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n",
		name, n, escapeIR(s))
	dst := e.newTemp()
	e.writeLine("%s = getelementptr [%d x i8], [%d x i8]* %s, i64 0, i64 0", dst, n, n, name)
	return dst
}

func escapeIR(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString("\\22")
		case '\\':
			b.WriteString("\\5C")
		default:
			if c < 32 || c > 126 {
				fmt.Fprintf(&b, "\\%02X", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// lowerIdentifier loads a local/param/global by name. Inline-array slots
// decay to their base address rather than being loaded by value; array
// parameters are already pointer values and are returned as-is.
func (e *Emitter) lowerIdentifier(name string) value {
	if v, ok := e.locals[name]; ok {
		if v.isPointer {
			return value{reg: v.slot, typ: v.typ}
		}
		if v.typ.IsArray() && v.typ.Size != nil {
			dst := e.newTemp()
			e.writeLine("%s = getelementptr %s, %s* %s, i64 0, i64 0",
				dst, e.llvmType(v.typ), e.llvmType(v.typ), v.slot)
			return value{reg: dst, typ: types.Array(*v.typ.Elem, nil)}
		}
		dst := e.newTemp()
		e.writeLine("%s = load %s, %s* %s", dst, e.llvmType(v.typ), e.llvmType(v.typ), v.slot)
		return value{reg: dst, typ: v.typ}
	}
	if g, ok := e.globals[name]; ok {
		gname := "@g." + name
		if g.typ.IsArray() && g.typ.Size != nil {
			dst := e.newTemp()
			e.writeLine("%s = getelementptr %s, %s* %s, i64 0, i64 0",
				dst, e.llvmType(g.typ), e.llvmType(g.typ), gname)
			return value{reg: dst, typ: types.Array(*g.typ.Elem, nil)}
		}
		dst := e.newTemp()
		e.writeLine("%s = load %s, %s* %s", dst, e.llvmType(g.typ), e.llvmType(g.typ), gname)
		return value{reg: dst, typ: g.typ}
	}
	e.fail("undefined name %q", name)
	return value{}
}

// lowerArrayLiteral heap-allocates n*sizeof(elem) bytes, stores each
// evaluated element, and tracks the allocation for this function's
// cleanup epilogue (§4.4.4, §5).
func (e *Emitter) lowerArrayLiteral(n *ast.ArrayLiteral) value {
	count := len(n.Elements)
	var elemType types.Type
	elems := make([]value, count)
	for i, el := range n.Elements {
		elems[i] = e.lowerExpr(el)
		elemType = elems[i].typ
	}
	irElem := e.llvmType(elemType)
	ptr := e.mallocArray(irElem, count)
	for i, ev := range elems {
		slot := e.newTemp()
		e.writeLine("%s = getelementptr %s, %s* %s, i64 %d", slot, irElem, irElem, ptr, i)
		storeVal := ev.reg
		if elemType.Kind == types.KindString {
			// string elements are already i8* values (stringConstant and
			// every string-producing lowering return i8*), so no bitcast
			// is emitted and they are stored as-is.
		}
		e.writeLine("store %s %s, %s* %s", irElem, storeVal, irElem, slot)
	}
	return value{reg: ptr, typ: types.Array(elemType, nil)}
}

// lowerZeros allocates the same shape as an array literal but every slot
// is written with the element type's zero value; the element type is
// inferred by the caller (variable declaration) and patched in by
// lowerZerosTyped when known, defaulting to Int otherwise.
func (e *Emitter) lowerZeros(n *ast.ZerosExpr) value {
	return e.lowerZerosTyped(n, types.Int)
}

func (e *Emitter) lowerZerosTyped(n *ast.ZerosExpr, elemType types.Type) value {
	countVal := e.lowerExpr(n.Count)
	lit, ok := n.Count.(*ast.IntLiteral)
	if !ok {
		e.fail("zeros(n) requires a constant count")
	}
	irElem := e.llvmType(elemType)
	ptr := e.mallocArray(irElem, int(lit.Value))
	for i := 0; i < int(lit.Value); i++ {
		slot := e.newTemp()
		e.writeLine("%s = getelementptr %s, %s* %s, i64 %d", slot, irElem, irElem, ptr, i)
		e.writeLine("store %s %s, %s* %s", irElem, e.zeroValue(elemType), irElem, slot)
	}
	_ = countVal
	return value{reg: ptr, typ: types.Array(elemType, nil)}
}

// mallocArray mallocs count elements of IR type irElem, bitcasts the
// result to irElem*, and tracks the pointer for cleanup.
func (e *Emitter) mallocArray(irElem string, count int) string {
	raw := e.newTemp()
	e.writeLine("%s = call i8* @malloc(i64 mul (i64 ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64), i64 %d))",
		raw, irElem, irElem, irElem, count)
	e.trackAlloc(raw)
	ptr := e.newTemp()
	e.writeLine("%s = bitcast i8* %s to %s*", ptr, raw, irElem)
	return ptr
}

// lowerIndexExpr lowers arr[idx] per §4.4.4: inline arrays arrive already
// decayed to an element pointer (lowerIdentifier's GEP [0, 0]), so inline
// and heap arrays alike are indexed with a single GEP [idx]; strings are
// indexed as i8* by an i32.
func (e *Emitter) lowerIndexExpr(n *ast.IndexExpr) value {
	base := e.lowerExpr(n.Array)
	idx := e.lowerExpr(n.Index)

	if base.typ.Kind == types.KindString {
		idx32 := e.truncIndexTo32(idx)
		dst := e.newTemp()
		e.writeLine("%s = getelementptr i8, i8* %s, i32 %s", dst, base.reg, idx32)
		loaded := e.newTemp()
		e.writeLine("%s = load i8, i8* %s", loaded, dst)
		return value{reg: loaded, typ: types.Int}
	}

	elemType := *base.typ.Elem
	irElem := e.llvmType(elemType)
	ptr := e.newTemp()
	e.writeLine("%s = getelementptr %s, %s* %s, i64 %s", ptr, irElem, irElem, base.reg, idx.reg)
	dst := e.newTemp()
	e.writeLine("%s = load %s, %s* %s", dst, irElem, irElem, ptr)
	return value{reg: dst, typ: elemType}
}

// truncIndexTo32 narrows an i64-valued index to i32 for a string byte GEP,
// matching original_source/compiler.py's trunc-before-index behavior: every
// register-valued Int this emitter produces (loads, arithmetic results) is
// i64, but getelementptr into an i8* string needs an i32 index operand.
func (e *Emitter) truncIndexTo32(idx value) string {
	dst := e.newTemp()
	e.writeLine("%s = trunc i64 %s to i32", dst, idx.reg)
	return dst
}

// indexAddress returns the element pointer for arr[idx] without loading,
// used by array assignment.
func (e *Emitter) indexAddress(arr ast.Expression, idx ast.Expression) (ptrReg string, elemType types.Type) {
	base := e.lowerExpr(arr)
	idxVal := e.lowerExpr(idx)
	elemType = *base.typ.Elem
	irElem := e.llvmType(elemType)
	ptrReg = e.newTemp()
	e.writeLine("%s = getelementptr %s, %s* %s, i64 %s", ptrReg, irElem, irElem, base.reg, idxVal.reg)
	return
}

func (e *Emitter) lowerUnary(n *ast.UnaryExpr) value {
	switch n.Operator {
	case token.MINUS:
		v := e.lowerExpr(n.Operand)
		dst := e.newTemp()
		if v.typ.Kind == types.KindFloat {
			e.writeLine("%s = fneg double %s", dst, v.reg)
		} else {
			e.writeLine("%s = sub i64 0, %s", dst, v.reg)
		}
		return value{reg: dst, typ: v.typ}
	case token.NOT:
		v := e.coerceToBool(e.lowerExpr(n.Operand))
		dst := e.newTemp()
		e.writeLine("%s = xor i1 %s, true", dst, v.reg)
		return value{reg: dst, typ: types.Bool}
	case token.REF:
		// Reference-of yields the pointer form directly; for a plain
		// local this is its stack slot (skip the implicit load).
		if ident, ok := n.Operand.(*ast.Identifier); ok {
			if v, ok := e.locals[ident.Name]; ok {
				return value{reg: v.slot, typ: types.Reference(v.typ)}
			}
			if g, ok := e.globals[ident.Name]; ok {
				return value{reg: "@g." + ident.Name, typ: types.Reference(g.typ)}
			}
		}
		v := e.lowerExpr(n.Operand)
		return value{reg: v.reg, typ: types.Reference(v.typ)}
	default:
		e.fail("unsupported unary operator %s", n.Operator)
		return value{}
	}
}

func (e *Emitter) coerceToBool(v value) value {
	if v.typ.Kind == types.KindBool {
		return v
	}
	dst := e.newTemp()
	switch v.typ.Kind {
	case types.KindFloat:
		e.writeLine("%s = fcmp one double %s, 0.0", dst, v.reg)
	default:
		e.writeLine("%s = icmp ne i64 %s, 0", dst, v.reg)
	}
	return value{reg: dst, typ: types.Bool}
}

// promoteArith applies §4.4.4's float-promotion rule: if either operand
// is Float, sitofp the Int side and use FP ops.
func (e *Emitter) promoteArith(l, r value) (lreg, rreg string, isFloat bool) {
	isFloat = l.typ.Kind == types.KindFloat || r.typ.Kind == types.KindFloat
	lreg, rreg = l.reg, r.reg
	if isFloat {
		if l.typ.Kind != types.KindFloat {
			lreg = e.newTemp()
			e.writeLine("%s = sitofp i64 %s to double", lreg, l.reg)
		}
		if r.typ.Kind != types.KindFloat {
			rreg = e.newTemp()
			e.writeLine("%s = sitofp i64 %s to double", rreg, r.reg)
		}
	}
	return
}

func (e *Emitter) lowerBinary(n *ast.BinaryExpr) value {
	switch n.Operator {
	case token.AND, token.OR:
		l := e.coerceToBool(e.lowerExpr(n.Left))
		r := e.coerceToBool(e.lowerExpr(n.Right))
		dst := e.newTemp()
		op := "and"
		if n.Operator == token.OR {
			op = "or"
		}
		e.writeLine("%s = %s i1 %s, %s", dst, op, l.reg, r.reg)
		return value{reg: dst, typ: types.Bool}
	case token.PLUS, token.CONCAT:
		l := e.lowerExpr(n.Left)
		r := e.lowerExpr(n.Right)
		if l.typ.Kind == types.KindString || r.typ.Kind == types.KindString {
			if l.typ.Kind != types.KindString || r.typ.Kind != types.KindString {
				e.fail("type error: %s + %s", l.typ, r.typ)
			}
			return e.lowerConcat(l, r)
		}
		return e.lowerArithOp(l, r, "add", "fadd")
	case token.MINUS:
		l := e.lowerExpr(n.Left)
		r := e.lowerExpr(n.Right)
		return e.lowerArithOp(l, r, "sub", "fsub")
	case token.STAR:
		l := e.lowerExpr(n.Left)
		r := e.lowerExpr(n.Right)
		return e.lowerArithOp(l, r, "mul", "fmul")
	case token.SLASH:
		l := e.lowerExpr(n.Left)
		r := e.lowerExpr(n.Right)
		return e.lowerArithOp(l, r, "sdiv", "fdiv")
	case token.PERCENT:
		l := e.lowerExpr(n.Left)
		r := e.lowerExpr(n.Right)
		lreg, rreg, isFloat := e.promoteArith(l, r)
		dst := e.newTemp()
		if isFloat {
			e.writeLine("%s = call double @fmod(double %s, double %s)", dst, lreg, rreg)
			return value{reg: dst, typ: types.Float}
		}
		e.writeLine("%s = srem i64 %s, %s", dst, lreg, rreg)
		return value{reg: dst, typ: types.Int}
	case token.LT, token.GT, token.LE, token.GE, token.EQ, token.NEQ:
		return e.lowerComparison(n)
	default:
		e.fail("unsupported binary operator %s", n.Operator)
		return value{}
	}
}

func (e *Emitter) lowerArithOp(l, r value, intOp, fpOp string) value {
	lreg, rreg, isFloat := e.promoteArith(l, r)
	dst := e.newTemp()
	if isFloat {
		e.writeLine("%s = %s double %s, %s", dst, fpOp, lreg, rreg)
		return value{reg: dst, typ: types.Float}
	}
	e.writeLine("%s = %s i64 %s, %s", dst, intOp, lreg, rreg)
	return value{reg: dst, typ: types.Int}
}

var intPred = map[token.Type]string{
	token.LT: "slt", token.GT: "sgt", token.LE: "sle", token.GE: "sge",
	token.EQ: "eq", token.NEQ: "ne",
}

var fpPred = map[token.Type]string{
	token.LT: "olt", token.GT: "ogt", token.LE: "ole", token.GE: "oge",
	token.EQ: "oeq", token.NEQ: "one",
}

// lowerComparison applies §4.4.4's comparison rules: FP promotion as for
// arithmetic, pointer-to-null compares as integer compares on the bit
// pattern, and bool-vs-wider-int widened to bool by `!= 0`.
func (e *Emitter) lowerComparison(n *ast.BinaryExpr) value {
	l := e.lowerExpr(n.Left)
	r := e.lowerExpr(n.Right)

	if isPointerish(l.typ) || isPointerish(r.typ) ||
		(l.typ.Kind == types.KindString && r.typ.Kind == types.KindString) {
		dst := e.newTemp()
		e.writeLine("%s = icmp %s i8* %s, %s", dst, intPred[n.Operator], l.reg, r.reg)
		return value{reg: dst, typ: types.Bool}
	}

	if l.typ.Kind == types.KindBool && r.typ.Kind != types.KindBool {
		r = e.coerceToBool(r)
	} else if r.typ.Kind == types.KindBool && l.typ.Kind != types.KindBool {
		l = e.coerceToBool(l)
	}

	lreg, rreg, isFloat := e.promoteArith(l, r)
	dst := e.newTemp()
	if isFloat {
		e.writeLine("%s = fcmp %s double %s, %s", dst, fpPred[n.Operator], lreg, rreg)
	} else if l.typ.Kind == types.KindBool && r.typ.Kind == types.KindBool {
		e.writeLine("%s = icmp %s i1 %s, %s", dst, intPred[n.Operator], lreg, rreg)
	} else {
		e.writeLine("%s = icmp %s i64 %s, %s", dst, intPred[n.Operator], lreg, rreg)
	}
	return value{reg: dst, typ: types.Bool}
}

func isPointerish(t types.Type) bool {
	return t.Kind == types.KindNull || t.Kind == types.KindReference || t.Kind == types.KindStruct
}

// lowerConcat computes strlen(l)+strlen(r)+1, mallocs the sum, strcpy's
// the left operand and strcat's the right, tracking the result.
func (e *Emitter) lowerConcat(l, r value) value {
	ll := e.newTemp()
	e.writeLine("%s = call i64 @strlen(i8* %s)", ll, l.reg)
	lr := e.newTemp()
	e.writeLine("%s = call i64 @strlen(i8* %s)", lr, r.reg)
	sum := e.newTemp()
	e.writeLine("%s = add i64 %s, %s", sum, ll, lr)
	total := e.newTemp()
	e.writeLine("%s = add i64 %s, 1", total, sum)
	buf := e.newTemp()
	e.writeLine("%s = call i8* @malloc(i64 %s)", buf, total)
	e.trackAlloc(buf)
	e.writeLine("call i8* @strcpy(i8* %s, i8* %s)", buf, l.reg)
	e.writeLine("call i8* @strcat(i8* %s, i8* %s)", buf, r.reg)
	return value{reg: buf, typ: types.String}
}

// lowerCast implements §4.4.4's four cast targets.
func (e *Emitter) lowerCast(n *ast.CastExpr) value {
	v := e.lowerExpr(n.Value)
	switch n.Target.Kind {
	case types.KindInt:
		if v.typ.Kind == types.KindFloat {
			dst := e.newTemp()
			e.writeLine("%s = fptosi double %s to i64", dst, v.reg)
			return value{reg: dst, typ: types.Int}
		}
		if v.typ.Kind == types.KindInt {
			return v
		}
		// String (or any other unsupported source) -> Int silently
		// yields 0; an intentionally preserved quirk, see §9 and
		// DESIGN.md's decided Open Question.
		return value{reg: "0", typ: types.Int}
	case types.KindFloat:
		if v.typ.Kind == types.KindInt {
			dst := e.newTemp()
			e.writeLine("%s = sitofp i64 %s to double", dst, v.reg)
			return value{reg: dst, typ: types.Float}
		}
		return v
	case types.KindString:
		if v.typ.Kind == types.KindString {
			return v
		}
		return e.castToString(v)
	case types.KindBool:
		return e.coerceToBool(v)
	default:
		e.fail("unsupported cast target %s", n.Target)
		return value{}
	}
}

// castToString formats v into a freshly malloc'd 256-byte buffer via
// sprintf, per §4.4.4.
func (e *Emitter) castToString(v value) value {
	buf := e.newTemp()
	e.writeLine("%s = call i8* @malloc(i64 256)", buf)
	e.trackAlloc(buf)
	fmtStr := e.stringConstant("%lld")
	irType := "i64"
	if v.typ.Kind == types.KindFloat {
		fmtStr = e.stringConstant("%f")
		irType = "double"
	}
	e.writeLine("call i32 (i8*, i8*, ...) @sprintf(i8* %s, i8* %s, %s %s)", buf, fmtStr, irType, v.reg)
	return value{reg: buf, typ: types.String}
}

// lowerFieldAccess navigates a (possibly chained) field path, bitcasting
// each intermediate reference-typed field's loaded i8* to the next
// struct pointer type, per §4.4.4.
func (e *Emitter) lowerFieldAccess(n *ast.FieldAccess) value {
	ptr, structType := e.navigateToStructPointer(n.Base)
	idx := structType.FieldIndex(n.Field)
	if idx < 0 {
		e.fail("struct %s has no field %q", structType.Name, n.Field)
	}
	fieldType, _ := structType.FieldType(n.Field)
	fieldPtr := e.fieldGEP(structType.Name, ptr, idx)
	irFieldType := e.structFieldIRType(fieldType)
	dst := e.newTemp()
	e.writeLine("%s = load %s, %s* %s", dst, irFieldType, irFieldType, fieldPtr)
	if fieldType.Kind == types.KindReference && fieldType.Target.Kind == types.KindStruct {
		// Loaded as i8*; callers that navigate further bitcast on demand.
		return value{reg: dst, typ: fieldType}
	}
	return value{reg: dst, typ: fieldType}
}

// navigateToStructPointer lowers base to a %struct.Name* value, bitcasting
// through any reference-to-struct intermediate as needed.
func (e *Emitter) navigateToStructPointer(base ast.Expression) (string, types.Type) {
	v := e.lowerExpr(base)
	st := v.typ
	if st.Kind == types.KindReference {
		target := *st.Target
		if target.Kind != types.KindStruct {
			e.fail("cannot navigate a non-struct reference")
		}
		resolved := e.resolveStruct(target.Name)
		cast := e.newTemp()
		e.writeLine("%s = bitcast i8* %s to %%struct.%s*", cast, v.reg, resolved.Name)
		return cast, resolved
	}
	if st.Kind != types.KindStruct {
		e.fail("field access on non-struct type %s", st)
	}
	return v.reg, e.resolveStruct(st.Name)
}

// lowerStructLiteral mallocs the struct, bitcasts, and stores each
// argument into its ordinal field slot with null/bitcast fixups for
// pointer-typed fields, per §4.4.4.
func (e *Emitter) lowerStructLiteral(n *ast.StructLiteral) value {
	st := e.resolveStruct(n.Struct)
	raw := e.newTemp()
	e.writeLine("%s = call i8* @malloc(i64 ptrtoint (%%struct.%s* getelementptr (%%struct.%s, %%struct.%s* null, i32 1) to i64))",
		raw, st.Name, st.Name, st.Name)
	e.trackAlloc(raw)
	ptr := e.newTemp()
	e.writeLine("%s = bitcast i8* %s to %%struct.%s*", ptr, raw, st.Name)

	for i, argExpr := range n.Args {
		field := st.Fields[i]
		irFieldType := e.structFieldIRType(field.Type)
		slot := e.fieldGEP(st.Name, ptr, i)

		if _, isNull := argExpr.(*ast.NullLiteral); isNull {
			e.writeLine("store %s null, %s* %s", irFieldType, irFieldType, slot)
			continue
		}
		av := e.lowerExpr(argExpr)
		reg := av.reg
		if field.Type.Kind == types.KindReference && field.Type.Target.Kind == types.KindStruct && av.typ.Kind == types.KindStruct {
			cast := e.newTemp()
			e.writeLine("%s = bitcast %%struct.%s* %s to i8*", cast, av.typ.Name, reg)
			reg = cast
		}
		e.writeLine("store %s %s, %s* %s", irFieldType, reg, irFieldType, slot)
	}
	return value{reg: ptr, typ: st}
}

// lowerCall dispatches a builtin by name (to_str/length/ord) or emits a
// direct call to a user function.
func (e *Emitter) lowerCall(n *ast.CallExpr) value {
	switch n.Name {
	case "to_str":
		return e.lowerToStr(n.Args[0])
	case "length":
		return e.lowerLength(n.Args[0])
	case "ord":
		return e.lowerOrd(n.Args[0])
	}

	fn, ok := e.funcs[n.Name]
	if !ok {
		e.fail("undefined function %q", n.Name)
	}
	var argRegs []string
	var argTypes []string
	for i, a := range n.Args {
		av := e.lowerExpr(a)
		argTypes = append(argTypes, e.paramIRType(fn.params[i]))
		argRegs = append(argRegs, av.reg)
	}
	parts := make([]string, len(argRegs))
	for i := range argRegs {
		parts[i] = argTypes[i] + " " + argRegs[i]
	}
	retType := e.llvmType(fn.ret)
	if fn.ret.Kind == types.KindVoid {
		e.writeLine("call void @%s(%s)", n.Name, strings.Join(parts, ", "))
		return value{typ: types.Void}
	}
	dst := e.newTemp()
	e.writeLine("%s = call %s @%s(%s)", dst, retType, n.Name, strings.Join(parts, ", "))
	return value{reg: dst, typ: fn.ret}
}

// lowerToStr dispatches statically on the argument's declared type
// (§9: no runtime type tags) to to_str_int/to_str_float, or to the array
// variants when the argument is an array-typed identifier.
func (e *Emitter) lowerToStr(arg ast.Expression) value {
	if ident, ok := arg.(*ast.Identifier); ok {
		if v, declared := e.declaredType(ident.Name); declared && v.IsArray() {
			av := e.lowerExpr(arg)
			size := e.arrayLengthOf(v)
			fn := "array_to_str_int"
			if v.Elem.Kind == types.KindFloat {
				fn = "array_to_str_float"
			}
			dst := e.newTemp()
			e.writeLine("%s = call i8* @%s(%s %s, i64 %d)", dst, fn, e.llvmType(types.Array(*v.Elem, nil)), av.reg, size)
			e.trackAlloc(dst)
			return value{reg: dst, typ: types.String}
		}
	}
	v := e.lowerExpr(arg)
	fn := "to_str_int"
	irType := "i64"
	if v.typ.Kind == types.KindFloat {
		fn = "to_str_float"
		irType = "double"
	}
	dst := e.newTemp()
	e.writeLine("%s = call i8* @%s(%s %s)", dst, fn, irType, v.reg)
	e.trackAlloc(dst)
	return value{reg: dst, typ: types.String}
}

// lowerLength returns the declared array size as an i64 constant, or 0
// when the size is absent (a heap/dynamic array).
func (e *Emitter) lowerLength(arg ast.Expression) value {
	ident, ok := arg.(*ast.Identifier)
	if !ok {
		e.fail("length(x) requires an array identifier")
	}
	t, declared := e.declaredType(ident.Name)
	if !declared || !t.IsArray() {
		e.fail("length(%s): not an array", ident.Name)
	}
	return value{reg: fmt.Sprintf("%d", e.arrayLengthOf(t)), typ: types.Int}
}

func (e *Emitter) arrayLengthOf(t types.Type) int {
	if t.Size == nil {
		return 0
	}
	return *t.Size
}

// lowerOrd zero-extends a byte to i64, loading one byte from a pointer
// for the variable case and indexing the literal directly for the
// literal case (the supplemented fast path from original_source).
func (e *Emitter) lowerOrd(arg ast.Expression) value {
	if lit, ok := arg.(*ast.StringLiteral); ok {
		var b byte
		if len(lit.Value) > 0 {
			b = lit.Value[0]
		}
		return value{reg: fmt.Sprintf("%d", b), typ: types.Int}
	}
	v := e.lowerExpr(arg)
	byteReg := v.reg
	if v.typ.Kind == types.KindString {
		loaded := e.newTemp()
		e.writeLine("%s = load i8, i8* %s", loaded, v.reg)
		byteReg = loaded
	}
	dst := e.newTemp()
	e.writeLine("%s = zext i8 %s to i64", dst, byteReg)
	return value{reg: dst, typ: types.Int}
}

// declaredType reports the static type of a local/param/global by name
// without lowering (emitting no IR), used by builtins that dispatch on
// declared type rather than the loaded value.
func (e *Emitter) declaredType(name string) (types.Type, bool) {
	if v, ok := e.locals[name]; ok {
		return v.typ, true
	}
	if g, ok := e.globals[name]; ok {
		return g.typ, true
	}
	return types.Type{}, false
}
