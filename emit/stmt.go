package emit

import (
	"fmt"
	"math"
	"strings"

	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/token"
	"github.com/codeassociates/minilang/types"
)

// lowerStmt dispatches one statement; top-level VarDecl/StructDecl/FuncDecl
// are handled by the caller (they were already consumed in generation-order
// steps 1-3) and are no-ops here.
func (e *Emitter) lowerStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		e.lowerLocalVarDecl(s)
	case *ast.Assignment:
		e.lowerAssignment(s)
	case *ast.IndexAssignment:
		e.lowerIndexAssignment(s)
	case *ast.FieldAssignment:
		e.lowerFieldAssignment(s)
	case *ast.PrintStmt:
		e.lowerPrint(s)
	case *ast.IfStmt:
		e.lowerIf(s)
	case *ast.WhileStmt:
		e.lowerWhile(s)
	case *ast.BreakStmt:
		e.writeLine("br label %%%s", e.breakTarget)
	case *ast.ReturnStmt:
		e.lowerReturn(s)
	case *ast.ExprStmt:
		e.lowerExpr(s.Value)
	case *ast.StructDecl, *ast.FuncDecl:
		// already registered/lowered at module scope.
	default:
		e.fail("unsupported statement %T", stmt)
	}
}

func (e *Emitter) lowerBlock(stmts []ast.Statement) {
	for _, s := range stmts {
		e.lowerStmt(s)
	}
}

// lowerLocalVarDecl allocates a stack slot for a local declaration and
// stores its evaluated initializer, special-casing zeros(n) so the
// element type can be taken from the declaration rather than inferred.
func (e *Emitter) lowerLocalVarDecl(decl *ast.VarDecl) {
	slot := e.newTemp()
	irType := e.llvmType(decl.Type)
	e.writeLine("%s = alloca %s", slot, irType)
	e.locals[decl.Name] = &variable{slot: slot, typ: decl.Type}

	var v value
	if z, ok := decl.Value.(*ast.ZerosExpr); ok {
		v = e.lowerZerosTyped(z, *decl.Type.Elem)
	} else {
		v = e.lowerExpr(decl.Value)
	}
	e.storeCoerced(slot, irType, decl.Type, v)
}

// storeCoerced stores v into the slot of declared type declType,
// bitcasting a struct pointer to i8* when the slot is a reference to a
// struct and lowering a bare `null` literal to the slot's typed null
// pointer. No integer-width conversion is applied.
func (e *Emitter) storeCoerced(slot, irType string, declType types.Type, v value) {
	reg := v.reg
	if v.typ.Kind == types.KindNull {
		reg = "null"
	} else if declType.Kind == types.KindReference && declType.Target.Kind == types.KindStruct &&
		v.typ.Kind == types.KindStruct {
		cast := e.newTemp()
		e.writeLine("%s = bitcast %%struct.%s* %s to i8*", cast, v.typ.Name, reg)
		reg = cast
	}
	e.writeLine("store %s %s, %s* %s", irType, reg, irType, slot)
}

func (e *Emitter) lowerAssignment(a *ast.Assignment) {
	v := e.lowerExpr(a.Value)
	if loc, ok := e.locals[a.Name]; ok {
		e.storeCoerced(loc.slot, e.llvmType(loc.typ), loc.typ, v)
		return
	}
	if g, ok := e.globals[a.Name]; ok {
		e.storeCoerced("@g."+a.Name, e.llvmType(g.typ), g.typ, v)
		return
	}
	e.fail("undefined name %q", a.Name)
}

// lowerIndexAssignment mirrors array access; the dotted form
// `var.field[idx] = v` is handled because Array may itself be a
// FieldAccess, which lowerExpr/navigateToStructPointer already resolve.
func (e *Emitter) lowerIndexAssignment(a *ast.IndexAssignment) {
	ptr, elemType := e.indexAddress(a.Array, a.Index)
	v := e.lowerExpr(a.Value)
	irElem := e.llvmType(elemType)
	e.writeLine("store %s %s, %s* %s", irElem, v.reg, irElem, ptr)
}

func (e *Emitter) lowerPrint(p *ast.PrintStmt) {
	if ident, ok := p.Value.(*ast.Identifier); ok {
		if t, declared := e.declaredType(ident.Name); declared && t.IsArray() {
			e.printArray(p.Value, t)
			return
		}
	}
	if fa, ok := p.Value.(*ast.FieldAccess); ok {
		ft := e.fieldAccessType(fa)
		if ft.IsArray() {
			e.printArray(p.Value, ft)
			return
		}
	}
	if al, ok := p.Value.(*ast.ArrayLiteral); ok {
		// An array-literal argument has no declared variable to consult for
		// its length; lower it once (avoiding a second, wasteful heap
		// allocation from re-evaluating the literal) and use its element
		// count directly.
		v := e.lowerArrayLiteral(al)
		e.printArrayValue(v, len(al.Elements))
		return
	}
	v := e.lowerExpr(p.Value)
	e.printScalar(v, true)
}

// fieldAccessType resolves the declared type of a field-access chain
// without emitting any IR, for print's array/string dispatch.
func (e *Emitter) fieldAccessType(fa *ast.FieldAccess) types.Type {
	var baseType types.Type
	switch b := fa.Base.(type) {
	case *ast.Identifier:
		t, ok := e.declaredType(b.Name)
		if !ok {
			e.fail("undefined name %q", b.Name)
		}
		baseType = t
	case *ast.FieldAccess:
		baseType = e.fieldAccessType(b)
	default:
		e.fail("unsupported field access base %T", fa.Base)
	}
	target := baseType
	if target.Kind == types.KindReference {
		target = *target.Target
	}
	if target.Kind == types.KindStruct {
		// A `ref Name` field declared before Name was complete carries a
		// field-less placeholder; the registry holds the full field list.
		target = e.resolveStruct(target.Name)
	}
	ft, ok := target.FieldType(fa.Field)
	if !ok {
		e.fail("struct %s has no field %q", target.Name, fa.Field)
	}
	return ft
}

// printArray formats `[e1, e2, ...]\n` per §4.4.4, selecting %lld/%f/%s/
// true|false by element type, for an array reached via a declared
// variable/field (whose length comes from arrType, not from v itself since
// lowering an inline array decays it to a plain pointer).
func (e *Emitter) printArray(arrExpr ast.Expression, arrType types.Type) {
	v := e.lowerExpr(arrExpr)
	e.printArrayValue(v, e.arrayLengthOf(arrType))
}

// printArrayValue formats `[e1, ..., en]\n` given an already-lowered array
// pointer value and its element count.
func (e *Emitter) printArrayValue(v value, n int) {
	elemType := *v.typ.Elem
	irElem := e.llvmType(elemType)

	e.printLiteral("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			e.printLiteral(", ")
		}
		slot := e.newTemp()
		e.writeLine("%s = getelementptr %s, %s* %s, i64 %d", slot, irElem, irElem, v.reg, i)
		elem := e.newTemp()
		e.writeLine("%s = load %s, %s* %s", elem, irElem, irElem, slot)
		e.printScalar(value{reg: elem, typ: elemType}, false)
	}
	e.printLiteral("]\n")
}

func (e *Emitter) printLiteral(s string) {
	c := e.stringConstant(s)
	fmtStr := e.stringConstant("%s")
	e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, i8* %s)", fmtStr, c)
}

// printScalar prints one value with the element-type format selected per
// §4.4.4: booleans print the literal words true/false via two private
// constant strings; others go straight to printf with a type-appropriate
// format specifier. withNewline is true for a bare top-level print(e)
// (whose format strings carry a trailing \n) and false for one element of
// an array being printed (no per-element newline).
func (e *Emitter) printScalar(v value, withNewline bool) {
	nl := ""
	if withNewline {
		nl = "\n"
	}
	switch v.typ.Kind {
	case types.KindBool:
		trueStr := e.stringConstant("true")
		falseStr := e.stringConstant("false")
		sel := e.newTemp()
		e.writeLine("%s = select i1 %s, i8* %s, i8* %s", sel, v.reg, trueStr, falseStr)
		fmtStr := e.stringConstant("%s" + nl)
		e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, i8* %s)", fmtStr, sel)
	case types.KindFloat:
		fmtStr := e.stringConstant("%f" + nl)
		e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, double %s)", fmtStr, v.reg)
	case types.KindString:
		fmtStr := e.stringConstant("%s" + nl)
		e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, i8* %s)", fmtStr, v.reg)
	case types.KindInt:
		fmtStr := e.stringConstant("%lld" + nl)
		e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, i64 %s)", fmtStr, v.reg)
	default:
		fmtStr := e.stringConstant("%p" + nl)
		e.writeLine("call i32 (i8*, i8*, ...) @printf(i8* %s, i8* %s)", fmtStr, v.reg)
	}
}

func (e *Emitter) lowerIf(s *ast.IfStmt) {
	cond := e.coerceToBool(e.lowerExpr(s.Condition))
	thenLbl := e.newLabel("if.then")
	endLbl := e.newLabel("if.end")
	elseLbl := endLbl
	if s.Else != nil {
		elseLbl = e.newLabel("if.else")
	}
	e.writeLine("br i1 %s, label %%%s, label %%%s", cond.reg, thenLbl, elseLbl)

	e.writeLabel(thenLbl)
	e.lowerBlock(s.Then)
	if !blockTerminates(s.Then) {
		e.writeLine("br label %%%s", endLbl)
	}

	if s.Else != nil {
		e.writeLabel(elseLbl)
		e.lowerBlock(s.Else)
		if !blockTerminates(s.Else) {
			e.writeLine("br label %%%s", endLbl)
		}
	}

	e.writeLabel(endLbl)
}

func (e *Emitter) lowerWhile(s *ast.WhileStmt) {
	condLbl := e.newLabel("while.cond")
	bodyLbl := e.newLabel("while.body")
	endLbl := e.newLabel("while.end")

	prevBreak := e.breakTarget
	e.breakTarget = endLbl

	e.writeLine("br label %%%s", condLbl)
	e.writeLabel(condLbl)
	cond := e.coerceToBool(e.lowerExpr(s.Condition))
	e.writeLine("br i1 %s, label %%%s, label %%%s", cond.reg, bodyLbl, endLbl)

	e.writeLabel(bodyLbl)
	e.lowerBlock(s.Body)
	if !blockTerminates(s.Body) {
		e.writeLine("br label %%%s", condLbl)
	}

	e.writeLabel(endLbl)
	e.breakTarget = prevBreak
}

func (e *Emitter) lowerReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		e.emitFreeEpilogue()
		e.writeLine("ret void")
		return
	}
	v := e.lowerExpr(s.Value)
	e.emitFreeEpilogue()
	e.writeLine("ret %s %s", e.llvmType(v.typ), v.reg)
}

// emitMain lowers generation-order step 4: allocation tracker, then the
// program's top-level statements in source order (each non-constant
// top-level declaration's deferred initializer runs at its declaration's
// position), cleanup, and ret i32 0. No Windows console setup
// (SetConsoleOutputCP) is emitted; the module always targets x86_64 Linux.
func (e *Emitter) emitMain(prog *ast.Program) {
	e.locals = make(map[string]*variable)
	e.breakTarget = ""

	e.out.WriteString("define i32 @main() {\n")
	e.beginAllocTracker()

	e.writeGlobalConstantInits()

	for _, s := range prog.Statements {
		switch st := s.(type) {
		case *ast.StructDecl, *ast.FuncDecl:
			continue
		case *ast.VarDecl:
			e.emitDeferredGlobalInit(st)
		default:
			e.lowerStmt(s)
		}
	}

	e.emitFreeEpilogue()
	e.writeLine("ret i32 0")
	e.out.WriteString("}\n\n")
}

// writeGlobalDecls declares every top-level global with either its
// constant initializer (already known at module-build time) or a
// zero/null placeholder awaiting main's deferred initialization.
func (e *Emitter) writeGlobalDecls() {
	for _, name := range e.globalOrder {
		g := e.globals[name]
		irType := e.llvmType(g.typ)
		if g.isConstant {
			init := e.constantIRLiteral(g.typ, g.init)
			fmt.Fprintf(&e.out, "@g.%s = global %s %s\n", name, irType, init)
		} else {
			fmt.Fprintf(&e.out, "@g.%s = global %s %s\n", name, irType, e.zeroValue(g.typ))
		}
	}
	if len(e.globalOrder) > 0 {
		e.out.WriteString("\n")
	}
}

// constantIRLiteral renders a global's constant initializer directly (no
// instructions to emit: only literals and unary/binary operators over
// literals reach here, per isConstantExpr in the parser).
func (e *Emitter) constantIRLiteral(t types.Type, expr ast.Expression) string {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return fmt.Sprintf("%d", n.Value)
	case *ast.StringLiteral:
		// Module scope: emit the private constant and point at its first
		// byte with a constant-expression GEP instead of an instruction.
		e.strCounter++
		name := fmt.Sprintf("@.str.%d", e.strCounter)
		size := len(n.Value) + 1
		fmt.Fprintf(&e.out, "%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n",
			name, size, escapeIR(n.Value))
		return fmt.Sprintf("getelementptr ([%d x i8], [%d x i8]* %s, i64 0, i64 0)", size, size, name)
	case *ast.FloatLiteral:
		return formatFloat(n.Value)
	case *ast.BoolLiteral:
		if n.Value {
			return "1"
		}
		return "0"
	case *ast.NullLiteral:
		return "null"
	case *ast.UnaryExpr, *ast.BinaryExpr:
		// Constant arithmetic over literals: fold at module-build time
		// since a global initializer needs a literal, not a register.
		// isConstantExpr in the parser accepts any operator over
		// literals; foldConstant folds only unary minus and +,-,*,/,%
		// over int/float literals and fails on every other operator.
		v := e.foldConstant(expr)
		if v.typ.Kind == types.KindFloat {
			return formatFloat(v.f)
		}
		return fmt.Sprintf("%d", v.i)
	default:
		e.fail("unsupported constant initializer %T", expr)
		return ""
	}
}

// constVal is a folded constant: either an int or a float value, tagged by
// typ so foldConstant's arithmetic can apply §4.4.4's float-promotion rule.
type constVal struct {
	typ types.Type
	i   int64
	f   float64
}

func (v constVal) asFloat() float64 {
	if v.typ.Kind == types.KindFloat {
		return v.f
	}
	return float64(v.i)
}

// foldConstant evaluates a literal or unary-minus/binary-arithmetic
// expression over literals at module-build time, for global initializers
// that must render as an IR literal rather than an instruction sequence.
func (e *Emitter) foldConstant(expr ast.Expression) constVal {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return constVal{typ: types.Int, i: n.Value}
	case *ast.FloatLiteral:
		return constVal{typ: types.Float, f: n.Value}
	case *ast.UnaryExpr:
		v := e.foldConstant(n.Operand)
		if n.Operator != token.MINUS {
			e.fail("unsupported constant unary operator %s", n.Operator)
		}
		if v.typ.Kind == types.KindFloat {
			return constVal{typ: types.Float, f: -v.f}
		}
		return constVal{typ: types.Int, i: -v.i}
	case *ast.BinaryExpr:
		l := e.foldConstant(n.Left)
		r := e.foldConstant(n.Right)
		isFloat := l.typ.Kind == types.KindFloat || r.typ.Kind == types.KindFloat
		if isFloat {
			lf, rf := l.asFloat(), r.asFloat()
			var out float64
			switch n.Operator {
			case token.PLUS:
				out = lf + rf
			case token.MINUS:
				out = lf - rf
			case token.STAR:
				out = lf * rf
			case token.SLASH:
				out = lf / rf
			case token.PERCENT:
				out = math.Mod(lf, rf)
			default:
				e.fail("unsupported constant binary operator %s", n.Operator)
			}
			return constVal{typ: types.Float, f: out}
		}
		var out int64
		switch n.Operator {
		case token.PLUS:
			out = l.i + r.i
		case token.MINUS:
			out = l.i - r.i
		case token.STAR:
			out = l.i * r.i
		case token.SLASH:
			out = l.i / r.i
		case token.PERCENT:
			out = l.i % r.i
		default:
			e.fail("unsupported constant binary operator %s", n.Operator)
		}
		return constVal{typ: types.Int, i: out}
	default:
		e.fail("unsupported constant expression %T", expr)
		return constVal{}
	}
}

// writeGlobalConstantInits is a placeholder hook kept symmetrical with
// emitDeferredGlobalInit; constant globals need no run-time store since
// writeGlobalDecls already gave them their final value.
func (e *Emitter) writeGlobalConstantInits() {}

// emitDeferredGlobalInit runs inside main for every non-constant top-level
// declaration (§4.4.3 step 2 / §4.4.4's deferred-init rule): evaluate the
// initializer (a function call for `global`, any expression for a
// top-level `let`) and store it.
func (e *Emitter) emitDeferredGlobalInit(decl *ast.VarDecl) {
	if decl.IsConstant {
		return
	}
	v := e.lowerExpr(decl.Value)
	e.storeCoerced("@g."+decl.Name, e.llvmType(decl.Type), decl.Type, v)
}

// emitFunc lowers one user function's body per §4.4.5: a stack slot and
// store-on-entry for each parameter except array parameters (kept as
// pointer values), the body, and a default zero-valued return if control
// falls off the end without an explicit terminator.
func (e *Emitter) emitFunc(fn *ast.FuncDecl) {
	e.locals = make(map[string]*variable)
	e.breakTarget = ""

	retType := e.llvmType(fn.ReturnType)
	var paramDecls []string
	for i, p := range fn.Params {
		paramDecls = append(paramDecls, fmt.Sprintf("%s %%arg%d", e.paramIRType(p.Type), i))
	}
	fmt.Fprintf(&e.out, "define %s @%s(%s) {\n", retType, fn.Name, strings.Join(paramDecls, ", "))

	e.beginAllocTracker()

	for i, p := range fn.Params {
		argReg := fmt.Sprintf("%%arg%d", i)
		if p.Type.IsArray() {
			// Array params remain pointer values (no extra indirection,
			// no copy): the caller's storage is shared directly. The
			// declared size (if any) is kept on the local's type so
			// length(x)/to_str(x) still see it despite the IR-level
			// pointer decay (see paramIRType).
			e.locals[p.Name] = &variable{slot: argReg, typ: types.Array(*p.Type.Elem, p.Type.Size), isPointer: true}
			continue
		}
		slot := e.newTemp()
		irType := e.llvmType(p.Type)
		e.writeLine("%s = alloca %s", slot, irType)
		e.writeLine("store %s %s, %s* %s", irType, argReg, irType, slot)
		e.locals[p.Name] = &variable{slot: slot, typ: p.Type}
	}

	e.lowerBlock(fn.Body)

	if !blockTerminates(fn.Body) {
		e.emitFreeEpilogue()
		if fn.ReturnType.Kind == types.KindVoid {
			e.writeLine("ret void")
		} else {
			e.writeLine("ret %s %s", retType, e.zeroValue(fn.ReturnType))
		}
	}

	e.out.WriteString("}\n\n")
}

// blockTerminates reports whether stmts already ends with a basic-block
// terminator (return/break, or an if/else whose every arm terminates), so
// callers emitting a block know whether a trailing unconditional branch
// would create a second terminator in the same basic block.
func blockTerminates(stmts []ast.Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	switch s := stmts[len(stmts)-1].(type) {
	case *ast.ReturnStmt, *ast.BreakStmt:
		return true
	case *ast.IfStmt:
		return s.Else != nil && blockTerminates(s.Then) && blockTerminates(s.Else)
	default:
		return false
	}
}
