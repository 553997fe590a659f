// Package emit lowers a MiniLang AST to textual LLVM IR: a single module,
// native target triple, and the runtime declarations the generated code
// calls into (printf, malloc, free, the casting helpers).
package emit

import (
	"fmt"
	"strings"

	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/internal/diag"
	"github.com/codeassociates/minilang/types"
)

// externalDecls are declared once per module with external linkage, per
// §4.4.1. fmod/to_str_int/array_to_str_int/etc. are the casting-helper
// library; strcpy/strcat/sprintf/strlen/malloc/free/printf come from libc.
const externalDecls = `declare i32 @printf(i8*, ...)
declare i8* @malloc(i64)
declare void @free(i8*)
declare i64 @strlen(i8*)
declare i8* @strcpy(i8*, i8*)
declare i8* @strcat(i8*, i8*)
declare i32 @sprintf(i8*, i8*, ...)
declare double @fmod(double, double)
declare i8* @to_str_int(i64)
declare i8* @to_str_float(double)
declare i8* @array_to_str_int(i64*, i64)
declare i8* @array_to_str_float(double*, i64)
declare i64 @to_int(double)
declare double @to_float(i64)
`

// variable describes one entry in a lexical scope: its stack-slot (or, for
// array parameters, direct pointer value) name and declared type.
type variable struct {
	slot      string
	typ       types.Type
	isPointer bool // true when slot already holds the value (array params)
}

// function records a declared top-level function's signature, so call
// sites can be emitted before a forward-referenced body is lowered.
type function struct {
	name   string
	params []types.Type
	ret    types.Type
}

// global records a top-level `let`/`global` declaration: whether its
// initializer was constant (already emitted) or must run inside main.
type global struct {
	name       string
	typ        types.Type
	isConstant bool
	init       ast.Expression
}

// Emitter is the single mutable "emit context" threaded through every
// lowering routine (§9: a reimplementation should thread one context value
// rather than rely on process-level globals; this struct is that context).
type Emitter struct {
	out strings.Builder

	structs map[string]types.Type // name -> resolved struct type
	structOrder []string

	funcs map[string]*function

	globals      map[string]*global
	globalOrder  []string

	// per-function state, reset at the start of each function/main lowering
	locals    map[string]*variable
	allocName string // current function's allocation-tracker array name
	allocCap  string // current function's allocation-tracker count variable

	breakTarget string // label `break` jumps to; "" outside any loop

	strCounter   int
	tmpCounter   int
	labelCounter int

	errs []error
}

// New creates an Emitter ready to lower a single Program.
func New() *Emitter {
	return &Emitter{
		structs: make(map[string]types.Type),
		funcs:   make(map[string]*function),
		globals: make(map[string]*global),
	}
}

// Generate lowers prog to a complete LLVM IR module, recovering from any
// internal panic (an unresolved name, a malformed node) into a returned
// error rather than crashing the driver — see internal/diag for the
// matching boundary on the lexer/parser side.
func (e *Emitter) Generate(prog *ast.Program) (ir string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if de, ok := r.(diag.Error); ok {
				err = de
				return
			}
			err = diag.Unpositioned("%v", r)
		}
	}()

	e.registerStructs(prog)
	e.registerGlobals(prog)
	e.registerFuncs(prog)

	e.out.WriteString(`target datalayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"` + "\n")
	e.out.WriteString(`target triple = "x86_64-unknown-linux-gnu"` + "\n\n")
	e.writeStructDecls()
	e.out.WriteString(externalDecls)
	e.out.WriteString("\n")

	e.writeGlobalDecls()

	for _, s := range prog.Statements {
		if fn, ok := s.(*ast.FuncDecl); ok {
			e.declareFuncSignature(fn)
		}
	}

	e.emitMain(prog)

	for _, s := range prog.Statements {
		if fn, ok := s.(*ast.FuncDecl); ok {
			e.emitFunc(fn)
		}
	}

	if len(e.errs) > 0 {
		return "", e.errs[0]
	}
	return e.out.String(), nil
}

func (e *Emitter) fail(format string, args ...any) {
	panic(diag.Unpositioned(format, args...))
}

// registerStructs is generation-order step 1 (§4.4.3): a pre-pass over
// every struct definition populating the registry before anything else
// is lowered, so forward field references resolve.
func (e *Emitter) registerStructs(prog *ast.Program) {
	for _, s := range prog.Statements {
		sd, ok := s.(*ast.StructDecl)
		if !ok {
			continue
		}
		fields := make([]types.Field, len(sd.Fields))
		for i, f := range sd.Fields {
			fields[i] = types.Field{Name: f.Name, Type: f.Type}
		}
		e.structs[sd.Name] = types.StructOf(sd.Name, fields)
		e.structOrder = append(e.structOrder, sd.Name)
	}
}

// registerGlobals is generation-order step 2: record every top-level
// declaration with its initializer and constant flag. It emits nothing;
// writeGlobalDecls later writes the constant or zero/null initializer and
// emitMain runs the deferred initializers.
func (e *Emitter) registerGlobals(prog *ast.Program) {
	for _, s := range prog.Statements {
		vd, ok := s.(*ast.VarDecl)
		if !ok {
			continue
		}
		g := &global{name: vd.Name, typ: vd.Type, isConstant: vd.IsConstant, init: vd.Value}
		e.globals[vd.Name] = g
		e.globalOrder = append(e.globalOrder, vd.Name)
	}
}

// registerFuncs is generation-order step 3: record every function's
// signature before any body (including main's) is lowered, so forward and
// mutually recursive calls resolve.
func (e *Emitter) registerFuncs(prog *ast.Program) {
	for _, s := range prog.Statements {
		fn, ok := s.(*ast.FuncDecl)
		if !ok {
			continue
		}
		params := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Type
		}
		e.funcs[fn.Name] = &function{name: fn.Name, params: params, ret: fn.ReturnType}
	}
}

func (e *Emitter) declareFuncSignature(fn *ast.FuncDecl) {
	// Signature already captured in registerFuncs; nothing further is
	// needed until the body is lowered (forward declaration is implicit:
	// LLVM IR only needs a function to be defined somewhere in the module).
	_ = fn
}

func (e *Emitter) newTemp() string {
	e.tmpCounter++
	return fmt.Sprintf("%%t%d", e.tmpCounter)
}

func (e *Emitter) newLabel(base string) string {
	e.labelCounter++
	return fmt.Sprintf("%s%d", base, e.labelCounter)
}

func (e *Emitter) writeLine(format string, args ...any) {
	e.out.WriteString("  ")
	fmt.Fprintf(&e.out, format, args...)
	e.out.WriteString("\n")
}

func (e *Emitter) writeLabel(name string) {
	fmt.Fprintf(&e.out, "%s:\n", name)
}
