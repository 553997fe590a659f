package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/lexer"
	"github.com/codeassociates/minilang/token"
	"github.com/codeassociates/minilang/types"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "unexpected parse errors: %v", p.Errors())
	return prog
}

func TestParseLetDecl(t *testing.T) {
	prog := parseProgram(t, `let x: int = 10`)
	require.Len(t, prog.Statements, 1)
	decl, ok := prog.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	require.Equal(t, "x", decl.Name)
	require.True(t, types.Equal(types.Int, decl.Type))
	require.True(t, decl.IsConstant)
}

func TestParseGlobalWithNonConstantNonCallIsError(t *testing.T) {
	p := New(lexer.New("let x: int = 1\nglobal g: int = x\n"))
	p.ParseProgram()
	require.NotEmpty(t, p.Errors())
}

func TestParseGlobalWithCallInitializerIsDeferred(t *testing.T) {
	prog := parseProgram(t, "func f() -> int return 1 end\nglobal g: int = f()\n")
	var decl *ast.VarDecl
	for _, s := range prog.Statements {
		if d, ok := s.(*ast.VarDecl); ok {
			decl = d
		}
	}
	require.NotNil(t, decl)
	require.False(t, decl.IsConstant)
	_, isCall := decl.Value.(*ast.CallExpr)
	require.True(t, isCall)
}

func TestParseArrayDeclAndIndexAssignment(t *testing.T) {
	prog := parseProgram(t, "let a: int[3] = [1,2,3]\na[0] = a[1]+a[2]\nprint(a)\n")
	require.Len(t, prog.Statements, 3)
	_, ok := prog.Statements[1].(*ast.IndexAssignment)
	require.True(t, ok)
}

func TestParseFunctionDefAndCall(t *testing.T) {
	prog := parseProgram(t, `func fact(n: int) -> int
if n < 2 then
return 1
end
return n * fact(n-1)
end
print(fact(5))
`)
	require.Len(t, prog.Statements, 2)
	fn, ok := prog.Statements[0].(*ast.FuncDecl)
	require.True(t, ok)
	require.Equal(t, "fact", fn.Name)
	require.Len(t, fn.Params, 1)
	require.True(t, types.Equal(types.Int, fn.ReturnType))
}

func TestParseStructDeclAndForwardReference(t *testing.T) {
	prog := parseProgram(t, "struct N v:int, next:ref N end\nlet a: N = N(1, null)\na.next = N(2, null)\na.next.next = N(3, null)\nprint(a.next.next.v)\n")
	sd, ok := prog.Statements[0].(*ast.StructDecl)
	require.True(t, ok)
	require.Equal(t, "N", sd.Name)
	require.Len(t, sd.Fields, 2)
	require.True(t, sd.Fields[1].Type.IsReference())

	assign1, ok := prog.Statements[2].(*ast.FieldAssignment)
	require.True(t, ok)
	require.Equal(t, "a", assign1.Base)
	require.Equal(t, []string{"next"}, assign1.Path)

	assign2, ok := prog.Statements[3].(*ast.FieldAssignment)
	require.True(t, ok)
	require.Equal(t, []string{"next", "next"}, assign2.Path)
}

func TestParseStructConstructorVsFunctionCall(t *testing.T) {
	prog := parseProgram(t, "struct P x:int end\nfunc f(n: int) -> int return n end\nlet p: P = P(1)\nlet r: int = f(1)\n")
	pdecl := prog.Statements[2].(*ast.VarDecl)
	_, isStructLit := pdecl.Value.(*ast.StructLiteral)
	require.True(t, isStructLit)

	rdecl := prog.Statements[3].(*ast.VarDecl)
	_, isCall := rdecl.Value.(*ast.CallExpr)
	require.True(t, isCall)
}

func TestParseCastVsCall(t *testing.T) {
	prog := parseProgram(t, "let x: float = float(5)\nlet s: string = to_str(5)\n")
	xdecl := prog.Statements[0].(*ast.VarDecl)
	_, isCast := xdecl.Value.(*ast.CastExpr)
	require.True(t, isCast)

	sdecl := prog.Statements[1].(*ast.VarDecl)
	call, isCall := sdecl.Value.(*ast.CallExpr)
	require.True(t, isCall)
	require.Equal(t, "to_str", call.Name)
}

func TestParseBreakOutsideLoopIsError(t *testing.T) {
	p := New(lexer.New("break\n"))
	p.ParseProgram()
	require.NotEmpty(t, p.Errors())
}

func TestParseBreakInsideLoopOK(t *testing.T) {
	prog := parseProgram(t, "let i: int = 0\nwhile i < 3 do\nbreak\nend\n")
	ws := prog.Statements[1].(*ast.WhileStmt)
	_, isBreak := ws.Body[0].(*ast.BreakStmt)
	require.True(t, isBreak)
}

func TestParseExpressionPrecedence(t *testing.T) {
	prog := parseProgram(t, "let x: int = 1 + 2 * 3\n")
	decl := prog.Statements[0].(*ast.VarDecl)
	bin, ok := decl.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, bin.Operator)
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, rhs.Operator)
}

func TestParseDoubleUnaryMinus(t *testing.T) {
	prog := parseProgram(t, "let x: int = --5\n")
	decl := prog.Statements[0].(*ast.VarDecl)
	outer, ok := decl.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, token.MINUS, outer.Operator)
	inner, ok := outer.Operand.(*ast.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, token.MINUS, inner.Operator)
}

func TestParseZerosAndArrayLiteral(t *testing.T) {
	prog := parseProgram(t, "let a: int[3] = zeros(3)\nlet b: int[2] = [1, 2]\n")
	decl := prog.Statements[0].(*ast.VarDecl)
	_, ok := decl.Value.(*ast.ZerosExpr)
	require.True(t, ok)

	decl2 := prog.Statements[1].(*ast.VarDecl)
	arr, ok := decl2.Value.(*ast.ArrayLiteral)
	require.True(t, ok)
	require.Len(t, arr.Elements, 2)
}

func TestParseReferenceOf(t *testing.T) {
	prog := parseProgram(t, "let x: int = 5\nlet r: ref int = ref x\n")
	decl := prog.Statements[1].(*ast.VarDecl)
	require.True(t, decl.Type.IsReference())
	unary, ok := decl.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, token.REF, unary.Operator)
}
