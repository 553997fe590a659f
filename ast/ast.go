// Package ast defines MiniLang's abstract syntax tree: the typed node set
// the parser produces and the emitter consumes.
package ast

import (
	"github.com/codeassociates/minilang/token"
	"github.com/codeassociates/minilang/types"
)

// Node is the base interface implemented by every AST node.
type Node interface {
	TokenLiteral() string
}

// Statement is a top-level or block-level construct.
type Statement interface {
	Node
	statementNode()
}

// Expression is anything that yields a value.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of every AST: a flat list of top-level statements.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// ---- literals ----

type IntLiteral struct {
	Token token.Token
	Value int64
}

func (n *IntLiteral) expressionNode()      {}
func (n *IntLiteral) TokenLiteral() string { return n.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (n *FloatLiteral) expressionNode()      {}
func (n *FloatLiteral) TokenLiteral() string { return n.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (n *StringLiteral) expressionNode()      {}
func (n *StringLiteral) TokenLiteral() string { return n.Token.Literal }

type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (n *BoolLiteral) expressionNode()      {}
func (n *BoolLiteral) TokenLiteral() string { return n.Token.Literal }

// NullLiteral is the sentinel compatible with any pointer-typed location.
type NullLiteral struct {
	Token token.Token
}

func (n *NullLiteral) expressionNode()      {}
func (n *NullLiteral) TokenLiteral() string { return n.Token.Literal }

// Identifier references a local, parameter, global, or function by name.
type Identifier struct {
	Token token.Token
	Name  string
}

func (n *Identifier) expressionNode()      {}
func (n *Identifier) TokenLiteral() string { return n.Token.Literal }

// ArrayLiteral is `[e1, e2, ...]`.
type ArrayLiteral struct {
	Token    token.Token // the '['
	Elements []Expression
}

func (n *ArrayLiteral) expressionNode()      {}
func (n *ArrayLiteral) TokenLiteral() string { return n.Token.Literal }

// ZerosExpr is `zeros(n)`, a heap array of n zero-valued elements. The
// element type is not known syntactically; it is inferred from the
// declaration the zeros(...) call initializes.
type ZerosExpr struct {
	Token token.Token // the 'zeros' token
	Count Expression
}

func (n *ZerosExpr) expressionNode()      {}
func (n *ZerosExpr) TokenLiteral() string { return n.Token.Literal }

// IndexExpr is `arr[idx]`.
type IndexExpr struct {
	Token token.Token // the '['
	Array Expression
	Index Expression
}

func (n *IndexExpr) expressionNode()      {}
func (n *IndexExpr) TokenLiteral() string { return n.Token.Literal }

// BinaryExpr covers every binary operator: arithmetic, comparison, logical,
// and concatenation (CONCAT is semantically identical to PLUS on strings).
type BinaryExpr struct {
	Token    token.Token // the operator token
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (n *BinaryExpr) expressionNode()      {}
func (n *BinaryExpr) TokenLiteral() string { return n.Token.Literal }

// UnaryExpr covers `-x`, `!x`, and `ref x`.
type UnaryExpr struct {
	Token    token.Token
	Operator token.Type
	Operand  Expression
}

func (n *UnaryExpr) expressionNode()      {}
func (n *UnaryExpr) TokenLiteral() string { return n.Token.Literal }

// CastExpr is `int(e)`, `float(e)`, `string(e)`/`str(e)`, or `bool(e)`.
type CastExpr struct {
	Token  token.Token
	Target types.Type
	Value  Expression
}

func (n *CastExpr) expressionNode()      {}
func (n *CastExpr) TokenLiteral() string { return n.Token.Literal }

// FieldAccess is a (possibly chained) `.field` path off a base expression:
// `a.b.c` is FieldAccess{Base: FieldAccess{Base: a, Field: "b"}, Field: "c"}.
type FieldAccess struct {
	Token token.Token // the '.'
	Base  Expression
	Field string
}

func (n *FieldAccess) expressionNode()      {}
func (n *FieldAccess) TokenLiteral() string { return n.Token.Literal }

// StructLiteral is a positional struct constructor call `Name(a1, ..., ak)`.
type StructLiteral struct {
	Token  token.Token
	Struct string
	Args   []Expression
}

func (n *StructLiteral) expressionNode()      {}
func (n *StructLiteral) TokenLiteral() string { return n.Token.Literal }

// CallExpr is a call to a user function or a language builtin.
type CallExpr struct {
	Token token.Token
	Name  string
	Args  []Expression
}

func (n *CallExpr) expressionNode()      {}
func (n *CallExpr) TokenLiteral() string { return n.Token.Literal }

// ---- statements ----

// VarDecl is `let name : type = expr` or `global name : type = expr`.
type VarDecl struct {
	Token      token.Token // 'let' or 'global'
	IsGlobal   bool
	Name       string
	Type       types.Type
	Value      Expression
	IsConstant bool // true when Value is a constant expression (literals/arith over literals)
}

func (n *VarDecl) statementNode()       {}
func (n *VarDecl) TokenLiteral() string { return n.Token.Literal }

// Assignment is reassignment of an existing local/global/parameter.
type Assignment struct {
	Token token.Token
	Name  string
	Value Expression
}

func (n *Assignment) statementNode()       {}
func (n *Assignment) TokenLiteral() string { return n.Token.Literal }

// IndexAssignment is `name[idx] = value`, including the dotted array form
// `name.field[idx] = value` when Array is a FieldAccess.
type IndexAssignment struct {
	Token token.Token
	Array Expression // Identifier or FieldAccess
	Index Expression
	Value Expression
}

func (n *IndexAssignment) statementNode()       {}
func (n *IndexAssignment) TokenLiteral() string { return n.Token.Literal }

// FieldAssignment is `name.field = value` (single field) or, via Path, the
// nested form `name.f1.f2...fk = value`.
type FieldAssignment struct {
	Token token.Token
	Base  string   // the root identifier
	Path  []string // one or more field names, in navigation order
	Value Expression
}

func (n *FieldAssignment) statementNode()       {}
func (n *FieldAssignment) TokenLiteral() string { return n.Token.Literal }

// PrintStmt is `print(expr)`.
type PrintStmt struct {
	Token token.Token
	Value Expression
}

func (n *PrintStmt) statementNode()       {}
func (n *PrintStmt) TokenLiteral() string { return n.Token.Literal }

// IfStmt is `if cond then ... [else ...] end`.
type IfStmt struct {
	Token     token.Token
	Condition Expression
	Then      []Statement
	Else      []Statement // nil when there is no else branch
}

func (n *IfStmt) statementNode()       {}
func (n *IfStmt) TokenLiteral() string { return n.Token.Literal }

// WhileStmt is `while cond do ... end`.
type WhileStmt struct {
	Token     token.Token
	Condition Expression
	Body      []Statement
}

func (n *WhileStmt) statementNode()       {}
func (n *WhileStmt) TokenLiteral() string { return n.Token.Literal }

// BreakStmt is `break`; only legal lexically inside a WhileStmt body.
type BreakStmt struct {
	Token token.Token
}

func (n *BreakStmt) statementNode()       {}
func (n *BreakStmt) TokenLiteral() string { return n.Token.Literal }

// ReturnStmt is `return [expr]`. Value is nil for a bare `return`.
type ReturnStmt struct {
	Token token.Token
	Value Expression
}

func (n *ReturnStmt) statementNode()       {}
func (n *ReturnStmt) TokenLiteral() string { return n.Token.Literal }

// Param is one function parameter: `name : type`.
type Param struct {
	Name string
	Type types.Type
}

// FuncDecl is `func name(params) [-> type] body end`.
type FuncDecl struct {
	Token      token.Token
	Name       string
	Params     []Param
	ReturnType types.Type // types.Void when no `-> type` is given
	Body       []Statement
}

func (n *FuncDecl) statementNode()       {}
func (n *FuncDecl) TokenLiteral() string { return n.Token.Literal }

// ExprStmt wraps an expression used as a statement (a bare call).
type ExprStmt struct {
	Token token.Token
	Value Expression
}

func (n *ExprStmt) statementNode()       {}
func (n *ExprStmt) TokenLiteral() string { return n.Token.Literal }

// StructDecl is `struct name f1:t1, f2:t2, ... end`.
type StructDecl struct {
	Token  token.Token
	Name   string
	Fields []Param // reuses Param as (field name, field type)
}

func (n *StructDecl) statementNode()       {}
func (n *StructDecl) TokenLiteral() string { return n.Token.Literal }
