// Package parser implements MiniLang's recursive-descent parser: a token
// stream in, a typed *ast.Program out.
package parser

import (
	"strconv"

	"github.com/codeassociates/minilang/ast"
	"github.com/codeassociates/minilang/internal/diag"
	"github.com/codeassociates/minilang/lexer"
	"github.com/codeassociates/minilang/token"
	"github.com/codeassociates/minilang/types"
)

// castKeywords maps the primitive-type keyword tokens usable as cast
// callees to their target Type.
var castKeywords = map[token.Type]types.Type{
	token.INT_TYPE:    types.Int,
	token.FLOAT_TYPE:  types.Float,
	token.STRING_TYPE: types.String,
	token.STR_TYPE:    types.String,
	token.BOOL_TYPE:   types.Bool,
}

// Parser is a one-token-lookahead recursive-descent parser (two-token peek
// for statement disambiguation, via curToken/peekToken).
type Parser struct {
	l      *lexer.Lexer
	errors []error

	curToken  token.Token
	peekToken token.Token

	definedFuncs   map[string]bool
	definedStructs map[string]*types.Type // name -> resolved struct type (nil while forward-declared)

	loopDepth int
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:              l,
		definedFuncs:   make(map[string]bool),
		definedStructs: make(map[string]*types.Type),
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every syntax/semantic error accumulated while parsing.
func (p *Parser) Errors() []error { return p.errors }

func (p *Parser) addErrorf(line, col int, format string, args ...any) {
	p.errors = append(p.errors, diag.New(line, col, format, args...))
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addErrorf(p.peekToken.Line, p.peekToken.Column, "expected %s, got %s", t, p.peekToken.Type)
	return false
}

// ParseProgram parses the entire token stream into a Program. Lexical
// errors from the underlying lexer are merged into Errors().
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		p.nextToken()
	}
	p.errors = append(p.errors, p.l.Errors()...)
	return prog
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET:
		return p.parseVarDecl(false)
	case token.GLOBAL:
		return p.parseVarDecl(true)
	case token.PRINT:
		return p.parsePrintStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FUNC:
		return p.parseFuncDecl()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.STRUCT:
		return p.parseStructDecl()
	case token.BREAK:
		if p.loopDepth == 0 {
			p.addErrorf(p.curToken.Line, p.curToken.Column, "break outside loop")
		}
		return &ast.BreakStmt{Token: p.curToken}
	case token.IDENT:
		return p.parseIdentifierLedStatement()
	default:
		p.addErrorf(p.curToken.Line, p.curToken.Column, "unexpected token %s", p.curToken.Type)
		return nil
	}
}

// parseBlock parses statements until one of the given terminator token
// types is the current token, without consuming the terminator.
func (p *Parser) parseBlock(terminators ...token.Type) []ast.Statement {
	var stmts []ast.Statement
	for !p.curTokenIs(token.EOF) && !p.atAny(terminators) {
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}
	return stmts
}

func (p *Parser) atAny(terminators []token.Type) bool {
	for _, t := range terminators {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

// parseType parses a type per §6.1's `type` production:
//
//	type := 'int'|'float'|'string'|'str'|'void'|'bool' | type '[' NUMBER? ']' | 'ref' type | NAME
func (p *Parser) parseType() types.Type {
	var base types.Type
	switch p.curToken.Type {
	case token.INT_TYPE:
		base = types.Int
	case token.FLOAT_TYPE:
		base = types.Float
	case token.STRING_TYPE, token.STR_TYPE:
		base = types.String
	case token.VOID_TYPE:
		base = types.Void
	case token.BOOL_TYPE:
		base = types.Bool
	case token.REF:
		p.nextToken()
		base = types.Reference(p.parseType())
		return p.parseArraySuffix(base)
	case token.IDENT:
		if resolved, ok := p.definedStructs[p.curToken.Literal]; ok && resolved != nil {
			base = *resolved
		} else {
			base = types.StructPlaceholder(p.curToken.Literal)
			p.definedStructs[p.curToken.Literal] = nil
		}
	default:
		p.addErrorf(p.curToken.Line, p.curToken.Column, "expected a type, got %s", p.curToken.Type)
		return types.Void
	}
	return p.parseArraySuffix(base)
}

// parseArraySuffix consumes zero or more trailing `[NUMBER?]` array
// dimensions applied to base, left to right.
func (p *Parser) parseArraySuffix(base types.Type) types.Type {
	for p.peekTokenIs(token.LBRACKET) {
		p.nextToken() // consume '['
		if p.peekTokenIs(token.INT) {
			p.nextToken()
			n, _ := strconv.Atoi(p.curToken.Literal)
			if !p.expectPeek(token.RBRACKET) {
				return base
			}
			base = types.FixedArray(base, n)
		} else {
			if !p.expectPeek(token.RBRACKET) {
				return base
			}
			base = types.Array(base, nil)
		}
	}
	return base
}

func (p *Parser) parseVarDecl(isGlobal bool) ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	declType := p.parseType()
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression()

	decl := &ast.VarDecl{Token: tok, IsGlobal: isGlobal, Name: name, Type: declType, Value: value}
	decl.IsConstant = isConstantExpr(value)
	if isGlobal && !decl.IsConstant {
		if _, isCall := value.(*ast.CallExpr); !isCall {
			p.addErrorf(tok.Line, tok.Column, "global %q initializer must be constant or a function call", name)
		}
	}
	return decl
}

// isConstantExpr reports whether e is a literal or built only from unary
// and binary operators (of any kind) over literals, per §4.2.
func isConstantExpr(e ast.Expression) bool {
	switch n := e.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral, *ast.StringLiteral, *ast.NullLiteral:
		return true
	case *ast.BinaryExpr:
		return isConstantExpr(n.Left) && isConstantExpr(n.Right)
	case *ast.UnaryExpr:
		return isConstantExpr(n.Operand)
	default:
		return false
	}
}

func (p *Parser) parsePrintStmt() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	val := p.parseExpression()
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return &ast.PrintStmt{Token: tok, Value: val}
}

func (p *Parser) parseIfStmt() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression()
	if !p.expectPeek(token.THEN) {
		return nil
	}
	p.nextToken()
	then := p.parseBlock(token.ELSE, token.END)
	var elseStmts []ast.Statement
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		elseStmts = p.parseBlock(token.END)
	}
	if !p.curTokenIs(token.END) {
		p.addErrorf(p.curToken.Line, p.curToken.Column, "expected end, got %s", p.curToken.Type)
		return nil
	}
	return &ast.IfStmt{Token: tok, Condition: cond, Then: then, Else: elseStmts}
}

func (p *Parser) parseWhileStmt() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression()
	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()
	p.loopDepth++
	body := p.parseBlock(token.END)
	p.loopDepth--
	if !p.curTokenIs(token.END) {
		p.addErrorf(p.curToken.Line, p.curToken.Column, "expected end, got %s", p.curToken.Type)
		return nil
	}
	return &ast.WhileStmt{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Statement {
	tok := p.curToken
	if p.peekTokenIs(token.END) || isStatementStart(p.peekToken.Type) {
		return &ast.ReturnStmt{Token: tok}
	}
	p.nextToken()
	val := p.parseExpression()
	return &ast.ReturnStmt{Token: tok, Value: val}
}

// isStatementStart reports whether t can begin the next statement, used to
// detect a bare `return` with no trailing expression.
func isStatementStart(t token.Type) bool {
	switch t {
	case token.LET, token.GLOBAL, token.PRINT, token.IF, token.WHILE, token.FUNC,
		token.RETURN, token.STRUCT, token.BREAK, token.END, token.ELSE, token.EOF:
		return true
	}
	return false
}

func (p *Parser) parseStructDecl() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	// Register the struct immediately (possibly already forward-declared)
	// so fields referencing it (ref Name) resolve within its own body.
	if _, ok := p.definedStructs[name]; !ok {
		p.definedStructs[name] = nil
	}

	var fields []ast.Param
	for !p.curTokenIs(token.END) && !p.curTokenIs(token.EOF) {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		fieldName := p.curToken.Literal
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		fieldType := p.parseType()
		fields = append(fields, ast.Param{Name: fieldName, Type: fieldType})
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.expectPeek(token.END) {
		return nil
	}

	structType := types.StructOf(name, toFields(fields))
	p.definedStructs[name] = &structType

	return &ast.StructDecl{Token: tok, Name: name, Fields: fields}
}

func toFields(params []ast.Param) []types.Field {
	fields := make([]types.Field, len(params))
	for i, p := range params {
		fields[i] = types.Field{Name: p.Name, Type: p.Type}
	}
	return fields
}

func (p *Parser) parseFuncDecl() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal
	p.definedFuncs[name] = true

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params := p.parseParams()

	retType := types.Void
	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		retType = p.parseType()
	}
	p.nextToken()
	body := p.parseBlock(token.END)
	if !p.curTokenIs(token.END) {
		p.addErrorf(p.curToken.Line, p.curToken.Column, "expected end, got %s", p.curToken.Type)
		return nil
	}
	return &ast.FuncDecl{Token: tok, Name: name, Params: params, ReturnType: retType, Body: body}
}

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	for {
		name := p.curToken.Literal
		if !p.expectPeek(token.COLON) {
			return params
		}
		p.nextToken()
		typ := p.parseType()
		params = append(params, ast.Param{Name: name, Type: typ})
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	p.expectPeek(token.RPAREN)
	return params
}

// parseIdentifierLedStatement handles every statement that begins with an
// identifier (§4.2): array/field assignment, plain reassignment, and
// expression-statements (calls), disambiguated after parsing the full
// postfix expression.
func (p *Parser) parseIdentifierLedStatement() ast.Statement {
	tok := p.curToken
	target := p.parseExpression()

	if !p.peekTokenIs(token.ASSIGN) {
		return &ast.ExprStmt{Token: tok, Value: target}
	}
	p.nextToken() // now on '='
	assignTok := p.curToken
	p.nextToken()
	value := p.parseExpression()

	switch t := target.(type) {
	case *ast.Identifier:
		return &ast.Assignment{Token: assignTok, Name: t.Name, Value: value}
	case *ast.IndexExpr:
		return &ast.IndexAssignment{Token: assignTok, Array: t.Array, Index: t.Index, Value: value}
	case *ast.FieldAccess:
		base, path, ok := flattenFieldPath(t)
		if !ok {
			p.addErrorf(tok.Line, tok.Column, "invalid assignment target")
			return nil
		}
		return &ast.FieldAssignment{Token: assignTok, Base: base, Path: path, Value: value}
	default:
		p.addErrorf(tok.Line, tok.Column, "invalid assignment target")
		return nil
	}
}

// flattenFieldPath walks a (possibly chained) FieldAccess down to its root
// Identifier, returning the root name and the field path in navigation
// order (outermost field last, matching source order a.b.c -> ["b","c"]).
func flattenFieldPath(f *ast.FieldAccess) (string, []string, bool) {
	var path []string
	var cur ast.Expression = f
	for {
		fa, ok := cur.(*ast.FieldAccess)
		if !ok {
			break
		}
		path = append([]string{fa.Field}, path...)
		cur = fa.Base
	}
	ident, ok := cur.(*ast.Identifier)
	if !ok {
		return "", nil, false
	}
	return ident.Name, path, true
}

// ---- expressions ----

// parseExpression parses a full expression at the lowest precedence,
// following §4.2's eight-level grammar via direct recursive descent
// (parseOr -> parseAnd -> parseComparison -> parseAdditive ->
// parseMultiplicative -> parseUnary -> parsePostfix -> parsePrimary).
func (p *Parser) parseExpression() ast.Expression {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.peekTokenIs(token.OR) {
		opTok := p.peekToken
		p.nextToken()
		p.nextToken()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Token: opTok, Operator: token.OR, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseComparison()
	for p.peekTokenIs(token.AND) {
		opTok := p.peekToken
		p.nextToken()
		p.nextToken()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Token: opTok, Operator: token.AND, Left: left, Right: right}
	}
	return left
}

var comparisonOps = map[token.Type]bool{
	token.LT: true, token.GT: true, token.LE: true, token.GE: true, token.EQ: true, token.NEQ: true,
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	for comparisonOps[p.peekToken.Type] {
		opTok := p.peekToken
		op := opTok.Type
		p.nextToken()
		p.nextToken()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Token: opTok, Operator: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.peekTokenIs(token.PLUS) || p.peekTokenIs(token.MINUS) || p.peekTokenIs(token.CONCAT) {
		opTok := p.peekToken
		op := opTok.Type
		p.nextToken()
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Token: opTok, Operator: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for p.peekTokenIs(token.STAR) || p.peekTokenIs(token.SLASH) || p.peekTokenIs(token.PERCENT) {
		opTok := p.peekToken
		op := opTok.Type
		p.nextToken()
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Token: opTok, Operator: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.curToken.Type {
	case token.MINUS:
		tok := p.curToken
		p.nextToken()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Operator: token.MINUS, Operand: operand}
	case token.NOT:
		tok := p.curToken
		p.nextToken()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Operator: token.NOT, Operand: operand}
	case token.REF:
		tok := p.curToken
		p.nextToken()
		operand := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Operator: token.REF, Operand: operand}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.peekToken.Type {
		case token.LBRACKET:
			p.nextToken()
			lb := p.curToken
			p.nextToken()
			idx := p.parseExpression()
			if !p.expectPeek(token.RBRACKET) {
				return expr
			}
			expr = &ast.IndexExpr{Token: lb, Array: expr, Index: idx}
		case token.DOT:
			p.nextToken()
			dotTok := p.curToken
			if !p.expectPeek(token.IDENT) {
				return expr
			}
			expr = &ast.FieldAccess{Token: dotTok, Base: expr, Field: p.curToken.Literal}
		case token.LPAREN:
			expr = p.parseCallLike(expr)
		default:
			return expr
		}
	}
}

// parseCallLike handles the `(args)` postfix: call or struct constructor,
// disambiguated per §4.2 (casts on type keywords are parsed in
// parsePrimary). On entry curToken is the callee's last token and
// peekToken is the '('.
func (p *Parser) parseCallLike(callee ast.Expression) ast.Expression {
	tok := p.peekToken // the '('
	ident, ok := callee.(*ast.Identifier)
	name := ""
	if ok {
		name = ident.Name
	}

	p.nextToken() // move onto '('
	args := p.parseArgs()

	if !ok {
		// A call on a non-identifier result; emitter reports it unresolved.
		return &ast.CallExpr{Token: tok, Name: name, Args: args}
	}
	if structType, isStruct := p.definedStructs[name]; isStruct && structType != nil && !p.definedFuncs[name] {
		return &ast.StructLiteral{Token: tok, Struct: name, Args: args}
	}
	return &ast.CallExpr{Token: tok, Name: name, Args: args}
}

// parseArgs parses a parenthesized, comma-separated argument list. On
// entry curToken is '('; on exit curToken is ')'.
func (p *Parser) parseArgs() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression())
	}
	p.expectPeek(token.RPAREN)
	return args
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.curToken.Type {
	case token.INT:
		v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.addErrorf(p.curToken.Line, p.curToken.Column, "invalid integer literal %q", p.curToken.Literal)
		}
		return &ast.IntLiteral{Token: p.curToken, Value: v}
	case token.FLOAT:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.addErrorf(p.curToken.Line, p.curToken.Column, "invalid float literal %q", p.curToken.Literal)
		}
		return &ast.FloatLiteral{Token: p.curToken, Value: v}
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE:
		return &ast.BoolLiteral{Token: p.curToken, Value: true}
	case token.FALSE:
		return &ast.BoolLiteral{Token: p.curToken, Value: false}
	case token.NULL:
		return &ast.NullLiteral{Token: p.curToken}
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}
	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		p.expectPeek(token.RPAREN)
		return expr
	case token.LBRACKET:
		tok := p.curToken
		var elems []ast.Expression
		if !p.peekTokenIs(token.RBRACKET) {
			p.nextToken()
			elems = append(elems, p.parseExpression())
			for p.peekTokenIs(token.COMMA) {
				p.nextToken()
				p.nextToken()
				elems = append(elems, p.parseExpression())
			}
		}
		p.expectPeek(token.RBRACKET)
		return &ast.ArrayLiteral{Token: tok, Elements: elems}
	case token.ZEROS:
		tok := p.curToken
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		count := p.parseExpression()
		p.expectPeek(token.RPAREN)
		return &ast.ZerosExpr{Token: tok, Count: count}
	case token.INT_TYPE, token.FLOAT_TYPE, token.STRING_TYPE, token.STR_TYPE, token.BOOL_TYPE:
		tok := p.curToken
		target := castKeywords[p.curToken.Type]
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression()
		p.expectPeek(token.RPAREN)
		return &ast.CastExpr{Token: tok, Target: target, Value: value}
	default:
		p.addErrorf(p.curToken.Line, p.curToken.Column, "unexpected token %s in expression", p.curToken.Type)
		return nil
	}
}
