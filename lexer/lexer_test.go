package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeassociates/minilang/token"
)

func TestBasicTokens(t *testing.T) {
	input := `let x: int = 5
print(x + 2)
`
	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.LET, "let"},
		{token.IDENT, "x"},
		{token.COLON, ":"},
		{token.INT_TYPE, "int"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.PRINT, "print"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.INT, "2"},
		{token.RPAREN, ")"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		require.Equalf(t, tt.expectedType, tok.Type, "tests[%d] literal=%q", i, tok.Literal)
		require.Equalf(t, tt.expectedLiteral, tok.Literal, "tests[%d]", i)
	}
}

func TestTwoCharOperators(t *testing.T) {
	input := `>= <= == != -> ++`
	tests := []token.Type{token.GE, token.LE, token.EQ, token.NEQ, token.ARROW, token.CONCAT}
	l := New(input)
	for i, want := range tests {
		tok := l.NextToken()
		require.Equalf(t, want, tok.Type, "tests[%d]", i)
	}
	require.Equal(t, token.EOF, l.NextToken().Type)
}

func TestDoubleMinusIsTwoUnaryOps(t *testing.T) {
	// '--' is not a lexical operator; it is two MINUS tokens.
	l := New(`--5`)
	require.Equal(t, token.MINUS, l.NextToken().Type)
	require.Equal(t, token.MINUS, l.NextToken().Type)
	tok := l.NextToken()
	require.Equal(t, token.INT, tok.Type)
	require.Equal(t, "5", tok.Literal)
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\t\"\\c\0d" "unknown\zescape"`)
	tok := l.NextToken()
	require.Equal(t, token.STRING, tok.Type)
	require.Equal(t, "a\nb\t\"\\c\x00d", tok.Literal)

	tok = l.NextToken()
	require.Equal(t, token.STRING, tok.Type)
	require.Equal(t, "unknownzescape", tok.Literal)
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	tok := l.NextToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
	require.Len(t, l.Errors(), 1)
}

func TestFloatLiteralSecondDotTerminates(t *testing.T) {
	l := New(`1.5.6`)
	tok := l.NextToken()
	require.Equal(t, token.FLOAT, tok.Type)
	require.Equal(t, "1.5", tok.Literal)
	tok = l.NextToken()
	require.Equal(t, token.DOT, tok.Type)
	tok = l.NextToken()
	require.Equal(t, token.INT, tok.Type)
	require.Equal(t, "6", tok.Literal)
}

func TestComments(t *testing.T) {
	l := New("let x: int = 1 // trailing comment\nlet y: int = 2\n")
	var got []token.Type
	for {
		tok := l.NextToken()
		got = append(got, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}
	require.Equal(t, token.EOF, got[len(got)-1])
	require.NotContains(t, got, token.ILLEGAL)
}

// TestLexerTotality checks §8's "lexer totality" property: exactly one EOF,
// and positions are monotonically non-decreasing in (line, column) order.
func TestLexerTotality(t *testing.T) {
	input := "let x: int = 1\nprint(x)\nwhile x < 10 do\n  x = x + 1\nend\n"
	toks, errs := Tokenize(input)
	require.Empty(t, errs)

	eofCount := 0
	for i, tok := range toks {
		if tok.Type == token.EOF {
			eofCount++
		}
		if i > 0 {
			prev := toks[i-1]
			require.True(t, tok.Line > prev.Line || (tok.Line == prev.Line && tok.Column >= prev.Column),
				"token %d (%v) out of order relative to %d (%v)", i, tok, i-1, prev)
		}
	}
	require.Equal(t, 1, eofCount)
	require.Equal(t, token.EOF, toks[len(toks)-1].Type)
}

func TestUnknownCharacter(t *testing.T) {
	l := New("@")
	tok := l.NextToken()
	require.Equal(t, token.ILLEGAL, tok.Type)
	require.Len(t, l.Errors(), 1)
}
