package quarks

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func parseExprString(t *testing.T, input string) string {
	t.Helper()
	tokens, err := Tokenize(input)
	be.Err(t, err, nil)
	expr, err := NewParser(tokens, nil).ParseExpression()
	be.Err(t, err, nil)
	return ToSExpr(expr)
}

func parseProgramString(t *testing.T, input string) string {
	t.Helper()
	tokens, err := Tokenize(input)
	be.Err(t, err, nil)
	program, err := Parse(tokens, nil)
	be.Err(t, err, nil)
	return ToSExpr(program)
}

func parseError(t *testing.T, input string) *SyntaxError {
	t.Helper()
	tokens, err := Tokenize(input)
	be.Err(t, err, nil)
	_, err = Parse(tokens, nil)
	be.True(t, errors.Is(err, ErrSyntax))
	var syntaxErr *SyntaxError
	be.True(t, errors.As(err, &syntaxErr))
	return syntaxErr
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"42", `(integer 42)`},
		{"x", `(ident "x")`},
		{"(7)", `(paren (integer 7))`},
		{"1 + 2", `(binary "+" (integer 1) (integer 2))`},
		{"1 + 2 * 3", `(binary "+" (integer 1) (binary "*" (integer 2) (integer 3)))`},
		{"1 * 2 + 3", `(binary "+" (binary "*" (integer 1) (integer 2)) (integer 3))`},
		{"10 - 3 - 2", `(binary "-" (binary "-" (integer 10) (integer 3)) (integer 2))`},
		{"8 / 4 / 2", `(binary "/" (binary "/" (integer 8) (integer 4)) (integer 2))`},
		{"2 * 3 / 4", `(binary "/" (binary "*" (integer 2) (integer 3)) (integer 4))`},
		{"(1 + 2) * 3", `(binary "*" (paren (binary "+" (integer 1) (integer 2))) (integer 3))`},
		{"a * b - c / d", `(binary "-" (binary "*" (ident "a") (ident "b")) (binary "/" (ident "c") (ident "d")))`},
		{"((x))", `(paren (paren (ident "x")))`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			be.Equal(t, parseExprString(t, tt.input), tt.expected)
		})
	}
}

func TestParseExpressionStopsAtNonOperator(t *testing.T) {
	tokens, err := Tokenize("1 + 2)")
	be.Err(t, err, nil)
	p := NewParser(tokens, nil)
	expr, err := p.ParseExpression()
	be.Err(t, err, nil)
	be.Equal(t, ToSExpr(expr), `(binary "+" (integer 1) (integer 2))`)
	tok, ok := p.peek(0)
	be.True(t, ok)
	be.Equal(t, tok.Type, TokenType(RPAREN))
}

func TestBinaryExprLine(t *testing.T) {
	tokens, err := Tokenize("1\n+\n2")
	be.Err(t, err, nil)
	expr, err := NewParser(tokens, nil).ParseExpression()
	be.Err(t, err, nil)
	bin, ok := expr.(*BinaryExpr)
	be.True(t, ok)
	be.Equal(t, bin.Op, OpAdd)
	be.Equal(t, bin.Line, 2)
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", `(program)`},
		{"exit", "exit(5);", `(program (exit (integer 5)))`},
		{"declare", "declare x = 10;", `(program (declare "x" (integer 10)))`},
		{"assign", "declare x = 1; x = x + 1;",
			`(program (declare "x" (integer 1)) (assign "x" (binary "+" (ident "x") (integer 1))))`},
		{"empty scope", "{}", `(program (scope))`},
		{"nested scopes", "{ declare a = 1; { exit(a); } }",
			`(program (scope (declare "a" (integer 1)) (scope (exit (ident "a")))))`},
		{"if", "if (x) {}", `(program (if (ident "x") (scope)))`},
		{"if else", "if (0) { exit(1); } else { exit(2); }",
			`(program (if (integer 0) (scope (exit (integer 1))) (else (scope (exit (integer 2))))))`},
		{"if elif else", "if (1) { exit(1); } elif (0) { exit(2); } else { exit(3); }",
			`(program (if (integer 1) (scope (exit (integer 1))) (elif (integer 0) (scope (exit (integer 2))) (else (scope (exit (integer 3)))))))`},
		{"elif chain", "if (a) {} elif (b) {} elif (c) {}",
			`(program (if (ident "a") (scope) (elif (ident "b") (scope) (elif (ident "c") (scope)))))`},
		{"statement after if", "if (a) {} exit(0);",
			`(program (if (ident "a") (scope)) (exit (integer 0)))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, parseProgramString(t, tt.input), tt.expected)
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		atEOF   bool
	}{
		{"missing semicolon", "exit(5)", "line 1: expected `;`, got end of input", true},
		{"exit without paren", "exit 5;", "line 1: expected `(`, got INT(5)", false},
		{"declare without name", "declare = 1;", "line 1: expected identifier, got `=`", false},
		{"declare without value", "declare x = ;", "line 1: expected expression, got `;`", false},
		{"bare expression", "x + 1;", "line 1: expected `=`, got `+`", false},
		{"bare literal", "5;", "line 1: expected statement, got INT(5)", false},
		{"dangling operator", "exit(+);", "line 1: expected expression, got `+`", false},
		{"unbalanced paren", "exit((1);", "line 1: expected `)`, got `;`", false},
		{"unclosed scope", "{ exit(0);", "line 1: expected `}`, got end of input", true},
		{"stray else", "else { }", "line 1: expected statement, got `else`", false},
		{"elif without condition", "if (1) { } elif { }", "line 1: expected `(`, got `{`", false},
		{"if without scope", "if (1) exit(1);", "line 1: expected `{`, got `exit`", false},
		{"later line", "exit(1);\n\nexit(2", "line 3: expected `)`, got end of input", true},
		{"stray closing brace", "}", "line 1: expected statement, got `}`", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(t, tt.input)
			be.Equal(t, err.Error(), tt.message)
			be.Equal(t, err.AtEOF, tt.atEOF)
		})
	}
}

func TestParseAllocatesFromArena(t *testing.T) {
	tokens, err := Tokenize("declare x = 1 + 2; exit(x);")
	be.Err(t, err, nil)
	arena := NewArena(0)
	_, err = Parse(tokens, arena)
	be.Err(t, err, nil)
	be.True(t, arena.Used() > 0)
}

func TestParseExpressionRequiresEnd(t *testing.T) {
	tokens, err := Tokenize("1 + 2")
	be.Err(t, err, nil)
	expr, err := ParseExpression(tokens, nil)
	be.Err(t, err, nil)
	be.Equal(t, ToSExpr(expr), `(binary "+" (integer 1) (integer 2))`)

	tokens, err = Tokenize("1 + 2;")
	be.Err(t, err, nil)
	_, err = ParseExpression(tokens, nil)
	be.True(t, errors.Is(err, ErrSyntax))
	be.Equal(t, err.Error(), "line 1: expected end of input, got `;`")
}

func TestParseIntegerOutOfRange(t *testing.T) {
	// Tokenize rejects this literal, so the tokens are built by hand.
	tokens := []Token{{Type: INT, Literal: "99999999999999999999", Line: 3}}
	_, err := ParseExpression(tokens, nil)
	be.Err(t, err, ErrSyntax)
	be.True(t, !errors.Is(err, ErrLex))
	be.Equal(t, err.Error(), "line 3: expected integer literal within int64 range, got INT(99999999999999999999)")
}
