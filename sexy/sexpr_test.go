package sexy

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"test_var", "test_var"},
		{"if-tail", "if-tail"},
		{"+", "+"},
		{"-", "-"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeSymbol)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		output   string
	}{
		{`"hello"`, "hello", `"hello"`},
		{`""`, "", `""`},
		{`"test\"quote"`, `test"quote`, `"test\"quote"`},
		{`"test\\backslash"`, `test\backslash`, `"test\\backslash"`},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeString)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseInteger(t *testing.T) {
	for _, input := range []string{"42", "0", "-123", "+7"} {
		result, err := Parse(input)
		be.Err(t, err, nil)
		be.Equal(t, result.Type, NodeInteger)
		be.Equal(t, result.Text, input)
	}
}

func TestParseList(t *testing.T) {
	result, err := Parse(`(binary "+" (integer 1) ; operands
	  (integer 2))`)
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeList)
	be.Equal(t, len(result.Items), 4)
	be.Equal(t, result.Items[0].Text, "binary")
	be.Equal(t, result.Items[1].Type, NodeString)
	be.Equal(t, result.Items[3].Type, NodeList)
	be.Equal(t, result.String(), `(binary "+" (integer 1) (integer 2))`)
}

func TestParseEllipsis(t *testing.T) {
	result, err := Parse("(scope ...)")
	be.Err(t, err, nil)
	be.Equal(t, result.Items[1].Type, NodeEllipsis)
	be.Equal(t, result.String(), "(scope ...)")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"(a b", "offset 4: expected ')' but got EOF"},
		{")", "offset 0: unexpected token: ')'"},
		{"a b", "offset 2: expected EOF but got symbol"},
		{`"abc`, "offset 0: unterminated string"},
		{`"\n"`, `offset 0: invalid escape sequence: \n`},
		{"{", "offset 0: unexpected character '{'"},
		{"", "offset 0: unexpected token: EOF"},
	}

	for _, test := range tests {
		_, err := Parse(test.input)
		be.True(t, err != nil)
		be.Equal(t, err.Error(), test.message)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		actual  string
		message string // empty when the pattern should match
	}{
		{`(integer 1)`, `(integer 1)`, ""},
		{`(scope ...)`, `(scope)`, ""},
		{`(scope ...)`, `(scope (exit (integer 1)) (exit (integer 2)))`, ""},
		{`(binary "+" ... (integer 2))`, `(binary "+" (ident "x") (integer 2))`, ""},
		{`(integer 1)`, `(integer 2)`, "at root[1]: expected 1, got 2"},
		{`(exit (integer 1))`, `(exit (ident "x"))`, `at root[1][0]: expected integer, got ident`},
		{`(scope)`, `(scope (exit (integer 1)))`, "at root: expected 1 items, got 2 in (scope (exit (integer 1)))"},
		{`(scope (exit 1) (exit 2))`, `(scope (exit 1))`, "at root: expected 3 items, got 2 in (scope (exit 1))"},
		{`(ident "x")`, `(ident x)`, `at root[1]: expected string "x", got symbol x`},
	}

	for _, test := range tests {
		pattern, err := Parse(test.pattern)
		be.Err(t, err, nil)
		actual, err := Parse(test.actual)
		be.Err(t, err, nil)

		err = Match(pattern, actual)
		if test.message == "" {
			be.Err(t, err, nil)
		} else {
			be.True(t, err != nil)
			be.Equal(t, err.Error(), test.message)
		}
	}
}
