package quarks

import (
	"strconv"
)

// Lexer turns source text into tokens in a single forward pass.
type Lexer struct {
	input string
	pos   int // current reading position in input
	line  int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Tokenize lexes the whole source. On error no tokens are returned.
func Tokenize(source string) ([]Token, error) {
	l := NewLexer(source)
	var tokens []Token
	for {
		tok, ok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// NextToken scans the next token. ok is false once the input is exhausted.
func (l *Lexer) NextToken() (tok Token, ok bool, err error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, false, err
	}
	if l.pos >= len(l.input) {
		return Token{}, false, nil
	}

	c := l.input[l.pos]
	switch {
	case isLetter(c):
		lit := l.readIdentifier()
		if kw, isKeyword := keywords[lit]; isKeyword {
			return Token{Type: kw, Literal: lit, Line: l.line}, true, nil
		}
		return Token{Type: IDENT, Literal: lit, Line: l.line}, true, nil

	case isDigit(c):
		lit := l.readNumber()
		if _, err := strconv.ParseInt(lit, 10, 64); err != nil {
			return Token{}, false, &LexError{Line: l.line, Message: "integer literal " + lit + " out of range"}
		}
		return Token{Type: INT, Literal: lit, Line: l.line}, true, nil
	}

	var tt TokenType
	switch c {
	case '(':
		tt = LPAREN
	case ')':
		tt = RPAREN
	case '{':
		tt = LBRACE
	case '}':
		tt = RBRACE
	case ';':
		tt = SEMICOLON
	case '=':
		tt = ASSIGN
	case '+':
		tt = PLUS
	case '-':
		tt = MINUS
	case '*':
		tt = ASTERISK
	case '/':
		tt = SLASH
	default:
		return Token{}, false, &LexError{Line: l.line, Char: c}
	}
	l.pos++
	return Token{Type: tt, Literal: string(c), Line: l.line}, true, nil
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			l.pos++
		case c == '-' && l.peekByte(1) == '-':
			l.skipLineComment()
		case c == '-' && l.peekByte(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// skipLineComment skips "--" up to, but not including, the newline.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

// skipBlockComment skips "-*" through the matching "*-".
func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	l.pos += 2 // skip -*
	for l.pos < len(l.input) {
		if l.input[l.pos] == '*' && l.peekByte(1) == '-' {
			l.pos += 2 // skip *-
			return nil
		}
		if l.input[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	return &LexError{Line: startLine, Message: "unterminated block comment"}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}
