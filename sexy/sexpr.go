// Package sexy reads the S-expressions used to describe expected ASTs in
// tests, and extracts test cases from Markdown documents.
package sexy

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	// NodeEllipsis ("...") in a pattern list matches any remaining items.
	NodeEllipsis
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node is an atom or a list.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		return strconv.Quote(n.Text)
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewEllipsis() *Node {
	return &Node{Type: NodeEllipsis}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// Match compares actual against pattern. An ellipsis as the last item of a
// pattern list matches zero or more trailing items; anywhere else it matches
// exactly one node of any shape. The returned error names
// the first mismatch by its path, e.g. "root[2][1]".
func Match(pattern, actual *Node) error {
	return match(pattern, actual, "root")
}

func match(pattern, actual *Node, path string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if pattern.Type != actual.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, actual.Type, actual)
	}
	if pattern.IsAtom() {
		if pattern.Text != actual.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
		}
		return nil
	}

	for i, item := range pattern.Items {
		if item.Type == NodeEllipsis && i == len(pattern.Items)-1 {
			return nil
		}
		if i >= len(actual.Items) {
			return fmt.Errorf("at %s: expected %d items, got %d in %s", path, len(pattern.Items), len(actual.Items), actual)
		}
		if err := match(item, actual.Items[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	if len(actual.Items) > len(pattern.Items) {
		return fmt.Errorf("at %s: expected %d items, got %d in %s", path, len(pattern.Items), len(actual.Items), actual)
	}
	return nil
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	result, err := p.parseDatum()
	if err != nil {
		return nil, err
	}
	if p.current.Type != tokenEOF {
		return nil, fmt.Errorf("offset %d: expected EOF but got %s", p.current.Position, p.current.Type)
	}
	return result, nil
}

type parser struct {
	lexer   *lexer
	current token
}

func (p *parser) nextToken() error {
	tok, err := p.lexer.nextToken()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.current
	var node *Node
	switch tok.Type {
	case tokenSymbol:
		node = NewSymbol(tok.Value)
	case tokenString:
		node = NewString(tok.Value)
	case tokenInteger:
		node = NewInteger(tok.Value)
	case tokenEllipsis:
		node = NewEllipsis()
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("offset %d: unexpected token: %s", tok.Position, tok.Type)
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *parser) parseList() (*Node, error) {
	if err := p.nextToken(); err != nil { // consume '('
		return nil, err
	}

	list := NewList()
	for p.current.Type != tokenRParen {
		if p.current.Type == tokenEOF {
			return nil, fmt.Errorf("offset %d: expected ')' but got EOF", p.current.Position)
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}

	if err := p.nextToken(); err != nil { // consume ')'
		return nil, err
	}
	return list, nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type     tokenType
	Value    string
	Position int
}

type lexer struct {
	input string
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) nextToken() (token, error) {
	for {
		for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
			l.pos++
		}
		if l.peek(0) != ';' {
			break
		}
		// comment to end of line
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
	}

	start := l.pos
	c := l.peek(0)
	switch {
	case l.pos >= len(l.input):
		return token{Type: tokenEOF, Position: start}, nil
	case c == '(':
		l.pos++
		return token{Type: tokenLParen, Value: "(", Position: start}, nil
	case c == ')':
		l.pos++
		return token{Type: tokenRParen, Value: ")", Position: start}, nil
	case c == '"':
		s, err := l.readString()
		if err != nil {
			return token{}, fmt.Errorf("offset %d: %w", start, err)
		}
		return token{Type: tokenString, Value: s, Position: start}, nil
	case c == '.' && l.peek(1) == '.' && l.peek(2) == '.':
		l.pos += 3
		return token{Type: tokenEllipsis, Value: "...", Position: start}, nil
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peek(1))):
		l.pos++
		for isDigit(l.peek(0)) {
			l.pos++
		}
		return token{Type: tokenInteger, Value: l.input[start:l.pos], Position: start}, nil
	case isSymbolChar(c):
		for isSymbolChar(l.peek(0)) {
			l.pos++
		}
		return token{Type: tokenSymbol, Value: l.input[start:l.pos], Position: start}, nil
	default:
		return token{}, fmt.Errorf("offset %d: unexpected character '%c'", start, c)
	}
}

func (l *lexer) readString() (string, error) {
	var b strings.Builder
	l.pos++ // skip opening quote
	for {
		c := l.peek(0)
		switch {
		case l.pos >= len(l.input):
			return "", fmt.Errorf("unterminated string")
		case c == '"':
			l.pos++
			return b.String(), nil
		case c == '\\':
			switch l.peek(1) {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return "", fmt.Errorf("invalid escape sequence: \\%c", l.peek(1))
			}
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isSymbolChar accepts letters, digits and the operator characters the AST
// dump uses as bare symbols (+, -, *, /, =).
func isSymbolChar(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || isDigit(c) ||
		strings.IndexByte("_-+*/=<>!?", c) >= 0
}
