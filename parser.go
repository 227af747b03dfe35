package quarks

import (
	"strconv"
)

// Parser builds an AST from a token slice. Every node is allocated from the
// parser's arena.
type Parser struct {
	tokens []Token
	pos    int
	arena  *Arena
}

func NewParser(tokens []Token, arena *Arena) *Parser {
	if arena == nil {
		arena = NewArena(DefaultArenaCapacity)
	}
	return &Parser{tokens: tokens, arena: arena}
}

// Parse parses a whole program. An empty token slice is a valid empty
// program.
func Parse(tokens []Token, arena *Arena) (*Program, error) {
	return NewParser(tokens, arena).ParseProgram()
}

// ParseExpression parses tokens that must form exactly one expression.
func ParseExpression(tokens []Token, arena *Arena) (Expression, error) {
	p := NewParser(tokens, arena)
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, p.errorf("end of input")
	}
	return expr, nil
}

// ParseProgram parses statements until the tokens run out.
func (p *Parser) ParseProgram() (*Program, error) {
	program, err := Alloc[Program](p.arena)
	if err != nil {
		return nil, err
	}
	for !p.atEOF() {
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program, nil
}

// ParseExpression parses an expression and returns an AST node
func (p *Parser) ParseExpression() (Expression, error) {
	return p.parseExpressionWithPrecedence(0)
}

// parseExpressionWithPrecedence implements precedence climbing
func (p *Parser) parseExpressionWithPrecedence(minPrec int) (Expression, error) {
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	var left Expression = term

	for {
		tok, ok := p.peek(0)
		if !ok {
			break
		}
		prec, isOp := precedence(tok.Type)
		if !isOp || prec < minPrec {
			break
		}
		p.advance()

		// prec + 1 keeps same-tier chains left-associative.
		right, err := p.parseExpressionWithPrecedence(prec + 1)
		if err != nil {
			return nil, err
		}

		bin, err := Alloc[BinaryExpr](p.arena)
		if err != nil {
			return nil, err
		}
		bin.Op = binaryOpFromToken(tok.Type)
		bin.Left = left
		bin.Right = right
		bin.Line = tok.Line
		left = bin
	}

	return left, nil
}

// parseTerm handles literals, identifiers and parenthesized expressions.
func (p *Parser) parseTerm() (Term, error) {
	tok, ok := p.peek(0)
	if !ok {
		return nil, p.errorf("expression")
	}

	switch tok.Type {
	case INT:
		p.advance()
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Line: tok.Line, Expected: "integer literal within int64 range", Found: tok.String()}
		}
		lit, err := Alloc[IntLiteral](p.arena)
		if err != nil {
			return nil, err
		}
		lit.Token = tok
		lit.Value = value
		return lit, nil

	case IDENT:
		p.advance()
		ident, err := Alloc[Identifier](p.arena)
		if err != nil {
			return nil, err
		}
		ident.Token = tok
		return ident, nil

	case LPAREN:
		p.advance()
		inner, err := p.parseExpressionWithPrecedence(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		paren, err := Alloc[ParenExpr](p.arena)
		if err != nil {
			return nil, err
		}
		paren.Inner = inner
		return paren, nil

	default:
		return nil, p.errorf("expression")
	}
}

// ParseStatement parses one statement. The leading token selects the
// alternative.
func (p *Parser) ParseStatement() (Statement, error) {
	tok, ok := p.peek(0)
	if !ok {
		return nil, p.errorf("statement")
	}

	switch tok.Type {
	case EXIT:
		return p.parseExit()
	case DECLARE:
		return p.parseDeclare()
	case IDENT:
		if next, ok := p.peek(1); ok && next.Type == ASSIGN {
			return p.parseAssign()
		}
		// Report the token after the identifier.
		p.advance()
		return nil, p.errorf("`=`")
	case LBRACE:
		scope, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		return scope, nil
	case IF:
		return p.parseIf()
	default:
		return nil, p.errorf("statement")
	}
}

// exit ( Expression ) ;
func (p *Parser) parseExit() (Statement, error) {
	p.advance() // exit
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	stmt, err := Alloc[ExitStmt](p.arena)
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

// declare identifier = Expression ;
func (p *Parser) parseDeclare() (Statement, error) {
	p.advance() // declare
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	stmt, err := Alloc[DeclareStmt](p.arena)
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	stmt.Value = value
	return stmt, nil
}

// identifier = Expression ;
func (p *Parser) parseAssign() (Statement, error) {
	name := p.advance()
	p.advance() // =
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	stmt, err := Alloc[AssignStmt](p.arena)
	if err != nil {
		return nil, err
	}
	stmt.Name = name
	stmt.Value = value
	return stmt, nil
}

// { Statement* }
func (p *Parser) parseScope() (*Scope, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	scope, err := Alloc[Scope](p.arena)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek(0)
		if !ok {
			return nil, p.errorf("`}`")
		}
		if tok.Type == RBRACE {
			p.advance()
			return scope, nil
		}
		stmt, err := p.ParseStatement()
		if err != nil {
			return nil, err
		}
		scope.Statements = append(scope.Statements, stmt)
	}
}

// if ( Expression ) Scope IfTail?
func (p *Parser) parseIf() (Statement, error) {
	p.advance() // if
	cond, body, err := p.parseConditionAndBody()
	if err != nil {
		return nil, err
	}
	tail, err := p.parseIfTail()
	if err != nil {
		return nil, err
	}
	stmt, err := Alloc[IfStmt](p.arena)
	if err != nil {
		return nil, err
	}
	stmt.Cond = cond
	stmt.Body = body
	stmt.Tail = tail
	return stmt, nil
}

func (p *Parser) parseConditionAndBody() (Expression, *Scope, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, nil, err
	}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, nil, err
	}
	body, err := p.parseScope()
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

// parseIfTail returns nil when the next token starts neither an elif nor an
// else.
func (p *Parser) parseIfTail() (IfTail, error) {
	tok, ok := p.peek(0)
	if !ok {
		return nil, nil
	}

	switch tok.Type {
	case ELIF:
		p.advance()
		cond, body, err := p.parseConditionAndBody()
		if err != nil {
			return nil, err
		}
		next, err := p.parseIfTail()
		if err != nil {
			return nil, err
		}
		elif, err := Alloc[ElifTail](p.arena)
		if err != nil {
			return nil, err
		}
		elif.Cond = cond
		elif.Body = body
		elif.Tail = next
		return elif, nil

	case ELSE:
		p.advance()
		body, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		els, err := Alloc[ElseTail](p.arena)
		if err != nil {
			return nil, err
		}
		els.Body = body
		return els, nil

	default:
		return nil, nil
	}
}

func (p *Parser) atEOF() bool {
	return p.pos >= len(p.tokens)
}

func (p *Parser) peek(offset int) (Token, bool) {
	if p.pos+offset >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos+offset], true
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// expect consumes the current token if it has the expected type.
func (p *Parser) expect(expectedType TokenType) (Token, error) {
	tok, ok := p.peek(0)
	if !ok || tok.Type != expectedType {
		return Token{}, p.errorf(describeTokenType(expectedType))
	}
	return p.advance(), nil
}

// errorf builds a SyntaxError for the current position.
func (p *Parser) errorf(expected string) error {
	if tok, ok := p.peek(0); ok {
		return &SyntaxError{Line: tok.Line, Expected: expected, Found: tok.String()}
	}
	line := 1
	if len(p.tokens) > 0 {
		line = p.tokens[len(p.tokens)-1].Line
	}
	return &SyntaxError{Line: line, Expected: expected, AtEOF: true}
}
