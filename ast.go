package quarks

import (
	"strconv"
	"strings"
)

// BinaryOp is the operator of a BinaryExpr.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		panic("unreachable: unknown binary operator " + strconv.Itoa(int(op)))
	}
}

func binaryOpFromToken(tt TokenType) BinaryOp {
	switch tt {
	case PLUS:
		return OpAdd
	case MINUS:
		return OpSub
	case ASTERISK:
		return OpMul
	case SLASH:
		return OpDiv
	default:
		panic("unreachable: not a binary operator: " + string(tt))
	}
}

// Node is any AST node.
type Node interface {
	node()
}

// Expression is one of *IntLiteral, *Identifier, *ParenExpr or *BinaryExpr.
type Expression interface {
	Node
	expressionNode()
}

// Term is the subset of expressions that parse without operators:
// *IntLiteral, *Identifier or *ParenExpr.
type Term interface {
	Expression
	termNode()
}

// Statement is one of *ExitStmt, *DeclareStmt, *AssignStmt, *Scope or
// *IfStmt.
type Statement interface {
	Node
	statementNode()
}

// IfTail is the optional continuation of an if: *ElifTail or *ElseTail.
type IfTail interface {
	Node
	ifTailNode()
}

type IntLiteral struct {
	Token Token
	Value int64
}

type Identifier struct {
	Token Token
}

func (i *Identifier) Name() string { return i.Token.Literal }

type ParenExpr struct {
	Inner Expression
}

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
	Line  int
}

type ExitStmt struct {
	Value Expression
}

type DeclareStmt struct {
	Name  Token
	Value Expression
}

type AssignStmt struct {
	Name  Token
	Value Expression
}

// Scope is a braced statement list. Statements run in slice order.
type Scope struct {
	Statements []Statement
}

type IfStmt struct {
	Cond Expression
	Body *Scope
	Tail IfTail // nil when there is no elif/else
}

type ElifTail struct {
	Cond Expression
	Body *Scope
	Tail IfTail
}

type ElseTail struct {
	Body *Scope
}

// Program is a compilation unit.
type Program struct {
	Statements []Statement
}

func (*IntLiteral) node()  {}
func (*Identifier) node()  {}
func (*ParenExpr) node()   {}
func (*BinaryExpr) node()  {}
func (*ExitStmt) node()    {}
func (*DeclareStmt) node() {}
func (*AssignStmt) node()  {}
func (*Scope) node()       {}
func (*IfStmt) node()      {}
func (*ElifTail) node()    {}
func (*ElseTail) node()    {}
func (*Program) node()     {}

func (*IntLiteral) expressionNode() {}
func (*Identifier) expressionNode() {}
func (*ParenExpr) expressionNode()  {}
func (*BinaryExpr) expressionNode() {}

func (*IntLiteral) termNode() {}
func (*Identifier) termNode() {}
func (*ParenExpr) termNode()  {}

func (*ExitStmt) statementNode()    {}
func (*DeclareStmt) statementNode() {}
func (*AssignStmt) statementNode()  {}
func (*Scope) statementNode()       {}
func (*IfStmt) statementNode()      {}

func (*ElifTail) ifTailNode() {}
func (*ElseTail) ifTailNode() {}

// ToSExpr converts an AST node to s-expression string representation
func ToSExpr(node Node) string {
	var b strings.Builder
	writeSExpr(&b, node)
	return b.String()
}

func writeSExpr(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case *IntLiteral:
		b.WriteString("(integer " + strconv.FormatInt(n.Value, 10) + ")")
	case *Identifier:
		b.WriteString("(ident " + strconv.Quote(n.Name()) + ")")
	case *ParenExpr:
		b.WriteString("(paren ")
		writeSExpr(b, n.Inner)
		b.WriteString(")")
	case *BinaryExpr:
		b.WriteString("(binary " + strconv.Quote(n.Op.String()) + " ")
		writeSExpr(b, n.Left)
		b.WriteString(" ")
		writeSExpr(b, n.Right)
		b.WriteString(")")
	case *ExitStmt:
		b.WriteString("(exit ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *DeclareStmt:
		b.WriteString("(declare " + strconv.Quote(n.Name.Literal) + " ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *AssignStmt:
		b.WriteString("(assign " + strconv.Quote(n.Name.Literal) + " ")
		writeSExpr(b, n.Value)
		b.WriteString(")")
	case *Scope:
		writeSExprList(b, "scope", n.Statements)
	case *IfStmt:
		writeConditional(b, "if", n.Cond, n.Body, n.Tail)
	case *ElifTail:
		writeConditional(b, "elif", n.Cond, n.Body, n.Tail)
	case *ElseTail:
		b.WriteString("(else ")
		writeSExpr(b, n.Body)
		b.WriteString(")")
	case *Program:
		writeSExprList(b, "program", n.Statements)
	default:
		panic("unreachable: unknown AST node")
	}
}

func writeSExprList(b *strings.Builder, head string, statements []Statement) {
	b.WriteString("(" + head)
	for _, stmt := range statements {
		b.WriteString(" ")
		writeSExpr(b, stmt)
	}
	b.WriteString(")")
}

func writeConditional(b *strings.Builder, head string, cond Expression, body *Scope, tail IfTail) {
	b.WriteString("(" + head + " ")
	writeSExpr(b, cond)
	b.WriteString(" ")
	writeSExpr(b, body)
	if tail != nil {
		b.WriteString(" ")
		writeSExpr(b, tail)
	}
	b.WriteString(")")
}
