package quarks

import (
	"fmt"
	"strings"
)

// slotSize is the width in bytes of one stack slot.
const slotSize = 8

// Generator emits x86-64 NASM assembly for a Program.
//
// The generator mirrors the machine stack with a logical stack size: every
// push and pop it emits changes stackSize by one. Variables live in the
// slot their initializer left behind, so a variable's address relative to
// rsp is derived from stackSize at each use.
type Generator struct {
	out        strings.Builder
	stackSize  int
	symbols    *SymbolTable
	labelCount int
}

func NewGenerator() *Generator {
	return &Generator{symbols: NewSymbolTable()}
}

// Generate produces assembly for a whole program. Generation stops at the
// first error and no partial output is returned.
func Generate(program *Program) (string, error) {
	return NewGenerator().GenerateProgram(program)
}

// GenerateProgram emits the startup marker, every statement and a fallback
// exit with status 0.
func (g *Generator) GenerateProgram(program *Program) (string, error) {
	g.emit("global _start")
	g.emit("_start:")

	for _, stmt := range program.Statements {
		if err := g.GenerateStatement(stmt); err != nil {
			return "", err
		}
	}

	g.emit("    mov rax, 60")
	g.emit("    mov rdi, 0")
	g.emit("    syscall")
	return g.out.String(), nil
}

// StackSize returns the number of slots the generated code has pushed at the
// current point.
func (g *Generator) StackSize() int {
	return g.stackSize
}

// emit adds a line of assembly
func (g *Generator) emit(format string, args ...any) {
	fmt.Fprintf(&g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *Generator) push(operand string) {
	g.emit("    push %s", operand)
	g.stackSize++
}

func (g *Generator) pop(reg string) {
	g.emit("    pop %s", reg)
	g.stackSize--
}

func (g *Generator) newLabel() string {
	label := fmt.Sprintf("label%d", g.labelCount)
	g.labelCount++
	return label
}

// slotOffset returns the rsp-relative byte offset of a variable's slot.
func (g *Generator) slotOffset(v *SymbolInfo) int {
	return (g.stackSize - v.Depth - 1) * slotSize
}

func (g *Generator) lookup(name Token) (*SymbolInfo, error) {
	v := g.symbols.LookupVariable(name.Literal)
	if v == nil {
		return nil, &SemanticError{Kind: UndeclaredIdentifier, Name: name.Literal, Line: name.Line}
	}
	return v, nil
}

// GenerateExpression emits code that leaves the expression's value on top of
// the stack.
func (g *Generator) GenerateExpression(expr Expression) error {
	switch e := expr.(type) {
	case *IntLiteral:
		g.emit("    mov rax, %d", e.Value)
		g.push("rax")

	case *Identifier:
		v, err := g.lookup(e.Token)
		if err != nil {
			return err
		}
		g.push(fmt.Sprintf("QWORD [rsp + %d]", g.slotOffset(v)))

	case *ParenExpr:
		return g.GenerateExpression(e.Inner)

	case *BinaryExpr:
		// Right first so the left operand ends up on top.
		if err := g.GenerateExpression(e.Right); err != nil {
			return err
		}
		if err := g.GenerateExpression(e.Left); err != nil {
			return err
		}
		g.pop("rax")
		g.pop("rbx")
		switch e.Op {
		case OpAdd:
			g.emit("    add rax, rbx")
		case OpSub:
			g.emit("    sub rax, rbx")
		case OpMul:
			g.emit("    imul rax, rbx")
		case OpDiv:
			g.emit("    cqo")
			g.emit("    idiv rbx")
		default:
			panic("unreachable: unknown binary operator")
		}
		g.push("rax")

	default:
		panic("unreachable: unknown expression node")
	}
	return nil
}

// GenerateStatement emits code for one statement. Statements leave the stack
// holding exactly the live variables.
func (g *Generator) GenerateStatement(stmt Statement) error {
	switch s := stmt.(type) {
	case *ExitStmt:
		if err := g.GenerateExpression(s.Value); err != nil {
			return err
		}
		g.emit("    mov rax, 60")
		g.pop("rdi")
		g.emit("    syscall")

	case *DeclareStmt:
		if g.symbols.LookupVariable(s.Name.Literal) != nil {
			return &SemanticError{Kind: DuplicateIdentifier, Name: s.Name.Literal, Line: s.Name.Line}
		}
		depth := g.stackSize
		if err := g.GenerateExpression(s.Value); err != nil {
			return err
		}
		// The initializer's result becomes the variable's slot.
		return g.symbols.DeclareVariable(s.Name.Literal, depth, s.Name.Line)

	case *AssignStmt:
		v, err := g.lookup(s.Name)
		if err != nil {
			return err
		}
		if err := g.GenerateExpression(s.Value); err != nil {
			return err
		}
		g.pop("rax")
		g.emit("    mov QWORD [rsp + %d], rax", g.slotOffset(v))

	case *Scope:
		return g.generateScope(s)

	case *IfStmt:
		return g.generateIf(s)

	default:
		panic("unreachable: unknown statement node")
	}
	return nil
}

func (g *Generator) generateScope(scope *Scope) error {
	g.symbols.EnterScope()
	for _, stmt := range scope.Statements {
		if err := g.GenerateStatement(stmt); err != nil {
			return err
		}
	}
	dropped := g.symbols.ExitScope()
	if dropped > 0 {
		g.emit("    add rsp, %d", dropped*slotSize)
		g.stackSize -= dropped
	}
	return nil
}

// generateCondition pops the condition and jumps to skip when it is zero.
func (g *Generator) generateCondition(cond Expression, skip string) error {
	if err := g.GenerateExpression(cond); err != nil {
		return err
	}
	g.pop("rax")
	g.emit("    test rax, rax")
	g.emit("    jz %s", skip)
	return nil
}

func (g *Generator) generateIf(s *IfStmt) error {
	skip := g.newLabel()
	if err := g.generateCondition(s.Cond, skip); err != nil {
		return err
	}
	if err := g.generateScope(s.Body); err != nil {
		return err
	}
	if s.Tail == nil {
		g.emit("%s:", skip)
		return nil
	}

	end := g.newLabel()
	g.emit("    jmp %s", end)
	g.emit("%s:", skip)
	if err := g.generateIfTail(s.Tail, end); err != nil {
		return err
	}
	g.emit("%s:", end)
	return nil
}

// generateIfTail emits an elif/else chain. Every taken branch jumps to end,
// which the caller places after the whole chain.
func (g *Generator) generateIfTail(tail IfTail, end string) error {
	switch t := tail.(type) {
	case *ElifTail:
		skip := g.newLabel()
		if err := g.generateCondition(t.Cond, skip); err != nil {
			return err
		}
		if err := g.generateScope(t.Body); err != nil {
			return err
		}
		if t.Tail == nil {
			g.emit("%s:", skip)
			return nil
		}
		g.emit("    jmp %s", end)
		g.emit("%s:", skip)
		return g.generateIfTail(t.Tail, end)

	case *ElseTail:
		return g.generateScope(t.Body)

	default:
		panic("unreachable: unknown if tail")
	}
}
