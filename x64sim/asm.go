// Package x64sim runs the subset of x86-64 NASM assembly that the quarks code
// generator emits, so generated programs can be checked without an external
// assembler, linker or Linux host.
package x64sim

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Register int

const (
	RAX Register = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	RSP
	numRegisters
)

var registerNames = map[string]Register{
	"rax": RAX,
	"rbx": RBX,
	"rcx": RCX,
	"rdx": RDX,
	"rsi": RSI,
	"rdi": RDI,
	"rsp": RSP,
}

func (r Register) String() string {
	for name, reg := range registerNames {
		if reg == r {
			return name
		}
	}
	return fmt.Sprintf("r?%d", int(r))
}

type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	// OperandMemory is a QWORD at [Base + Disp].
	OperandMemory
	OperandLabel
)

type Operand struct {
	Kind  OperandKind
	Reg   Register // OperandRegister, and base of OperandMemory
	Imm   int64    // OperandImmediate, and displacement of OperandMemory
	Label string   // OperandLabel
}

type Instruction struct {
	Mnemonic string
	Operands []Operand
	Line     int
}

// Program is assembled text ready to run.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int // label -> instruction index
	Entry        int
}

// AsmError reports malformed assembly text.
type AsmError struct {
	Line    int
	Message string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// operand shapes accepted by each mnemonic
type operandShape int

const (
	shapeNone operandShape = iota
	shapeReg
	shapeRegOrImm
	shapeRegOrMem
	shapeAny // register, immediate or memory
	shapeLabel
)

var instructionShapes = map[string][]operandShape{
	"mov":     {shapeRegOrMem, shapeAny},
	"push":    {shapeAny},
	"pop":     {shapeRegOrMem},
	"add":     {shapeReg, shapeAny},
	"sub":     {shapeReg, shapeAny},
	"imul":    {shapeReg, shapeAny},
	"cqo":     {},
	"idiv":    {shapeRegOrMem},
	"test":    {shapeReg, shapeRegOrImm},
	"cmp":     {shapeReg, shapeAny},
	"jmp":     {shapeLabel},
	"jz":      {shapeLabel},
	"je":      {shapeLabel},
	"jnz":     {shapeLabel},
	"jne":     {shapeLabel},
	"syscall": {},
}

// Assemble parses assembly text. Labels are collected in a first pass so
// forward jumps resolve.
func Assemble(code string) (*Program, error) {
	lines := strings.Split(code, "\n")
	prog := &Program{Labels: make(map[string]int)}
	entryLabel := ""

	// pass 1: labels and instructions
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if label, ok := strings.CutSuffix(line, ":"); ok {
			if !isIdentifier(label) {
				return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("invalid label '%s'", label)}
			}
			if _, exists := prog.Labels[label]; exists {
				return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("duplicate label '%s'", label)}
			}
			prog.Labels[label] = len(prog.Instructions)
			continue
		}

		mnemonic, rest := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			mnemonic, rest = line[:i], strings.TrimSpace(line[i:])
		}
		mnemonic = strings.ToLower(mnemonic)

		switch mnemonic {
		case "global":
			entryLabel = rest
			continue
		case "section", "bits", "default":
			continue
		}

		shapes, ok := instructionShapes[mnemonic]
		if !ok {
			return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("unsupported instruction '%s'", mnemonic)}
		}
		var fields []string
		if rest != "" {
			fields = strings.Split(rest, ",")
		}
		if len(fields) != len(shapes) {
			return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("%s expects %d operand(s), got %d", mnemonic, len(shapes), len(fields))}
		}

		instr := Instruction{Mnemonic: mnemonic, Line: lineNo}
		for j, field := range fields {
			op, err := parseOperand(strings.TrimSpace(field), shapes[j] == shapeLabel)
			if err != nil {
				return nil, &AsmError{Line: lineNo, Message: err.Error()}
			}
			if !shapeAccepts(shapes[j], op.Kind) {
				return nil, &AsmError{Line: lineNo, Message: fmt.Sprintf("invalid operand '%s' for %s", strings.TrimSpace(field), mnemonic)}
			}
			instr.Operands = append(instr.Operands, op)
		}
		if len(instr.Operands) == 2 && instr.Operands[0].Kind == OperandMemory && instr.Operands[1].Kind == OperandMemory {
			return nil, &AsmError{Line: lineNo, Message: "two memory operands"}
		}
		prog.Instructions = append(prog.Instructions, instr)
	}

	// pass 2: resolve jump targets and the entry point
	for _, instr := range prog.Instructions {
		for _, op := range instr.Operands {
			if op.Kind != OperandLabel {
				continue
			}
			if _, ok := prog.Labels[op.Label]; !ok {
				return nil, &AsmError{Line: instr.Line, Message: fmt.Sprintf("undefined label '%s'", op.Label)}
			}
		}
	}
	if entryLabel != "" {
		entry, ok := prog.Labels[entryLabel]
		if !ok {
			return nil, &AsmError{Line: 1, Message: fmt.Sprintf("entry point '%s' is not defined", entryLabel)}
		}
		prog.Entry = entry
	}

	return prog, nil
}

func shapeAccepts(shape operandShape, kind OperandKind) bool {
	switch shape {
	case shapeReg:
		return kind == OperandRegister
	case shapeRegOrImm:
		return kind == OperandRegister || kind == OperandImmediate
	case shapeRegOrMem:
		return kind == OperandRegister || kind == OperandMemory
	case shapeAny:
		return kind != OperandLabel
	case shapeLabel:
		return kind == OperandLabel
	default:
		return false
	}
}

func parseOperand(text string, wantLabel bool) (Operand, error) {
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, "qword") {
		lower = strings.TrimSpace(strings.TrimPrefix(lower, "qword"))
		if !strings.HasPrefix(lower, "[") {
			return Operand{}, fmt.Errorf("expected memory operand after QWORD in '%s'", text)
		}
	}
	if strings.HasPrefix(lower, "[") {
		return parseMemory(lower, text)
	}
	if reg, ok := registerNames[lower]; ok {
		return Operand{Kind: OperandRegister, Reg: reg}, nil
	}
	if wantLabel && isIdentifier(text) {
		return Operand{Kind: OperandLabel, Label: text}, nil
	}
	if imm, err := strconv.ParseInt(lower, 0, 64); err == nil {
		return Operand{Kind: OperandImmediate, Imm: imm}, nil
	}
	return Operand{}, fmt.Errorf("invalid operand '%s'", text)
}

// parseMemory accepts [reg], [reg + n] and [reg - n].
func parseMemory(lower, original string) (Operand, error) {
	if !strings.HasSuffix(lower, "]") {
		return Operand{}, fmt.Errorf("unterminated memory operand '%s'", original)
	}
	inner := strings.ReplaceAll(lower[1:len(lower)-1], " ", "")

	base, disp := inner, ""
	sign := int64(1)
	if i := strings.IndexAny(inner, "+-"); i >= 0 {
		base, disp = inner[:i], inner[i+1:]
		if inner[i] == '-' {
			sign = -1
		}
	}
	reg, ok := registerNames[base]
	if !ok {
		return Operand{}, fmt.Errorf("invalid base register in '%s'", original)
	}
	op := Operand{Kind: OperandMemory, Reg: reg}
	if disp != "" {
		n, err := strconv.ParseInt(disp, 0, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("invalid displacement in '%s'", original)
		}
		op.Imm = sign * n
	}
	return op, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}
	return true
}
