package x64sim

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultStepLimit  = 1_000_000
	DefaultStackSlots = 1 << 16

	// stackTop is the initial rsp, the address just past the stack.
	stackTop = 0x7fff_f000
	slotSize = 8

	sysExit = 60
)

var (
	ErrDivideByZero       = errors.New("division by zero")
	ErrDivideOverflow     = errors.New("division overflow")
	ErrStackOverflow      = errors.New("stack overflow")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrBadAddress         = errors.New("bad stack address")
	ErrStepLimit          = errors.New("step limit exceeded")
	ErrNoExit             = errors.New("ran past the last instruction without exiting")
	ErrUnsupportedSyscall = errors.New("unsupported system call")
)

// Fault is a runtime error raised while executing an instruction.
type Fault struct {
	Line int // source line of the faulting instruction, 0 if none
	Err  error
}

func (f *Fault) Error() string {
	if f.Line == 0 {
		return f.Err.Error()
	}
	return fmt.Sprintf("line %d: %v", f.Line, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Result describes a program that exited through the exit system call.
type Result struct {
	// ExitStatus is what a parent process would observe: the low 8 bits of
	// rdi.
	ExitStatus uint8
	RDI        int64
	Steps      int
}

type Option func(*Machine)

func WithStepLimit(n int) Option {
	return func(m *Machine) {
		m.stepLimit = n
	}
}

func WithStackSlots(n int) Option {
	return func(m *Machine) {
		m.stack = make([]int64, n)
	}
}

// Machine is the register and stack state of one run.
type Machine struct {
	prog      *Program
	regs      [numRegisters]int64
	stack     []int64
	pc        int
	zf        bool
	steps     int
	stepLimit int
}

func NewMachine(prog *Program, opts ...Option) *Machine {
	m := &Machine{prog: prog, stepLimit: DefaultStepLimit}
	for _, opt := range opts {
		opt(m)
	}
	if m.stack == nil {
		m.stack = make([]int64, DefaultStackSlots)
	}
	m.regs[RSP] = stackTop
	m.pc = prog.Entry
	return m
}

// Execute assembles and runs code in one go.
func Execute(code string, opts ...Option) (*Result, error) {
	prog, err := Assemble(code)
	if err != nil {
		return nil, err
	}
	return NewMachine(prog, opts...).Run()
}

// Register returns the current value of a register.
func (m *Machine) Register(r Register) int64 {
	return m.regs[r]
}

// Run executes until the program exits or faults.
func (m *Machine) Run() (*Result, error) {
	for {
		if m.pc >= len(m.prog.Instructions) {
			return nil, &Fault{Err: ErrNoExit}
		}
		if m.steps >= m.stepLimit {
			return nil, &Fault{Line: m.prog.Instructions[m.pc].Line, Err: ErrStepLimit}
		}
		instr := &m.prog.Instructions[m.pc]
		m.steps++
		m.pc++

		exited, err := m.step(instr)
		if err != nil {
			return nil, &Fault{Line: instr.Line, Err: err}
		}
		if exited {
			rdi := m.regs[RDI]
			return &Result{ExitStatus: uint8(rdi), RDI: rdi, Steps: m.steps}, nil
		}
	}
}

func (m *Machine) step(instr *Instruction) (exited bool, err error) {
	ops := instr.Operands
	switch instr.Mnemonic {
	case "mov":
		v, err := m.read(ops[1])
		if err != nil {
			return false, err
		}
		return false, m.write(ops[0], v)

	case "push":
		v, err := m.read(ops[0])
		if err != nil {
			return false, err
		}
		return false, m.push(v)

	case "pop":
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		return false, m.write(ops[0], v)

	case "add", "sub", "imul", "cmp":
		a, err := m.read(ops[0])
		if err != nil {
			return false, err
		}
		b, err := m.read(ops[1])
		if err != nil {
			return false, err
		}
		var r int64
		switch instr.Mnemonic {
		case "add":
			r = a + b
		case "sub", "cmp":
			r = a - b
		case "imul":
			r = a * b
		}
		m.setFlags(r)
		if instr.Mnemonic == "cmp" {
			return false, nil
		}
		if ops[0].Reg == RSP && r%slotSize != 0 {
			return false, ErrBadAddress
		}
		return false, m.write(ops[0], r)

	case "test":
		a, err := m.read(ops[0])
		if err != nil {
			return false, err
		}
		b, err := m.read(ops[1])
		if err != nil {
			return false, err
		}
		m.setFlags(a & b)

	case "cqo":
		if m.regs[RAX] < 0 {
			m.regs[RDX] = -1
		} else {
			m.regs[RDX] = 0
		}

	case "idiv":
		divisor, err := m.read(ops[0])
		if err != nil {
			return false, err
		}
		if divisor == 0 {
			return false, ErrDivideByZero
		}
		dividend := m.regs[RAX]
		// rdx:rax must be the sign extension of rax; anything wider does not
		// fit a 64-bit quotient here.
		if m.regs[RDX] != dividend>>63 {
			return false, ErrDivideOverflow
		}
		if dividend == math.MinInt64 && divisor == -1 {
			return false, ErrDivideOverflow
		}
		m.regs[RAX] = dividend / divisor
		m.regs[RDX] = dividend % divisor

	case "jmp":
		m.pc = m.prog.Labels[ops[0].Label]

	case "jz", "je":
		if m.zf {
			m.pc = m.prog.Labels[ops[0].Label]
		}

	case "jnz", "jne":
		if !m.zf {
			m.pc = m.prog.Labels[ops[0].Label]
		}

	case "syscall":
		if m.regs[RAX] != sysExit {
			return false, fmt.Errorf("%w %d", ErrUnsupportedSyscall, m.regs[RAX])
		}
		return true, nil

	default:
		panic("unreachable: unassembled mnemonic " + instr.Mnemonic)
	}
	return false, nil
}

func (m *Machine) setFlags(r int64) {
	m.zf = r == 0
}

func (m *Machine) read(op Operand) (int64, error) {
	switch op.Kind {
	case OperandRegister:
		return m.regs[op.Reg], nil
	case OperandImmediate:
		return op.Imm, nil
	case OperandMemory:
		i, err := m.slotIndex(m.regs[op.Reg] + op.Imm)
		if err != nil {
			return 0, err
		}
		return m.stack[i], nil
	default:
		panic("unreachable: read from label operand")
	}
}

func (m *Machine) write(op Operand, v int64) error {
	switch op.Kind {
	case OperandRegister:
		m.regs[op.Reg] = v
		return nil
	case OperandMemory:
		i, err := m.slotIndex(m.regs[op.Reg] + op.Imm)
		if err != nil {
			return err
		}
		m.stack[i] = v
		return nil
	default:
		panic("unreachable: write to non-writable operand")
	}
}

func (m *Machine) push(v int64) error {
	if m.regs[RSP]-slotSize < m.stackBottom() {
		return ErrStackOverflow
	}
	m.regs[RSP] -= slotSize
	i, err := m.slotIndex(m.regs[RSP])
	if err != nil {
		return err
	}
	m.stack[i] = v
	return nil
}

func (m *Machine) pop() (int64, error) {
	if m.regs[RSP] >= stackTop {
		return 0, ErrStackUnderflow
	}
	i, err := m.slotIndex(m.regs[RSP])
	if err != nil {
		return 0, err
	}
	m.regs[RSP] += slotSize
	return m.stack[i], nil
}

func (m *Machine) stackBottom() int64 {
	return stackTop - int64(len(m.stack))*slotSize
}

// slotIndex maps a stack address to an index into m.stack.
func (m *Machine) slotIndex(addr int64) (int, error) {
	if addr%slotSize != 0 || addr < m.stackBottom() || addr >= stackTop {
		return 0, fmt.Errorf("%w 0x%x", ErrBadAddress, addr)
	}
	return int((addr - m.stackBottom()) / slotSize), nil
}
