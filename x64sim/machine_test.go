package x64sim

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func TestExecuteExit(t *testing.T) {
	result, err := Execute(`global _start
_start:
    mov rax, 60
    mov rdi, 7
    syscall
`)
	be.Err(t, err, nil)
	be.Equal(t, result.ExitStatus, uint8(7))
	be.Equal(t, result.RDI, int64(7))
	be.Equal(t, result.Steps, 3)
}

func TestExitStatusIsLowByte(t *testing.T) {
	result, err := Execute(`_start:
    mov rdi, 258
    mov rax, 60
    syscall
`)
	be.Err(t, err, nil)
	be.Equal(t, result.ExitStatus, uint8(2))

	result, err = Execute(`_start:
    mov rdi, -1
    mov rax, 60
    syscall
`)
	be.Err(t, err, nil)
	be.Equal(t, result.ExitStatus, uint8(255))
}

func TestStackAddressing(t *testing.T) {
	// Two slots, then read the deeper one back through rsp.
	result, err := Execute(`global _start
_start:
    mov rax, 11
    push rax
    mov rax, 22
    push rax
    push QWORD [rsp + 8]
    pop rdi
    mov QWORD [rsp + 0], rdi
    add rsp, 8
    pop rdi
    mov rax, 60
    syscall
`)
	be.Err(t, err, nil)
	be.Equal(t, result.ExitStatus, uint8(11))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int64
	}{
		{"add", "mov rax, 40\n mov rbx, 2\n add rax, rbx", 42},
		{"sub", "mov rax, 2\n mov rbx, 40\n sub rax, rbx", -38},
		{"imul", "mov rax, -6\n mov rbx, 7\n imul rax, rbx", -42},
		{"idiv", "mov rax, 20\n mov rbx, 3\n cqo\n idiv rbx", 6},
		{"idiv negative", "mov rax, -20\n mov rbx, 3\n cqo\n idiv rbx", -6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Assemble("_start:\n" + tt.body + "\n mov rdi, rax\n mov rax, 60\n syscall\n")
			be.Err(t, err, nil)
			result, err := NewMachine(prog).Run()
			be.Err(t, err, nil)
			be.Equal(t, result.RDI, tt.expected)
		})
	}
}

func TestConditionalJumps(t *testing.T) {
	code := `global _start
_start:
    mov rax, 0
    test rax, rax
    jz skip
    mov rdi, 1
    jmp done
skip:
    mov rdi, 2
done:
    mov rax, 60
    syscall
`
	result, err := Execute(code)
	be.Err(t, err, nil)
	be.Equal(t, result.ExitStatus, uint8(2))
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{"unknown mnemonic", "_start:\n    frob rax\n", "line 2: unsupported instruction 'frob'"},
		{"undefined label", "_start:\n    jmp nowhere\n", "line 2: undefined label 'nowhere'"},
		{"duplicate label", "a:\na:\n", "line 2: duplicate label 'a'"},
		{"operand count", "_start:\n    mov rax\n", "line 2: mov expects 2 operand(s), got 1"},
		{"immediate destination", "_start:\n    mov 5, rax\n", "line 2: invalid operand '5' for mov"},
		{"bad register", "_start:\n    push QWORD [rbp + 8]\n", "line 2: invalid base register in 'QWORD [rbp + 8]'"},
		{"missing entry", "global main\n_start:\n", "line 1: entry point 'main' is not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.code)
			var asmErr *AsmError
			if !errors.As(err, &asmErr) {
				t.Fatalf("want *AsmError, got %v", err)
			}
			be.Equal(t, err.Error(), tt.message)
		})
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name string
		code string
		err  error
	}{
		{"divide by zero", "_start:\n mov rax, 1\n mov rbx, 0\n cqo\n idiv rbx\n", ErrDivideByZero},
		{"underflow", "_start:\n pop rax\n", ErrStackUnderflow},
		{"fall off the end", "_start:\n mov rax, 1\n", ErrNoExit},
		{"bad address", "_start:\n push QWORD [rsp + 8]\n", ErrBadAddress},
		{"unsupported syscall", "_start:\n mov rax, 1\n syscall\n", ErrUnsupportedSyscall},
		{"infinite loop", "_start:\nloop:\n jmp loop\n", ErrStepLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Execute(tt.code, WithStepLimit(1000))
			be.Err(t, err, tt.err)
			var fault *Fault
			be.True(t, errors.As(err, &fault))
		})
	}
}

func TestStackOverflow(t *testing.T) {
	code := `_start:
loop:
    push rax
    jmp loop
`
	_, err := Execute(code, WithStackSlots(4))
	be.Err(t, err, ErrStackOverflow)

	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("want *Fault, got %v", err)
	}
	be.Equal(t, fault.Line, 3)
}
