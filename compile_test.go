package quarks

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nalgeon/be"

	"github.com/strager/quarks/x64sim"
)

func runProgram(t *testing.T, source string) uint8 {
	t.Helper()
	asm, err := CompileToAssembly(source)
	be.Err(t, err, nil)
	result, err := x64sim.Execute(asm)
	be.Err(t, err, nil)
	return result.ExitStatus
}

func TestEndToEnd(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected uint8
	}{
		{"exit literal", "exit(5);", 5},
		{"exit variable", "declare x = 10; exit(x);", 10},
		{"if taken", "declare x = 1; if (x) { exit(42); } else { exit(0); }", 42},
		{"else taken", "declare x = 0; if (x) { exit(1); } elif (0) { exit(2); } else { exit(3); }", 3},
		{"elif taken", "declare x = 0; if (x) { exit(1); } elif (x + 1) { exit(2); } else { exit(3); }", 2},
		{"parenthesized", "exit((2 + 3) * 4);", 20},
		{"left associative subtraction", "exit(10 - 3 - 2);", 5},
		{"left associative division", "exit(100 / 5 / 2);", 10},
		{"precedence", "exit(1 + 2 * 3);", 7},
		{"truncating division", "exit(7 / 2);", 3},
		{"fall off the end", "declare x = 9;", 0},
		{"status wraps", "exit(256 + 7);", 7},
		{"assignment", "declare x = 1; x = x + 4; exit(x);", 5},
		{"assignment in scope", "declare x = 1; { declare y = 6; x = y * 2; } exit(x);", 12},
		{"scope reclaims before use", "declare a = 3; { declare b = 4; declare c = 5; } declare d = 6; exit(a * 10 + d);", 36},
		{"nested scopes", "declare a = 1; { declare b = 2; { declare c = 3; exit(a + b + c); } }", 6},
		{"if without tail falls through", "if (0) { exit(1); } exit(8);", 8},
		{"negative condition is true", "if (0 - 1) { exit(4); } exit(9);", 4},
		{"redeclare after scope", "{ declare x = 1; } { declare x = 2; } declare x = 3; exit(x);", 3},
		{"variables in if body", "declare n = 2; if (n - 2) { exit(1); } elif (n) { declare m = n * 3; exit(m + n); } exit(0);", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, runProgram(t, tt.source), tt.expected)
		})
	}
}

func TestCompileResult(t *testing.T) {
	result, err := Compile("declare x = 2; exit(x * 3);")
	be.Err(t, err, nil)
	be.Equal(t, len(result.Tokens), 12)
	be.Equal(t, len(result.Program.Statements), 2)
	be.True(t, strings.HasPrefix(result.Assembly, "global _start\n_start:\n"))
	be.True(t, result.ArenaUsed > 0)
}

func TestCompileStageErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  error
		message string
	}{
		{"lexing", "exit(1 % 2);", ErrUnrecognizedCharacter, "lexing: line 1: unrecognized character '%'"},
		{"lexing literal", "exit(99999999999999999999);", ErrLex, "lexing: line 1: integer literal 99999999999999999999 out of range"},
		{"parsing", "exit(1)", ErrSyntax, "parsing: line 1: expected `;`, got end of input"},
		{"code generation", "exit(x);", ErrUndeclaredIdentifier, "code generation: line 1: variable 'x' used before declaration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compile(tt.source)
			be.True(t, result == nil)
			be.True(t, errors.Is(err, tt.target))
			be.Equal(t, err.Error(), tt.message)
		})
	}
}

func TestCompileArenaOptions(t *testing.T) {
	source := "exit(1 + 2 + 3 + 4 + 5 + 6 + 7 + 8 + 9);"

	_, err := Compile(source, WithArenaCapacity(128))
	be.True(t, errors.Is(err, ErrArenaExhausted))
	be.True(t, strings.HasPrefix(err.Error(), "parsing: arena exhausted"))

	result, err := Compile(source, WithArenaCapacity(128), WithArenaGrowth())
	be.Err(t, err, nil)
	be.True(t, result.ArenaUsed > 128)
}

func TestCompileTrace(t *testing.T) {
	var trace bytes.Buffer
	_, err := Compile("exit(1);", WithTrace(&trace))
	be.Err(t, err, nil)
	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	be.Equal(t, len(lines), 3)
	be.Equal(t, lines[0], "tokens: 5")
	be.Equal(t, lines[1], "AST: (program (exit (integer 1)))")
	be.True(t, strings.HasPrefix(lines[2], "arena: "))
}

func TestCompileIsDeterministic(t *testing.T) {
	source := "declare x = 3; if (x - 3) { exit(1); } elif (x) { exit(x * x); } else { exit(0); }"
	first, err := Compile(source)
	be.Err(t, err, nil)
	second, err := Compile(source)
	be.Err(t, err, nil)
	be.Equal(t, ToSExpr(first.Program), ToSExpr(second.Program))
	be.Equal(t, first.Assembly, second.Assembly)
}

func TestConcurrentCompiles(t *testing.T) {
	var wg sync.WaitGroup
	statuses := make([]uint8, 32)
	errs := make([]error, len(statuses))
	for i := range statuses {
		wg.Add(1)
		go func() {
			defer wg.Done()
			asm, err := CompileToAssembly(fmt.Sprintf("declare v = %d; { declare w = v * 2; exit(w); }", i))
			if err != nil {
				errs[i] = err
				return
			}
			result, err := x64sim.Execute(asm)
			if err != nil {
				errs[i] = err
				return
			}
			statuses[i] = result.ExitStatus
		}()
	}
	wg.Wait()

	for i, status := range statuses {
		be.Err(t, errs[i], nil)
		be.Equal(t, status, uint8(i*2))
	}
}
