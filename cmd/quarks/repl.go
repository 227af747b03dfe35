package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/strager/quarks"
	"github.com/strager/quarks/x64sim"
)

const (
	banner = `quarks REPL
Enter statements or an expression. Ctrl+C cancels input, Ctrl+D exits.
Type :help for commands.`
	promptMain = "quarks> "
	promptCont = "..      "

	historyFile = ".quarks_history"
)

const replHelp = `:ast    print the AST of the session
:asm    print the assembly of the session
:reset  forget every statement entered so far
:quit   leave the REPL`

func replCommand(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quarks repl\n")
		fmt.Fprintf(os.Stderr, "Start an interactive session\n\n")
		fmt.Fprintf(os.Stderr, "The history file is $QUARKS_HISTORY, or ~/%s by default.\n", historyFile)
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath := historyPath(); histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	s := &session{}
	for {
		code, ok := readEntry(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			out, quit := s.command(trimmed)
			if quit {
				return 0
			}
			fmt.Println(out)
			continue
		}

		out, err := s.eval(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

func historyPath() string {
	if path := os.Getenv("QUARKS_HISTORY"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

// readEntry reads lines until they form a complete entry. ok is false at end
// of input.
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if src := b.String(); !incomplete(src) {
			return src, true
		}
	}
}

// incomplete reports whether src stops in the middle of a statement, so more
// lines could still make it valid.
func incomplete(src string) bool {
	tokens, err := quarks.Tokenize(src)
	if err != nil || len(tokens) == 0 {
		return false
	}
	_, exprErr := quarks.ParseExpression(tokens, nil)
	if exprErr == nil {
		return false
	}
	_, progErr := quarks.Parse(tokens, nil)
	if progErr == nil {
		return false
	}
	return endsEarly(exprErr) || endsEarly(progErr)
}

func endsEarly(err error) bool {
	var syntaxErr *quarks.SyntaxError
	return errors.As(err, &syntaxErr) && syntaxErr.AtEOF
}

// session accumulates the statements accepted so far. Every entry is
// compiled together with them and run from the start.
type session struct {
	entries []string
}

func (s *session) source(extra ...string) string {
	return strings.Join(append(slices.Clone(s.entries), extra...), "\n")
}

// eval runs one entry. An expression is evaluated after the session's
// statements and its full 64-bit value is returned. Statements are kept
// only if the program containing them compiles and runs, and only if they
// contain no exit; a kept exit would stop every later entry.
func (s *session) eval(entry string) (string, error) {
	tokens, err := quarks.Tokenize(entry)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", nil
	}

	if _, err := quarks.ParseExpression(tokens, nil); err == nil {
		result, err := execute(s.source("exit(" + entry + ");"))
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(result.RDI, 10), nil
	}

	result, err := execute(s.source(entry))
	if err != nil {
		return "", err
	}
	if program, err := quarks.Parse(tokens, nil); err == nil && !containsExit(program.Statements) {
		s.entries = append(s.entries, entry)
	}
	return fmt.Sprintf("exit status %d", result.ExitStatus), nil
}

// containsExit reports whether any statement, at any nesting depth, is an
// exit.
func containsExit(stmts []quarks.Statement) bool {
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *quarks.ExitStmt:
			return true
		case *quarks.Scope:
			if containsExit(stmt.Statements) {
				return true
			}
		case *quarks.IfStmt:
			if containsExit(stmt.Body.Statements) || tailContainsExit(stmt.Tail) {
				return true
			}
		}
	}
	return false
}

func tailContainsExit(tail quarks.IfTail) bool {
	switch tail := tail.(type) {
	case *quarks.ElifTail:
		return containsExit(tail.Body.Statements) || tailContainsExit(tail.Tail)
	case *quarks.ElseTail:
		return containsExit(tail.Body.Statements)
	}
	return false
}

// command handles a ":" command. quit is set for :quit.
func (s *session) command(cmd string) (out string, quit bool) {
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return "", true
	case ":reset":
		s.entries = nil
		return "session cleared", false
	case ":asm":
		asm, err := quarks.CompileToAssembly(s.source())
		if err != nil {
			return err.Error(), false
		}
		return strings.TrimRight(asm, "\n"), false
	case ":ast":
		result, err := quarks.Compile(s.source())
		if err != nil {
			return err.Error(), false
		}
		return quarks.ToSExpr(result.Program), false
	case ":help":
		return replHelp, false
	default:
		return "unknown command. Type :help for a list.", false
	}
}

func execute(source string) (*x64sim.Result, error) {
	asm, err := quarks.CompileToAssembly(source)
	if err != nil {
		return nil, err
	}
	return x64sim.Execute(asm)
}
