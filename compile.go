// Package quarks compiles quarks source text into x86-64 NASM assembly.
//
// The pipeline runs strictly forward: Tokenize, Parse, Generate. Each stage
// runs to completion and reports the first problem as an error. Independent
// compilations share no state and may run concurrently.
package quarks

import (
	"fmt"
	"io"
)

// Result holds every intermediate product of one compilation.
type Result struct {
	Tokens   []Token
	Program  *Program
	Assembly string
	// ArenaUsed is the number of arena bytes the AST occupies.
	ArenaUsed int
}

type config struct {
	arenaCapacity int
	arenaGrowth   bool
	trace         io.Writer
}

type Option func(*config)

// WithArenaCapacity sets the AST arena budget in bytes.
func WithArenaCapacity(n int) Option {
	return func(c *config) {
		c.arenaCapacity = n
	}
}

// WithArenaGrowth lets the AST arena grow instead of failing.
func WithArenaGrowth() Option {
	return func(c *config) {
		c.arenaGrowth = true
	}
}

// WithTrace writes progress details (token count, AST, arena usage) to w.
func WithTrace(w io.Writer) Option {
	return func(c *config) {
		c.trace = w
	}
}

// Compile runs the whole pipeline over source.
func Compile(source string, opts ...Option) (*Result, error) {
	cfg := config{arenaCapacity: DefaultArenaCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, err := Tokenize(source)
	if err != nil {
		return nil, fmt.Errorf("lexing: %w", err)
	}
	cfg.tracef("tokens: %d\n", len(tokens))

	var arenaOpts []ArenaOption
	if cfg.arenaGrowth {
		arenaOpts = append(arenaOpts, WithGrowth())
	}
	arena := NewArena(cfg.arenaCapacity, arenaOpts...)

	program, err := Parse(tokens, arena)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	cfg.tracef("AST: %s\n", ToSExpr(program))
	cfg.tracef("arena: %d of %d bytes used\n", arena.Used(), arena.Cap())

	assembly, err := Generate(program)
	if err != nil {
		return nil, fmt.Errorf("code generation: %w", err)
	}

	return &Result{
		Tokens:    tokens,
		Program:   program,
		Assembly:  assembly,
		ArenaUsed: arena.Used(),
	}, nil
}

// CompileToAssembly is Compile for callers that only want the assembly text.
func CompileToAssembly(source string, opts ...Option) (string, error) {
	result, err := Compile(source, opts...)
	if err != nil {
		return "", err
	}
	return result.Assembly, nil
}

func (c *config) tracef(format string, args ...any) {
	if c.trace != nil {
		fmt.Fprintf(c.trace, format, args...)
	}
}
