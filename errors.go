package quarks

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every *LexError matches ErrLex; the
// unrecognized-character form also matches ErrUnrecognizedCharacter. The
// other error types each match one sentinel.
var (
	ErrLex                   = errors.New("lexical error")
	ErrUnrecognizedCharacter = errors.New("unrecognized character")
	ErrSyntax                = errors.New("syntax error")
	ErrUndeclaredIdentifier  = errors.New("undeclared identifier")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier")
	ErrArenaExhausted        = errors.New("arena exhausted")
)

// LexError aborts tokenization.
type LexError struct {
	Line    int
	Char    byte
	Message string // set for errors other than an unrecognized character
}

func (e *LexError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: unrecognized character %q", e.Line, e.Char)
}

func (e *LexError) Is(target error) bool {
	if target == ErrLex {
		return true
	}
	return target == ErrUnrecognizedCharacter && e.Message == ""
}

// SyntaxError reports the first place where the token stream stopped matching
// the grammar.
type SyntaxError struct {
	Line     int
	Expected string
	Found    string
	// AtEOF is set when the input ended in the middle of a statement.
	AtEOF bool
}

func (e *SyntaxError) Error() string {
	if e.AtEOF {
		return fmt.Sprintf("line %d: expected %s, got end of input", e.Line, e.Expected)
	}
	return fmt.Sprintf("line %d: expected %s, got %s", e.Line, e.Expected, e.Found)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// SemanticErrorKind distinguishes the name-resolution failures found during
// code generation.
type SemanticErrorKind int

const (
	UndeclaredIdentifier SemanticErrorKind = iota
	DuplicateIdentifier
)

// SemanticError is raised by the code generator.
type SemanticError struct {
	Kind SemanticErrorKind
	Name string
	Line int
}

func (e *SemanticError) Error() string {
	switch e.Kind {
	case DuplicateIdentifier:
		return fmt.Sprintf("line %d: variable '%s' already declared", e.Line, e.Name)
	default:
		return fmt.Sprintf("line %d: variable '%s' used before declaration", e.Line, e.Name)
	}
}

func (e *SemanticError) Is(target error) bool {
	switch e.Kind {
	case UndeclaredIdentifier:
		return target == ErrUndeclaredIdentifier
	case DuplicateIdentifier:
		return target == ErrDuplicateIdentifier
	default:
		return false
	}
}

// CapacityError is returned by a fixed-size arena that cannot satisfy an
// allocation.
type CapacityError struct {
	Requested int
	Remaining int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("arena exhausted: requested %d bytes with %d of %d remaining",
		e.Requested, e.Remaining, e.Capacity)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrArenaExhausted
}
