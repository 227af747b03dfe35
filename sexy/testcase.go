package sexy

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType is the language of the fence holding a test's source.
type InputType string

const (
	InputTypeExpr    InputType = "quarks-expr"
	InputTypeProgram InputType = "quarks-program"
)

// AssertionType is the language of an assertion fence.
type AssertionType string

const (
	// AssertionTypeAST holds an S-expression pattern for the parsed input.
	AssertionTypeAST AssertionType = "ast"
	// AssertionTypeAsm holds the exact generated assembly.
	AssertionTypeAsm AssertionType = "asm"
	// AssertionTypeExitStatus holds the exit status of the compiled program.
	AssertionTypeExitStatus AssertionType = "exit-status"
	// AssertionTypeCompileError holds a substring of the compile error.
	AssertionTypeCompileError AssertionType = "compile-error"
)

// Assertion represents a single assertion in a test case
type Assertion struct {
	Type    AssertionType
	Content string // raw fence content without the trailing newline
	Line    int

	Pattern    *Node // AssertionTypeAST
	ExitStatus int   // AssertionTypeExitStatus
}

// TestCase is one "Test: <name>" section of a Markdown document.
type TestCase struct {
	Name       string
	Line       int
	Input      string
	InputType  InputType
	Assertions []Assertion
}

// ExtractTestCases parses a Markdown document and extracts all test cases.
// A heading whose text starts with "Test: " opens a case; the fenced code
// blocks that follow belong to it until the next such heading.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	source := []byte(markdownContent)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var testCases []TestCase
	var current *TestCase

	finish := func() error {
		if current == nil {
			return nil
		}
		if err := validateTestCase(current); err != nil {
			return err
		}
		testCases = append(testCases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, source)
			name, ok := strings.CutPrefix(headingText, "Test: ")
			if !ok {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{Name: name, Line: getLineNumber(n, source)}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			lineNum := getLineNumber(n, source)
			content := strings.TrimRight(extractCodeBlockContent(n, source), "\n")

			if current == nil {
				if language == "" {
					return ast.WalkContinue, nil
				}
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
			}

			switch {
			case language == "":
				// plain code blocks are prose
			case isInputFence(language):
				if current.InputType != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, current.Name)
				}
				current.Input = content
				current.InputType = InputType(language)
			case isAssertionFence(language):
				assertion, err := parseAssertion(AssertionType(language), content, lineNum)
				if err != nil {
					return ast.WalkStop, fmt.Errorf("line %d: in test '%s': %w", lineNum, current.Name, err)
				}
				current.Assertions = append(current.Assertions, assertion)
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, current.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if err := finish(); err != nil {
		return nil, err
	}
	return testCases, nil
}

func parseAssertion(typ AssertionType, content string, line int) (Assertion, error) {
	assertion := Assertion{Type: typ, Content: content, Line: line}
	switch typ {
	case AssertionTypeAST:
		pattern, err := Parse(content)
		if err != nil {
			return assertion, fmt.Errorf("failed to parse ast pattern: %w", err)
		}
		assertion.Pattern = pattern
	case AssertionTypeExitStatus:
		status, err := strconv.Atoi(strings.TrimSpace(content))
		if err != nil || status < 0 || status > 255 {
			return assertion, fmt.Errorf("exit status must be an integer in 0..255, got %q", content)
		}
		assertion.ExitStatus = status
	case AssertionTypeCompileError:
		if strings.TrimSpace(content) == "" {
			return assertion, fmt.Errorf("empty compile-error fence")
		}
	}
	return assertion, nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := codeBlock.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func isInputFence(language string) bool {
	switch InputType(language) {
	case InputTypeExpr, InputTypeProgram:
		return true
	default:
		return false
	}
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeAsm, AssertionTypeExitStatus, AssertionTypeCompileError:
		return true
	default:
		return false
	}
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(tc *TestCase) error {
	if tc.InputType == "" {
		return fmt.Errorf("line %d: test '%s' has no input fence", tc.Line, tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("line %d: test '%s' has no assertion fences", tc.Line, tc.Name)
	}
	return nil
}

// getLineNumber calculates the line number of a given AST node
func getLineNumber(node ast.Node, source []byte) int {
	var start int
	switch {
	case node.Lines().Len() > 0:
		start = node.Lines().At(0).Start
	case node.HasChildren():
		if t, ok := node.FirstChild().(*ast.Text); ok {
			start = t.Segment.Start
		}
	}
	return 1 + bytes.Count(source[:min(start, len(source))], []byte("\n"))
}
