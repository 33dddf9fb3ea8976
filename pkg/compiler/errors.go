package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEmptySource is returned by file-level drivers for sources without any data.
	ErrEmptySource = errors.New("no data was found in the source")

	ErrUndeclaredVariable   = errors.New("usage of undeclared variable")
	ErrDuplicateDeclaration = errors.New("variable already declared in this scope")
	ErrDuplicateLabel       = errors.New("label already declared in this scope")
	ErrUndefinedLabel       = errors.New("jump to undeclared label")
	ErrStackOverflow        = errors.New("symbol stack overflow")
)

// ScanError is a lexical error reported by the Scanner.
type ScanError struct {
	Line   int
	Msg    string
	Lexeme string // offending text, may be empty
}

func (e *ScanError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanner Error\n\tLine: %d\n\t%s", e.Line, e.Msg)
	if e.Lexeme != "" {
		fmt.Fprintf(&b, "\n\tInstance: %s", e.Lexeme)
	}
	return b.String()
}

// SyntaxError is the first grammar mismatch seen by the Parser.
type SyntaxError struct {
	Line     int
	Expected string // description of the expected token or construct
	Got      Token
	Scan     *ScanError // set when Got is an ERROR token
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parser Error\n\tLine: %d\n\tExpected Token: %s\n\tReceived Token: %s\n\t%s Instance: %s",
		e.Line, e.Expected, e.Got.Type.Description(), e.Got.Type.Description(), e.Got.Lexeme)
	if e.Scan != nil {
		b.WriteString("\n")
		b.WriteString(e.Scan.Error())
	}
	return b.String()
}

func (e *SyntaxError) Unwrap() error {
	if e.Scan == nil {
		return nil
	}
	return e.Scan
}

// SemanticError is raised by the symbol table or the code generator.
// Err is one of the Err* sentinels above.
type SemanticError struct {
	Err  error
	Name string
	Line int
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("Semantic Error: %s\n\tInstance: %s\n\tLine: %d", e.Err, e.Name, e.Line)
}

func (e *SemanticError) Cause() error  { return e.Err }
func (e *SemanticError) Unwrap() error { return e.Err }

func semanticError(err error, tok Token) *SemanticError {
	return &SemanticError{Err: err, Name: tok.Lexeme, Line: tok.Line}
}
