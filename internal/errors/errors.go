// Package errors defines the exception taxonomy and the ErrorRecord shape
// that every evaluator/dispatcher entry point surfaces to its caller, per
// spec.md §6-§7. It mirrors the teacher's internal/errors package (line/
// column-carrying compiler errors formatted with source context) but adds
// the runtime exception-class hierarchy spec.md §4.8 requires.
package errors

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"

	"github.com/quill-lang/quill/internal/lexer"
)

// Kind is the coarse ErrorRecord classification from spec.md §6.
type Kind string

const (
	KindPython       Kind = "python"
	KindSyntax       Kind = "syntax"
	KindImport       Kind = "import"
	KindIO           Kind = "io"
	KindTimeout      Kind = "timeout"
	KindRouteMissing Kind = "route_not_found"
)

// ErrorRecord is the value every top-level API verb (run/resume/boot/
// handle/handle_stream/invoke) returns on failure.
type ErrorRecord struct {
	Kind          Kind
	ExceptionType string
	Message       string
	Line          int // 0 if not applicable
	Column        int // rune column, 0 if not applicable (see lexer.Position)
	Source        string
}

// Error implements error so ErrorRecord can be threaded through normal Go
// error-return plumbing before being unwrapped at the API boundary.
func (e *ErrorRecord) Error() string {
	return e.Format()
}

// Format renders "<ExceptionType>: <detail> [on line <n>]" per spec.md §6.
func (e *ErrorRecord) Format() string {
	var sb strings.Builder
	if e.ExceptionType != "" {
		sb.WriteString(e.ExceptionType)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&sb, " on line %d", e.Line)
	}
	return sb.String()
}

// Caret renders Format()'s one-liner plus the offending source line and a
// caret pointing at Column, in the teacher's `internal/errors` style (file/
// line header, source line, caret line). Returns Format() alone when Source
// or Column aren't populated (e.g. a runtime exception with no source text
// on hand).
func (e *ErrorRecord) Caret() string {
	if e.Source == "" || e.Column <= 0 {
		return e.Format()
	}
	lines := strings.Split(e.Source, "\n")
	if e.Line <= 0 || e.Line > len(lines) {
		return e.Format()
	}
	sourceLine := lines[e.Line-1]

	var sb strings.Builder
	sb.WriteString(e.Format())
	sb.WriteString("\n")
	lineNumStr := fmt.Sprintf("%4d | ", e.Line)
	sb.WriteString(lineNumStr)
	sb.WriteString(sourceLine)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", len(lineNumStr)+displayWidthBefore(sourceLine, e.Column)))
	sb.WriteString("^")
	return sb.String()
}

// displayWidthBefore sums the terminal display width of sourceLine's first
// column-1 runes (column is 1-based, a rune count per lexer.Position's own
// doc comment) — a wide/fullwidth CJK rune prints two terminal columns, so
// a plain rune count under-indents the caret on any line containing one.
func displayWidthBefore(sourceLine string, column int) int {
	w := 0
	i := 0
	for _, r := range sourceLine {
		if i >= column-1 {
			break
		}
		i++
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// RuntimeError is a raised exception as it propagates through the Go call
// stack: it carries the exception's class name (for catch matching and
// message formatting) and its line of origin. The evaluator's class
// hierarchy (internal/interp) wraps user exception instances in one of
// these when they cross the Go error boundary; `FromRuntime` below
// turns that into the public ErrorRecord shape.
type RuntimeError struct {
	ClassName string
	Message   string
	Line      int
	// Value, if non-nil, is the raised runtime value (an *interp.Instance
	// of an exception class) so except-clause class matching can inspect
	// it without this package importing interp.
	Value any
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.ClassName, e.Message)
}

// NewRuntimeError builds a RuntimeError for one of the built-in exception
// classes named in spec.md §4.8.
func NewRuntimeError(class string, line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{ClassName: class, Message: fmt.Sprintf(format, args...), Line: line}
}

// Raised constructs a RuntimeError naming one of the built-in exception
// classes, e.g. Raised("NameError", 12, "name %q is not defined", "x").
func Raised(class string, line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{ClassName: class, Message: fmt.Sprintf(format, args...), Line: line}
}

// ComputeTimeout is the distinguished, never-user-catchable timeout
// error from spec.md §5/§7.
type ComputeTimeout struct {
	Line int
}

func (e *ComputeTimeout) Error() string { return "computation exceeded the configured timeout" }

// NotImplementedFeature reports a deliberately unsupported language
// feature (spec.md §1/§7: async/await, exec/eval/compile, complex
// numbers, bytes literals) — it must never degrade into a NameError.
func NotImplementedFeature(line int, feature string) *RuntimeError {
	return Raised("NotImplementedError", line, "%s is not supported", feature)
}

// SyntaxErrorRecord converts a parser/lexer error list into the first
// ErrorRecord of kind "syntax", per spec.md §7 (parser surfaces kind=syntax).
// source is the original program text, carried along so a CLI consumer can
// render a source-line-and-caret via Caret(); pass "" if unavailable.
func SyntaxErrorRecord(pos lexer.Position, message, source string) *ErrorRecord {
	return &ErrorRecord{Kind: KindSyntax, ExceptionType: "SyntaxError", Message: message, Line: pos.Line, Column: pos.Column, Source: source}
}

// FromRuntime classifies a Go-level error into the public ErrorRecord
// shape used by pkg/quill's API verbs.
func FromRuntime(err error) *ErrorRecord {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *ErrorRecord:
		return e
	case *ComputeTimeout:
		return &ErrorRecord{Kind: KindTimeout, ExceptionType: "ComputeTimeout", Message: e.Error(), Line: e.Line}
	case *RuntimeError:
		kind := KindPython
		switch e.ClassName {
		case "ImportError", "ModuleNotFoundError":
			kind = KindImport
		case "IOError", "FileNotFoundError":
			kind = KindIO
		}
		return &ErrorRecord{Kind: kind, ExceptionType: e.ClassName, Message: e.Message, Line: e.Line}
	default:
		return &ErrorRecord{Kind: KindPython, ExceptionType: "RuntimeError", Message: err.Error()}
	}
}

// RouteNotFound builds the "no route matched" ErrorRecord from spec.md §4.9.
func RouteNotFound(method, path string) *ErrorRecord {
	return &ErrorRecord{
		Kind:    KindRouteMissing,
		Message: fmt.Sprintf("no route matched %s %s", method, path),
	}
}
