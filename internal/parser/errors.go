package parser

import (
	"fmt"

	"github.com/quill-lang/quill/internal/lexer"
)

// Error is a syntax error tied to a source line. Message is always
// phrased in source-language terms ("expected ':'", "expected an
// expression") — raw token type names are never surfaced to the user.
type Error struct {
	Message string
	Pos     lexer.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at line %d", e.Message, e.Pos.Line)
}

func newError(pos lexer.Position, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}
