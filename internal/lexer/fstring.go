package lexer

import "strings"

// FStringChunk is one piece of a split f-string: either a literal text
// run or the raw source of a single `{expr[!conv][:spec]}` interpolation.
type FStringChunk struct {
	Literal    string // valid when IsExpr is false
	IsExpr     bool
	Expr       string // raw expression source, valid when IsExpr is true
	Conversion byte   // 0, 'r', 's', or 'a' — from a trailing !r/!s/!a
	FormatSpec string // raw text after a ':', not further interpreted here
	Pos        Position
}

// SplitFString splits the raw inner text of an f-string token (as
// captured by Lexer.readString) into an ordered list of literal and
// interpolation chunks. "{{" and "}}" decode to literal "{" and "}".
//
// This is the lexer's half of the "composite token stream" the language
// describes for f-strings: rather than threading interpolation tokens
// through the main token stream (which would force the parser to juggle
// two grammars at once), splitting happens once, up front, and the
// parser recursively parses each Expr chunk's raw source with its own
// Lexer+Parser instance.
func SplitFString(raw string, base Position) ([]FStringChunk, error) {
	var chunks []FStringChunk
	var lit strings.Builder
	runes := []rune(raw)
	i := 0
	line, col := base.Line, base.Column

	flushLit := func() {
		if lit.Len() > 0 {
			chunks = append(chunks, FStringChunk{Literal: unescape(lit.String())})
			lit.Reset()
		}
	}

	advance := func() rune {
		r := runes[i]
		i++
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		return r
	}

	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '{' && i+1 < len(runes) && runes[i+1] == '{':
			lit.WriteRune('{')
			advance()
			advance()
		case r == '}' && i+1 < len(runes) && runes[i+1] == '}':
			lit.WriteRune('}')
			advance()
			advance()
		case r == '{':
			flushLit()
			exprPos := Position{Line: line, Column: col, Offset: base.Offset}
			advance()
			depth := 1
			var expr strings.Builder
			var spec strings.Builder
			var conv byte
			inSpec := false
			for i < len(runes) && depth > 0 {
				c := runes[i]
				if c == '{' {
					depth++
				} else if c == '}' {
					depth--
					if depth == 0 {
						advance()
						break
					}
				}
				if depth == 1 && !inSpec && c == '!' && i+1 < len(runes) && isConversionLetter(runes[i+1]) && (i+2 >= len(runes) || runes[i+2] == ':' || runes[i+2] == '}') {
					conv = byte(runes[i+1])
					advance()
					advance()
					continue
				}
				if depth == 1 && !inSpec && c == ':' {
					inSpec = true
					advance()
					continue
				}
				if inSpec {
					spec.WriteRune(c)
				} else {
					expr.WriteRune(c)
				}
				advance()
			}
			if depth != 0 {
				return nil, newError(exprPos, "unterminated f-string expression")
			}
			chunks = append(chunks, FStringChunk{
				IsExpr: true, Expr: strings.TrimSpace(expr.String()),
				Conversion: conv, FormatSpec: spec.String(), Pos: exprPos,
			})
		case r == '}':
			return nil, newError(Position{Line: line, Column: col, Offset: base.Offset}, "single '}' is not allowed in an f-string")
		default:
			lit.WriteRune(r)
			advance()
		}
	}
	flushLit()
	return chunks, nil
}

func isConversionLetter(r rune) bool { return r == 'r' || r == 's' || r == 'a' }
