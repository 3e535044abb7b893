// Package parser turns a token stream from internal/lexer into the AST
// defined by internal/ast.
//
// The parser is a Pratt/recursive-descent parser in the idiom of the
// teacher DWScript parser: it never panics on malformed input, it always
// produces a *Error naming the offending line and a human expectation
// ("expected ':'") rather than a raw token name, and on error it
// continues parsing (collecting further errors) rather than aborting, so
// callers can report every syntax problem in a file at once if they want.
package parser

import (
	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/lexer"
)

// Parser consumes a token stream and builds an AST.
type Parser struct {
	lex  *lexer.Lexer
	toks []lexer.Token
	pos  int
	errs []*Error
}

// New creates a Parser over src. The entire token stream is buffered up
// front (scripts are small enough that streaming tokenization buys
// nothing here, and buffering makes arbitrary lookahead trivial for
// things like disambiguating `match` as a soft keyword).
func New(src string) *Parser {
	l := lexer.New(src)
	p := &Parser{lex: l}
	for {
		tok := l.NextToken()
		p.toks = append(p.toks, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}
	for _, lerr := range l.Errors() {
		p.errs = append(p.errs, &Error{Message: lerr.Message, Pos: lerr.Pos})
	}
	return p
}

// ParseModule parses an entire program.
func ParseModule(src string) (*ast.Module, []*Error) {
	p := New(src)
	mod := &ast.Module{}
	for !p.atEOF() {
		p.skipNewlines()
		if p.atEOF() {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			mod.Body = append(mod.Body, stmt)
		}
	}
	return mod, p.errs
}

// Errors returns every syntax error collected while parsing.
func (p *Parser) Errors() []*Error { return p.errs }

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) next() lexer.Token {
	tok := p.cur()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}
func (p *Parser) atEOF() bool { return p.cur().Type == lexer.EOF }

func (p *Parser) at(t lexer.TokenType) bool { return p.cur().Type == t }

func (p *Parser) accept(t lexer.TokenType) (lexer.Token, bool) {
	if p.at(t) {
		return p.next(), true
	}
	return lexer.Token{}, false
}

// expect consumes a token of type t, reporting name (a human phrase, not
// the raw token type) on mismatch, and performs minimal error recovery
// by not advancing past the offending token so the caller's enclosing
// loop can resynchronize.
func (p *Parser) expect(t lexer.TokenType, name string) lexer.Token {
	if p.at(t) {
		return p.next()
	}
	p.errorf("expected %s", name)
	return p.cur()
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, newError(p.cur().Pos, format, args...))
}

func (p *Parser) skipNewlines() {
	for p.at(lexer.NEWLINE) || p.at(lexer.SEMICOLON) {
		p.next()
	}
}

// isSoftKeyword reports whether the current IDENT token, spelled word,
// is acting as the soft keyword "match" or "case" in statement-leading
// position: only true when it is immediately followed by tokens that
// could begin a subject/pattern and eventually a ':' before the next
// NEWLINE. We use a simpler, sufficient rule per spec: `match`/`case`
// are keywords only in statement-leading position; `match = 5` parses
// as assignment because the token after `match` is `=`, not an
// expression-starting token.
func (p *Parser) isSoftKeyword(word string) bool {
	if p.cur().Type != lexer.IDENT || p.cur().Literal != word {
		return false
	}
	nxt := p.peekN(1).Type
	switch nxt {
	case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ,
		lexer.DSLASHEQ, lexer.PERCENTEQ, lexer.DSTAREQ, lexer.AMPEQ, lexer.PIPEEQ,
		lexer.CARETEQ, lexer.LSHIFTEQ, lexer.RSHIFTEQ, lexer.DOT, lexer.LPAREN,
		lexer.LBRACKET, lexer.COMMA, lexer.NEWLINE, lexer.EOF, lexer.COLON:
		return false
	default:
		return true
	}
}
