// Package ast defines the abstract syntax tree produced by the parser.
//
// Every node carries its source Position, per spec: error messages at
// every later stage (evaluator, dispatcher) cite a line number, and this
// is the only place that number can come from.
package ast

import "github.com/quill-lang/quill/internal/lexer"

// Node is implemented by every AST node.
type Node interface {
	Pos() lexer.Position
	String() string
}

// Statement is implemented by every statement-level node.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by every expression-level node.
type Expression interface {
	Node
	expressionNode()
}

// Module is the root of a parsed program: a flat list of top-level
// statements, as produced directly by the parser's entry point.
type Module struct {
	Body []Statement
}

func (m *Module) Pos() lexer.Position {
	if len(m.Body) > 0 {
		return m.Body[0].Pos()
	}
	return lexer.Position{Line: 1, Column: 1}
}

func (m *Module) String() string {
	out := ""
	for _, s := range m.Body {
		out += s.String() + "\n"
	}
	return out
}

// base embeds a source position into every concrete node below, so each
// node type only has to set it once in the parser's node constructor.
type base struct {
	pos lexer.Position
}

func (b base) Pos() lexer.Position { return b.pos }

func newBase(pos lexer.Position) base { return base{pos: pos} }
