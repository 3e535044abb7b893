package ast

import (
	"fmt"
	"strings"

	"github.com/quill-lang/quill/internal/lexer"
)

func (*NoneLit) expressionNode()       {}
func (*BoolLit) expressionNode()       {}
func (*IntLit) expressionNode()        {}
func (*FloatLit) expressionNode()      {}
func (*StrLit) expressionNode()        {}
func (*BytesLit) expressionNode()      {}
func (*ImaginaryLit) expressionNode()  {}
func (*FString) expressionNode()       {}
func (*Name) expressionNode()          {}
func (*BinOp) expressionNode()         {}
func (*UnaryOp) expressionNode()       {}
func (*BoolOp) expressionNode()        {}
func (*Compare) expressionNode()       {}
func (*ChainedCompare) expressionNode() {}
func (*Call) expressionNode()          {}
func (*Attr) expressionNode()          {}
func (*Subscript) expressionNode()     {}
func (*Slice) expressionNode()         {}
func (*ListExpr) expressionNode()      {}
func (*TupleExpr) expressionNode()     {}
func (*SetExpr) expressionNode()       {}
func (*DictExpr) expressionNode()      {}
func (*ListComp) expressionNode()      {}
func (*DictComp) expressionNode()      {}
func (*SetComp) expressionNode()       {}
func (*GenExpr) expressionNode()       {}
func (*Lambda) expressionNode()        {}
func (*Ternary) expressionNode()       {}
func (*Walrus) expressionNode()        {}
func (*Yield) expressionNode()         {}
func (*YieldFrom) expressionNode()     {}
func (*Starred) expressionNode()       {}
func (*DoubleStarred) expressionNode() {}

// NoneLit is the `None` literal.
type NoneLit struct {
	base
}

func NewNoneLit(pos lexer.Position) *NoneLit { return &NoneLit{newBase(pos)} }
func (n *NoneLit) String() string            { return "None" }

// BoolLit is `True` or `False`.
type BoolLit struct {
	base
	Value bool
}

func NewBoolLit(pos lexer.Position, v bool) *BoolLit { return &BoolLit{newBase(pos), v} }
func (b *BoolLit) String() string {
	if b.Value {
		return "True"
	}
	return "False"
}

// IntLit is an arbitrary-precision integer literal; Text preserves the
// original source spelling (including base prefix / underscores) so the
// evaluator can parse it with big.Int with the right base.
type IntLit struct {
	base
	Text string
}

func NewIntLit(pos lexer.Position, text string) *IntLit { return &IntLit{newBase(pos), text} }
func (i *IntLit) String() string                        { return i.Text }

// FloatLit is a floating-point literal.
type FloatLit struct {
	base
	Value float64
}

func NewFloatLit(pos lexer.Position, v float64) *FloatLit { return &FloatLit{newBase(pos), v} }
func (f *FloatLit) String() string                        { return fmt.Sprintf("%g", f.Value) }

// StrLit is a (possibly multi-line) string literal with escapes already
// resolved by the lexer.
type StrLit struct {
	base
	Value string
}

func NewStrLit(pos lexer.Position, v string) *StrLit { return &StrLit{newBase(pos), v} }
func (s *StrLit) String() string                     { return fmt.Sprintf("%q", s.Value) }

// BytesLit is a `b"..."` literal. Quill parses it but the evaluator
// always rejects it with NotImplementedError ("bytes literals not
// supported"), per spec.
type BytesLit struct {
	base
	Value string
}

func NewBytesLit(pos lexer.Position, v string) *BytesLit { return &BytesLit{newBase(pos), v} }
func (b *BytesLit) String() string                       { return fmt.Sprintf("b%q", b.Value) }

// ImaginaryLit is a `3j`-style literal. Always rejected by the evaluator
// with NotImplementedError ("complex numbers not supported").
type ImaginaryLit struct {
	base
	Text string
}

func NewImaginaryLit(pos lexer.Position, text string) *ImaginaryLit {
	return &ImaginaryLit{newBase(pos), text}
}
func (i *ImaginaryLit) String() string { return i.Text + "j" }

// FStringPart is one chunk of a parsed f-string.
type FStringPart struct {
	Literal    string
	IsExpr     bool
	Expr       Expression
	Conversion byte
	FormatSpec []FStringPart // nested, since format specs may themselves interpolate
}

// FString is an f-string: literal text and interpolated sub-expressions
// in source order.
type FString struct {
	base
	Parts []FStringPart
}

func NewFString(pos lexer.Position, parts []FStringPart) *FString {
	return &FString{newBase(pos), parts}
}
func (f *FString) String() string {
	var sb strings.Builder
	sb.WriteString("f\"")
	for _, p := range f.Parts {
		if p.IsExpr {
			sb.WriteString("{")
			sb.WriteString(p.Expr.String())
			sb.WriteString("}")
		} else {
			sb.WriteString(p.Literal)
		}
	}
	sb.WriteString("\"")
	return sb.String()
}

// Name is an identifier reference.
type Name struct {
	base
	Value string
}

func NewName(pos lexer.Position, v string) *Name { return &Name{newBase(pos), v} }
func (n *Name) String() string                   { return n.Value }

// BinOp is a binary arithmetic/bitwise operator expression.
type BinOp struct {
	base
	Op       string
	Left     Expression
	Right    Expression
}

func NewBinOp(pos lexer.Position, op string, l, r Expression) *BinOp {
	return &BinOp{newBase(pos), op, l, r}
}
func (b *BinOp) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

// UnaryOp is a prefix unary operator expression (`-x`, `+x`, `~x`, `not x`).
type UnaryOp struct {
	base
	Op      string
	Operand Expression
}

func NewUnaryOp(pos lexer.Position, op string, operand Expression) *UnaryOp {
	return &UnaryOp{newBase(pos), op, operand}
}
func (u *UnaryOp) String() string { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }

// BoolOp is a short-circuiting `and`/`or` chain over 2+ operands.
type BoolOp struct {
	base
	Op     string // "and" | "or"
	Values []Expression
}

func NewBoolOp(pos lexer.Position, op string, values []Expression) *BoolOp {
	return &BoolOp{newBase(pos), op, values}
}
func (b *BoolOp) String() string {
	parts := make([]string, len(b.Values))
	for i, v := range b.Values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, " "+b.Op+" ") + ")"
}

// Compare is a single binary comparison (a restricted case of
// ChainedCompare with exactly one operator, kept separate because it is
// by far the common case and simpler for the evaluator to special-case).
type Compare struct {
	base
	Op    string
	Left  Expression
	Right Expression
}

func NewCompare(pos lexer.Position, op string, l, r Expression) *Compare {
	return &Compare{newBase(pos), op, l, r}
}
func (c *Compare) String() string { return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right) }

// ChainedCompare represents `a < b < c`-style chains: Operands has one
// more element than Ops, and evaluation short-circuits on the first
// false comparison.
type ChainedCompare struct {
	base
	Operands []Expression
	Ops      []string
}

func NewChainedCompare(pos lexer.Position, operands []Expression, ops []string) *ChainedCompare {
	return &ChainedCompare{newBase(pos), operands, ops}
}
func (c *ChainedCompare) String() string {
	var sb strings.Builder
	sb.WriteString(c.Operands[0].String())
	for i, op := range c.Ops {
		sb.WriteString(" " + op + " " + c.Operands[i+1].String())
	}
	return sb.String()
}

// Call is a function/method/class call expression.
type Call struct {
	base
	Func     Expression
	Args     []Expression // may include *Starred for unpacking
	Keywords []Keyword
}

// Keyword is one `name=value` call argument, or `**value` when Name == ""
// and the value is wrapped in a *DoubleStarred by the parser.
type Keyword struct {
	Name  string
	Value Expression
}

func NewCall(pos lexer.Position, fn Expression, args []Expression, kw []Keyword) *Call {
	return &Call{newBase(pos), fn, args, kw}
}
func (c *Call) String() string {
	parts := make([]string, 0, len(c.Args)+len(c.Keywords))
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	for _, k := range c.Keywords {
		if k.Name == "" {
			parts = append(parts, k.Value.String())
		} else {
			parts = append(parts, k.Name+"="+k.Value.String())
		}
	}
	return fmt.Sprintf("%s(%s)", c.Func, strings.Join(parts, ", "))
}

// Attr is `value.Name` attribute access.
type Attr struct {
	base
	Value Expression
	Name  string
}

func NewAttr(pos lexer.Position, v Expression, name string) *Attr {
	return &Attr{newBase(pos), v, name}
}
func (a *Attr) String() string { return fmt.Sprintf("%s.%s", a.Value, a.Name) }

// Subscript is `value[index]`.
type Subscript struct {
	base
	Value Expression
	Index Expression // may be a *Slice
}

func NewSubscript(pos lexer.Position, v, idx Expression) *Subscript {
	return &Subscript{newBase(pos), v, idx}
}
func (s *Subscript) String() string { return fmt.Sprintf("%s[%s]", s.Value, s.Index) }

// Slice is `start:stop:step`, any part of which may be nil.
type Slice struct {
	base
	Start, Stop, Step Expression
}

func NewSlice(pos lexer.Position, start, stop, step Expression) *Slice {
	return &Slice{newBase(pos), start, stop, step}
}
func (s *Slice) String() string {
	part := func(e Expression) string {
		if e == nil {
			return ""
		}
		return e.String()
	}
	return fmt.Sprintf("%s:%s:%s", part(s.Start), part(s.Stop), part(s.Step))
}

// ListExpr is a `[a, b, c]` literal.
type ListExpr struct {
	base
	Elements []Expression
}

func NewListExpr(pos lexer.Position, els []Expression) *ListExpr { return &ListExpr{newBase(pos), els} }
func (l *ListExpr) String() string                               { return bracket("[", l.Elements, "]") }

// TupleExpr is a `(a, b, c)` literal.
type TupleExpr struct {
	base
	Elements []Expression
}

func NewTupleExpr(pos lexer.Position, els []Expression) *TupleExpr {
	return &TupleExpr{newBase(pos), els}
}
func (t *TupleExpr) String() string { return bracket("(", t.Elements, ")") }

// SetExpr is a `{a, b, c}` literal (non-empty; `{}` parses as a dict).
type SetExpr struct {
	base
	Elements []Expression
}

func NewSetExpr(pos lexer.Position, els []Expression) *SetExpr { return &SetExpr{newBase(pos), els} }
func (s *SetExpr) String() string                              { return bracket("{", s.Elements, "}") }

// DictExpr is a `{k: v, ...}` literal. A nil key with a DoubleStarred
// value represents `**other` merge syntax.
type DictExpr struct {
	base
	Keys   []Expression
	Values []Expression
}

func NewDictExpr(pos lexer.Position, keys, values []Expression) *DictExpr {
	return &DictExpr{newBase(pos), keys, values}
}
func (d *DictExpr) String() string {
	parts := make([]string, len(d.Keys))
	for i := range d.Keys {
		if d.Keys[i] == nil {
			parts[i] = "**" + d.Values[i].String()
		} else {
			parts[i] = d.Keys[i].String() + ": " + d.Values[i].String()
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// CompClause is one `for x in it` or `if cond` clause of a comprehension,
// in source order; For is nil for an `if` clause.
type CompClause struct {
	For  Expression // target (Name, TupleExpr, ...), nil for a filter clause
	Iter Expression // nil for a filter clause
	If   Expression // nil for a for-clause
}

// ListComp is `[expr for ... ]`.
type ListComp struct {
	base
	Elt     Expression
	Clauses []CompClause
}

func NewListComp(pos lexer.Position, elt Expression, clauses []CompClause) *ListComp {
	return &ListComp{newBase(pos), elt, clauses}
}
func (l *ListComp) String() string { return "[" + compString(l.Elt, l.Clauses) + "]" }

// SetComp is `{expr for ...}`.
type SetComp struct {
	base
	Elt     Expression
	Clauses []CompClause
}

func NewSetComp(pos lexer.Position, elt Expression, clauses []CompClause) *SetComp {
	return &SetComp{newBase(pos), elt, clauses}
}
func (s *SetComp) String() string { return "{" + compString(s.Elt, s.Clauses) + "}" }

// DictComp is `{k: v for ...}`.
type DictComp struct {
	base
	Key, Value Expression
	Clauses    []CompClause
}

func NewDictComp(pos lexer.Position, k, v Expression, clauses []CompClause) *DictComp {
	return &DictComp{newBase(pos), k, v, clauses}
}
func (d *DictComp) String() string {
	return "{" + d.Key.String() + ": " + d.Value.String() + compSuffix(d.Clauses) + "}"
}

// GenExpr is `(expr for ...)`, producing a lazy Generator at evaluation.
type GenExpr struct {
	base
	Elt     Expression
	Clauses []CompClause
}

func NewGenExpr(pos lexer.Position, elt Expression, clauses []CompClause) *GenExpr {
	return &GenExpr{newBase(pos), elt, clauses}
}
func (g *GenExpr) String() string { return "(" + compString(g.Elt, g.Clauses) + ")" }

func compString(elt Expression, clauses []CompClause) string {
	return elt.String() + compSuffix(clauses)
}

func compSuffix(clauses []CompClause) string {
	var sb strings.Builder
	for _, c := range clauses {
		if c.For != nil {
			sb.WriteString(fmt.Sprintf(" for %s in %s", c.For, c.Iter))
		} else {
			sb.WriteString(fmt.Sprintf(" if %s", c.If))
		}
	}
	return sb.String()
}

// Lambda is a single-expression anonymous function.
type Lambda struct {
	base
	Params *Params
	Body   Expression
}

func NewLambda(pos lexer.Position, params *Params, body Expression) *Lambda {
	return &Lambda{newBase(pos), params, body}
}
func (l *Lambda) String() string { return fmt.Sprintf("lambda %s: %s", l.Params, l.Body) }

// Ternary is `a if cond else b`.
type Ternary struct {
	base
	Cond, Then, Else Expression
}

func NewTernary(pos lexer.Position, cond, then, els Expression) *Ternary {
	return &Ternary{newBase(pos), cond, then, els}
}
func (t *Ternary) String() string { return fmt.Sprintf("(%s if %s else %s)", t.Then, t.Cond, t.Else) }

// Walrus is `name := expr`.
type Walrus struct {
	base
	Target *Name
	Value  Expression
}

func NewWalrus(pos lexer.Position, target *Name, value Expression) *Walrus {
	return &Walrus{newBase(pos), target, value}
}
func (w *Walrus) String() string { return fmt.Sprintf("(%s := %s)", w.Target, w.Value) }

// Yield is `yield [value]`.
type Yield struct {
	base
	Value Expression // nil for bare `yield`
}

func NewYield(pos lexer.Position, v Expression) *Yield { return &Yield{newBase(pos), v} }
func (y *Yield) String() string {
	if y.Value == nil {
		return "yield"
	}
	return "yield " + y.Value.String()
}

// YieldFrom is `yield from iterable`.
type YieldFrom struct {
	base
	Value Expression
}

func NewYieldFrom(pos lexer.Position, v Expression) *YieldFrom { return &YieldFrom{newBase(pos), v} }
func (y *YieldFrom) String() string                            { return "yield from " + y.Value.String() }

// Starred is `*expr`, used in call arguments, assignment targets, and
// sequence/list/tuple literals.
type Starred struct {
	base
	Value Expression
}

func NewStarred(pos lexer.Position, v Expression) *Starred { return &Starred{newBase(pos), v} }
func (s *Starred) String() string                          { return "*" + s.Value.String() }

// DoubleStarred is `**expr`, used in call arguments and dict literals.
type DoubleStarred struct {
	base
	Value Expression
}

func NewDoubleStarred(pos lexer.Position, v Expression) *DoubleStarred {
	return &DoubleStarred{newBase(pos), v}
}
func (d *DoubleStarred) String() string { return "**" + d.Value.String() }

func bracket(open string, els []Expression, close string) string {
	parts := make([]string, len(els))
	for i, e := range els {
		parts[i] = e.String()
	}
	return open + strings.Join(parts, ", ") + close
}
