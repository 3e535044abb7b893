// Package interp is the tree-walking evaluator for Quill: values,
// environments, classes, generators, exceptions, the execution context,
// and the built-in standard-library registration surface (spec.md §3-§4).
package interp

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Value is the tagged-variant runtime value every expression evaluates
// to. Unlike an interface{}-based evaluator, each concrete Value type
// below is a distinct Go type so a type switch in the evaluator is
// exhaustive and the compiler catches missing cases when a new Value
// kind is added — the same discipline the teacher interpreter's Value
// interface enforces (internal/interp/value.go in the teacher repo).
type Value interface {
	// Type returns the kind name used in TypeError messages
	// ("'int' object has no attribute 'foo'").
	Type() string
}

// Stringer is implemented by values with a `str()`-style rendering that
// differs from Repr (most container/compound values do not implement
// it directly; str() falls back to Repr unless a __str__ dunder exists).
type Stringer interface {
	Str() string
}

// None is the singleton null value.
type NoneValue struct{}

func (NoneValue) Type() string { return "NoneType" }

// None is the single shared instance of NoneValue; comparisons and
// identity checks (`is None`) rely on there being exactly one.
var None = NoneValue{}

// Bool wraps a boolean. Per spec.md §9 ("True == 1 must remain true"),
// Bool is numerically compatible with Int in arithmetic and comparisons
// — the evaluator widens a Bool to Int(0/1) whenever it appears in a
// numeric context, rather than giving Bool its own arithmetic rules.
type BoolValue struct{ Value bool }

func (BoolValue) Type() string { return "bool" }

var (
	True  = BoolValue{true}
	False = BoolValue{false}
)

func Bool(b bool) BoolValue {
	if b {
		return True
	}
	return False
}

// Int is an arbitrary-precision integer, per spec.md §3 ("Int
// (arbitrary-precision)"). Backed by math/big so there is no silent
// overflow anywhere arithmetic touches it.
type IntValue struct{ Value *big.Int }

func (IntValue) Type() string { return "int" }

func NewInt(i int64) IntValue { return IntValue{big.NewInt(i)} }

func ParseInt(text string) (IntValue, error) {
	clean := strings.ReplaceAll(text, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		base, clean = 16, clean[2:]
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		base, clean = 8, clean[2:]
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		base, clean = 2, clean[2:]
	}
	n, ok := new(big.Int).SetString(clean, base)
	if !ok {
		return IntValue{}, fmt.Errorf("invalid integer literal %q", text)
	}
	return IntValue{n}, nil
}

// Float is an IEEE-754 double; +inf/-inf/nan are representable (spec.md
// §3), so ordinary float64 semantics (no panics on 1.0/0.0) are used
// throughout rather than guarding against them.
type FloatValue struct{ Value float64 }

func (FloatValue) Type() string { return "float" }

func NewFloat(f float64) FloatValue { return FloatValue{f} }

// Str is Unicode text, indexed by code point per spec.md §3. Runes is
// the canonical representation; Go's string (UTF-8 bytes) would make
// O(1) code-point indexing impossible, so every Str-producing path
// (literals, concatenation, slicing) goes through NewStr/runes.
type StrValue struct{ Runes []rune }

func (StrValue) Type() string { return "str" }

func NewStr(s string) StrValue { return StrValue{[]rune(s)} }

func (s StrValue) String() string { return string(s.Runes) }

func (s StrValue) Len() int { return len(s.Runes) }

// List is ordered, mutable, heterogeneous (spec.md §3). It is always
// handled through a pointer so in-place mutation (append, __setitem__,
// sort) is visible to every alias, matching source-language reference
// semantics for mutable containers.
type ListValue struct{ Elements []Value }

func NewList(elems ...Value) *ListValue { return &ListValue{Elements: elems} }

func (*ListValue) Type() string { return "list" }

// Tuple is ordered and immutable.
type TupleValue struct{ Elements []Value }

func (TupleValue) Type() string { return "tuple" }

func NewTuple(elems ...Value) TupleValue { return TupleValue{elems} }

// numericBool widens a Bool to an Int(0/1), the one place Bool and Int
// share a representation, so arithmetic/comparison code only has to
// handle Int and Float.
func numericBool(b BoolValue) IntValue {
	if b.Value {
		return NewInt(1)
	}
	return NewInt(0)
}

// AsNumeric returns v as either IntValue or FloatValue, widening Bool,
// or ok=false if v is not numeric.
func AsNumeric(v Value) (Value, bool) {
	switch x := v.(type) {
	case IntValue:
		return x, true
	case FloatValue:
		return x, true
	case BoolValue:
		return numericBool(x), true
	default:
		return nil, false
	}
}

// Truthy implements the source language's notion of truthiness for
// built-in values. It does not consult dunders: every Instance is truthy
// here, and the evaluator's ip.truthy checks `__bool__`/`__len__` first.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case NoneValue:
		return false
	case BoolValue:
		return x.Value
	case IntValue:
		return x.Value.Sign() != 0
	case FloatValue:
		return x.Value != 0
	case StrValue:
		return len(x.Runes) > 0
	case *ListValue:
		return len(x.Elements) > 0
	case TupleValue:
		return len(x.Elements) > 0
	case *DictValue:
		return x.Len() > 0
	case *SetValue:
		return x.Len() > 0
	case *RangeValue:
		return x.Len() > 0
	default:
		return true
	}
}

// TypeName reports the spec-visible type name for error messages
// ("'int' object has no attribute 'foo'").
func TypeName(v Value) string {
	if v == nil {
		return "NoneType"
	}
	return v.Type()
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
