package interp

import "github.com/quill-lang/quill/internal/ast"

// Function is a user-defined function value: spec.md §3 — parameter
// list with defaults/variadic/kw-variadic/annotations, body, closure
// environment, decorators already applied at Def-evaluation time.
//
// Defaults are evaluated once, at def-time, and stored here (not
// re-evaluated per call) — the usual source-language "mutable default
// argument" behaviour falls out of this for free.
type Function struct {
	Def      *ast.FuncDef
	Closure  *Environment
	Defaults []Value // evaluated positional defaults, aligned to the trailing Params.Positional
	KwDefaults map[string]Value
	Decorated Value // non-nil once decorators have wrapped the raw function
	DefiningClass *Class // the class a method was defined on, nil for a plain function; backs zero-arg super()
}

func (*Function) Type() string { return "function" }

// Lambda is a single-expression function value; represented with its
// own Go type (rather than reusing Function) because `repr()` and
// `type()` must report "function" for both while a Lambda's body is an
// Expression, not a Block.
type Lambda struct {
	Node    *ast.Lambda
	Closure *Environment
	Defaults []Value
}

func (*Lambda) Type() string { return "function" }

// BuiltinFunc is the Go implementation behind a Builtin value. kwargs is
// nil when the builtin is positional-only (spec.md §3: "two flavours").
type BuiltinFunc func(ctx *Context, args []Value, kwargs map[string]Value) (Value, error)

// Builtin wraps a native host callable.
type Builtin struct {
	Name      string
	Fn        BuiltinFunc
	KeywordAware bool
}

func (*Builtin) Type() string { return "builtin_function_or_method" }

func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

func NewBuiltinKw(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{Name: name, Fn: fn, KeywordAware: true}
}

// BoundMethod is an instance + function pair produced when a
// Function-valued class attribute is read through an instance (spec.md
// §4.4: "returned via an instance become BoundMethods that prepend
// self").
type BoundMethod struct {
	Receiver Value
	Func     Value // *Function, *Lambda, or *Builtin
}

func (*BoundMethod) Type() string { return "method" }

func NewBoundMethod(receiver, fn Value) *BoundMethod {
	return &BoundMethod{Receiver: receiver, Func: fn}
}
