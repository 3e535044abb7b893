package interp

import (
	"fmt"

	"github.com/quill-lang/quill/internal/errors"
)

// Raised is how an in-flight exception propagates through Go's call
// stack (spec.md §9: "Model as non-local returns with an exception
// payload"). It implements error so every evaluator function can return
// it through an ordinary (Value, error) or (control, error) signature —
// exactly the "explicit error returns" idiom, just used for a
// source-language exception instead of a host-level failure.
type Raised struct {
	Instance *Instance // always non-nil once raised
	Line     int
}

func (r *Raised) Error() string {
	msg := exceptionMessage(r.Instance)
	return fmt.Sprintf("%s: %s", r.Instance.Class.Name, msg)
}

// exceptionMessage renders `args` per spec.md §4.8 ("comma-joined
// rendering; one-arg case: just that value").
func exceptionMessage(inst *Instance) string {
	argsVal, ok := inst.Attrs["args"]
	if !ok {
		return ""
	}
	tup, ok := argsVal.(TupleValue)
	if !ok || len(tup.Elements) == 0 {
		return ""
	}
	if len(tup.Elements) == 1 {
		return reprOrStr(tup.Elements[0])
	}
	out := ""
	for i, a := range tup.Elements {
		if i > 0 {
			out += ", "
		}
		out += reprOrStr(a)
	}
	return out
}

func reprOrStr(v Value) string {
	if s, ok := v.(StrValue); ok {
		return string(s.Runes)
	}
	return Repr(v, nil)
}

// builtinExceptionSpecs is the closed taxonomy from spec.md §4.8, in
// (name, baseName) pairs so subclass relationships (ModuleNotFoundError
// < ImportError, FileNotFoundError < IOError, IndentationError <
// SyntaxError) are preserved the way the source language defines them.
var builtinExceptionSpecs = []struct{ name, base string }{
	{"Exception", ""},
	{"TypeError", "Exception"},
	{"ValueError", "Exception"},
	{"NameError", "Exception"},
	{"UnboundLocalError", "NameError"},
	{"AttributeError", "Exception"},
	{"IndexError", "Exception"},
	{"KeyError", "Exception"},
	{"ZeroDivisionError", "Exception"},
	{"RuntimeError", "Exception"},
	{"NotImplementedError", "RuntimeError"},
	{"StopIteration", "Exception"},
	{"OverflowError", "Exception"},
	{"RecursionError", "RuntimeError"},
	{"AssertionError", "Exception"},
	{"ImportError", "Exception"},
	{"ModuleNotFoundError", "ImportError"},
	{"IOError", "Exception"},
	{"FileNotFoundError", "IOError"},
	{"SyntaxError", "Exception"},
	{"IndentationError", "SyntaxError"},
}

// BuiltinExceptionClasses builds the exception-class hierarchy once per
// Environment, used as the base classes available to every script and
// as the catch-class universe for `except` matching.
func BuiltinExceptionClasses() map[string]*Class {
	classes := make(map[string]*Class, len(builtinExceptionSpecs))
	for _, spec := range builtinExceptionSpecs {
		var bases []*Class
		if spec.base != "" {
			bases = []*Class{classes[spec.base]}
		}
		c, err := NewClass(spec.name, bases, map[string]Value{})
		if err != nil {
			panic(err) // the fixed taxonomy above is always linearizable
		}
		classes[spec.name] = c
	}
	return classes
}

// NewException constructs an Instance of class c with the given args
// tuple, the shape every `raise ExcClass(...)` and host-raised error
// produces.
func NewException(c *Class, args ...Value) *Instance {
	inst := NewInstance(c)
	inst.Attrs["args"] = NewTuple(args...)
	return inst
}

// raise is the common helper evaluator code calls to build a *Raised for
// one of the built-in exception classes.
func raise(classes map[string]*Class, line int, className, format string, args ...any) *Raised {
	c, ok := classes[className]
	if !ok {
		c, _ = NewClass(className, nil, map[string]Value{})
	}
	msg := fmt.Sprintf(format, args...)
	return &Raised{Instance: NewException(c, NewStr(msg)), Line: line}
}

// ExceptMatches reports whether a raised instance's class is `target` or
// any transitive subclass, per spec.md §4.3 ("an except T matches if the
// raised class is T or any transitive subclass").
func ExceptMatches(raisedClass, target *Class) bool {
	return classIsSubclass(raisedClass, target)
}

// ToErrorRecord converts an uncaught Raised into the public ErrorRecord
// shape (spec.md §6/§7).
func (r *Raised) ToErrorRecord() *errors.ErrorRecord {
	kind := errors.KindPython
	switch r.Instance.Class.Name {
	case "ImportError", "ModuleNotFoundError":
		kind = errors.KindImport
	case "IOError", "FileNotFoundError":
		kind = errors.KindIO
	case "SyntaxError", "IndentationError":
		kind = errors.KindSyntax
	}
	return &errors.ErrorRecord{
		Kind:          kind,
		ExceptionType: r.Instance.Class.Name,
		Message:       exceptionMessage(r.Instance),
		Line:          r.Line,
	}
}
