package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// Repr renders v the way `repr()` would, breaking cycles via `seen`
// (spec.md §9: "Equality and repr must break cycles via a visited-set
// threaded through comparison and formatting"). Pass nil for a fresh
// top-level call; Repr allocates the set lazily so the common
// non-cyclic path costs nothing extra.
func Repr(v Value, seen map[any]bool) string {
	switch x := v.(type) {
	case NoneValue:
		return "None"
	case BoolValue:
		if x.Value {
			return "True"
		}
		return "False"
	case IntValue:
		return x.Value.String()
	case FloatValue:
		return formatFloat(x.Value)
	case StrValue:
		return reprString(string(x.Runes))
	case *ListValue:
		if seen == nil {
			seen = map[any]bool{}
		}
		if seen[x] {
			return "[...]"
		}
		seen[x] = true
		defer delete(seen, x)
		parts := make([]string, len(x.Elements))
		for i, e := range x.Elements {
			parts[i] = Repr(e, seen)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TupleValue:
		parts := make([]string, len(x.Elements))
		for i, e := range x.Elements {
			parts[i] = Repr(e, seen)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *DictValue:
		if seen == nil {
			seen = map[any]bool{}
		}
		if seen[x] {
			return "{...}"
		}
		seen[x] = true
		defer delete(seen, x)
		parts := make([]string, x.Len())
		for i, k := range x.keys {
			parts[i] = Repr(k, seen) + ": " + Repr(x.values[i], seen)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *SetValue:
		if x.Len() == 0 {
			return "set()"
		}
		parts := make([]string, x.Len())
		for i, k := range x.keys {
			parts[i] = Repr(k, seen)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *RangeValue:
		if x.Step.Cmp(bigOne) == 0 {
			return fmt.Sprintf("range(%s, %s)", x.Start, x.Stop)
		}
		return fmt.Sprintf("range(%s, %s, %s)", x.Start, x.Stop, x.Step)
	case *Function:
		return fmt.Sprintf("<function %s>", x.Def.Name)
	case *Lambda:
		return "<function <lambda>>"
	case *Builtin:
		return fmt.Sprintf("<built-in function %s>", x.Name)
	case *BoundMethod:
		return fmt.Sprintf("<bound method of %s>", Repr(x.Receiver, seen))
	case *Class:
		return fmt.Sprintf("<class '%s'>", x.Name)
	case *Instance:
		if repr, ok := lookupMethod(x.Class, "__repr__"); ok {
			_ = repr // invoked by the evaluator's reprOf wrapper, which has ctx access
		}
		return fmt.Sprintf("<%s object>", x.Class.Name)
	case *Generator:
		return "<generator object>"
	case *Iterator:
		return "<iterator object>"
	case *Module:
		return fmt.Sprintf("<module '%s'>", x.Name)
	default:
		return fmt.Sprintf("<%s>", TypeName(v))
	}
}

// Str renders v the way `str()` would: strings print unquoted, every
// other value falls back to Repr unless the evaluator's user-dunder-aware
// wrapper (strOf in fstrings.go) intercepts first for Instances with a
// __str__.
func Str(v Value) string {
	if s, ok := v.(StrValue); ok {
		return string(s.Runes)
	}
	return Repr(v, nil)
}

func reprString(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, "\"") {
		return strconv.Quote(s) // falls back to double quotes, matches source-language behaviour
	}
	q := "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s) + "'"
	return q
}
