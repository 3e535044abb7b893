package interp

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stringMethodAttr resolves `someStr.method`, returning a Builtin closure
// over the receiver (the source-language str type's built-in methods are
// not user-overridable, so they never need dunder dispatch). Casing
// transforms are delegated to golang.org/x/text/cases for Unicode-correct
// behaviour, per SPEC_FULL's domain-stack wiring rather than
// strings.ToUpper's ASCII-biased simple case folding.
func (ip *Interp) stringMethodAttr(s StrValue, name string, line int) (Value, error) {
	text := string(s.Runes)
	switch name {
	case "upper":
		return method0(func() Value { return NewStr(cases.Upper(language.Und).String(text)) }), nil
	case "lower":
		return method0(func() Value { return NewStr(cases.Lower(language.Und).String(text)) }), nil
	case "title":
		return method0(func() Value { return NewStr(cases.Title(language.Und).String(text)) }), nil
	case "capitalize":
		return method0(func() Value {
			if text == "" {
				return s
			}
			r := []rune(strings.ToLower(text))
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
			return NewStr(string(r))
		}), nil
	case "strip":
		return methodOptStr(func(arg string, has bool) Value {
			if has {
				return NewStr(strings.Trim(text, arg))
			}
			return NewStr(strings.TrimSpace(text))
		}), nil
	case "lstrip":
		return methodOptStr(func(arg string, has bool) Value {
			if has {
				return NewStr(strings.TrimLeft(text, arg))
			}
			return NewStr(strings.TrimLeft(text, " \t\n\r"))
		}), nil
	case "rstrip":
		return methodOptStr(func(arg string, has bool) Value {
			if has {
				return NewStr(strings.TrimRight(text, arg))
			}
			return NewStr(strings.TrimRight(text, " \t\n\r"))
		}), nil
	case "split":
		return NewBuiltin("split", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			var parts []string
			if len(args) == 0 {
				parts = strings.Fields(text)
			} else {
				sep, ok := args[0].(StrValue)
				if !ok {
					return nil, raise(ip.Classes, line, "TypeError", "split() argument must be str")
				}
				parts = strings.Split(text, string(sep.Runes))
			}
			out := make([]Value, len(parts))
			for i, p := range parts {
				out[i] = NewStr(p)
			}
			return NewList(out...), nil
		}), nil
	case "join":
		return NewBuiltin("join", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if len(args) != 1 {
				return nil, raise(ip.Classes, line, "TypeError", "join() takes exactly one argument")
			}
			items, err := ip.iterableToSlice(args[0], line)
			if err != nil {
				return nil, err
			}
			strs := make([]string, len(items))
			for i, v := range items {
				sv, ok := v.(StrValue)
				if !ok {
					return nil, raise(ip.Classes, line, "TypeError", "sequence item %d: expected str instance, %s found", i, TypeName(v))
				}
				strs[i] = string(sv.Runes)
			}
			return NewStr(strings.Join(strs, text)), nil
		}), nil
	case "replace":
		return NewBuiltin("replace", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if len(args) < 2 {
				return nil, raise(ip.Classes, line, "TypeError", "replace() takes at least 2 arguments")
			}
			old, _ := args[0].(StrValue)
			newS, _ := args[1].(StrValue)
			n := -1
			if len(args) > 2 {
				if iv, ok := args[2].(IntValue); ok {
					n = int(iv.Value.Int64())
				}
			}
			return NewStr(strings.Replace(text, string(old.Runes), string(newS.Runes), n)), nil
		}), nil
	case "startswith":
		return method1Str(func(arg string) Value { return Bool(strings.HasPrefix(text, arg)) }), nil
	case "endswith":
		return method1Str(func(arg string) Value { return Bool(strings.HasSuffix(text, arg)) }), nil
	case "find":
		return method1Str(func(arg string) Value { return NewInt(int64(runeIndex(text, arg))) }), nil
	case "index":
		return NewBuiltin("index", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			sub, _ := args[0].(StrValue)
			i := runeIndex(text, string(sub.Runes))
			if i < 0 {
				return nil, raise(ip.Classes, line, "ValueError", "substring not found")
			}
			return NewInt(int64(i)), nil
		}), nil
	case "isdigit":
		return method0(func() Value { return Bool(text != "" && isAll(text, isDigitRune)) }), nil
	case "isalpha":
		return method0(func() Value { return Bool(text != "" && isAll(text, isAlphaRune)) }), nil
	case "isspace":
		return method0(func() Value { return Bool(text != "" && isAll(text, isSpaceRune)) }), nil
	case "count":
		return method1Str(func(arg string) Value { return NewInt(int64(strings.Count(text, arg))) }), nil
	case "format":
		return NewBuiltin("format", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			s, err := ip.formatTemplate(text, args, kw, line)
			if err != nil {
				return nil, err
			}
			return NewStr(s), nil
		}), nil
	case "encode":
		return nil, raise(ip.Classes, line, "NotImplementedError", "bytes encoding is not supported")
	}
	return nil, raise(ip.Classes, line, "AttributeError", "'str' object has no attribute '%s'", name)
}

func runeIndex(s, sub string) int {
	byteIdx := strings.Index(s, sub)
	if byteIdx < 0 {
		return -1
	}
	return len([]rune(s[:byteIdx]))
}

func isAll(s string, pred func(r rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}
func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }
func isAlphaRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
func isSpaceRune(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func method0(fn func() Value) *Builtin {
	return NewBuiltin("method", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		return fn(), nil
	})
}
func method1Str(fn func(string) Value) *Builtin {
	return NewBuiltin("method", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		arg := ""
		if len(args) > 0 {
			if sv, ok := args[0].(StrValue); ok {
				arg = string(sv.Runes)
			}
		}
		return fn(arg), nil
	})
}
func methodOptStr(fn func(arg string, has bool) Value) *Builtin {
	return NewBuiltin("method", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) > 0 {
			if sv, ok := args[0].(StrValue); ok {
				return fn(string(sv.Runes), true), nil
			}
		}
		return fn("", false), nil
	})
}

// listMethodAttr resolves built-in list methods (spec.md §3 List is
// "ordered, mutable").
func (ip *Interp) listMethodAttr(l *ListValue, name string, line int) (Value, error) {
	switch name {
	case "append":
		return NewBuiltin("append", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			l.Elements = append(l.Elements, args[0])
			return None, nil
		}), nil
	case "extend":
		return NewBuiltin("extend", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			items, err := ip.iterableToSlice(args[0], line)
			if err != nil {
				return nil, err
			}
			l.Elements = append(l.Elements, items...)
			return None, nil
		}), nil
	case "pop":
		return NewBuiltin("pop", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			idx := len(l.Elements) - 1
			if len(args) > 0 {
				if iv, ok := args[0].(IntValue); ok {
					idx = int(iv.Value.Int64())
					if idx < 0 {
						idx += len(l.Elements)
					}
				}
			}
			if idx < 0 || idx >= len(l.Elements) {
				return nil, raise(ip.Classes, line, "IndexError", "pop index out of range")
			}
			v := l.Elements[idx]
			l.Elements = append(l.Elements[:idx], l.Elements[idx+1:]...)
			return v, nil
		}), nil
	case "insert":
		return NewBuiltin("insert", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			iv, _ := args[0].(IntValue)
			idx := int(iv.Value.Int64())
			if idx < 0 {
				idx += len(l.Elements)
			}
			if idx < 0 {
				idx = 0
			}
			if idx > len(l.Elements) {
				idx = len(l.Elements)
			}
			l.Elements = append(l.Elements[:idx], append([]Value{args[1]}, l.Elements[idx:]...)...)
			return None, nil
		}), nil
	case "remove":
		return NewBuiltin("remove", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			for i, e := range l.Elements {
				if ip.equals(e, args[0]) {
					l.Elements = append(l.Elements[:i], l.Elements[i+1:]...)
					return None, nil
				}
			}
			return nil, raise(ip.Classes, line, "ValueError", "list.remove(x): x not in list")
		}), nil
	case "index":
		return NewBuiltin("index", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			for i, e := range l.Elements {
				if ip.equals(e, args[0]) {
					return NewInt(int64(i)), nil
				}
			}
			return nil, raise(ip.Classes, line, "ValueError", "value not in list")
		}), nil
	case "count":
		return NewBuiltin("count", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			n := 0
			for _, e := range l.Elements {
				if ip.equals(e, args[0]) {
					n++
				}
			}
			return NewInt(int64(n)), nil
		}), nil
	case "sort":
		return NewBuiltinKw("sort", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			return None, ip.sortSlice(l.Elements, kw, line)
		}), nil
	case "reverse":
		return NewBuiltin("reverse", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			for i, j := 0, len(l.Elements)-1; i < j; i, j = i+1, j-1 {
				l.Elements[i], l.Elements[j] = l.Elements[j], l.Elements[i]
			}
			return None, nil
		}), nil
	case "copy":
		return method0(func() Value { return NewList(append([]Value{}, l.Elements...)...) }), nil
	case "clear":
		return NewBuiltin("clear", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			l.Elements = nil
			return None, nil
		}), nil
	}
	return nil, raise(ip.Classes, line, "AttributeError", "'list' object has no attribute '%s'", name)
}

func (ip *Interp) sortSlice(elems []Value, kw map[string]Value, line int) error {
	keyFn, hasKey := kw["key"]
	reverse := false
	if rv, ok := kw["reverse"]; ok {
		reverse = Truthy(rv)
	}
	var sortErr error
	keys := make([]Value, len(elems))
	if hasKey {
		for i, e := range elems {
			k, err := ip.Call(keyFn, []Value{e}, nil, line)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	} else {
		keys = elems
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		less, err := ip.compare("<", keys[idx[a]], keys[idx[b]], line)
		if err != nil {
			sortErr = err
		}
		if reverse {
			return !less
		}
		return less
	})
	out := make([]Value, len(elems))
	for i, j := range idx {
		out[i] = elems[j]
	}
	copy(elems, out)
	return sortErr
}

// dictMethodAttr resolves built-in dict methods.
func (ip *Interp) dictMethodAttr(d *DictValue, name string, line int) (Value, error) {
	switch name {
	case "get":
		return NewBuiltin("get", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			v, ok, err := d.Get(args[0])
			if err != nil {
				return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
			}
			if ok {
				return v, nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return None, nil
		}), nil
	case "keys":
		return method0(func() Value { return NewList(append([]Value{}, d.Keys()...)...) }), nil
	case "values":
		return method0(func() Value { return NewList(append([]Value{}, d.Values()...)...) }), nil
	case "items":
		return method0(func() Value {
			out := make([]Value, d.Len())
			for i, k := range d.Keys() {
				out[i] = NewTuple(k, d.Values()[i])
			}
			return NewList(out...)
		}), nil
	case "pop":
		return NewBuiltin("pop", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			v, ok, _ := d.Get(args[0])
			if ok {
				_, _ = d.Delete(args[0])
				return v, nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, raise(ip.Classes, line, "KeyError", "%s", Repr(args[0], nil))
		}), nil
	case "update":
		return NewBuiltin("update", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if len(args) > 0 {
				other, ok := args[0].(*DictValue)
				if ok {
					for i, k := range other.keys {
						_ = d.Set(k, other.values[i])
					}
				}
			}
			for k, v := range kw {
				_ = d.Set(NewStr(k), v)
			}
			return None, nil
		}), nil
	case "setdefault":
		return NewBuiltin("setdefault", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			v, ok, _ := d.Get(args[0])
			if ok {
				return v, nil
			}
			var def Value = None
			if len(args) > 1 {
				def = args[1]
			}
			_ = d.Set(args[0], def)
			return def, nil
		}), nil
	}
	return nil, raise(ip.Classes, line, "AttributeError", "'dict' object has no attribute '%s'", name)
}

// setMethodAttr resolves built-in set methods.
func (ip *Interp) setMethodAttr(s *SetValue, name string, line int) (Value, error) {
	switch name {
	case "add":
		return NewBuiltin("add", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if err := s.Add(args[0]); err != nil {
				return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
			}
			return None, nil
		}), nil
	case "remove":
		return NewBuiltin("remove", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if !s.hasKey(args[0]) {
				return nil, raise(ip.Classes, line, "KeyError", "%s", Repr(args[0], nil))
			}
			s.Discard(args[0])
			return None, nil
		}), nil
	case "discard":
		return NewBuiltin("discard", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			s.Discard(args[0])
			return None, nil
		}), nil
	case "union":
		return NewBuiltin("union", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			o, _ := args[0].(*SetValue)
			return s.Union(o), nil
		}), nil
	case "intersection":
		return NewBuiltin("intersection", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			o, _ := args[0].(*SetValue)
			return s.Intersection(o), nil
		}), nil
	case "difference":
		return NewBuiltin("difference", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			o, _ := args[0].(*SetValue)
			return s.Difference(o), nil
		}), nil
	}
	return nil, raise(ip.Classes, line, "AttributeError", "'set' object has no attribute '%s'", name)
}
