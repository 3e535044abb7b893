package interp

import (
	"math/big"

	"github.com/quill-lang/quill/internal/ast"
)

// evalIndex implements `value[index]`, including slicing and the
// __getitem__ dunder (spec.md §4.3/§4.4).
func (ip *Interp) evalIndex(env *Environment, value Value, idxExpr ast.Expression, line int) (Value, error) {
	if sl, ok := idxExpr.(*ast.Slice); ok {
		return ip.evalSlice(env, value, sl, line)
	}
	idx, err := ip.evalExpr(env, idxExpr)
	if err != nil {
		return nil, err
	}
	return ip.getItem(value, idx, line)
}

func (ip *Interp) getItem(value, idx Value, line int) (Value, error) {
	switch c := value.(type) {
	case StrValue:
		i, ok := idx.(IntValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "string indices must be integers")
		}
		pos, err := normalizeIndex(i.Value, len(c.Runes), ip.Classes, line)
		if err != nil {
			return nil, err
		}
		return StrValue{[]rune{c.Runes[pos]}}, nil
	case *ListValue:
		i, ok := idx.(IntValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "list indices must be integers")
		}
		pos, err := normalizeIndex(i.Value, len(c.Elements), ip.Classes, line)
		if err != nil {
			return nil, err
		}
		return c.Elements[pos], nil
	case TupleValue:
		i, ok := idx.(IntValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "tuple indices must be integers")
		}
		pos, err := normalizeIndex(i.Value, len(c.Elements), ip.Classes, line)
		if err != nil {
			return nil, err
		}
		return c.Elements[pos], nil
	case *DictValue:
		v, ok, err := c.Get(idx)
		if err != nil {
			return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
		}
		if !ok {
			return nil, raise(ip.Classes, line, "KeyError", "%s", Repr(idx, nil))
		}
		return v, nil
	case *RangeValue:
		i, ok := idx.(IntValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "range indices must be integers")
		}
		n := c.Len()
		pos := i.Value.Int64()
		if pos < 0 {
			pos += int64(n)
		}
		if pos < 0 || pos >= int64(n) {
			return nil, raise(ip.Classes, line, "IndexError", "range object index out of range")
		}
		return IntValue{c.At(int(pos))}, nil
	case *Instance:
		if m, ok := lookupMethod(c.Class, "__getitem__"); ok {
			return ip.Call(bindMethod(c, m), []Value{idx}, nil, line)
		}
		return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not subscriptable", c.Class.Name)
	}
	return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not subscriptable", TypeName(value))
}

func normalizeIndex(idx *big.Int, n int, classes map[string]*Class, line int) (int, error) {
	i := idx.Int64()
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, raise(classes, line, "IndexError", "index out of range")
	}
	return int(i), nil
}

// evalSlice implements `value[start:stop:step]` for Str/List/Tuple.
func (ip *Interp) evalSlice(env *Environment, value Value, sl *ast.Slice, line int) (Value, error) {
	n, err := ip.sliceLen(value, line)
	if err != nil {
		return nil, err
	}
	start, stop, step, err := ip.resolveSlice(env, sl, n, line)
	if err != nil {
		return nil, err
	}
	indices := sliceIndices(start, stop, step)
	switch c := value.(type) {
	case StrValue:
		out := make([]rune, 0, len(indices))
		for _, i := range indices {
			out = append(out, c.Runes[i])
		}
		return StrValue{out}, nil
	case *ListValue:
		out := make([]Value, 0, len(indices))
		for _, i := range indices {
			out = append(out, c.Elements[i])
		}
		return NewList(out...), nil
	case TupleValue:
		out := make([]Value, 0, len(indices))
		for _, i := range indices {
			out = append(out, c.Elements[i])
		}
		return NewTuple(out...), nil
	}
	return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not subscriptable", TypeName(value))
}

func (ip *Interp) sliceLen(value Value, line int) (int, error) {
	switch c := value.(type) {
	case StrValue:
		return len(c.Runes), nil
	case *ListValue:
		return len(c.Elements), nil
	case TupleValue:
		return len(c.Elements), nil
	}
	return 0, raise(ip.Classes, line, "TypeError", "'%s' object is not subscriptable", TypeName(value))
}

func (ip *Interp) resolveSlice(env *Environment, sl *ast.Slice, n, line int) (start, stop, step int, err error) {
	step = 1
	if sl.Step != nil {
		v, e := ip.evalExpr(env, sl.Step)
		if e != nil {
			return 0, 0, 0, e
		}
		if iv, ok := v.(IntValue); ok {
			step = int(iv.Value.Int64())
		}
		if step == 0 {
			return 0, 0, 0, raise(ip.Classes, line, "ValueError", "slice step cannot be zero")
		}
	}
	if step > 0 {
		start, stop = 0, n
	} else {
		start, stop = n-1, -n-1
	}
	if sl.Start != nil {
		v, e := ip.evalExpr(env, sl.Start)
		if e != nil {
			return 0, 0, 0, e
		}
		start = clampSliceBound(v, n, step, true)
	}
	if sl.Stop != nil {
		v, e := ip.evalExpr(env, sl.Stop)
		if e != nil {
			return 0, 0, 0, e
		}
		stop = clampSliceBound(v, n, step, false)
	}
	return start, stop, step, nil
}

func clampSliceBound(v Value, n, step int, isStart bool) int {
	iv, ok := v.(IntValue)
	if !ok {
		if isStart {
			if step > 0 {
				return 0
			}
			return n - 1
		}
		if step > 0 {
			return n
		}
		return -n - 1
	}
	i := int(iv.Value.Int64())
	if i < 0 {
		i += n
	}
	if step > 0 {
		if i < 0 {
			i = 0
		}
		if i > n {
			i = n
		}
	} else {
		if i < -1 {
			i = -1
		}
		if i >= n {
			i = n - 1
		}
	}
	return i
}

func sliceIndices(start, stop, step int) []int {
	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

// setItem implements `value[index] = v` and the __setitem__ dunder.
func (ip *Interp) setItem(value, idx, v Value, line int) error {
	switch c := value.(type) {
	case *ListValue:
		i, ok := idx.(IntValue)
		if !ok {
			return raise(ip.Classes, line, "TypeError", "list indices must be integers")
		}
		pos, err := normalizeIndex(i.Value, len(c.Elements), ip.Classes, line)
		if err != nil {
			return err
		}
		c.Elements[pos] = v
		return nil
	case *DictValue:
		if err := c.Set(idx, v); err != nil {
			return raise(ip.Classes, line, "TypeError", "%s", err.Error())
		}
		return nil
	case *Instance:
		if m, ok := lookupMethod(c.Class, "__setitem__"); ok {
			_, err := ip.Call(bindMethod(c, m), []Value{idx, v}, nil, line)
			return err
		}
	}
	return raise(ip.Classes, line, "TypeError", "'%s' object does not support item assignment", TypeName(value))
}

// delItem implements `del value[index]` and the __delitem__ dunder.
func (ip *Interp) delItem(value, idx Value, line int) error {
	switch c := value.(type) {
	case *ListValue:
		i, ok := idx.(IntValue)
		if !ok {
			return raise(ip.Classes, line, "TypeError", "list indices must be integers")
		}
		pos, err := normalizeIndex(i.Value, len(c.Elements), ip.Classes, line)
		if err != nil {
			return err
		}
		c.Elements = append(c.Elements[:pos], c.Elements[pos+1:]...)
		return nil
	case *DictValue:
		ok, err := c.Delete(idx)
		if err != nil {
			return raise(ip.Classes, line, "TypeError", "%s", err.Error())
		}
		if !ok {
			return raise(ip.Classes, line, "KeyError", "%s", Repr(idx, nil))
		}
		return nil
	case *Instance:
		if m, ok := lookupMethod(c.Class, "__delitem__"); ok {
			_, err := ip.Call(bindMethod(c, m), []Value{idx}, nil, line)
			return err
		}
	}
	return raise(ip.Classes, line, "TypeError", "'%s' object doesn't support item deletion", TypeName(value))
}

// getAttr implements `.attr` access: instance dict, then MRO, binding
// Function-valued results as BoundMethods (spec.md §4.4).
func (ip *Interp) getAttr(value Value, name string, line int) (Value, error) {
	switch v := value.(type) {
	case *Instance:
		if name == "__class__" {
			return v.Class, nil
		}
		if raw, ok := lookupAttr(v, name); ok {
			return bindMethod(v, raw), nil
		}
		if m, ok := lookupMethod(v.Class, "__getattr__"); ok {
			return ip.Call(bindMethod(v, m), []Value{NewStr(name)}, nil, line)
		}
		return nil, raise(ip.Classes, line, "AttributeError", "'%s' object has no attribute '%s'", v.Class.Name, name)
	case *Class:
		switch name {
		case "__name__":
			return NewStr(v.Name), nil
		case "__mro__":
			elems := make([]Value, len(v.MRO))
			for i, c := range v.MRO {
				elems[i] = c
			}
			return NewTuple(elems...), nil
		case "__bases__":
			elems := make([]Value, len(v.Bases))
			for i, c := range v.Bases {
				elems[i] = c
			}
			return NewTuple(elems...), nil
		}
		if raw, ok := lookupClassAttr(v, name); ok {
			return raw, nil
		}
		return nil, raise(ip.Classes, line, "AttributeError", "type object '%s' has no attribute '%s'", v.Name, name)
	case *Module:
		if raw, ok := v.Attrs[name]; ok {
			return raw, nil
		}
		return nil, raise(ip.Classes, line, "AttributeError", "module '%s' has no attribute '%s'", v.Name, name)
	case StrValue:
		return ip.stringMethodAttr(v, name, line)
	case *ListValue:
		return ip.listMethodAttr(v, name, line)
	case *DictValue:
		return ip.dictMethodAttr(v, name, line)
	case *SetValue:
		return ip.setMethodAttr(v, name, line)
	case *Generator:
		return ip.generatorMethodAttr(v, name, line)
	case *SuperProxy:
		tail := mroAfter(v.Instance.Class, v.StartClass)
		for _, c := range tail {
			if raw, ok := c.Attrs[name]; ok {
				return bindMethod(v.Instance, raw), nil
			}
		}
		return nil, raise(ip.Classes, line, "AttributeError", "'super' object has no attribute '%s'", name)
	default:
		return nil, raise(ip.Classes, line, "AttributeError", "'%s' object has no attribute '%s'", TypeName(value), name)
	}
}

// lookupDunder reports whether value has a user-defined dunder method
// bound to it, without raising AttributeError when it doesn't — the
// `with` statement (execWithItems) uses this to tell "no __enter__/
// __exit__" apart from an actual lookup failure, per spec.md §4.3's
// degenerate context manager rule. Only *Instance values can define
// dunders; every other Value kind has none to find here (their own
// dunder-like behaviour, e.g. __iter__ on a builtin container, is
// handled directly by the evaluator, not through this lookup).
func lookupDunder(value Value, name string) (Value, bool) {
	inst, ok := value.(*Instance)
	if !ok {
		return nil, false
	}
	m, ok := lookupMethod(inst.Class, name)
	if !ok {
		return nil, false
	}
	return bindMethod(inst, m), true
}

// setAttr implements `value.attr = v`.
func (ip *Interp) setAttr(value Value, name string, v Value, line int) error {
	switch x := value.(type) {
	case *Instance:
		if m, ok := lookupMethod(x.Class, "__setattr__"); ok {
			_, err := ip.Call(bindMethod(x, m), []Value{NewStr(name), v}, nil, line)
			return err
		}
		x.Attrs[name] = v
		return nil
	case *Class:
		x.Attrs[name] = v
		return nil
	case *Module:
		x.Attrs[name] = v
		return nil
	}
	return raise(ip.Classes, line, "AttributeError", "'%s' object has no attribute '%s'", TypeName(value), name)
}
