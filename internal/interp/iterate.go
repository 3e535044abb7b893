package interp

// Iterator is the runtime value backing a plain (non-generator) iterator:
// the result of calling iter() on a List/Tuple/Str/Dict/Set/Range, or of
// an Instance's __iter__ returning something other than a Generator. next
// reports ok=false (no error) on normal exhaustion, matching the
// StopIteration-as-a-plain-signal shape spec.md §4.6 describes for `for`
// loops, while still surfacing a real error from e.g. a misbehaving
// __next__.
type Iterator struct {
	next func() (Value, bool, error)
}

func (*Iterator) Type() string { return "iterator" }

func newIterator(next func() (Value, bool, error)) *Iterator {
	return &Iterator{next: next}
}

func sliceIterator(elems []Value) *Iterator {
	i := 0
	return newIterator(func() (Value, bool, error) {
		if i >= len(elems) {
			return nil, false, nil
		}
		v := elems[i]
		i++
		return v, true, nil
	})
}

// getIterator implements `iter(x)` / the implicit iterator-construction
// step of `for`/comprehensions/unpacking (spec.md §4.6): built-in
// containers get a native *Iterator, Generators are already their own
// iterator, and an Instance defining __iter__ has that method called.
func (ip *Interp) getIterator(v Value, line int) (Value, error) {
	switch c := v.(type) {
	case StrValue:
		runes := append([]rune{}, c.Runes...)
		i := 0
		return newIterator(func() (Value, bool, error) {
			if i >= len(runes) {
				return nil, false, nil
			}
			r := runes[i]
			i++
			return StrValue{[]rune{r}}, true, nil
		}), nil
	case *ListValue:
		return sliceIterator(append([]Value{}, c.Elements...)), nil
	case TupleValue:
		return sliceIterator(c.Elements), nil
	case *DictValue:
		return sliceIterator(append([]Value{}, c.Keys()...)), nil
	case *SetValue:
		return sliceIterator(append([]Value{}, c.Elements()...)), nil
	case *RangeValue:
		n := c.Len()
		i := 0
		return newIterator(func() (Value, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			r := IntValue{c.At(i)}
			i++
			return r, true, nil
		}), nil
	case *Generator:
		return c, nil
	case *Iterator:
		return c, nil
	case *Instance:
		if m, ok := lookupMethod(c.Class, "__iter__"); ok {
			res, err := ip.Call(bindMethod(c, m), nil, nil, line)
			if err != nil {
				return nil, err
			}
			return res, nil
		}
		if _, ok := lookupMethod(c.Class, "__getitem__"); ok {
			i := 0
			return newIterator(func() (Value, bool, error) {
				v, err := ip.getItem(c, NewInt(int64(i)), line)
				if err != nil {
					if r, ok := err.(*Raised); ok && r.Instance.Class.Name == "IndexError" {
						return nil, false, nil
					}
					return nil, false, err
				}
				i++
				return v, true, nil
			}), nil
		}
		return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not iterable", c.Class.Name)
	}
	return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not iterable", TypeName(v))
}

// iterNext pulls one value from an iterator value, per spec.md §4.6's
// __next__ protocol: StopIteration raised from a user __next__ is folded
// into the same (nil, false, nil) "exhausted" signal a native *Iterator
// produces, so callers never need to special-case the two sources.
func (ip *Interp) iterNext(it Value, line int) (Value, bool, error) {
	switch x := it.(type) {
	case *Iterator:
		return x.next()
	case *Generator:
		return ip.generatorNext(x, None, line)
	case *Instance:
		m, ok := lookupMethod(x.Class, "__next__")
		if !ok {
			return nil, false, raise(ip.Classes, line, "TypeError", "'%s' object is not an iterator", x.Class.Name)
		}
		v, err := ip.Call(bindMethod(x, m), nil, nil, line)
		if err != nil {
			if r, ok := err.(*Raised); ok && ExceptMatches(r.Instance.Class, ip.Classes["StopIteration"]) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return v, true, nil
	case *Function:
		if x.Def.IsGenerator {
			return nil, false, raise(ip.Classes, line, "TypeError", "'function' object is not an iterator; call it first and wrap the result in iter()")
		}
	}
	return nil, false, raise(ip.Classes, line, "TypeError", "'%s' object is not an iterator", TypeName(it))
}

// iterableToSlice fully drains an iterable, used by list()/tuple()/set()/
// sorted()/the unpacking operators, and sequence-building builtins like
// str.join/list.extend.
func (ip *Interp) iterableToSlice(v Value, line int) ([]Value, error) {
	it, err := ip.getIterator(v, line)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		val, ok, err := ip.iterNext(it, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, val)
	}
}
