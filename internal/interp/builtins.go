package interp

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/quill-lang/quill/internal/vfs"
)

// InstallBuiltins populates ip.Ctx.Env's module frame with the built-in
// functions and exception classes every script sees without an import,
// per spec.md §4.6 ("a fixed set of builtins always available"). Called
// once, right after New(ctx), before the first Run.
func (ip *Interp) InstallBuiltins() {
	env := ip.Ctx.Env
	for name, class := range ip.Classes {
		env.Define(name, class)
	}
	for name, fn := range ip.builtinFuncs() {
		env.Define(name, fn)
	}
}

func (ip *Interp) builtinFuncs() map[string]*Builtin {
	b := map[string]*Builtin{}
	add := func(name string, fn BuiltinFunc) { b[name] = NewBuiltin(name, fn) }
	addKw := func(name string, fn BuiltinFunc) { b[name] = NewBuiltinKw(name, fn) }

	add("len", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		n, err := ip.lenOf(args[0], 0)
		if err != nil {
			return nil, err
		}
		return NewInt(int64(n)), nil
	})

	addKw("print", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		sep, end := " ", "\n"
		if s, ok := kw["sep"].(StrValue); ok {
			sep = string(s.Runes)
		}
		if s, ok := kw["end"].(StrValue); ok {
			end = string(s.Runes)
		}
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := ip.strOf(a, 0)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		ctx.Output.WriteString(strings.Join(parts, sep))
		ctx.Output.WriteString(end)
		return None, nil
	})

	add("str", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) == 0 {
			return NewStr(""), nil
		}
		s, err := ip.strOf(args[0], 0)
		if err != nil {
			return nil, err
		}
		return NewStr(s), nil
	})

	add("repr", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		s, err := ip.reprOf(args[0], 0)
		if err != nil {
			return nil, err
		}
		return NewStr(s), nil
	})

	add("int", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.builtinInt(args, 0) })
	add("float", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.builtinFloat(args, 0) })

	add("bool", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) == 0 {
			return False, nil
		}
		return Bool(ip.truthy(args[0])), nil
	})

	add("type", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) != 1 {
			return nil, raise(ip.Classes, 0, "TypeError", "type() takes exactly one argument")
		}
		if inst, ok := args[0].(*Instance); ok {
			return inst.Class, nil
		}
		return NewStr(TypeName(args[0])), nil
	})

	add("abs", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		switch x := args[0].(type) {
		case IntValue:
			return IntValue{new(big.Int).Abs(x.Value)}, nil
		case FloatValue:
			return NewFloat(math.Abs(x.Value)), nil
		}
		return nil, raise(ip.Classes, 0, "TypeError", "bad operand type for abs(): '%s'", TypeName(args[0]))
	})

	add("round", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.builtinRound(args, 0) })

	addKw("sum", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		var acc Value = NewInt(0)
		if len(args) > 1 {
			acc = args[1]
		}
		for _, v := range items {
			acc, err = ip.evalBinOp("+", acc, v, 0)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	})

	addKw("min", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.minMax(args, kw, "<", 0) })
	addKw("max", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.minMax(args, kw, ">", 0) })

	add("mean", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		nums, err := ip.numericSlice(args[0], "mean", 0)
		if err != nil {
			return nil, err
		}
		sum := 0.0
		for _, v := range nums {
			sum += v
		}
		return NewFloat(sum / float64(len(nums))), nil
	})

	add("median", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		nums, err := ip.numericSlice(args[0], "median", 0)
		if err != nil {
			return nil, err
		}
		sorted := append([]float64{}, nums...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return NewFloat(sorted[mid]), nil
		}
		return NewFloat((sorted[mid-1] + sorted[mid]) / 2), nil
	})

	add("variance", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		v, err := ip.sampleVariance(args[0], "variance", 0)
		if err != nil {
			return nil, err
		}
		return NewFloat(v), nil
	})

	add("stddev", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		v, err := ip.sampleVariance(args[0], "stddev", 0)
		if err != nil {
			return nil, err
		}
		return NewFloat(math.Sqrt(v)), nil
	})

	addKw("sorted", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		out := append([]Value{}, items...)
		if err := ip.sortSlice(out, kw, 0); err != nil {
			return nil, err
		}
		return NewList(out...), nil
	})

	add("reversed", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return sliceIterator(out), nil
	})

	add("enumerate", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		start := 0
		if len(args) > 1 {
			if iv, ok := args[1].(IntValue); ok {
				start = int(iv.Value.Int64())
			}
		}
		it, err := ip.getIterator(args[0], 0)
		if err != nil {
			return nil, err
		}
		i := start
		return newIterator(func() (Value, bool, error) {
			v, ok, err := ip.iterNext(it, 0)
			if err != nil || !ok {
				return nil, false, err
			}
			tup := NewTuple(NewInt(int64(i)), v)
			i++
			return tup, true, nil
		}), nil
	})

	add("zip", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		its := make([]Value, len(args))
		for i, a := range args {
			it, err := ip.getIterator(a, 0)
			if err != nil {
				return nil, err
			}
			its[i] = it
		}
		return newIterator(func() (Value, bool, error) {
			row := make([]Value, len(its))
			for i, it := range its {
				v, ok, err := ip.iterNext(it, 0)
				if err != nil || !ok {
					return nil, false, err
				}
				row[i] = v
			}
			return NewTuple(row...), true, nil
		}), nil
	})

	add("map", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		fn := args[0]
		its := make([]Value, len(args)-1)
		for i, a := range args[1:] {
			it, err := ip.getIterator(a, 0)
			if err != nil {
				return nil, err
			}
			its[i] = it
		}
		return newIterator(func() (Value, bool, error) {
			callArgs := make([]Value, len(its))
			for i, it := range its {
				v, ok, err := ip.iterNext(it, 0)
				if err != nil || !ok {
					return nil, false, err
				}
				callArgs[i] = v
			}
			v, err := ip.Call(fn, callArgs, nil, 0)
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		}), nil
	})

	add("filter", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		fn := args[0]
		it, err := ip.getIterator(args[1], 0)
		if err != nil {
			return nil, err
		}
		return newIterator(func() (Value, bool, error) {
			for {
				v, ok, err := ip.iterNext(it, 0)
				if err != nil || !ok {
					return nil, false, err
				}
				keep := ip.truthy(v)
				if fn != None {
					r, err := ip.Call(fn, []Value{v}, nil, 0)
					if err != nil {
						return nil, false, err
					}
					keep = ip.truthy(r)
				}
				if keep {
					return v, true, nil
				}
			}
		}), nil
	})

	add("any", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if ip.truthy(v) {
				return True, nil
			}
		}
		return False, nil
	})

	add("all", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if !ip.truthy(v) {
				return False, nil
			}
		}
		return True, nil
	})

	add("list", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) == 0 {
			return NewList(), nil
		}
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		return NewList(items...), nil
	})

	add("tuple", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) == 0 {
			return NewTuple(), nil
		}
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		return NewTuple(items...), nil
	})

	add("set", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		s := NewSet()
		if len(args) == 0 {
			return s, nil
		}
		items, err := ip.iterableToSlice(args[0], 0)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if err := s.Add(v); err != nil {
				return nil, raise(ip.Classes, 0, "TypeError", "%s", err.Error())
			}
		}
		return s, nil
	})

	addKw("dict", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		d := NewDict()
		if len(args) > 0 {
			if src, ok := args[0].(*DictValue); ok {
				for i, k := range src.Keys() {
					_ = d.Set(k, src.Values()[i])
				}
			} else {
				items, err := ip.iterableToSlice(args[0], 0)
				if err != nil {
					return nil, err
				}
				for _, item := range items {
					pair, ok := sequenceElements(item)
					if !ok || len(pair) != 2 {
						return nil, raise(ip.Classes, 0, "ValueError", "dictionary update sequence element has wrong length")
					}
					if err := d.Set(pair[0], pair[1]); err != nil {
						return nil, raise(ip.Classes, 0, "TypeError", "%s", err.Error())
					}
				}
			}
		}
		for k, v := range kw {
			_ = d.Set(NewStr(k), v)
		}
		return d, nil
	})

	add("range", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.builtinRange(args, 0) })

	add("isinstance", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		return ip.builtinIsInstance(args, 0)
	})

	add("issubclass", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		c, ok := args[0].(*Class)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "issubclass() arg 1 must be a class")
		}
		targets, err := classTuple(args[1])
		if err != nil {
			return nil, raise(ip.Classes, 0, "TypeError", "%s", err.Error())
		}
		for _, t := range targets {
			if classIsSubclass(c, t) {
				return True, nil
			}
		}
		return False, nil
	})

	add("callable", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		switch x := args[0].(type) {
		case *Function, *Lambda, *Builtin, *BoundMethod, *Class:
			return True, nil
		case *Instance:
			_, ok := lookupMethod(x.Class, "__call__")
			return Bool(ok), nil
		}
		return False, nil
	})

	add("hasattr", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		name, ok := args[1].(StrValue)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "hasattr(): attribute name must be string")
		}
		_, err := ip.getAttr(args[0], string(name.Runes), 0)
		return Bool(err == nil), nil
	})

	add("getattr", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		name, ok := args[1].(StrValue)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "getattr(): attribute name must be string")
		}
		v, err := ip.getAttr(args[0], string(name.Runes), 0)
		if err != nil {
			if len(args) > 2 {
				return args[2], nil
			}
			return nil, err
		}
		return v, nil
	})

	add("setattr", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		name, ok := args[1].(StrValue)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "setattr(): attribute name must be string")
		}
		return None, ip.setAttr(args[0], string(name.Runes), args[2], 0)
	})

	add("chr", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		iv, ok := args[0].(IntValue)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "chr() argument must be an int")
		}
		return NewStr(string(rune(iv.Value.Int64()))), nil
	})

	add("ord", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		sv, ok := args[0].(StrValue)
		if !ok || len(sv.Runes) != 1 {
			return nil, raise(ip.Classes, 0, "TypeError", "ord() expected a character")
		}
		return NewInt(int64(sv.Runes[0])), nil
	})

	add("hex", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.intBase(args, 16, "0x") })
	add("oct", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.intBase(args, 8, "0o") })
	add("bin", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.intBase(args, 2, "0b") })

	add("pow", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if len(args) == 3 {
			b, ok1 := args[0].(IntValue)
			e, ok2 := args[1].(IntValue)
			m, ok3 := args[2].(IntValue)
			if !ok1 || !ok2 || !ok3 {
				return nil, raise(ip.Classes, 0, "TypeError", "pow() with 3 arguments requires ints")
			}
			return IntValue{new(big.Int).Exp(b.Value, e.Value, m.Value)}, nil
		}
		return ip.evalBinOp("**", args[0], args[1], 0)
	})

	add("divmod", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		q, err := ip.evalBinOp("//", args[0], args[1], 0)
		if err != nil {
			return nil, err
		}
		r, err := ip.evalBinOp("%", args[0], args[1], 0)
		if err != nil {
			return nil, err
		}
		return NewTuple(q, r), nil
	})

	add("iter", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		return ip.getIterator(args[0], 0)
	})

	add("next", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		v, ok, err := ip.iterNext(args[0], 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, raise(ip.Classes, 0, "StopIteration", "")
		}
		return v, nil
	})

	add("open", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) { return ip.builtinOpen(ctx, args, kw) })

	// suspend() marks the Context so Run stops after the current
	// top-level statement and returns a {suspended, ctx} outcome
	// (spec.md §4.5/§6); Resume later replays the recorded event log
	// against a fresh Context built from that same script.
	add("suspend", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		if ip.Gen != nil {
			return nil, raise(ip.Classes, 0, "RuntimeError", "suspend() is not supported inside a generator")
		}
		ctx.record(EventSuspend, "")
		ctx.Suspended = true
		return None, nil
	})

	// exec/eval/compile are named Non-goals (spec.md §1): a sandboxed
	// embeddable interpreter must not let scripted code compile and run
	// further scripted code, since that would bypass the Context's
	// timeout/event-log accounting for anything reached that way. Each
	// raises a feature-specific NotImplementedError rather than falling
	// through to a generic NameError (spec.md §7).
	for _, name := range []string{"exec", "eval", "compile"} {
		feature := name
		add(feature, func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			return nil, raise(ip.Classes, 0, "NotImplementedError", "%s() is not supported", feature)
		})
	}

	return b
}

func (ip *Interp) lenOf(v Value, line int) (int, error) {
	switch x := v.(type) {
	case StrValue:
		return len(x.Runes), nil
	case *ListValue:
		return len(x.Elements), nil
	case TupleValue:
		return len(x.Elements), nil
	case *DictValue:
		return x.Len(), nil
	case *SetValue:
		return x.Len(), nil
	case *RangeValue:
		return x.Len(), nil
	case *Instance:
		if m, ok := lookupMethod(x.Class, "__len__"); ok {
			r, err := ip.Call(bindMethod(x, m), nil, nil, line)
			if err != nil {
				return 0, err
			}
			iv, ok := r.(IntValue)
			if !ok {
				return 0, raise(ip.Classes, line, "TypeError", "__len__() should return an int")
			}
			return int(iv.Value.Int64()), nil
		}
	}
	return 0, raise(ip.Classes, line, "TypeError", "object of type '%s' has no len()", TypeName(v))
}

func (ip *Interp) builtinInt(args []Value, line int) (Value, error) {
	if len(args) == 0 {
		return NewInt(0), nil
	}
	switch x := args[0].(type) {
	case IntValue:
		return x, nil
	case BoolValue:
		return numericBool(x), nil
	case FloatValue:
		bi, _ := big.NewFloat(math.Trunc(x.Value)).Int(nil)
		return IntValue{bi}, nil
	case StrValue:
		base := 10
		if len(args) > 1 {
			if iv, ok := args[1].(IntValue); ok {
				base = int(iv.Value.Int64())
			}
		}
		text := strings.TrimSpace(string(x.Runes))
		n, ok := new(big.Int).SetString(text, base)
		if !ok {
			return nil, raise(ip.Classes, line, "ValueError", "invalid literal for int() with base %d: %s", base, reprString(text))
		}
		return IntValue{n}, nil
	}
	return nil, raise(ip.Classes, line, "TypeError", "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func (ip *Interp) builtinFloat(args []Value, line int) (Value, error) {
	if len(args) == 0 {
		return NewFloat(0), nil
	}
	switch x := args[0].(type) {
	case FloatValue:
		return x, nil
	case IntValue:
		f := new(big.Float).SetInt(x.Value)
		fv, _ := f.Float64()
		return NewFloat(fv), nil
	case BoolValue:
		if x.Value {
			return NewFloat(1), nil
		}
		return NewFloat(0), nil
	case StrValue:
		text := strings.TrimSpace(string(x.Runes))
		switch text {
		case "inf", "Infinity", "+inf":
			return NewFloat(math.Inf(1)), nil
		case "-inf", "-Infinity":
			return NewFloat(math.Inf(-1)), nil
		case "nan":
			return NewFloat(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, raise(ip.Classes, line, "ValueError", "could not convert string to float: %s", reprString(text))
		}
		return NewFloat(f), nil
	}
	return nil, raise(ip.Classes, line, "TypeError", "float() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func (ip *Interp) builtinRound(args []Value, line int) (Value, error) {
	ndigits := 0
	hasNdigits := false
	if len(args) > 1 {
		if iv, ok := args[1].(IntValue); ok {
			ndigits = int(iv.Value.Int64())
			hasNdigits = true
		}
	}
	switch x := args[0].(type) {
	case IntValue:
		return x, nil
	case FloatValue:
		mult := math.Pow(10, float64(ndigits))
		r := roundHalfToEven(x.Value*mult) / mult
		if !hasNdigits {
			return NewInt(int64(r)), nil
		}
		return NewFloat(r), nil
	}
	return nil, raise(ip.Classes, line, "TypeError", "type %s doesn't define __round__ method", TypeName(args[0]))
}

func roundHalfToEven(f float64) float64 {
	floor := math.Floor(f)
	diff := f - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	}
	if math.Mod(floor, 2) == 0 {
		return floor
	}
	return floor + 1
}

// numericSlice drains an iterable of int/float values into a []float64,
// for the mean/median/variance/stddev family (spec.md §8 property 11's
// oracle-conformance set), rejecting empty input the way min/max do.
func (ip *Interp) numericSlice(iterable Value, fname string, line int) ([]float64, error) {
	items, err := ip.iterableToSlice(iterable, line)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, raise(ip.Classes, line, "ValueError", "%s requires at least one data point", fname)
	}
	nums := make([]float64, len(items))
	for i, v := range items {
		switch v.(type) {
		case IntValue, FloatValue:
			nums[i] = toFloat(v)
		default:
			return nil, raise(ip.Classes, line, "TypeError", "%s() argument must be numbers, not '%s'", fname, TypeName(v))
		}
	}
	return nums, nil
}

// sampleVariance computes the sample variance (Bessel's n-1 correction,
// matching CPython's statistics.variance/statistics.stdev) that variance/
// stddev both build on.
func (ip *Interp) sampleVariance(iterable Value, fname string, line int) (float64, error) {
	nums, err := ip.numericSlice(iterable, fname, line)
	if err != nil {
		return 0, err
	}
	if len(nums) < 2 {
		return 0, raise(ip.Classes, line, "ValueError", "%s requires at least two data points", fname)
	}
	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	mean := sum / float64(len(nums))
	sq := 0.0
	for _, v := range nums {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(nums)-1), nil
}

func (ip *Interp) minMax(args []Value, kw map[string]Value, op string, line int) (Value, error) {
	var items []Value
	if len(args) == 1 {
		var err error
		items, err = ip.iterableToSlice(args[0], line)
		if err != nil {
			return nil, err
		}
	} else {
		items = args
	}
	if len(items) == 0 {
		if def, ok := kw["default"]; ok {
			return def, nil
		}
		return nil, raise(ip.Classes, line, "ValueError", "%s() arg is an empty sequence", opName(op))
	}
	keyFn, hasKey := kw["key"]
	best := items[0]
	bestKey := best
	if hasKey {
		var err error
		bestKey, err = ip.Call(keyFn, []Value{best}, nil, line)
		if err != nil {
			return nil, err
		}
	}
	for _, v := range items[1:] {
		k := v
		if hasKey {
			var err error
			k, err = ip.Call(keyFn, []Value{v}, nil, line)
			if err != nil {
				return nil, err
			}
		}
		better, err := ip.compare(op, k, bestKey, line)
		if err != nil {
			return nil, err
		}
		if better {
			best, bestKey = v, k
		}
	}
	return best, nil
}

func opName(op string) string {
	if op == "<" {
		return "min"
	}
	return "max"
}

func (ip *Interp) builtinRange(args []Value, line int) (Value, error) {
	toBig := func(v Value) (*big.Int, bool) {
		iv, ok := v.(IntValue)
		if !ok {
			return nil, false
		}
		return iv.Value, true
	}
	var start, stop, step *big.Int
	switch len(args) {
	case 1:
		var ok bool
		stop, ok = toBig(args[0])
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "'%s' object cannot be interpreted as an integer", TypeName(args[0]))
		}
		start, step = big.NewInt(0), big.NewInt(1)
	case 2, 3:
		var ok bool
		start, ok = toBig(args[0])
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "'%s' object cannot be interpreted as an integer", TypeName(args[0]))
		}
		stop, ok = toBig(args[1])
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "'%s' object cannot be interpreted as an integer", TypeName(args[1]))
		}
		if len(args) == 3 {
			step, ok = toBig(args[2])
			if !ok {
				return nil, raise(ip.Classes, line, "TypeError", "'%s' object cannot be interpreted as an integer", TypeName(args[2]))
			}
		} else {
			step = big.NewInt(1)
		}
	default:
		return nil, raise(ip.Classes, line, "TypeError", "range expected 1 to 3 arguments, got %d", len(args))
	}
	r, err := NewRange(start, stop, step)
	if err != nil {
		return nil, raise(ip.Classes, line, "ValueError", "%s", err.Error())
	}
	return r, nil
}

func classTuple(v Value) ([]*Class, error) {
	switch x := v.(type) {
	case *Class:
		return []*Class{x}, nil
	case TupleValue:
		out := make([]*Class, len(x.Elements))
		for i, e := range x.Elements {
			c, ok := e.(*Class)
			if !ok {
				return nil, raiseGeneric("isinstance() arg 2 must be a type or tuple of types")
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, raiseGeneric("isinstance() arg 2 must be a type or tuple of types")
}

func raiseGeneric(msg string) error { return &simpleError{msg} }

type simpleError struct{ msg string }

func (e *simpleError) Error() string { return e.msg }

func (ip *Interp) builtinIsInstance(args []Value, line int) (Value, error) {
	targets, err := classTuple(args[1])
	if err != nil {
		return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
	}
	for _, c := range targets {
		if IsInstance(args[0], c) {
			return True, nil
		}
		if matchesBuiltinType(args[0], c.Name) {
			return True, nil
		}
	}
	return False, nil
}

// matchesBuiltinType lets isinstance(x, int) etc. succeed for native
// values, which never carry a *Class of their own.
func matchesBuiltinType(v Value, name string) bool {
	switch name {
	case "int":
		_, ok := v.(IntValue)
		return ok
	case "float":
		_, ok := v.(FloatValue)
		return ok
	case "str":
		_, ok := v.(StrValue)
		return ok
	case "bool":
		_, ok := v.(BoolValue)
		return ok
	case "list":
		_, ok := v.(*ListValue)
		return ok
	case "tuple":
		_, ok := v.(TupleValue)
		return ok
	case "dict":
		_, ok := v.(*DictValue)
		return ok
	case "set":
		_, ok := v.(*SetValue)
		return ok
	}
	return false
}

func (ip *Interp) intBase(args []Value, base int, prefix string) (Value, error) {
	iv, ok := args[0].(IntValue)
	if !ok {
		return nil, raise(ip.Classes, 0, "TypeError", "an integer is required")
	}
	neg := iv.Value.Sign() < 0
	abs := new(big.Int).Abs(iv.Value)
	body := abs.Text(base)
	if neg {
		return NewStr("-" + prefix + body), nil
	}
	return NewStr(prefix + body), nil
}

// builtinOpen returns a thin file-handle Instance wrapping the Context's
// vfs.FileSystem (spec.md §4.7): read()/write()/close()/__enter__/__exit__,
// matching the minimal subset scripts need without a real OS file handle.
func (ip *Interp) builtinOpen(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
	pathV, ok := args[0].(StrValue)
	if !ok {
		return nil, raise(ip.Classes, 0, "TypeError", "open() path must be a string")
	}
	path := string(pathV.Runes)
	mode := "r"
	if len(args) > 1 {
		if mv, ok := args[1].(StrValue); ok {
			mode = string(mv.Runes)
		}
	}
	fh := &fileHandle{path: path, mode: mode}
	return ip.wrapFileHandle(fh), nil
}

type fileHandle struct {
	path   string
	mode   string
	closed bool
}

// wrap builds the Instance a script's `with open(...) as f:` binds,
// backed by a dedicated no-class built-in object rather than a real
// *Class since file handles are host-provided, not user-subclassable.
func (ip *Interp) wrapFileHandle(fh *fileHandle) *Instance {
	c, _ := NewClass("file", nil, map[string]Value{})
	inst := NewInstance(c)
	inst.Attrs["read"] = NewBuiltin("read", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		data, err := ctx.FS.Read(fh.path)
		if err != nil {
			if _, ok := err.(*vfs.NotFoundError); ok {
				return nil, raise(ip.Classes, 0, "FileNotFoundError", "%s", fh.path)
			}
			return nil, raise(ip.Classes, 0, "IOError", "%s", err.Error())
		}
		ctx.RecordFileOp("read:" + fh.path)
		return NewStr(string(data)), nil
	})
	inst.Attrs["write"] = NewBuiltin("write", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		sv, ok := args[0].(StrValue)
		if !ok {
			return nil, raise(ip.Classes, 0, "TypeError", "write() argument must be str")
		}
		writeMode := vfs.ModeWrite
		if strings.Contains(fh.mode, "a") {
			writeMode = vfs.ModeAppend
		}
		if err := ctx.FS.Write(fh.path, []byte(string(sv.Runes)), writeMode); err != nil {
			return nil, raise(ip.Classes, 0, "IOError", "%s", err.Error())
		}
		ctx.RecordFileOp("write:" + fh.path)
		return NewInt(int64(len(sv.Runes))), nil
	})
	inst.Attrs["close"] = NewBuiltin("close", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		fh.closed = true
		return None, nil
	})
	inst.Attrs["__enter__"] = NewBuiltin("__enter__", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		return inst, nil
	})
	inst.Attrs["__exit__"] = NewBuiltin("__exit__", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
		fh.closed = true
		return False, nil
	})
	return inst
}
