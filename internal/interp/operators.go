package interp

import (
	"math"
	"math/big"
	"strings"
)

var dunderForOp = map[string]string{
	"+": "__add__", "-": "__sub__", "*": "__mul__", "/": "__truediv__",
	"//": "__floordiv__", "%": "__mod__", "**": "__pow__",
	"&": "__and__", "|": "__or__", "^": "__xor__", "<<": "__lshift__", ">>": "__rshift__",
}

// evalBinOp implements spec.md §4.3's arithmetic/bitwise/string-repeat
// operator table, falling back to an Instance's dunder method (spec.md
// §4.4) when neither operand is a built-in numeric/sequence kind.
func (ip *Interp) evalBinOp(op string, l, r Value, line int) (Value, error) {
	if inst, ok := l.(*Instance); ok {
		if dunder, ok := dunderForOp[op]; ok {
			if m, found := lookupMethod(inst.Class, dunder); found {
				return ip.Call(bindMethod(inst, m), []Value{r}, nil, line)
			}
		}
	}

	ln, lIsNum := AsNumeric(l)
	rn, rIsNum := AsNumeric(r)
	if lIsNum && rIsNum {
		return arith(ip, op, ln, rn, line)
	}

	switch op {
	case "+":
		return addNonNumeric(ip, l, r, line)
	case "*":
		return repeatOp(ip, l, r, line)
	case "&", "|", "^", "-":
		ls, lok := l.(*SetValue)
		rs, rok := r.(*SetValue)
		if lok && rok {
			switch op {
			case "-":
				return ls.Difference(rs), nil
			case "&":
				return ls.Intersection(rs), nil
			case "|":
				return ls.Union(rs), nil
			case "^":
				return ls.SymmetricDifference(rs), nil
			}
		}
	}
	return nil, raise(ip.Classes, line, "TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(l), TypeName(r))
}

func addNonNumeric(ip *Interp, l, r Value, line int) (Value, error) {
	switch a := l.(type) {
	case StrValue:
		b, ok := r.(StrValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", `can only concatenate str (not "%s") to str`, TypeName(r))
		}
		return StrValue{append(append([]rune{}, a.Runes...), b.Runes...)}, nil
	case *ListValue:
		b, ok := r.(*ListValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", `can only concatenate list (not "%s") to list`, TypeName(r))
		}
		out := append(append([]Value{}, a.Elements...), b.Elements...)
		return NewList(out...), nil
	case TupleValue:
		b, ok := r.(TupleValue)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", `can only concatenate tuple (not "%s") to tuple`, TypeName(r))
		}
		return NewTuple(append(append([]Value{}, a.Elements...), b.Elements...)...), nil
	}
	if _, isNone := l.(NoneValue); isNone {
		return nil, raise(ip.Classes, line, "TypeError", `unsupported operand type(s) for +: 'NoneType' and '%s'`, TypeName(r))
	}
	return nil, raise(ip.Classes, line, "TypeError", "unsupported operand type(s) for +: '%s' and '%s'", TypeName(l), TypeName(r))
}

func repeatOp(ip *Interp, l, r Value, line int) (Value, error) {
	var seq Value
	var n *big.Int
	if s, ok := l.(StrValue); ok {
		seq = s
	} else if lst, ok := l.(*ListValue); ok {
		seq = lst
	} else if t, ok := l.(TupleValue); ok {
		seq = t
	}
	if iv, ok := r.(IntValue); ok {
		n = iv.Value
	}
	if seq == nil || n == nil {
		if s, ok := r.(StrValue); ok {
			return repeatOp(ip, s, l, line)
		}
		if lst, ok := r.(*ListValue); ok {
			return repeatOp(ip, lst, l, line)
		}
		return nil, raise(ip.Classes, line, "TypeError", "can't multiply sequence by non-int of type '%s'", TypeName(r))
	}
	count := n.Int64()
	if count < 0 {
		count = 0
	}
	switch s := seq.(type) {
	case StrValue:
		return StrValue{[]rune(strings.Repeat(string(s.Runes), int(count)))}, nil
	case *ListValue:
		out := make([]Value, 0, int64(len(s.Elements))*count)
		for i := int64(0); i < count; i++ {
			out = append(out, s.Elements...)
		}
		return NewList(out...), nil
	case TupleValue:
		out := make([]Value, 0, int64(len(s.Elements))*count)
		for i := int64(0); i < count; i++ {
			out = append(out, s.Elements...)
		}
		return NewTuple(out...), nil
	}
	return nil, raise(ip.Classes, line, "TypeError", "unsupported repeat operand")
}

// arith implements spec.md §4.3's numeric rules: int/int division
// produces Float; // and % floor toward -inf with sign following the
// divisor; power may overflow to Float.
func arith(ip *Interp, op string, l, r Value, line int) (Value, error) {
	li, lIsInt := l.(IntValue)
	ri, rIsInt := r.(IntValue)
	bothInt := lIsInt && rIsInt

	switch op {
	case "+":
		if bothInt {
			return IntValue{new(big.Int).Add(li.Value, ri.Value)}, nil
		}
		return NewFloat(toFloat(l) + toFloat(r)), nil
	case "-":
		if bothInt {
			return IntValue{new(big.Int).Sub(li.Value, ri.Value)}, nil
		}
		return NewFloat(toFloat(l) - toFloat(r)), nil
	case "*":
		if bothInt {
			return IntValue{new(big.Int).Mul(li.Value, ri.Value)}, nil
		}
		return NewFloat(toFloat(l) * toFloat(r)), nil
	case "/":
		rf := toFloat(r)
		if rf == 0 {
			return nil, raise(ip.Classes, line, "ZeroDivisionError", "division by zero")
		}
		return NewFloat(toFloat(l) / rf), nil
	case "//":
		if bothInt {
			if ri.Value.Sign() == 0 {
				return nil, raise(ip.Classes, line, "ZeroDivisionError", "integer division or modulo by zero")
			}
			q, m := new(big.Int).QuoRem(li.Value, ri.Value, new(big.Int))
			if m.Sign() != 0 && (m.Sign() < 0) != (ri.Value.Sign() < 0) {
				q.Sub(q, bigOne)
			}
			return IntValue{q}, nil
		}
		rf := toFloat(r)
		if rf == 0 {
			return nil, raise(ip.Classes, line, "ZeroDivisionError", "float floor division by zero")
		}
		return NewFloat(math.Floor(toFloat(l) / rf)), nil
	case "%":
		if bothInt {
			if ri.Value.Sign() == 0 {
				return nil, raise(ip.Classes, line, "ZeroDivisionError", "integer division or modulo by zero")
			}
			m := new(big.Int).Mod(li.Value, ri.Value)
			if m.Sign() != 0 && ri.Value.Sign() < 0 {
				m.Add(m, ri.Value)
			}
			return IntValue{m}, nil
		}
		rf := toFloat(r)
		if rf == 0 {
			return nil, raise(ip.Classes, line, "ZeroDivisionError", "float modulo")
		}
		m := math.Mod(toFloat(l), rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return NewFloat(m), nil
	case "**":
		if bothInt && ri.Value.Sign() >= 0 {
			if ri.Value.IsInt64() && ri.Value.Int64() < 4096 {
				return IntValue{new(big.Int).Exp(li.Value, ri.Value, nil)}, nil
			}
			return NewFloat(math.Pow(toFloat(l), toFloat(r))), nil
		}
		return NewFloat(math.Pow(toFloat(l), toFloat(r))), nil
	case "&", "|", "^", "<<", ">>":
		if !bothInt {
			return nil, raise(ip.Classes, line, "TypeError", "unsupported operand type(s) for %s", op)
		}
		return bitwise(op, li.Value, ri.Value)
	}
	return nil, raise(ip.Classes, line, "TypeError", "unknown operator %s", op)
}

func bitwise(op string, l, r *big.Int) (Value, error) {
	switch op {
	case "&":
		return IntValue{new(big.Int).And(l, r)}, nil
	case "|":
		return IntValue{new(big.Int).Or(l, r)}, nil
	case "^":
		return IntValue{new(big.Int).Xor(l, r)}, nil
	case "<<":
		return IntValue{new(big.Int).Lsh(l, uint(r.Int64()))}, nil
	case ">>":
		return IntValue{new(big.Int).Rsh(l, uint(r.Int64()))}, nil
	}
	return nil, nil
}

// evalUnary implements `-x`, `+x`, `~x`, `not x`.
func (ip *Interp) evalUnary(op string, v Value, line int) (Value, error) {
	switch op {
	case "not":
		return Bool(!ip.truthy(v)), nil
	case "-":
		if iv, ok := v.(IntValue); ok {
			return IntValue{new(big.Int).Neg(iv.Value)}, nil
		}
		if n, ok := AsNumeric(v); ok {
			return NewFloat(-toFloat(n)), nil
		}
		if inst, ok := v.(*Instance); ok {
			if m, found := lookupMethod(inst.Class, "__neg__"); found {
				return ip.Call(bindMethod(inst, m), nil, nil, line)
			}
		}
	case "+":
		if n, ok := AsNumeric(v); ok {
			return n, nil
		}
	case "~":
		if iv, ok := v.(IntValue); ok {
			return IntValue{new(big.Int).Not(iv.Value)}, nil
		}
	}
	return nil, raise(ip.Classes, line, "TypeError", "bad operand type for unary %s: '%s'", op, TypeName(v))
}

// truthy is the evaluator's dunder-aware wrapper around Truthy,
// consulting __bool__ then __len__ on Instances (spec.md §4.4).
func (ip *Interp) truthy(v Value) bool {
	inst, ok := v.(*Instance)
	if !ok {
		return Truthy(v)
	}
	if m, found := lookupMethod(inst.Class, "__bool__"); found {
		res, err := ip.Call(bindMethod(inst, m), nil, nil, 0)
		if err == nil {
			return Truthy(res)
		}
	}
	if m, found := lookupMethod(inst.Class, "__len__"); found {
		res, err := ip.Call(bindMethod(inst, m), nil, nil, 0)
		if err == nil {
			if iv, ok := res.(IntValue); ok {
				return iv.Value.Sign() != 0
			}
		}
	}
	return true
}

// equals is the evaluator's dunder-aware equality, consulting __eq__ on
// Instances before falling back to the built-in Equals.
func (ip *Interp) equals(a, b Value) bool {
	if inst, ok := a.(*Instance); ok {
		if m, found := lookupMethod(inst.Class, "__eq__"); found {
			res, err := ip.Call(bindMethod(inst, m), []Value{b}, nil, 0)
			if err == nil {
				return ip.truthy(res)
			}
		}
	}
	return Equals(a, b, nil)
}

// compare implements spec.md §3's ordering comparisons, dispatching to
// __lt__/__le__/__gt__/__ge__ for Instances and failing with TypeError
// across incompatible built-in kinds.
func (ip *Interp) compare(op string, l, r Value, line int) (bool, error) {
	switch op {
	case "==":
		return ip.equals(l, r), nil
	case "!=":
		return !ip.equals(l, r), nil
	case "is":
		return sameIdentity(l, r), nil
	case "is not":
		return !sameIdentity(l, r), nil
	case "in", "not in":
		res, err := ip.containsOp(r, l, line)
		if err != nil {
			return false, err
		}
		if op == "not in" {
			return !res, nil
		}
		return res, nil
	}

	if inst, ok := l.(*Instance); ok {
		dunder := map[string]string{"<": "__lt__", "<=": "__le__", ">": "__gt__", ">=": "__ge__"}[op]
		if m, found := lookupMethod(inst.Class, dunder); found {
			res, err := ip.Call(bindMethod(inst, m), []Value{r}, nil, line)
			if err != nil {
				return false, err
			}
			return ip.truthy(res), nil
		}
	}

	ln, lIsNum := AsNumeric(l)
	rn, rIsNum := AsNumeric(r)
	if lIsNum && rIsNum {
		return numericCompare(op, ln, rn), nil
	}
	ls, lIsStr := l.(StrValue)
	rs, rIsStr := r.(StrValue)
	if lIsStr && rIsStr {
		return stringCompare(op, string(ls.Runes), string(rs.Runes)), nil
	}
	return false, raise(ip.Classes, line, "TypeError", "'%s' not supported between instances of '%s' and '%s'", op, TypeName(l), TypeName(r))
}

func sameIdentity(a, b Value) bool {
	switch x := a.(type) {
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Value == y.Value
	case IntValue:
		y, ok := b.(IntValue)
		return ok && x.Value.Cmp(y.Value) == 0
	default:
		return a == b
	}
}

func numericCompare(op string, l, r Value) bool {
	li, lIsInt := l.(IntValue)
	ri, rIsInt := r.(IntValue)
	var c int
	if lIsInt && rIsInt {
		c = li.Value.Cmp(ri.Value)
	} else {
		lf, rf := toFloat(l), toFloat(r)
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		default:
			c = 0
		}
	}
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func stringCompare(op, l, r string) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

// containsOp implements `in`/`not in` over a container (second operand
// is the container, first is the needle — reversed args because
// compare() always calls containsOp(r, l, ...) for `l in r`).
func (ip *Interp) containsOp(container, needle Value, line int) (bool, error) {
	switch c := container.(type) {
	case StrValue:
		n, ok := needle.(StrValue)
		if !ok {
			return false, raise(ip.Classes, line, "TypeError", "'in <string>' requires string as left operand, not %s", TypeName(needle))
		}
		return strings.Contains(string(c.Runes), string(n.Runes)), nil
	case *ListValue:
		for _, e := range c.Elements {
			if ip.equals(e, needle) {
				return true, nil
			}
		}
		return false, nil
	case TupleValue:
		for _, e := range c.Elements {
			if ip.equals(e, needle) {
				return true, nil
			}
		}
		return false, nil
	case *DictValue:
		_, ok, err := c.Get(needle)
		return ok, err
	case *SetValue:
		return c.Contains(needle)
	case *RangeValue:
		iv, ok := needle.(IntValue)
		if !ok {
			return false, nil
		}
		return c.Contains(iv.Value), nil
	case *Instance:
		if m, found := lookupMethod(c.Class, "__contains__"); found {
			res, err := ip.Call(bindMethod(c, m), []Value{needle}, nil, line)
			if err != nil {
				return false, err
			}
			return ip.truthy(res), nil
		}
	}
	return false, raise(ip.Classes, line, "TypeError", "argument of type '%s' is not iterable", TypeName(container))
}
