package interp

import (
	"fmt"
	"math/big"
	"reflect"
)

// Hashable reports whether v may be used as a dict key / set element,
// per spec.md §3's closed list: None, Bool, Int, Float, Str, Tuple (of
// hashables), Range, Class, Function, BoundMethod.
func Hashable(v Value) bool {
	switch x := v.(type) {
	case NoneValue, BoolValue, IntValue, FloatValue, StrValue, *RangeValue, *Class, *Function, *BoundMethod, *Lambda, *Builtin:
		return true
	case TupleValue:
		for _, e := range x.Elements {
			if !Hashable(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// HashKey returns a canonical string uniquely identifying v among
// hashable values with the same Equals-equivalence class (so that e.g.
// IntValue(1), BoolValue(true), and FloatValue(1.0) — which are all
// == per spec.md §3 — collide to the same dict/set slot, matching
// `{1: "a", True: "b"}` overwriting the same key in the source
// language).
func HashKey(v Value) (string, error) {
	switch x := v.(type) {
	case NoneValue:
		return "None", nil
	case BoolValue:
		return numericBool(x).Value.String(), nil
	case IntValue:
		return x.Value.String(), nil
	case FloatValue:
		if x.Value == float64(int64(x.Value)) {
			return big.NewInt(int64(x.Value)).String(), nil
		}
		return fmt.Sprintf("f:%v", x.Value), nil
	case StrValue:
		return "s:" + string(x.Runes), nil
	case *RangeValue:
		return fmt.Sprintf("r:%s:%s:%s", x.Start, x.Stop, x.Step), nil
	case *Class:
		return fmt.Sprintf("cls:%p", x), nil
	case *Function:
		return fmt.Sprintf("fn:%p", x), nil
	case *Lambda:
		return fmt.Sprintf("lam:%p", x), nil
	case *Builtin:
		return "builtin:" + x.Name, nil
	case *BoundMethod:
		rk, err := HashKey(x.Receiver)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("bm:%s:%p", rk, x.Func), nil
	case TupleValue:
		key := "t:("
		for i, e := range x.Elements {
			if i > 0 {
				key += ","
			}
			ek, err := HashKey(e)
			if err != nil {
				return "", err
			}
			key += ek
		}
		return key + ")", nil
	default:
		return "", fmt.Errorf("unhashable type: '%s'", TypeName(v))
	}
}

// Equals implements source-language value equality (spec.md §3):
// Int==Float when numerically equal, True==1, containers compare
// element-wise, cyclic structures are guarded via seen.
func Equals(a, b Value, seen map[[2]uintptr]bool) bool {
	an, aNum := AsNumeric(a)
	bn, bNum := AsNumeric(b)
	if aNum && bNum {
		return numericEquals(an, bn)
	}
	switch a.(type) {
	case *ListValue, *DictValue:
		if reflect.TypeOf(a) == reflect.TypeOf(b) {
			if seen == nil {
				seen = map[[2]uintptr]bool{}
			}
			pair := [2]uintptr{reflect.ValueOf(a).Pointer(), reflect.ValueOf(b).Pointer()}
			if seen[pair] {
				return true
			}
			seen[pair] = true
		}
	}
	switch x := a.(type) {
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case StrValue:
		y, ok := b.(StrValue)
		return ok && string(x.Runes) == string(y.Runes)
	case *ListValue:
		y, ok := b.(*ListValue)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		return elementsEqual(x.Elements, y.Elements, seen)
	case TupleValue:
		y, ok := b.(TupleValue)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		return elementsEqual(x.Elements, y.Elements, seen)
	case *DictValue:
		y, ok := b.(*DictValue)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, found := y.getByKey(k)
			xv, _ := x.getByKey(k)
			if !found || !Equals(xv, yv, seen) {
				return false
			}
		}
		return true
	case *SetValue:
		y, ok := b.(*SetValue)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			if !y.hasKey(k) {
				return false
			}
		}
		return true
	case *RangeValue:
		y, ok := b.(*RangeValue)
		return ok && x.Start.Cmp(y.Start) == 0 && x.Stop.Cmp(y.Stop) == 0 && x.Step.Cmp(y.Step) == 0
	default:
		return a == b
	}
}

func elementsEqual(xs, ys []Value, seen map[[2]uintptr]bool) bool {
	for i := range xs {
		if !Equals(xs[i], ys[i], seen) {
			return false
		}
	}
	return true
}

func numericEquals(a, b Value) bool {
	ai, aIsInt := a.(IntValue)
	bi, bIsInt := b.(IntValue)
	if aIsInt && bIsInt {
		return ai.Value.Cmp(bi.Value) == 0
	}
	af := toFloat(a)
	bf := toFloat(b)
	return af == bf
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case IntValue:
		f := new(big.Float).SetInt(x.Value)
		r, _ := f.Float64()
		return r
	case FloatValue:
		return x.Value
	}
	return 0
}
