package interp

import (
	"github.com/quill-lang/quill/internal/ast"
)

// evalExpr is the expression evaluator's single entry point: spec.md §4.2's
// full expression grammar funnels through this type switch.
func (ip *Interp) evalExpr(env *Environment, expr ast.Expression) (Value, error) {
	line := expr.Pos().Line
	switch e := expr.(type) {
	case *ast.NoneLit:
		return None, nil
	case *ast.BoolLit:
		return Bool(e.Value), nil
	case *ast.IntLit:
		v, err := ParseInt(e.Text)
		if err != nil {
			return nil, raise(ip.Classes, line, "SyntaxError", "%s", err.Error())
		}
		return v, nil
	case *ast.FloatLit:
		return NewFloat(e.Value), nil
	case *ast.StrLit:
		return NewStr(e.Value), nil
	case *ast.BytesLit:
		return nil, raise(ip.Classes, line, "NotImplementedError", "bytes literals are not supported")
	case *ast.ImaginaryLit:
		return nil, raise(ip.Classes, line, "NotImplementedError", "complex numbers are not supported")
	case *ast.FString:
		return ip.evalFString(env, e)
	case *ast.Name:
		v, ok := env.Get(e.Value)
		if !ok {
			return nil, raise(ip.Classes, line, "NameError", "name '%s' is not defined", e.Value)
		}
		return v, nil
	case *ast.BinOp:
		l, err := ip.evalExpr(env, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ip.evalExpr(env, e.Right)
		if err != nil {
			return nil, err
		}
		return ip.evalBinOp(e.Op, l, r, line)
	case *ast.UnaryOp:
		v, err := ip.evalExpr(env, e.Operand)
		if err != nil {
			return nil, err
		}
		return ip.evalUnary(e.Op, v, line)
	case *ast.BoolOp:
		var last Value = Bool(e.Op == "and")
		for _, sub := range e.Values {
			v, err := ip.evalExpr(env, sub)
			if err != nil {
				return nil, err
			}
			last = v
			if e.Op == "and" && !ip.truthy(v) {
				return v, nil
			}
			if e.Op == "or" && ip.truthy(v) {
				return v, nil
			}
		}
		return last, nil
	case *ast.Compare:
		l, err := ip.evalExpr(env, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := ip.evalExpr(env, e.Right)
		if err != nil {
			return nil, err
		}
		ok, err := ip.compare(e.Op, l, r, line)
		if err != nil {
			return nil, err
		}
		return Bool(ok), nil
	case *ast.ChainedCompare:
		return ip.evalChainedCompare(env, e, line)
	case *ast.Call:
		return ip.evalCall(env, e, line)
	case *ast.Attr:
		v, err := ip.evalExpr(env, e.Value)
		if err != nil {
			return nil, err
		}
		return ip.getAttr(v, e.Name, line)
	case *ast.Subscript:
		v, err := ip.evalExpr(env, e.Value)
		if err != nil {
			return nil, err
		}
		return ip.evalIndex(env, v, e.Index, line)
	case *ast.Slice:
		return nil, raise(ip.Classes, line, "SyntaxError", "slice used outside subscript")
	case *ast.ListExpr:
		elems, err := ip.evalExprList(env, e.Elements, line)
		if err != nil {
			return nil, err
		}
		return NewList(elems...), nil
	case *ast.TupleExpr:
		elems, err := ip.evalExprList(env, e.Elements, line)
		if err != nil {
			return nil, err
		}
		return NewTuple(elems...), nil
	case *ast.SetExpr:
		elems, err := ip.evalExprList(env, e.Elements, line)
		if err != nil {
			return nil, err
		}
		s := NewSet()
		for _, v := range elems {
			if err := s.Add(v); err != nil {
				return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
			}
		}
		return s, nil
	case *ast.DictExpr:
		return ip.evalDictExpr(env, e, line)
	case *ast.ListComp, *ast.SetComp, *ast.DictComp, *ast.GenExpr:
		return ip.evalComprehension(env, e, line)
	case *ast.Lambda:
		defaults := make([]Value, 0, len(e.Params.Positional))
		for _, p := range e.Params.Positional {
			if p.Default == nil {
				continue
			}
			v, err := ip.evalExpr(env, p.Default)
			if err != nil {
				return nil, err
			}
			defaults = append(defaults, v)
		}
		return &Lambda{Node: e, Closure: env, Defaults: defaults}, nil
	case *ast.Ternary:
		c, err := ip.evalExpr(env, e.Cond)
		if err != nil {
			return nil, err
		}
		if ip.truthy(c) {
			return ip.evalExpr(env, e.Then)
		}
		return ip.evalExpr(env, e.Else)
	case *ast.Walrus:
		v, err := ip.evalExpr(env, e.Value)
		if err != nil {
			return nil, err
		}
		if err := ip.assignTo(env, e.Target, v, line); err != nil {
			return nil, err
		}
		return v, nil
	case *ast.Yield:
		var v Value = None
		if e.Value != nil {
			var err error
			v, err = ip.evalExpr(env, e.Value)
			if err != nil {
				return nil, err
			}
		}
		return ip.doYield(v, line)
	case *ast.YieldFrom:
		v, err := ip.evalExpr(env, e.Value)
		if err != nil {
			return nil, err
		}
		return ip.doYieldFrom(v, line)
	case *ast.Starred:
		return nil, raise(ip.Classes, line, "SyntaxError", "starred expression not allowed here")
	case *ast.DoubleStarred:
		return nil, raise(ip.Classes, line, "SyntaxError", "double-starred expression not allowed here")
	}
	return nil, raise(ip.Classes, line, "RuntimeError", "unhandled expression type %T", expr)
}

func (ip *Interp) evalChainedCompare(env *Environment, e *ast.ChainedCompare, line int) (Value, error) {
	left, err := ip.evalExpr(env, e.Operands[0])
	if err != nil {
		return nil, err
	}
	for i, op := range e.Ops {
		right, err := ip.evalExpr(env, e.Operands[i+1])
		if err != nil {
			return nil, err
		}
		ok, err := ip.compare(op, left, right, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			return False, nil
		}
		left = right
	}
	return True, nil
}

// evalExprList evaluates a List/Tuple/Set literal's elements, expanding
// any `*expr` element in place (spec.md §4.2 sequence-literal unpacking).
func (ip *Interp) evalExprList(env *Environment, elems []ast.Expression, line int) ([]Value, error) {
	out := make([]Value, 0, len(elems))
	for _, el := range elems {
		if st, ok := el.(*ast.Starred); ok {
			v, err := ip.evalExpr(env, st.Value)
			if err != nil {
				return nil, err
			}
			items, err := ip.iterableToSlice(v, line)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := ip.evalExpr(env, el)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (ip *Interp) evalDictExpr(env *Environment, e *ast.DictExpr, line int) (Value, error) {
	d := NewDict()
	for i, k := range e.Keys {
		if k == nil {
			ds, ok := e.Values[i].(*ast.DoubleStarred)
			if !ok {
				return nil, raise(ip.Classes, line, "SyntaxError", "invalid dict merge entry")
			}
			v, err := ip.evalExpr(env, ds.Value)
			if err != nil {
				return nil, err
			}
			other, ok := v.(*DictValue)
			if !ok {
				return nil, raise(ip.Classes, line, "TypeError", "argument after ** must be a mapping")
			}
			for j, ok2 := range other.Keys() {
				if err := d.Set(ok2, other.Values()[j]); err != nil {
					return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
				}
			}
			continue
		}
		kv, err := ip.evalExpr(env, k)
		if err != nil {
			return nil, err
		}
		vv, err := ip.evalExpr(env, e.Values[i])
		if err != nil {
			return nil, err
		}
		if err := d.Set(kv, vv); err != nil {
			return nil, raise(ip.Classes, line, "TypeError", "%s", err.Error())
		}
	}
	return d, nil
}

// evalCall implements a call expression, including the `super()` special
// form (spec.md §4.4/GLOSSARY): zero-argument super() resolves `self` and
// the defining class from the enclosing method's frame; two-argument
// super(Cls, obj) takes them explicitly. Either form is recognised only
// when nothing named `super` is already bound, so a script defining its
// own `super` shadows the built-in form.
func (ip *Interp) evalCall(env *Environment, call *ast.Call, line int) (Value, error) {
	if name, ok := call.Func.(*ast.Name); ok && name.Value == "super" {
		if _, bound := env.Get("super"); !bound {
			return ip.evalSuper(env, call, line)
		}
	}
	fn, err := ip.evalExpr(env, call.Func)
	if err != nil {
		return nil, err
	}
	args, kwargs, err := ip.evalCallArgs(env, call, line)
	if err != nil {
		return nil, err
	}
	return ip.Call(fn, args, kwargs, line)
}

func (ip *Interp) evalCallArgs(env *Environment, call *ast.Call, line int) ([]Value, map[string]Value, error) {
	var args []Value
	for _, a := range call.Args {
		if st, ok := a.(*ast.Starred); ok {
			v, err := ip.evalExpr(env, st.Value)
			if err != nil {
				return nil, nil, err
			}
			items, err := ip.iterableToSlice(v, line)
			if err != nil {
				return nil, nil, err
			}
			args = append(args, items...)
			continue
		}
		v, err := ip.evalExpr(env, a)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, v)
	}
	var kwargs map[string]Value
	for _, kw := range call.Keywords {
		if kw.Name == "" {
			ds, ok := kw.Value.(*ast.DoubleStarred)
			if !ok {
				return nil, nil, raise(ip.Classes, line, "SyntaxError", "invalid **kwargs expression")
			}
			v, err := ip.evalExpr(env, ds.Value)
			if err != nil {
				return nil, nil, err
			}
			dict, ok := v.(*DictValue)
			if !ok {
				return nil, nil, raise(ip.Classes, line, "TypeError", "argument after ** must be a mapping")
			}
			if kwargs == nil {
				kwargs = map[string]Value{}
			}
			for i, k := range dict.Keys() {
				kwargs[Str(k)] = dict.Values()[i]
			}
			continue
		}
		v, err := ip.evalExpr(env, kw.Value)
		if err != nil {
			return nil, nil, err
		}
		if kwargs == nil {
			kwargs = map[string]Value{}
		}
		kwargs[kw.Name] = v
	}
	return args, kwargs, nil
}

func (ip *Interp) evalSuper(env *Environment, call *ast.Call, line int) (Value, error) {
	args, _, err := ip.evalCallArgs(env, call, line)
	if err != nil {
		return nil, err
	}
	var selfVal Value
	var startClass *Class
	if len(args) >= 2 {
		c, ok := args[0].(*Class)
		if !ok {
			return nil, raise(ip.Classes, line, "TypeError", "super() argument 1 must be a class")
		}
		startClass = c
		selfVal = args[1]
	} else {
		sv, ok := env.Get("self")
		if !ok {
			return nil, raise(ip.Classes, line, "RuntimeError", "super(): no arguments and no self found")
		}
		cv, ok := env.Get("__class__")
		if !ok {
			return nil, raise(ip.Classes, line, "RuntimeError", "super(): __class__ cell not found")
		}
		c, ok := cv.(*Class)
		if !ok {
			return nil, raise(ip.Classes, line, "RuntimeError", "super(): invalid __class__ cell")
		}
		selfVal, startClass = sv, c
	}
	inst, ok := selfVal.(*Instance)
	if !ok {
		return nil, raise(ip.Classes, line, "TypeError", "super() argument must be an instance")
	}
	return &SuperProxy{Instance: inst, StartClass: startClass}, nil
}
