package interp

import (
	"github.com/quill-lang/quill/internal/ast"
)

// Call invokes any callable Value: *Function, *Lambda, *Builtin,
// *BoundMethod, *Class (construction), or an *Instance with __call__
// (spec.md §4.4 dunder dispatch). line is the call site, used for
// RecursionError/TypeError messages.
func (ip *Interp) Call(fn Value, args []Value, kwargs map[string]Value, line int) (Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		if kwargs != nil && !f.KeywordAware && len(kwargs) > 0 {
			return nil, raise(ip.Classes, line, "TypeError", "%s() got unexpected keyword arguments", f.Name)
		}
		return f.Fn(ip.Ctx, args, kwargs)
	case *BoundMethod:
		full := append([]Value{f.Receiver}, args...)
		return ip.Call(f.Func, full, kwargs, line)
	case *Function:
		return ip.callFunction(f, args, kwargs, line)
	case *Lambda:
		return ip.callLambda(f, args, kwargs, line)
	case *Class:
		return ip.instantiate(f, args, kwargs, line)
	case *Instance:
		if dunder, ok := lookupMethod(f.Class, "__call__"); ok {
			return ip.Call(bindMethod(f, dunder), args, kwargs, line)
		}
		return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not callable", f.Class.Name)
	default:
		return nil, raise(ip.Classes, line, "TypeError", "'%s' object is not callable", TypeName(fn))
	}
}

// bindMethod turns a raw Function/Lambda/Builtin class attribute into a
// BoundMethod prepending self, per spec.md §4.4.
func bindMethod(self Value, attr Value) Value {
	switch attr.(type) {
	case *Function, *Lambda, *Builtin:
		return NewBoundMethod(self, attr)
	default:
		return attr
	}
}

func (ip *Interp) callFunction(f *Function, args []Value, kwargs map[string]Value, line int) (Value, error) {
	if f.Def.IsGenerator {
		return ip.newGeneratorCall(f, args, kwargs, line)
	}
	ip.depth++
	defer func() { ip.depth-- }()
	if ip.depth > maxCallDepth {
		return nil, raise(ip.Classes, line, "RecursionError", "maximum recursion depth exceeded")
	}
	env := NewEnclosedEnvironment(f.Closure)
	if err := ip.bindParams(env, f.Def.Params, f.Defaults, f.KwDefaults, args, kwargs, f.Def.Name, line); err != nil {
		return nil, err
	}
	if f.DefiningClass != nil {
		env.Define("__class__", f.DefiningClass)
	}
	ip.Ctx.RecordCallEnter(f.Def.Name)
	defer ip.Ctx.RecordCallExit(f.Def.Name)
	ctrl, err := ip.execBlock(env, f.Def.Body)
	if err != nil {
		return nil, err
	}
	if ctrl.kind == ctrlReturn {
		return ctrl.value, nil
	}
	return None, nil
}

func (ip *Interp) callLambda(f *Lambda, args []Value, kwargs map[string]Value, line int) (Value, error) {
	ip.depth++
	defer func() { ip.depth-- }()
	if ip.depth > maxCallDepth {
		return nil, raise(ip.Classes, line, "RecursionError", "maximum recursion depth exceeded")
	}
	env := NewEnclosedEnvironment(f.Closure)
	if err := ip.bindParams(env, f.Node.Params, f.Defaults, nil, args, kwargs, "<lambda>", line); err != nil {
		return nil, err
	}
	return ip.evalExpr(env, f.Node.Body)
}

// bindParams implements the full binding algorithm spec.md §3/§4.2
// describes for a Params list: positional-or-keyword with defaults,
// *args, keyword-only (with their own defaults), **kwargs.
func (ip *Interp) bindParams(env *Environment, params *ast.Params, defaults []Value, kwDefaults map[string]Value, args []Value, kwargs map[string]Value, funcName string, line int) error {
	positional := params.Positional
	nRequired := len(positional) - len(defaults)

	consumed := 0
	for i, p := range positional {
		var v Value
		if i < len(args) {
			v = args[i]
			consumed++
		} else if kv, ok := kwargs[p.Name]; ok {
			v = kv
		} else if i >= nRequired {
			v = defaults[i-nRequired]
		} else {
			return raise(ip.Classes, line, "TypeError", "%s() missing required positional argument: '%s'", funcName, p.Name)
		}
		env.Define(p.Name, v)
	}

	if params.VarArgs != nil {
		var extra []Value
		if consumed < len(args) {
			extra = args[consumed:]
		}
		env.Define(params.VarArgs.Name, NewTuple(extra...))
	} else if consumed < len(args) {
		return raise(ip.Classes, line, "TypeError", "%s() takes %d positional arguments but %d were given", funcName, len(positional), len(args))
	}

	usedKw := map[string]bool{}
	for _, p := range positional {
		usedKw[p.Name] = true
	}
	for _, p := range params.KeywordOnly {
		if kv, ok := kwargs[p.Name]; ok {
			env.Define(p.Name, kv)
			usedKw[p.Name] = true
		} else if dv, ok := kwDefaults[p.Name]; ok {
			env.Define(p.Name, dv)
		} else {
			return raise(ip.Classes, line, "TypeError", "%s() missing required keyword-only argument: '%s'", funcName, p.Name)
		}
	}

	if params.KwArgs != nil {
		rest := NewDict()
		for k, v := range kwargs {
			if !usedKw[k] {
				_ = rest.Set(NewStr(k), v)
			}
		}
		env.Define(params.KwArgs.Name, rest)
	} else {
		for k := range kwargs {
			if !usedKw[k] {
				return raise(ip.Classes, line, "TypeError", "%s() got an unexpected keyword argument '%s'", funcName, k)
			}
		}
	}
	return nil
}

// instantiate constructs a new Instance of c, running __init__ if
// present, per spec.md §4.4.
func (ip *Interp) instantiate(c *Class, args []Value, kwargs map[string]Value, line int) (Value, error) {
	inst := NewInstance(c)
	if init, ok := lookupMethod(c, "__init__"); ok {
		if _, err := ip.Call(bindMethod(inst, init), args, kwargs, line); err != nil {
			return nil, err
		}
	} else if len(args) > 0 || len(kwargs) > 0 {
		return nil, raise(ip.Classes, line, "TypeError", "%s() takes no arguments", c.Name)
	}
	return inst, nil
}
