package interp

import "github.com/quill-lang/quill/internal/ast"

// matchPattern implements spec.md §4.2's `match`/`case` pattern matching:
// on success it binds whatever captures the pattern introduces directly
// into env (the case's own child frame, so a failed case's partial
// bindings never leak into the next one) and reports true.
func (ip *Interp) matchPattern(env *Environment, p ast.Pattern, subject Value, line int) (bool, error) {
	switch pt := p.(type) {
	case *ast.LiteralPattern:
		lv, err := ip.evalExpr(env, pt.Value)
		if err != nil {
			return false, err
		}
		return ip.equals(subject, lv), nil
	case *ast.WildcardPattern:
		return true, nil
	case *ast.CapturePattern:
		env.Define(pt.Name, subject)
		return true, nil
	case *ast.OrPattern:
		for _, alt := range pt.Alternatives {
			m, err := ip.matchPattern(env, alt, subject, line)
			if err != nil {
				return false, err
			}
			if m {
				return true, nil
			}
		}
		return false, nil
	case *ast.SequencePattern:
		return ip.matchSequence(env, pt, subject, line)
	case *ast.MappingPattern:
		return ip.matchMapping(env, pt, subject, line)
	case *ast.ClassPattern:
		return ip.matchClass(env, pt, subject, line)
	}
	return false, raise(ip.Classes, line, "RuntimeError", "unhandled pattern type %T", p)
}

func sequenceElements(v Value) ([]Value, bool) {
	switch x := v.(type) {
	case *ListValue:
		return x.Elements, true
	case TupleValue:
		return x.Elements, true
	}
	return nil, false
}

func (ip *Interp) matchSequence(env *Environment, p *ast.SequencePattern, subject Value, line int) (bool, error) {
	elements, ok := sequenceElements(subject)
	if !ok {
		return false, nil
	}
	if p.StarIndex == -1 {
		if len(elements) != len(p.Elements) {
			return false, nil
		}
		for i, sub := range p.Elements {
			m, err := ip.matchPattern(env, sub, elements[i], line)
			if err != nil || !m {
				return m, err
			}
		}
		return true, nil
	}
	before := p.StarIndex
	after := len(p.Elements) - p.StarIndex - 1
	if len(elements) < before+after {
		return false, nil
	}
	for i := 0; i < before; i++ {
		m, err := ip.matchPattern(env, p.Elements[i], elements[i], line)
		if err != nil || !m {
			return m, err
		}
	}
	if p.StarName != "" && p.StarName != "_" {
		mid := append([]Value{}, elements[before:len(elements)-after]...)
		env.Define(p.StarName, NewList(mid...))
	}
	for i := 0; i < after; i++ {
		m, err := ip.matchPattern(env, p.Elements[p.StarIndex+1+i], elements[len(elements)-after+i], line)
		if err != nil || !m {
			return m, err
		}
	}
	return true, nil
}

func (ip *Interp) matchMapping(env *Environment, p *ast.MappingPattern, subject Value, line int) (bool, error) {
	d, ok := subject.(*DictValue)
	if !ok {
		return false, nil
	}
	consumed := map[string]bool{}
	for i, keyExpr := range p.Keys {
		kv, err := ip.evalExpr(env, keyExpr)
		if err != nil {
			return false, err
		}
		v, ok, err := d.Get(kv)
		if err != nil {
			return false, raise(ip.Classes, line, "TypeError", "%s", err.Error())
		}
		if !ok {
			return false, nil
		}
		m, err := ip.matchPattern(env, p.Patterns[i], v, line)
		if err != nil || !m {
			return m, err
		}
		hk, _ := HashKey(kv)
		consumed[hk] = true
	}
	if p.RestName != "" && p.RestName != "_" {
		rest := NewDict()
		for i, k := range d.Keys() {
			hk, _ := HashKey(k)
			if consumed[hk] {
				continue
			}
			_ = rest.Set(k, d.Values()[i])
		}
		env.Define(p.RestName, rest)
	}
	return true, nil
}

func (ip *Interp) matchClass(env *Environment, p *ast.ClassPattern, subject Value, line int) (bool, error) {
	clsVal, err := ip.evalExpr(env, p.Class)
	if err != nil {
		return false, err
	}
	cls, ok := clsVal.(*Class)
	if !ok {
		return false, raise(ip.Classes, line, "TypeError", "called match pattern must be a class")
	}
	if !IsInstance(subject, cls) {
		return false, nil
	}
	inst := subject.(*Instance)
	if len(p.Positional) > 0 {
		matchArgsVal, ok := lookupClassAttr(cls, "__match_args__")
		if !ok {
			return false, nil
		}
		tup, ok := matchArgsVal.(TupleValue)
		if !ok || len(tup.Elements) < len(p.Positional) {
			return false, nil
		}
		for i, sub := range p.Positional {
			nameVal, ok := tup.Elements[i].(StrValue)
			if !ok {
				return false, nil
			}
			attrVal, ok := lookupAttr(inst, string(nameVal.Runes))
			if !ok {
				return false, nil
			}
			m, err := ip.matchPattern(env, sub, attrVal, line)
			if err != nil || !m {
				return m, err
			}
		}
	}
	for i, kwname := range p.KeywordName {
		attrVal, ok := lookupAttr(inst, kwname)
		if !ok {
			return false, nil
		}
		m, err := ip.matchPattern(env, p.Keyword[i], attrVal, line)
		if err != nil || !m {
			return m, err
		}
	}
	return true, nil
}
