package interp

import "github.com/quill-lang/quill/internal/ast"

// evalComprehension evaluates a List/Set/Dict comprehension eagerly and a
// generator expression lazily (spec.md §4.2: "a GenExpr produces a lazy
// Generator; List/Set/Dict comprehensions are eager"). Each `for` clause
// introduces its own child frame so the loop variable never leaks into
// the enclosing scope, matching ForStmt's per-iteration frame.
func (ip *Interp) evalComprehension(env *Environment, expr ast.Expression, line int) (Value, error) {
	switch e := expr.(type) {
	case *ast.ListComp:
		var out []Value
		err := ip.runCompClauses(env, e.Clauses, 0, func(cenv *Environment) error {
			v, err := ip.evalExpr(cenv, e.Elt)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return NewList(out...), nil

	case *ast.SetComp:
		s := NewSet()
		err := ip.runCompClauses(env, e.Clauses, 0, func(cenv *Environment) error {
			v, err := ip.evalExpr(cenv, e.Elt)
			if err != nil {
				return err
			}
			if err := s.Add(v); err != nil {
				return raise(ip.Classes, line, "TypeError", "%s", err.Error())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case *ast.DictComp:
		d := NewDict()
		err := ip.runCompClauses(env, e.Clauses, 0, func(cenv *Environment) error {
			k, err := ip.evalExpr(cenv, e.Key)
			if err != nil {
				return err
			}
			v, err := ip.evalExpr(cenv, e.Value)
			if err != nil {
				return err
			}
			if err := d.Set(k, v); err != nil {
				return raise(ip.Classes, line, "TypeError", "%s", err.Error())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return d, nil

	case *ast.GenExpr:
		return ip.evalGenExpr(env, e, line)
	}
	return nil, raise(ip.Classes, line, "RuntimeError", "unhandled comprehension type %T", expr)
}

// runCompClauses walks a comprehension's `for`/`if` clauses in source
// order, invoking body once per surviving combination of loop variables.
func (ip *Interp) runCompClauses(env *Environment, clauses []ast.CompClause, idx int, body func(*Environment) error) error {
	if idx >= len(clauses) {
		return body(env)
	}
	c := clauses[idx]
	if c.For == nil {
		v, err := ip.evalExpr(env, c.If)
		if err != nil {
			return err
		}
		if !ip.truthy(v) {
			return nil
		}
		return ip.runCompClauses(env, clauses, idx+1, body)
	}
	iterVal, err := ip.evalExpr(env, c.Iter)
	if err != nil {
		return err
	}
	line := c.Iter.Pos().Line
	it, err := ip.getIterator(iterVal, line)
	if err != nil {
		return err
	}
	for {
		v, ok, err := ip.iterNext(it, line)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		loopEnv := NewEnclosedEnvironment(env)
		if err := ip.assignTo(loopEnv, c.For, v, line); err != nil {
			return err
		}
		if err := ip.runCompClauses(loopEnv, clauses, idx+1, body); err != nil {
			return err
		}
	}
}

// evalGenExpr builds the Generator backing `(expr for ...)`, reusing the
// same producer-goroutine rendezvous a `def` generator function uses
// (generator.go) rather than a second suspension mechanism.
func (ip *Interp) evalGenExpr(env *Environment, e *ast.GenExpr, line int) (Value, error) {
	g := &Generator{
		yieldCh:  make(chan genYield),
		resumeCh: make(chan genResume),
		name:     "<genexpr>",
	}
	gip := ip.withGen(g)
	go func() {
		first := <-g.resumeCh
		if first.throw != nil {
			g.yieldCh <- genYield{done: true, err: first.throw}
			return
		}
		err := gip.runCompClauses(env, e.Clauses, 0, func(cenv *Environment) error {
			v, err := gip.evalExpr(cenv, e.Elt)
			if err != nil {
				return err
			}
			_, yerr := gip.doYield(v, line)
			return yerr
		})
		g.yieldCh <- genYield{done: true, err: err}
	}()
	return g, nil
}
