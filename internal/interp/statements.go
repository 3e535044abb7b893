package interp

import (
	"github.com/quill-lang/quill/internal/ast"
)

// execBlock runs a Block, stopping at the first non-ctrlNone control
// signal or error, per spec.md §3's control-flow model (control.go).
func (ip *Interp) execBlock(env *Environment, body ast.Block) (control, error) {
	for _, stmt := range body {
		if err := ip.Ctx.CheckBudget(stmt.Pos().Line); err != nil {
			return ctrlFallthrough, err
		}
		ctrl, err := ip.execStmt(env, stmt)
		if err != nil {
			return ctrl, err
		}
		if ctrl.kind != ctrlNone {
			return ctrl, nil
		}
		if ip.Ctx.Suspended {
			return ctrlFallthrough, nil
		}
	}
	return ctrlFallthrough, nil
}

func (ip *Interp) execStmt(env *Environment, stmt ast.Statement) (control, error) {
	line := stmt.Pos().Line
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		v, err := ip.evalExpr(env, s.Value)
		if err != nil {
			return ctrlFallthrough, err
		}
		for _, t := range s.Targets {
			if err := ip.assignTo(env, t, v, line); err != nil {
				return ctrlFallthrough, err
			}
		}
		return ctrlFallthrough, nil

	case *ast.AnnAssignStmt:
		if s.Value == nil {
			return ctrlFallthrough, nil
		}
		v, err := ip.evalExpr(env, s.Value)
		if err != nil {
			return ctrlFallthrough, err
		}
		return ctrlFallthrough, ip.assignTo(env, s.Target, v, line)

	case *ast.AugAssignStmt:
		cur, err := ip.evalExpr(env, s.Target)
		if err != nil {
			return ctrlFallthrough, err
		}
		rhs, err := ip.evalExpr(env, s.Value)
		if err != nil {
			return ctrlFallthrough, err
		}
		result, err := ip.evalBinOp(s.Op, cur, rhs, line)
		if err != nil {
			return ctrlFallthrough, err
		}
		return ctrlFallthrough, ip.assignTo(env, s.Target, result, line)

	case *ast.ExprStmt:
		_, err := ip.evalExpr(env, s.X)
		return ctrlFallthrough, err

	case *ast.IfStmt:
		condVal, err := ip.evalExpr(env, s.Cond)
		if err != nil {
			return ctrlFallthrough, err
		}
		take := ip.Ctx.RecordBranch(ip.truthy(condVal))
		if take {
			return ip.execBlock(NewEnclosedEnvironment(env), s.Then)
		}
		return ip.execBlock(NewEnclosedEnvironment(env), s.Else)

	case *ast.WhileStmt:
		return ip.execWhile(env, s)

	case *ast.ForStmt:
		return ip.execFor(env, s)

	case *ast.ReturnStmt:
		if s.Value == nil {
			return ctrlReturnValue(None), nil
		}
		v, err := ip.evalExpr(env, s.Value)
		if err != nil {
			return ctrlFallthrough, err
		}
		return ctrlReturnValue(v), nil

	case *ast.BreakStmt:
		return control{kind: ctrlBreak}, nil
	case *ast.ContinueStmt:
		return control{kind: ctrlContinue}, nil
	case *ast.PassStmt:
		return ctrlFallthrough, nil

	case *ast.FuncDef:
		fn, err := ip.buildFunction(env, s)
		if err != nil {
			return ctrlFallthrough, err
		}
		env.Define(s.Name, fn)
		return ctrlFallthrough, nil

	case *ast.ClassDef:
		cls, err := ip.buildClass(env, s)
		if err != nil {
			return ctrlFallthrough, err
		}
		env.Define(s.Name, cls)
		return ctrlFallthrough, nil

	case *ast.ImportStmt:
		for _, n := range s.Names {
			ns, err := ip.Ctx.resolveModule(n.Name)
			if err != nil {
				return ctrlFallthrough, err
			}
			name := n.AsName
			if name == "" {
				name = n.Name
			}
			env.Define(name, NewModule(n.Name, ns))
		}
		return ctrlFallthrough, nil

	case *ast.FromImportStmt:
		ns, err := ip.Ctx.resolveModule(s.Module)
		if err != nil {
			return ctrlFallthrough, err
		}
		for _, n := range s.Names {
			v, ok := ns[n.Name]
			if !ok {
				return ctrlFallthrough, raise(ip.Classes, line, "ImportError", "cannot import name '%s' from '%s'", n.Name, s.Module)
			}
			name := n.AsName
			if name == "" {
				name = n.Name
			}
			env.Define(name, v)
		}
		return ctrlFallthrough, nil

	case *ast.TryStmt:
		return ip.execTry(env, s)

	case *ast.RaiseStmt:
		return ip.execRaise(env, s, line)

	case *ast.WithStmt:
		return ip.execWithItems(env, s.Items, 0, s.Body)

	case *ast.AssertStmt:
		condVal, err := ip.evalExpr(env, s.Cond)
		if err != nil {
			return ctrlFallthrough, err
		}
		if ip.truthy(condVal) {
			return ctrlFallthrough, nil
		}
		if s.Message != nil {
			mv, err := ip.evalExpr(env, s.Message)
			if err != nil {
				return ctrlFallthrough, err
			}
			return ctrlFallthrough, raise(ip.Classes, line, "AssertionError", "%s", Str(mv))
		}
		return ctrlFallthrough, &Raised{Instance: NewException(ip.Classes["AssertionError"]), Line: line}

	case *ast.DelStmt:
		for _, t := range s.Targets {
			if err := ip.execDel(env, t, line); err != nil {
				return ctrlFallthrough, err
			}
		}
		return ctrlFallthrough, nil

	case *ast.GlobalStmt:
		for _, n := range s.Names {
			env.MarkGlobal(n)
		}
		return ctrlFallthrough, nil

	case *ast.NonlocalStmt:
		for _, n := range s.Names {
			env.MarkNonlocal(n)
		}
		return ctrlFallthrough, nil

	case *ast.MatchStmt:
		return ip.execMatch(env, s, line)
	}
	return ctrlFallthrough, raise(ip.Classes, line, "RuntimeError", "unhandled statement type %T", stmt)
}

func (ip *Interp) execWhile(env *Environment, s *ast.WhileStmt) (control, error) {
	broke := false
	for {
		condVal, err := ip.evalExpr(env, s.Cond)
		if err != nil {
			return ctrlFallthrough, err
		}
		if !ip.Ctx.RecordBranch(ip.truthy(condVal)) {
			break
		}
		ip.Ctx.RecordLoopIter()
		ctrl, err := ip.execBlock(NewEnclosedEnvironment(env), s.Body)
		if err != nil {
			return ctrlFallthrough, err
		}
		switch ctrl.kind {
		case ctrlBreak:
			broke = true
		case ctrlReturn:
			return ctrl, nil
		}
		if ctrl.kind == ctrlBreak {
			break
		}
		if ip.Ctx.Suspended {
			return ctrlFallthrough, nil
		}
	}
	if !broke {
		return ip.execBlock(NewEnclosedEnvironment(env), s.Else)
	}
	return ctrlFallthrough, nil
}

func (ip *Interp) execFor(env *Environment, s *ast.ForStmt) (control, error) {
	line := s.Pos().Line
	iterVal, err := ip.evalExpr(env, s.Iter)
	if err != nil {
		return ctrlFallthrough, err
	}
	it, err := ip.getIterator(iterVal, line)
	if err != nil {
		return ctrlFallthrough, err
	}
	// A generator abandoned before it runs dry (break, return, an
	// unhandled exception in the body) must still be closed so its
	// producer goroutine unwinds through any pending finally/
	// with.__exit__ cleanup instead of leaking parked on resumeCh
	// forever (spec.md §5, testable property 6).
	gen, isGen := it.(*Generator)
	broke := false
	for {
		v, ok, err := ip.iterNext(it, line)
		if err != nil {
			if isGen {
				ip.closeGenerator(gen)
			}
			return ctrlFallthrough, err
		}
		if !ok {
			break
		}
		loopEnv := NewEnclosedEnvironment(env)
		if err := ip.assignTo(loopEnv, s.Target, v, line); err != nil {
			if isGen {
				ip.closeGenerator(gen)
			}
			return ctrlFallthrough, err
		}
		ip.Ctx.RecordLoopIter()
		ctrl, err := ip.execBlock(loopEnv, s.Body)
		if err != nil {
			if isGen {
				ip.closeGenerator(gen)
			}
			return ctrlFallthrough, err
		}
		if ctrl.kind == ctrlBreak {
			broke = true
			if isGen {
				ip.closeGenerator(gen)
			}
			break
		}
		if ctrl.kind == ctrlReturn {
			if isGen {
				ip.closeGenerator(gen)
			}
			return ctrl, nil
		}
		if ip.Ctx.Suspended {
			if isGen {
				ip.closeGenerator(gen)
			}
			return ctrlFallthrough, nil
		}
	}
	if !broke {
		return ip.execBlock(NewEnclosedEnvironment(env), s.Else)
	}
	return ctrlFallthrough, nil
}

// buildFunction turns a FuncDef into a runtime *Function, evaluating
// default-argument expressions once, at definition time (spec.md §3),
// and applying decorators outermost-last (the syntactic bottom decorator
// wraps first).
func (ip *Interp) buildFunction(env *Environment, def *ast.FuncDef) (Value, error) {
	defaults := make([]Value, 0, len(def.Params.Positional))
	for _, p := range def.Params.Positional {
		if p.Default == nil {
			continue
		}
		v, err := ip.evalExpr(env, p.Default)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, v)
	}
	kwDefaults := map[string]Value{}
	for _, p := range def.Params.KeywordOnly {
		if p.Default == nil {
			continue
		}
		v, err := ip.evalExpr(env, p.Default)
		if err != nil {
			return nil, err
		}
		kwDefaults[p.Name] = v
	}
	fn := &Function{Def: def, Closure: env, Defaults: defaults, KwDefaults: kwDefaults}
	var result Value = fn
	for i := len(def.Decorators) - 1; i >= 0; i-- {
		dec, err := ip.evalExpr(env, def.Decorators[i])
		if err != nil {
			return nil, err
		}
		result, err = ip.Call(dec, []Value{result}, nil, def.Pos().Line)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// buildClass evaluates a ClassDef's body into a runtime *Class, per
// spec.md §3/§4.4: bases are evaluated left to right, the body executes
// once against a fresh frame, and whatever ends up bound directly in that
// frame becomes the class's attribute table.
func (ip *Interp) buildClass(env *Environment, def *ast.ClassDef) (Value, error) {
	bases := make([]*Class, 0, len(def.Bases))
	for _, b := range def.Bases {
		v, err := ip.evalExpr(env, b)
		if err != nil {
			return nil, err
		}
		c, ok := v.(*Class)
		if !ok {
			return nil, raise(ip.Classes, def.Pos().Line, "TypeError", "bases must be classes")
		}
		bases = append(bases, c)
	}
	classEnv := NewEnclosedEnvironment(env)
	if _, err := ip.execBlock(classEnv, def.Body); err != nil {
		return nil, err
	}
	attrs := make(map[string]Value, len(classEnv.store))
	for k, v := range classEnv.store {
		attrs[k] = v
	}
	cls, err := NewClass(def.Name, bases, attrs)
	if err != nil {
		return nil, raise(ip.Classes, def.Pos().Line, "TypeError", "%s", err.Error())
	}
	for _, v := range attrs {
		if fn, ok := v.(*Function); ok {
			fn.DefiningClass = cls
		}
	}
	var result Value = cls
	for i := len(def.Decorators) - 1; i >= 0; i-- {
		dec, err := ip.evalExpr(env, def.Decorators[i])
		if err != nil {
			return nil, err
		}
		result, err = ip.Call(dec, []Value{result}, nil, def.Pos().Line)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (ip *Interp) execTry(env *Environment, t *ast.TryStmt) (control, error) {
	ctrl, err := ip.execBlock(NewEnclosedEnvironment(env), t.Body)
	if raised, ok := err.(*Raised); ok {
		handled := false
		for i := range t.Handlers {
			h := &t.Handlers[i]
			matched, merr := ip.matchHandler(env, h, raised, h.Pos.Line)
			if merr != nil {
				return ctrlFallthrough, merr
			}
			if !matched {
				continue
			}
			handlerEnv := NewEnclosedEnvironment(env)
			if h.Name != "" {
				handlerEnv.Define(h.Name, raised.Instance)
			}
			prevExc := ip.curExc
			ip.curExc = raised
			ctrl, err = ip.execBlock(handlerEnv, h.Body)
			ip.curExc = prevExc
			handled = true
			break
		}
		if !handled {
			ctrl, err = ctrlFallthrough, raised
		}
	} else if err == nil && ctrl.kind == ctrlNone && len(t.Else) > 0 {
		ctrl, err = ip.execBlock(NewEnclosedEnvironment(env), t.Else)
	}
	if len(t.Finally) > 0 {
		fctrl, ferr := ip.execBlock(NewEnclosedEnvironment(env), t.Finally)
		if ferr != nil || fctrl.kind != ctrlNone {
			return fctrl, ferr
		}
	}
	return ctrl, err
}

func (ip *Interp) matchHandler(env *Environment, h *ast.ExceptHandler, raised *Raised, line int) (bool, error) {
	if len(h.Types) == 0 {
		return true, nil
	}
	for _, texpr := range h.Types {
		v, err := ip.evalExpr(env, texpr)
		if err != nil {
			return false, err
		}
		if c, ok := v.(*Class); ok && ExceptMatches(raised.Instance.Class, c) {
			return true, nil
		}
		if tup, ok := v.(TupleValue); ok {
			for _, e := range tup.Elements {
				if c, ok := e.(*Class); ok && ExceptMatches(raised.Instance.Class, c) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (ip *Interp) execRaise(env *Environment, s *ast.RaiseStmt, line int) (control, error) {
	if s.Cause != nil {
		if _, err := ip.evalExpr(env, s.Cause); err != nil {
			return ctrlFallthrough, err
		}
	}
	if s.Exc == nil {
		if ip.curExc == nil {
			return ctrlFallthrough, raise(ip.Classes, line, "RuntimeError", "No active exception to re-raise")
		}
		return ctrlFallthrough, ip.curExc
	}
	v, err := ip.evalExpr(env, s.Exc)
	if err != nil {
		return ctrlFallthrough, err
	}
	switch x := v.(type) {
	case *Instance:
		return ctrlFallthrough, &Raised{Instance: x, Line: line}
	case *Class:
		inst, err := ip.instantiate(x, nil, nil, line)
		if err != nil {
			return ctrlFallthrough, err
		}
		return ctrlFallthrough, &Raised{Instance: inst.(*Instance), Line: line}
	}
	return ctrlFallthrough, raise(ip.Classes, line, "TypeError", "exceptions must derive from Exception")
}

func (ip *Interp) execWithItems(env *Environment, items []ast.WithItem, idx int, body ast.Block) (control, error) {
	if idx >= len(items) {
		return ip.execBlock(NewEnclosedEnvironment(env), body)
	}
	item := items[idx]
	line := item.Expr.Pos().Line
	obj, err := ip.evalExpr(env, item.Expr)
	if err != nil {
		return ctrlFallthrough, err
	}
	res := obj
	if enter, ok := lookupDunder(obj, "__enter__"); ok {
		var err error
		res, err = ip.Call(enter, nil, nil, line)
		if err != nil {
			return ctrlFallthrough, err
		}
	}
	if item.Target != nil {
		if err := ip.assignTo(env, item.Target, res, line); err != nil {
			return ctrlFallthrough, err
		}
	}
	ctrl, bodyErr := ip.execWithItems(env, items, idx+1, body)
	exit, hasExit := lookupDunder(obj, "__exit__")
	if !hasExit {
		// spec.md §4.3: "a plain value without __enter__/__exit__ is
		// accepted as a degenerate context manager (no-op enter/exit)" —
		// nothing to call, and a missing __exit__ never suppresses.
		return ctrl, bodyErr
	}
	var excArgs []Value
	raised, wasRaised := bodyErr.(*Raised)
	if wasRaised {
		excArgs = []Value{raised.Instance.Class, raised.Instance, None}
	} else {
		excArgs = []Value{None, None, None}
	}
	suppressV, cerr := ip.Call(exit, excArgs, nil, line)
	if cerr != nil {
		return ctrl, cerr
	}
	if bodyErr != nil {
		if wasRaised && ip.truthy(suppressV) {
			return ctrlFallthrough, nil
		}
		return ctrl, bodyErr
	}
	return ctrl, nil
}

func (ip *Interp) execDel(env *Environment, target ast.Expression, line int) error {
	switch t := target.(type) {
	case *ast.Name:
		if !env.Delete(t.Value) {
			return raise(ip.Classes, line, "NameError", "name '%s' is not defined", t.Value)
		}
		return nil
	case *ast.Attr:
		obj, err := ip.evalExpr(env, t.Value)
		if err != nil {
			return err
		}
		inst, ok := obj.(*Instance)
		if !ok {
			return raise(ip.Classes, line, "TypeError", "'%s' object has no attribute '%s'", TypeName(obj), t.Name)
		}
		delete(inst.Attrs, t.Name)
		return nil
	case *ast.Subscript:
		obj, err := ip.evalExpr(env, t.Value)
		if err != nil {
			return err
		}
		idx, err := ip.evalExpr(env, t.Index)
		if err != nil {
			return err
		}
		return ip.delItem(obj, idx, line)
	}
	return raise(ip.Classes, line, "SyntaxError", "cannot delete this expression")
}

func (ip *Interp) execMatch(env *Environment, s *ast.MatchStmt, line int) (control, error) {
	subject, err := ip.evalExpr(env, s.Subject)
	if err != nil {
		return ctrlFallthrough, err
	}
	for _, c := range s.Cases {
		caseEnv := NewEnclosedEnvironment(env)
		matched, err := ip.matchPattern(caseEnv, c.Pattern, subject, line)
		if err != nil {
			return ctrlFallthrough, err
		}
		if !matched {
			continue
		}
		if c.Guard != nil {
			gv, err := ip.evalExpr(caseEnv, c.Guard)
			if err != nil {
				return ctrlFallthrough, err
			}
			if !ip.truthy(gv) {
				continue
			}
		}
		return ip.execBlock(caseEnv, c.Body)
	}
	return ctrlFallthrough, nil
}

// assignTo implements spec.md §3's assignment-target rules: Name
// (respecting a prior global/nonlocal declaration), Attr, Subscript
// (including slice targets), and Tuple/List unpacking with at most one
// starred element.
func (ip *Interp) assignTo(env *Environment, target ast.Expression, v Value, line int) error {
	switch t := target.(type) {
	case *ast.Name:
		name := t.Value
		switch {
		case env.IsGlobal(name):
			env.Module().Define(name, v)
		case env.IsNonlocal(name):
			nt := env.NonlocalTarget(name)
			if nt == nil {
				return raise(ip.Classes, line, "SyntaxError", "no binding for nonlocal '%s' found", name)
			}
			nt.Define(name, v)
		default:
			env.Define(name, v)
		}
		ip.Ctx.RecordAssign(name)
		return nil
	case *ast.Attr:
		obj, err := ip.evalExpr(env, t.Value)
		if err != nil {
			return err
		}
		return ip.setAttr(obj, t.Name, v, line)
	case *ast.Subscript:
		obj, err := ip.evalExpr(env, t.Value)
		if err != nil {
			return err
		}
		if sl, ok := t.Index.(*ast.Slice); ok {
			return ip.assignSlice(env, obj, sl, v, line)
		}
		idx, err := ip.evalExpr(env, t.Index)
		if err != nil {
			return err
		}
		return ip.setItem(obj, idx, v, line)
	case *ast.TupleExpr:
		return ip.unpackAssign(env, t.Elements, v, line)
	case *ast.ListExpr:
		return ip.unpackAssign(env, t.Elements, v, line)
	case *ast.Starred:
		return ip.assignTo(env, t.Value, v, line)
	}
	return raise(ip.Classes, line, "SyntaxError", "cannot assign to this expression")
}

func (ip *Interp) unpackAssign(env *Environment, targets []ast.Expression, v Value, line int) error {
	values, err := ip.iterableToSlice(v, line)
	if err != nil {
		return err
	}
	starIdx := -1
	for i, t := range targets {
		if _, ok := t.(*ast.Starred); ok {
			starIdx = i
			break
		}
	}
	if starIdx == -1 {
		if len(values) != len(targets) {
			if len(values) < len(targets) {
				return raise(ip.Classes, line, "ValueError", "not enough values to unpack (expected %d, got %d)", len(targets), len(values))
			}
			return raise(ip.Classes, line, "ValueError", "too many values to unpack (expected %d)", len(targets))
		}
		for i, t := range targets {
			if err := ip.assignTo(env, t, values[i], line); err != nil {
				return err
			}
		}
		return nil
	}
	before := starIdx
	after := len(targets) - starIdx - 1
	if len(values) < before+after {
		return raise(ip.Classes, line, "ValueError", "not enough values to unpack")
	}
	for i := 0; i < before; i++ {
		if err := ip.assignTo(env, targets[i], values[i], line); err != nil {
			return err
		}
	}
	starCount := len(values) - before - after
	starVals := append([]Value{}, values[before:before+starCount]...)
	if err := ip.assignTo(env, targets[starIdx], NewList(starVals...), line); err != nil {
		return err
	}
	for i := 0; i < after; i++ {
		if err := ip.assignTo(env, targets[starIdx+1+i], values[before+starCount+i], line); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interp) assignSlice(env *Environment, obj Value, sl *ast.Slice, v Value, line int) error {
	lst, ok := obj.(*ListValue)
	if !ok {
		return raise(ip.Classes, line, "TypeError", "'%s' object does not support slice assignment", TypeName(obj))
	}
	n := len(lst.Elements)
	start, stop, step, err := ip.resolveSlice(env, sl, n, line)
	if err != nil {
		return err
	}
	values, err := ip.iterableToSlice(v, line)
	if err != nil {
		return err
	}
	if step != 1 {
		indices := sliceIndices(start, stop, step)
		if len(indices) != len(values) {
			return raise(ip.Classes, line, "ValueError", "attempt to assign sequence of size %d to extended slice of size %d", len(values), len(indices))
		}
		for i, idx := range indices {
			lst.Elements[idx] = values[i]
		}
		return nil
	}
	if start > stop {
		stop = start
	}
	newElems := append([]Value{}, lst.Elements[:start]...)
	newElems = append(newElems, values...)
	newElems = append(newElems, lst.Elements[stop:]...)
	lst.Elements = newElems
	return nil
}
