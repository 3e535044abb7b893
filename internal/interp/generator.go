package interp

// Generator is a suspended function body running on its own goroutine,
// the mechanism spec.md §4.7 describes for `yield`: rather than
// collecting every yielded value into a list up front, each call into the
// generator resumes exactly one goroutine-rendezvous step and blocks
// until the producer either yields again or returns. yieldCh/resumeCh
// form a single-slot, unbuffered mailbox in each direction so producer
// and consumer always take turns — at most one side is ever runnable.
type Generator struct {
	yieldCh  chan genYield
	resumeCh chan genResume
	started  bool
	finished bool
	name     string
}

func (*Generator) Type() string { return "generator" }

type genYield struct {
	value Value
	done  bool
	err   error
}

type genResume struct {
	sendValue Value
	throw     error
}

// generatorExit is thrown into a generator's suspended yield point by
// close() or by abandonment cleanup (an early `break`/`return`/
// exception out of a `for` consuming it, or a dropped streaming
// response — see internal/dispatch's HandleStream). It is a plain Go
// error, not a *Raised wrapping an Instance, so an ordinary `except`
// clause in the generator body never catches it (matchHandler only
// ever matches *Raised); only `finally`/`with.__exit__` run as it
// unwinds, the same as CPython's GeneratorExit.
type generatorExit struct{}

func (generatorExit) Error() string { return "generator closed" }

// newGeneratorCall implements calling a generator function: the body
// does not run yet (spec.md §4.7 — "calling it produces a generator
// object without running the body"); it only starts on the first
// next()/send().
func (ip *Interp) newGeneratorCall(f *Function, args []Value, kwargs map[string]Value, line int) (Value, error) {
	env := NewEnclosedEnvironment(f.Closure)
	if err := ip.bindParams(env, f.Def.Params, f.Defaults, f.KwDefaults, args, kwargs, f.Def.Name, line); err != nil {
		return nil, err
	}
	g := &Generator{
		yieldCh:  make(chan genYield),
		resumeCh: make(chan genResume),
		name:     f.Def.Name,
	}
	gip := ip.withGen(g)
	go func() {
		first := <-g.resumeCh
		if first.throw != nil {
			g.yieldCh <- genYield{done: true, err: first.throw}
			return
		}
		ctrl, err := gip.execBlock(env, f.Def.Body)
		var ret Value = None
		if ctrl.kind == ctrlReturn {
			ret = ctrl.value
		}
		_ = ret // a generator's `return value` ends StopIteration(value) in full Python; spec.md treats completion as plain exhaustion
		g.yieldCh <- genYield{done: true, err: err}
	}()
	return g, nil
}

// generatorNext drives a Generator one rendezvous step, the consumer side
// of yield. sendValue becomes bare `yield`'s result inside the producer
// when resuming a previously-suspended `yield` expression (spec.md
// §4.7's send()); it is ignored on the first call, which only starts the
// goroutine.
func (ip *Interp) generatorNext(g *Generator, sendValue Value, line int) (Value, bool, error) {
	if g.finished {
		return nil, false, nil
	}
	g.started = true
	g.resumeCh <- genResume{sendValue: sendValue}
	msg := <-g.yieldCh
	if msg.done {
		g.finished = true
		if msg.err != nil {
			return nil, false, msg.err
		}
		return nil, false, nil
	}
	return msg.value, true, nil
}

// closeGenerator implements gen.close() and every abandonment path (an
// early break/return/exception out of a `for`, or a consumer walking
// away from a streaming response mid-iteration): it throws
// generatorExit into the generator's current suspension point so the
// producer goroutine actually unwinds — running any pending
// finally/with.__exit__ cleanup — instead of leaking parked on
// resumeCh forever (spec.md §5, testable property 6). A generator that
// hasn't started yet is still parked at `first := <-g.resumeCh`
// (newGeneratorCall) waiting for its very first resume, so the same
// signal reaches it there too, before it ever runs a single body
// instruction. If the producer insists on yielding again after being
// told to exit, it's handed generatorExit right back, the same
// rendezvous loop generatorNext itself uses, until it actually
// finishes.
func (ip *Interp) closeGenerator(g *Generator) {
	if g.finished {
		return
	}
	g.finished = true
	g.resumeCh <- genResume{throw: generatorExit{}}
	for {
		msg := <-g.yieldCh
		if msg.done {
			return
		}
		g.resumeCh <- genResume{throw: generatorExit{}}
	}
}

// doYield is called from the producer goroutine (via *ast.Yield
// evaluation) to suspend and hand a value to the consumer, resuming with
// whatever value/exception the next next()/send()/throw() supplies.
func (ip *Interp) doYield(v Value, line int) (Value, error) {
	g := ip.Gen
	if g == nil {
		return nil, raise(ip.Classes, line, "SyntaxError", "'yield' outside function")
	}
	g.yieldCh <- genYield{value: v}
	resume := <-g.resumeCh
	if resume.throw != nil {
		return nil, resume.throw
	}
	return resume.sendValue, nil
}

// doYieldFrom implements `yield from iterable`: re-yield every value the
// sub-iterable produces, in order (spec.md §4.7). Quill does not forward
// send()/throw() through a `yield from` delegation chain — only plain
// iteration is supported, which covers the common "flatten a sub-
// generator" use and keeps producer/consumer pairing to the single
// channel pair each Generator already owns.
func (ip *Interp) doYieldFrom(iterable Value, line int) (Value, error) {
	if ip.Gen == nil {
		return nil, raise(ip.Classes, line, "SyntaxError", "'yield' outside function")
	}
	it, err := ip.getIterator(iterable, line)
	if err != nil {
		return nil, err
	}
	for {
		v, ok, err := ip.iterNext(it, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			return None, nil
		}
		if _, err := ip.doYield(v, line); err != nil {
			return nil, err
		}
	}
}

// generatorMethodAttr resolves `gen.send`/`gen.close`/`gen.throw`
// (spec.md §4.7).
func (ip *Interp) generatorMethodAttr(g *Generator, name string, line int) (Value, error) {
	switch name {
	case "send":
		return NewBuiltin("send", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			var sv Value = None
			if len(args) > 0 {
				sv = args[0]
			}
			v, ok, err := ip.generatorNext(g, sv, line)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, raise(ip.Classes, line, "StopIteration", "")
			}
			return v, nil
		}), nil
	case "close":
		return NewBuiltin("close", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			ip.closeGenerator(g)
			return None, nil
		}), nil
	case "throw":
		return NewBuiltin("throw", func(ctx *Context, args []Value, kw map[string]Value) (Value, error) {
			if g.finished || !g.started {
				return nil, raise(ip.Classes, line, "RuntimeError", "cannot throw into a generator that hasn't started")
			}
			inst, _ := args[0].(*Instance)
			g.resumeCh <- genResume{throw: &Raised{Instance: inst, Line: line}}
			msg := <-g.yieldCh
			if msg.done {
				g.finished = true
				if msg.err != nil {
					return nil, msg.err
				}
				return nil, raise(ip.Classes, line, "StopIteration", "")
			}
			return msg.value, nil
		}), nil
	}
	return nil, raise(ip.Classes, line, "AttributeError", "'generator' object has no attribute '%s'", name)
}
