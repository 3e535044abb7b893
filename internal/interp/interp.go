package interp

import (
	"github.com/quill-lang/quill/internal/ast"
)

// Interp is one evaluation's worth of interpreter state threaded through
// every eval/exec call: the shared Context, the built-in exception-class
// table, and (when executing inside a generator's producer goroutine)
// the Generator that a bare `yield` targets. Methods on *Interp replace
// what would otherwise be a free-function evaluator taking ctx as its
// first argument — the extra Gen field is what lets `yield` inside
// deeply nested control flow find its way back to the right channel
// rendezvous without a global.
type Interp struct {
	Ctx     *Context
	Classes map[string]*Class // built-in exception hierarchy, spec.md §4.8
	Gen     *Generator         // non-nil only inside a generator's producer goroutine
	depth   int                // call-stack depth, for RecursionError
	curExc  *Raised            // the exception a bare `raise` re-raises, set while an except body runs
}

const maxCallDepth = 800

// New builds an Interp bound to ctx, with the built-in exception
// hierarchy and standard-library functions installed into ctx.Env.
func New(ctx *Context) *Interp {
	ip := &Interp{Ctx: ctx, Classes: BuiltinExceptionClasses()}
	ip.InstallBuiltins()
	return ip
}

// withGen returns a shallow copy of ip with Gen set, used when a
// generator's producer goroutine starts running its body.
func (ip *Interp) withGen(g *Generator) *Interp {
	cp := *ip
	cp.Gen = g
	return &cp
}

// RunResult is the outcome of evaluating a whole module, before
// pkg/quill shapes it into the public {ok,...}/{suspended,...}/
// {error,...} envelope (spec.md §6).
type RunResult struct {
	Value     Value
	Suspended bool
}

// Run evaluates mod's top-level statements against the Context's module
// frame, per spec.md §6's `run` verb. Between every top-level statement
// it checks ctx.Suspended (set by the `suspend()` builtin) and stops
// early with Suspended=true if so.
func (ip *Interp) Run(mod *ast.Module) (*RunResult, error) {
	var last Value = None
	for _, stmt := range mod.Body {
		if err := ip.Ctx.CheckBudget(stmt.Pos().Line); err != nil {
			return nil, err
		}
		ctrl, err := ip.execStmt(ip.Ctx.Env, stmt)
		if err != nil {
			return nil, err
		}
		if ctrl.kind == ctrlReturn {
			last = ctrl.value
		}
		if ip.Ctx.Suspended {
			return &RunResult{Value: last, Suspended: true}, nil
		}
	}
	return &RunResult{Value: last}, nil
}
