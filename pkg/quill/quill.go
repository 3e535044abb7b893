// Package quill is the public embedding facade: the six verbs spec.md
// §6 names (run/resume/boot/handle/handle_stream/invoke), each shaping
// internal/interp and internal/dispatch results into the
// {ok,...}/{suspended,...}/{error,...} envelope the section describes.
package quill

import (
	"github.com/quill-lang/quill/internal/ast"
	"github.com/quill-lang/quill/internal/dispatch"
	"github.com/quill-lang/quill/internal/errors"
	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/internal/parser"
	"github.com/quill-lang/quill/internal/stdlib"
)

// RunOutcome is the shape of a run/resume call's result: exactly one of
// Value/Suspended/Error is meaningful, mirroring spec.md §6's tagged
// union without needing a sum type in Go.
type RunOutcome struct {
	Ok        bool
	Suspended bool
	Value     interp.Value
	Ctx       *interp.Context
	Error     *errors.ErrorRecord
}

// parse turns source text into an AST, or a syntax ErrorRecord built
// from the parser's first reported error (spec.md §6: "the parser
// surfaces kind=syntax").
func parse(source string) (*ast.Module, *errors.ErrorRecord) {
	mod, errs := parser.ParseModule(source)
	if len(errs) > 0 {
		e := errs[0]
		return nil, errors.SyntaxErrorRecord(e.Pos, e.Message, source)
	}
	return mod, nil
}

// newInterp builds an Interp over ctx with the ambient framework
// (App/HTMLResponse/JSONResponse/StreamingResponse) and the `json`
// collaborator module installed, so any script that boots through this
// package package can use them without extra wiring by the host.
func newInterp(ctx *interp.Context) *interp.Interp {
	ip := interp.New(ctx)
	dispatch.InstallFramework(ip)
	if _, ok := ctx.Modules["json"]; !ok {
		ctx.Modules["json"] = stdlib.JSONModule()
	}
	return ip
}

// Run implements spec.md §6's `run` verb: parse and evaluate source
// against ctx (a fresh one if ctx is nil), top to bottom.
func Run(source string, ctx *interp.Context) *RunOutcome {
	if ctx == nil {
		ctx = interp.NewContext(interp.Options{})
	}
	mod, perr := parse(source)
	if perr != nil {
		return &RunOutcome{Error: perr, Ctx: ctx}
	}
	ip := newInterp(ctx)
	res, err := ip.Run(mod)
	if err != nil {
		return &RunOutcome{Error: errors.FromRuntime(err), Ctx: ctx}
	}
	if res.Suspended {
		return &RunOutcome{Suspended: true, Ctx: ctx}
	}
	return &RunOutcome{Ok: true, Value: res.Value, Ctx: ctx}
}

// Resume implements spec.md §6's `resume` verb: re-run source against a
// replay-mode Context built from a previously suspended ctx and its
// recorded event log (spec.md §4.5).
func Resume(source string, suspended *interp.Context) *RunOutcome {
	ctx := interp.Resumed(suspended, suspended.EventLog)
	return Run(source, ctx)
}

// BootOutcome is `boot`'s result shape: a ready Dispatcher on success.
type BootOutcome struct {
	Ok         bool
	Dispatcher *dispatch.Dispatcher
	Error      *errors.ErrorRecord
}

// Boot implements spec.md §6's `boot` verb: parse and run source once
// against ctx (a fresh one with default Options if ctx is nil), then locate
// its `app` binding, per spec.md §4.9.
func Boot(source string, ctx *interp.Context) *BootOutcome {
	if ctx == nil {
		ctx = interp.NewContext(interp.Options{})
	}
	mod, perr := parse(source)
	if perr != nil {
		return &BootOutcome{Error: perr}
	}
	ip := newInterp(ctx)
	d, err := dispatch.Boot(ip, mod)
	if err != nil {
		return &BootOutcome{Error: errors.FromRuntime(err)}
	}
	return &BootOutcome{Ok: true, Dispatcher: d}
}

// HandleOutcome is `handle`'s result shape.
type HandleOutcome struct {
	Ok       bool
	Response *dispatch.Response
	Error    *errors.ErrorRecord
}

// Handle implements spec.md §6's `handle` verb.
func Handle(d *dispatch.Dispatcher, req *dispatch.Request) *HandleOutcome {
	resp, err := d.Handle(req)
	if err != nil {
		return &HandleOutcome{Error: errors.FromRuntime(err)}
	}
	return &HandleOutcome{Ok: true, Response: resp}
}

// StreamOutcome is `handle_stream`'s result shape.
type StreamOutcome struct {
	Ok       bool
	Response *dispatch.StreamingResponse
	Error    *errors.ErrorRecord
}

// HandleStream implements spec.md §6's `handle_stream` verb.
func HandleStream(d *dispatch.Dispatcher, req *dispatch.Request) *StreamOutcome {
	resp, err := d.HandleStream(req)
	if err != nil {
		return &StreamOutcome{Error: errors.FromRuntime(err)}
	}
	return &StreamOutcome{Ok: true, Response: resp}
}

// Invoke implements spec.md §6's `invoke` verb: a one-shot boot+handle
// for callers that don't need to keep the Dispatcher around between
// requests.
func Invoke(source string, req *dispatch.Request, ctx *interp.Context) *HandleOutcome {
	boot := Boot(source, ctx)
	if !boot.Ok {
		return &HandleOutcome{Error: boot.Error}
	}
	return Handle(boot.Dispatcher, req)
}
