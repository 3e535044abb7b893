package interp

import (
	"sort"
	"strings"
	"time"

	"github.com/quill-lang/quill/internal/errors"
	"github.com/quill-lang/quill/internal/vfs"
)

// EventKind classifies one Event-log entry (spec.md §3: "(EventKind,
// StepNumber, Payload)").
type EventKind string

const (
	EventAssign    EventKind = "assign"
	EventBranch    EventKind = "branch"
	EventLoopIter  EventKind = "loop_iter"
	EventCallEnter EventKind = "call_enter"
	EventCallExit  EventKind = "call_exit"
	EventSuspend   EventKind = "suspend"
	EventFileOp    EventKind = "file_op"
)

// Event is one minimal, deterministic log entry, per spec.md §9 ("Event
// log entries must be minimal and deterministic: for a branch event
// record only the chosen arm; for a loop_iter event record only that an
// iteration happened; for assign record the target name").
type Event struct {
	Kind    EventKind
	Step    int
	Payload string
}

// ReplayState distinguishes live execution from lock-step replay against
// a stored event log (spec.md §3/§4.5).
type ReplayState int

const (
	ModeLive ReplayState = iota
	ModeReplay
)

// ModuleNamespace is a module's exported name->value mapping (spec.md
// §4.6): callables inside it are tagged *Builtin.
type ModuleNamespace map[string]Value

// ModuleProvider lazily builds a ModuleNamespace on first import, so
// hosts can defer expensive module construction (spec.md §3: "a module
// provider (lazy factory)").
type ModuleProvider func(ctx *Context) (ModuleNamespace, error)

// ModuleEntry is either a literal namespace or a lazy provider.
type ModuleEntry struct {
	Namespace ModuleNamespace
	Provider  ModuleProvider
}

// Context is the single long-lived object described in spec.md §3: the
// sole carrier of mutable program state across one evaluation. Every API
// verb in pkg/quill is pure in its Context input -> Context output
// (spec.md §9: "Never use process-global state").
type Context struct {
	// Output is a pointer so Clone/Resumed's shallow struct copy shares
	// (rather than illegally copies-by-value) the same strings.Builder;
	// strings.Builder panics if copied after its first write.
	Output *strings.Builder

	Env *Environment

	FS      vfs.FileSystem
	Environ map[string]string
	Modules map[string]*ModuleEntry
	loaded  map[string]ModuleNamespace // cache of already-imported modules

	TimeoutMs     int
	startedAt     time.Time
	ComputeMicros int64

	EventLog    []Event
	Mode        ReplayState
	replayQueue []Event
	replayPos   int

	FileOps int

	stepCounter int

	// Suspended is set by the suspend() builtin; Run checks it after
	// each top-level statement and, if set, stops and returns a
	// {suspended, ctx} outcome (spec.md §4.5/§6).
	Suspended bool
}

// Options configures a new Context, mirroring the "Config options" table
// in spec.md §6.
type Options struct {
	TimeoutMs int
	Filesystem vfs.FileSystem
	Environ    map[string]string
	Modules    map[string]*ModuleEntry
}

// NewContext builds a live Context ready for a fresh `run`/`boot` call.
func NewContext(opts Options) *Context {
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 5000
	}
	if opts.Filesystem == nil {
		opts.Filesystem = vfs.NewMemory()
	}
	if opts.Environ == nil {
		opts.Environ = map[string]string{}
	}
	if opts.Modules == nil {
		opts.Modules = map[string]*ModuleEntry{}
	}
	return &Context{
		Output:    &strings.Builder{},
		Env:       NewEnvironment(),
		FS:        opts.Filesystem,
		Environ:   opts.Environ,
		Modules:   opts.Modules,
		loaded:    map[string]ModuleNamespace{},
		TimeoutMs: opts.TimeoutMs,
		startedAt: time.Now(),
		Mode:      ModeLive,
	}
}

// Resumed builds a Context in replay mode, consuming `log` in lock-step
// with re-execution until it is exhausted, per spec.md §4.5. Output
// starts fresh rather than carrying over base's already-written bytes:
// source re-runs from the top, so replaying it once reproduces the
// pre-suspend output exactly once — property 10's "same ... observable
// output as if suspend() had been a no-op" would double it otherwise.
func Resumed(base *Context, log []Event) *Context {
	c := *base
	c.Output = &strings.Builder{}
	c.Mode = ModeReplay
	c.replayQueue = log
	c.replayPos = 0
	c.EventLog = nil
	c.startedAt = time.Now()
	c.Suspended = false
	return &c
}

// Clone copies a Context for branch/resume use, per spec.md §3
// ("may be cloned by truncating or copying its event log").
func (c *Context) Clone() *Context {
	cp := *c
	cp.EventLog = append([]Event{}, c.EventLog...)
	cp.loaded = map[string]ModuleNamespace{}
	for k, v := range c.loaded {
		cp.loaded[k] = v
	}
	return &cp
}

// record appends a live-mode event, or, in replay mode, returns the next
// queued event in log order (advancing replayPos; its kind is not
// checked against `kind`) — the
// mechanism by which replay "dictates the outcome until the log is
// exhausted" (spec.md §4.5).
func (c *Context) record(kind EventKind, payload string) *Event {
	c.stepCounter++
	if c.Mode == ModeReplay && c.replayPos < len(c.replayQueue) {
		ev := c.replayQueue[c.replayPos]
		c.replayPos++
		if c.replayPos >= len(c.replayQueue) {
			c.Mode = ModeLive
		}
		c.EventLog = append(c.EventLog, ev)
		return &ev
	}
	ev := Event{Kind: kind, Step: c.stepCounter, Payload: payload}
	c.EventLog = append(c.EventLog, ev)
	return &ev
}

// RecordAssign logs an `assign` event naming only the target, per the
// minimality rule in spec.md §9.
func (c *Context) RecordAssign(target string) { c.record(EventAssign, target) }

// RecordBranch logs which arm of an if/try/match was taken. In replay
// mode it returns the chosen arm recorded at `suspend` time instead of
// letting the caller compute condTruth, so branching is deterministic.
func (c *Context) RecordBranch(live bool) bool {
	ev := c.record(EventBranch, boolPayload(live))
	return ev.Payload == "1"
}

func boolPayload(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// RecordLoopIter logs that one more loop iteration happened.
func (c *Context) RecordLoopIter() { c.record(EventLoopIter, "") }

func (c *Context) RecordCallEnter(name string) { c.record(EventCallEnter, name) }
func (c *Context) RecordCallExit(name string)  { c.record(EventCallExit, name) }
func (c *Context) RecordFileOp(op string)      { c.FileOps++; c.record(EventFileOp, op) }

// CheckBudget is consulted before each statement (spec.md §5): overrun
// raises a distinguished, never-catchable ComputeTimeout.
func (c *Context) CheckBudget(line int) error {
	elapsed := time.Since(c.startedAt)
	if elapsed > time.Duration(c.TimeoutMs)*time.Millisecond {
		return &errors.ComputeTimeout{Line: line}
	}
	return nil
}

// AddComputeMicros accumulates compute time, excluding any time a
// generator/stream spends suspended waiting on its consumer (spec.md §3:
// "accumulated compute-microsecond counter").
func (c *Context) AddComputeMicros(d time.Duration) {
	c.ComputeMicros += d.Microseconds()
}

// TotalMicros reports wall-clock elapsed since the Context was created.
func (c *Context) TotalMicros() int64 {
	return time.Since(c.startedAt).Microseconds()
}

// PauseBudget/ResumeBudget bracket a streaming consumer's think-time so
// slow consumers do not poison the producer's timeout accounting (spec.md
// §5: "Streaming responses pause the budget between chunks").
func (c *Context) PauseBudget() time.Time { return time.Now() }
func (c *Context) ResumeBudget(paused time.Time, resumedAt time.Time) {
	c.startedAt = c.startedAt.Add(resumedAt.Sub(paused))
}

// resolveModule imports name, using the cache, a literal namespace, or a
// lazy provider, per spec.md §4.6.
func (c *Context) resolveModule(name string) (ModuleNamespace, error) {
	if ns, ok := c.loaded[name]; ok {
		return ns, nil
	}
	entry, ok := c.Modules[name]
	if !ok {
		return nil, errors.Raised("ImportError", 0, "%s", importErrorMessage(name, c.Modules))
	}
	var ns ModuleNamespace
	if entry.Namespace != nil {
		ns = entry.Namespace
	} else if entry.Provider != nil {
		built, err := entry.Provider(c)
		if err != nil {
			return nil, err
		}
		ns = built
	} else {
		ns = ModuleNamespace{}
	}
	c.loaded[name] = ns
	return ns, nil
}

// commonSynonyms maps frequently-requested webbish module names to the
// closest registered equivalent, per spec.md §4.6's ImportError
// "suggestions" requirement.
var commonSynonyms = map[string]string{
	"requests":   "http (via the host's route dispatcher) or a registered module exposing http requests",
	"numpy":      "math",
	"simplejson": "json",
	"yaml":       "json",
	"regex":      "re",
}

func importErrorMessage(name string, registry map[string]*ModuleEntry) string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	msg := "No module named '" + name + "'. Registered modules: " + joinOrNone(names)
	if suggestion, ok := commonSynonyms[name]; ok {
		msg += ". Did you mean: " + suggestion + "?"
	}
	return msg
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
