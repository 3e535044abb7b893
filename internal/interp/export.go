package interp

// This file is the deliberately small public surface other in-repo
// packages (internal/dispatch, pkg/quill, cmd/quill) use to drive an
// Interp without reaching into its unexported evaluator internals. Every
// method here just forwards to the lowercase evaluator method that does
// the real work.

// GetAttr implements `.attr` read access, exported for host code that
// needs to pull a well-known binding (e.g. the dispatcher's `app.__routes__`)
// off a runtime Value.
func (ip *Interp) GetAttr(value Value, name string, line int) (Value, error) {
	return ip.getAttr(value, name, line)
}

// SetAttr implements `.attr = v` write access.
func (ip *Interp) SetAttr(value Value, name string, v Value, line int) error {
	return ip.setAttr(value, name, v, line)
}

// GetIterator builds the pull-based Iterator/Generator protocol value for
// v, per spec.md §4.6, for host code that needs to drain a streaming
// response's content outside the evaluator proper.
func (ip *Interp) GetIterator(v Value, line int) (Value, error) {
	return ip.getIterator(v, line)
}

// IterNext pulls the next value from an iterator/generator built by
// GetIterator, reporting ok=false (no error) on ordinary exhaustion.
func (ip *Interp) IterNext(it Value, line int) (Value, bool, error) {
	return ip.iterNext(it, line)
}

// CloseIterator releases an iterator/generator built by GetIterator
// before it runs to exhaustion — a consumer (internal/dispatch's
// streaming response path) that stops pulling chunks early calls this so
// a *Generator's producer goroutine unwinds through its pending
// finally/with.__exit__ cleanup instead of leaking parked forever
// (spec.md §5, testable property 6). Iterators over plain built-in
// containers have no goroutine or cleanup to release, so this is a
// no-op for anything that isn't a *Generator.
func (ip *Interp) CloseIterator(it Value) {
	if g, ok := it.(*Generator); ok {
		ip.closeGenerator(g)
	}
}

// IterableToSlice fully drains v, used by host code that needs a
// one-shot response body rather than a lazy chunk sequence.
func (ip *Interp) IterableToSlice(v Value, line int) ([]Value, error) {
	return ip.iterableToSlice(v, line)
}

// StrOf is str(v) with user __str__ dunder dispatch, exported for host
// code rendering a Value into a response body or log line.
func (ip *Interp) StrOf(v Value, line int) (string, error) {
	return ip.strOf(v, line)
}

// ReprOf is repr(v) with user __repr__ dunder dispatch.
func (ip *Interp) ReprOf(v Value, line int) (string, error) {
	return ip.reprOf(v, line)
}

// LookupAttr exposes the instance-then-MRO attribute lookup used
// throughout the evaluator, without binding Function values as
// BoundMethods (unlike GetAttr) — the shape host code wants when reading
// plain data attributes such as `__routes__`.
func LookupAttr(inst *Instance, name string) (Value, bool) {
	return lookupAttr(inst, name)
}

// Raise builds a *Raised for one of the built-in exception classes,
// exported so host packages (internal/dispatch) can report errors using
// the same exception taxonomy user code sees.
func Raise(classes map[string]*Class, line int, className, format string, args ...any) *Raised {
	return raise(classes, line, className, format, args...)
}
