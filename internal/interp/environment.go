package interp

// Environment is one frame of the linked scope chain described in
// spec.md §3: module -> class body -> function -> nested
// function/lambda/comprehension. It is always handled by pointer so
// `global`/`nonlocal` writes and closures sharing a frame observe each
// other's mutations, per spec.md §9 ("Function values must own a
// snapshot of their enclosing environment by reference to frames").
type Environment struct {
	store map[string]Value
	outer *Environment
	// isModule marks the single module-level frame a function's `global`
	// statement should target, regardless of how deeply nested the
	// function is.
	isModule bool

	// globalNames/nonlocalNames record which names in THIS frame were
	// declared via `global`/`nonlocal`, redirecting their assignment
	// target per spec.md §4.3.
	globalNames    map[string]bool
	nonlocalNames  map[string]bool
}

func (e *Environment) MarkGlobal(name string) {
	if e.globalNames == nil {
		e.globalNames = map[string]bool{}
	}
	e.globalNames[name] = true
}

func (e *Environment) MarkNonlocal(name string) {
	if e.nonlocalNames == nil {
		e.nonlocalNames = map[string]bool{}
	}
	e.nonlocalNames[name] = true
}

func (e *Environment) IsGlobal(name string) bool    { return e.globalNames != nil && e.globalNames[name] }
func (e *Environment) IsNonlocal(name string) bool  { return e.nonlocalNames != nil && e.nonlocalNames[name] }

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Value), isModule: true}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: make(map[string]Value), outer: outer}
}

// Get resolves a name by walking outward, per spec.md §3.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.store[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define creates (or overwrites) a binding in THIS frame — the default
// "writing inside a function creates a local" behaviour (spec.md §4.3).
func (e *Environment) Define(name string, v Value) {
	e.store[name] = v
}

// SetExisting writes to the frame in the chain that already defines
// name, or defines it locally if not found anywhere — implements plain
// assignment semantics once a prior `global`/`nonlocal` redirect has
// been resolved to a target frame by the caller via Module()/NonlocalTarget().
func (e *Environment) SetExisting(name string, v Value) {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			env.store[name] = v
			return
		}
	}
	e.store[name] = v
}

// Module walks outward to the module-level frame, for `global` targets.
func (e *Environment) Module() *Environment {
	env := e
	for env.outer != nil {
		env = env.outer
	}
	return env
}

// NonlocalTarget finds the nearest enclosing NON-MODULE frame that
// already defines name, per spec.md §3 ("nonlocal binds to the nearest
// enclosing non-module frame that already defines the name"). Returns
// nil if none does (an UnboundLocalError-shaped condition the caller
// reports).
func (e *Environment) NonlocalTarget(name string) *Environment {
	for env := e.outer; env != nil && !env.isModule; env = env.outer {
		if _, ok := env.store[name]; ok {
			return env
		}
	}
	return nil
}

// Delete removes name from the frame that owns it (for `del`), reporting
// whether it was found anywhere in the chain.
func (e *Environment) Delete(name string) bool {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			delete(env.store, name)
			return true
		}
	}
	return false
}

// HasLocal reports whether name is bound in exactly this frame, without
// looking at enclosing frames.
func (e *Environment) HasLocal(name string) bool {
	_, ok := e.store[name]
	return ok
}
