package interp

// Module is the runtime namespace value bound by `import`/`from ...
// import`, per spec.md §3.
type Module struct {
	Name  string
	Attrs ModuleNamespace
}

func (*Module) Type() string { return "module" }

func NewModule(name string, ns ModuleNamespace) *Module {
	return &Module{Name: name, Attrs: ns}
}
