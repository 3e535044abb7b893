// Package config parses the YAML file the CLI's `run`/`serve`
// subcommands accept via `--config`, describing the same fields as the
// Config options table in spec.md §6 (`timeout_ms`, `environ`,
// `modules`) plus the `listen_addr` the `serve` subcommand alone needs.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/internal/stdlib"
)

// File is the on-disk shape of a `--config` document.
type File struct {
	TimeoutMs  int               `yaml:"timeout_ms"`
	Environ    map[string]string `yaml:"environ"`
	Modules    []string          `yaml:"modules"`
	ListenAddr string            `yaml:"listen_addr"`
}

// Load reads and parses path into a File. A missing timeout_ms is left
// at zero; interp.NewContext already substitutes its own default in
// that case.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &f, nil
}

// knownModules maps the module names a config file's `modules:` list may
// name to the provider that builds them, per spec.md §4.6's "collaborator"
// modules. Only `json` ships in this repository; any other name is
// rejected at load time rather than deferred to a confusing ImportError
// at run time.
var knownModules = map[string]func() *interp.ModuleEntry{
	"json": stdlib.JSONModule,
}

// ModuleRegistry builds the `Options.Modules` map for every module name
// f.Modules lists.
func (f *File) ModuleRegistry() (map[string]*interp.ModuleEntry, error) {
	reg := make(map[string]*interp.ModuleEntry, len(f.Modules))
	for _, name := range f.Modules {
		build, ok := knownModules[name]
		if !ok {
			return nil, fmt.Errorf("unknown module %q in config (known: json)", name)
		}
		reg[name] = build()
	}
	return reg, nil
}

// Options builds the interp.Options this config describes, per spec.md
// §6's Config options table.
func (f *File) Options() (interp.Options, error) {
	modules, err := f.ModuleRegistry()
	if err != nil {
		return interp.Options{}, err
	}
	return interp.Options{
		TimeoutMs: f.TimeoutMs,
		Environ:   f.Environ,
		Modules:   modules,
	}, nil
}
