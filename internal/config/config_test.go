package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadParsesAllFields(t *testing.T) {
	path := writeConfig(t, `
timeout_ms: 1500
environ:
  STAGE: test
  REGION: us-east-1
modules:
  - json
listen_addr: ":9090"
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TimeoutMs != 1500 {
		t.Fatalf("TimeoutMs = %d, want 1500", f.TimeoutMs)
	}
	if f.Environ["STAGE"] != "test" || f.Environ["REGION"] != "us-east-1" {
		t.Fatalf("unexpected Environ: %#v", f.Environ)
	}
	if len(f.Modules) != 1 || f.Modules[0] != "json" {
		t.Fatalf("unexpected Modules: %#v", f.Modules)
	}
	if f.ListenAddr != ":9090" {
		t.Fatalf("ListenAddr = %q, want :9090", f.ListenAddr)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadMissingTimeoutMsDefersToInterpDefault(t *testing.T) {
	path := writeConfig(t, "environ: {}\n")
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TimeoutMs != 0 {
		t.Fatalf("TimeoutMs = %d, want 0 (left for interp.NewContext's own default)", f.TimeoutMs)
	}
	opts, err := f.Options()
	if err != nil {
		t.Fatalf("unexpected error building options: %v", err)
	}
	if opts.TimeoutMs != 0 {
		t.Fatalf("Options().TimeoutMs = %d, want 0 passed through unchanged", opts.TimeoutMs)
	}
}

func TestModuleRegistryBuildsKnownModules(t *testing.T) {
	f := &File{Modules: []string{"json"}}
	reg, err := f.ModuleRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg["json"]; !ok {
		t.Fatalf("expected 'json' to be registered, got %#v", reg)
	}
}

func TestModuleRegistryRejectsUnknownModule(t *testing.T) {
	f := &File{Modules: []string{"requests"}}
	_, err := f.ModuleRegistry()
	if err == nil {
		t.Fatalf("expected an error for an unknown module name")
	}
}

func TestOptionsPropagatesEnviron(t *testing.T) {
	f := &File{Environ: map[string]string{"A": "1"}}
	opts, err := f.Options()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Environ["A"] != "1" {
		t.Fatalf("unexpected Environ in Options: %#v", opts.Environ)
	}
}
