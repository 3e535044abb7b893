package vfs

import (
	"errors"
	"testing"
)

func TestMemoryReadWriteRoundtrip(t *testing.T) {
	m := NewMemory()
	if err := m.Write("/a.txt", []byte("hello"), ModeWrite); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	got, err := m.Read("/a.txt")
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestMemoryReadMissingIsNotFoundError(t *testing.T) {
	m := NewMemory()
	_, err := m.Read("/nope.txt")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected a *NotFoundError, got %T (%v)", err, err)
	}
}

func TestMemoryAppendMode(t *testing.T) {
	m := NewMemory()
	_ = m.Write("/log.txt", []byte("a"), ModeWrite)
	_ = m.Write("/log.txt", []byte("b"), ModeAppend)
	got, _ := m.Read("/log.txt")
	if string(got) != "ab" {
		t.Fatalf("expected append to accumulate, got %q", got)
	}
}

func TestMemoryWriteIsolatesCallerBuffer(t *testing.T) {
	m := NewMemory()
	buf := []byte("original")
	_ = m.Write("/x.txt", buf, ModeWrite)
	buf[0] = 'X'
	got, _ := m.Read("/x.txt")
	if string(got) != "original" {
		t.Fatalf("expected Write to copy its input, got %q after caller mutated its buffer", got)
	}
}

func TestMemoryDeleteAndExists(t *testing.T) {
	m := NewMemory()
	_ = m.Write("/y.txt", []byte("data"), ModeWrite)
	if !m.Exists("/y.txt") {
		t.Fatalf("expected /y.txt to exist after write")
	}
	if err := m.Delete("/y.txt"); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if m.Exists("/y.txt") {
		t.Fatalf("expected /y.txt to no longer exist after delete")
	}
	if err := m.Delete("/y.txt"); err == nil {
		t.Fatalf("expected deleting an already-deleted path to error")
	}
}

func TestMemoryListPrefix(t *testing.T) {
	m := NewMemory()
	_ = m.Write("/data/a.txt", nil, ModeWrite)
	_ = m.Write("/data/b.txt", nil, ModeWrite)
	_ = m.Write("/other/c.txt", nil, ModeWrite)
	got, err := m.List("/data/")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(got) != 2 || got[0] != "/data/a.txt" || got[1] != "/data/b.txt" {
		t.Fatalf("expected sorted [/data/a.txt /data/b.txt], got %v", got)
	}
}

func TestHostWriteReadRoundtrip(t *testing.T) {
	root := t.TempDir()
	h := NewHost(root)
	if err := h.Write("/sub/file.txt", []byte("contents"), ModeWrite); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	got, err := h.Read("/sub/file.txt")
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(got) != "contents" {
		t.Fatalf("expected %q, got %q", "contents", got)
	}
	if !h.Exists("/sub/file.txt") {
		t.Fatalf("expected the written file to exist via the Host view")
	}
}

func TestHostDeniesEscapingRoot(t *testing.T) {
	root := t.TempDir()
	h := NewHost(root)
	// filepath.Clean collapses a rooted path's leading ".." components
	// (there is nowhere "above" an absolute root to go), so a traversal
	// attempt resolves back under root rather than escaping it: reading
	// it reports a plain NotFoundError, not the real host /etc/passwd.
	_, err := h.Read("/../../etc/passwd")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected the traversal attempt to resolve under root as a NotFoundError, got %T (%v)", err, err)
	}
}

func TestHostReadMissingIsNotFoundError(t *testing.T) {
	root := t.TempDir()
	h := NewHost(root)
	_, err := h.Read("/missing.txt")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected a *NotFoundError, got %T (%v)", err, err)
	}
}

func TestHostListReturnsSlashRootedPaths(t *testing.T) {
	root := t.TempDir()
	h := NewHost(root)
	_ = h.Write("/dir/one.txt", []byte("1"), ModeWrite)
	_ = h.Write("/dir/two.txt", []byte("2"), ModeWrite)
	got, err := h.List("/dir/")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	want := []string{"/dir/one.txt", "/dir/two.txt"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
