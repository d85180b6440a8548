package state

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)
	if got := s.Get("nonexistent"); got != (ReadingState{}) {
		t.Errorf("Get for unknown hash = %+v, want zero state", got)
	}
}

func TestStoreSetGet(t *testing.T) {
	s := newTestStore(t)

	want := ReadingState{Page: 42, Rate: 1.5, Voice: "amy"}
	if err := s.Set("abc123", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get("abc123"); got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	s1, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	want := ReadingState{Page: 7, Rate: 2.0}
	if err := s1.Set("hash1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh store sees the saved state.
	s2, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := s2.Get("hash1"); got != want {
		t.Errorf("reloaded Get = %+v, want %+v", got, want)
	}
}

func TestStoreClear(t *testing.T) {
	s := newTestStore(t)
	s.Set("h", ReadingState{Page: 3})

	if err := s.Clear("h"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := s.Get("h"); got != (ReadingState{}) {
		t.Errorf("Get after Clear = %+v, want zero state", got)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	stateDir := filepath.Join(dir, "lector")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(stateDir, stateFileName), []byte("{not json"), 0644)

	// Corrupt state starts over instead of failing.
	s, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := s.Get("any"); got != (ReadingState{}) {
		t.Errorf("Get = %+v, want zero state", got)
	}
}

func TestComputeHash(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	p1 := write("a.txt", "identical content")
	p2 := write("b.txt", "identical content")
	p3 := write("c.txt", "different content")

	h1, err := ComputeHash(p1)
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if len(h1) != 32 {
		t.Errorf("hash length = %d, want 32", len(h1))
	}

	h2, _ := ComputeHash(p2)
	if h1 != h2 {
		t.Error("identical content produced different hashes")
	}

	h3, _ := ComputeHash(p3)
	if h1 == h3 {
		t.Error("different content produced the same hash")
	}

	if _, err := ComputeHash(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
