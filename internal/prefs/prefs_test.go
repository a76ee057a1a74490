package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(t.TempDir(), "stories")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	fileStore, err := OpenFile(t.TempDir(), "stories")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqliteStore,
		"file":   fileStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreGetPutRemove(t *testing.T) {
	ctx := context.Background()

	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.GetString(ctx, "saved_stories"); err != nil || ok {
				t.Fatalf("GetString() on empty store = ok %v, err %v", ok, err)
			}

			if err := s.PutString(ctx, "saved_stories", `[{"id":1}]`); err != nil {
				t.Fatalf("PutString() error = %v", err)
			}
			if err := s.PutString(ctx, "saved_stories", `[]`); err != nil {
				t.Fatalf("PutString() overwrite error = %v", err)
			}

			v, ok, err := s.GetString(ctx, "saved_stories")
			if err != nil || !ok || v != "[]" {
				t.Fatalf("GetString() = %q, %v, %v; want [] true nil", v, ok, err)
			}

			if err := s.Remove(ctx, "saved_stories"); err != nil {
				t.Fatalf("Remove() error = %v", err)
			}
			if _, ok, _ := s.GetString(ctx, "saved_stories"); ok {
				t.Error("key still present after Remove()")
			}
			if err := s.Remove(ctx, "missing"); err != nil {
				t.Errorf("Remove() of missing key error = %v", err)
			}
		})
	}
}

func TestSQLiteScopesByName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := OpenSQLite(dir, "stories")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.PutString(ctx, "k", "from stories"); err != nil {
		t.Fatal(err)
	}

	b, err := OpenSQLite(dir, "settings")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, ok, _ := b.GetString(ctx, "k"); ok {
		t.Error("preference leaked across sets")
	}
}

func TestFilePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := OpenFile(dir, "stories")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.PutString(ctx, "saved_stories", "[]"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFile(dir, "stories")
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := reopened.GetString(ctx, "saved_stories")
	if err != nil || !ok || v != "[]" {
		t.Errorf("GetString() after reopen = %q, %v, %v", v, ok, err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestFileUnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stories.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(dir, "stories")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.GetString(context.Background(), "saved_stories"); err == nil {
		t.Error("GetString() on unreadable file should fail")
	}
}

func TestOpenBackends(t *testing.T) {
	if _, err := Open(Backend("redis"), t.TempDir(), "stories"); err == nil {
		t.Error("Open() with unknown backend should fail")
	}
	s, err := Open(BackendMemory, "", "stories")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
}
