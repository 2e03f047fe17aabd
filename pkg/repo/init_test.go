package repo

import (
	"errors"
	"testing"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// Test 1: Init creates .cairn/ with every log, the tip and the config.
func TestInit_CreatesStructure(t *testing.T) {
	r, fs := newRepo(t)

	for _, name := range []string{store.ContentLogName, store.CatalogLogName, "history.log", TipName, ConfigName} {
		st, err := fs.State(metaPath(name))
		if err != nil {
			t.Fatalf("State(%s): %v", name, err)
		}
		if st != vfs.Regular {
			t.Errorf("%s: state %s, want regular", name, st)
		}
	}
	if !r.Tip().IsZero() {
		t.Errorf("Tip = %s, want zero", r.Tip())
	}
	if r.Store.Len() != 0 {
		t.Errorf("Store.Len = %d, want 0", r.Store.Len())
	}
}

// Test 2: Init on an existing repository fails.
func TestInit_ExistingRepo_Error(t *testing.T) {
	_, fs := newRepo(t)
	if _, err := Init(fs); !errors.Is(err, store.ErrExists) {
		t.Fatalf("second Init err = %v, want ErrExists", err)
	}
}

// Test 3: Open on a plain directory is not a repository.
func TestOpen_NotRepository(t *testing.T) {
	if _, err := Open(vfs.NewMem()); !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Open err = %v, want ErrNotRepository", err)
	}
}

// Test 4: everything survives close and reopen.
func TestOpen_Reopen(t *testing.T) {
	fs := vfs.NewMem()
	r, err := Init(fs)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r1 := mustCommit(t, r, newWorkspace(t, fs, map[string]string{"/doc/a.txt": "a"}), object.ZeroID, "one")
	r2 := mustCommit(t, r, newWorkspace(t, fs, map[string]string{"/doc/a.txt": "b"}), r1.ID, "two")
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	re, err := Open(fs)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer re.Close()
	if re.Tip() != r2.ID {
		t.Errorf("Tip = %s, want %s", re.Tip(), r2.ID)
	}
	if got := mustResolve(t, re, object.ZeroID, "/doc/a.txt"); got != object.HashObject(object.KindContent, []byte("b")) {
		t.Errorf("Resolve = %s, want hash of b", got)
	}
	if n := len(re.History("/doc/a.txt")); n != 2 {
		t.Errorf("History = %d entries, want 2", n)
	}

	// Commits continue from the reopened state.
	r3 := mustCommit(t, re, newWorkspace(t, fs, map[string]string{"/doc/c.txt": "c"}), re.Tip(), "three")
	if r3.Parent != r2.ID {
		t.Errorf("Parent = %s, want %s", r3.Parent, r2.ID)
	}
}

// Test 5: a damaged tip file is fatal.
func TestOpen_CorruptedTip(t *testing.T) {
	unknown := object.HashObject(object.KindRevision, []byte("x"))
	tests := []struct {
		name string
		data []byte
	}{
		{"shorter than header", []byte{0xff, 'c'}},
		{"bad signature", []byte("NOTATIP!")},
		{"partial id", append(store.Header(store.TipMagic), 1, 2, 3, 4, 5)},
		{"unknown revision", append(store.Header(store.TipMagic), unknown[:]...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fs := newRepo(t)
			r.Close()
			if err := vfs.WriteFile(fs, metaPath(TipName), tc.data); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Open(fs); !errors.Is(err, ErrCorrupted) {
				t.Fatalf("Open err = %v, want ErrCorrupted", err)
			}
		})
	}
}

// Test 6: a missing tip file means nothing has been committed.
func TestOpen_MissingTip(t *testing.T) {
	r, fs := newRepo(t)
	r.Close()
	if err := fs.Remove(metaPath(TipName)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	re, err := Open(fs)
	if err != nil {
		t.Fatalf("Open without a tip: %v", err)
	}
	defer re.Close()
	if !re.Tip().IsZero() {
		t.Errorf("Tip = %s, want zero", re.Tip())
	}

	// A zero-length tip reads the same way.
	if err := vfs.WriteFile(fs, metaPath(TipName), nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if tip, err := readTip(fs); err != nil || !tip.IsZero() {
		t.Errorf("readTip(empty) = %s, %v; want zero, nil", tip, err)
	}

	// The first commit rewrites the tip.
	rev := mustCommit(t, re, newWorkspace(t, fs, map[string]string{"/a": "a"}), object.ZeroID, "first")
	tip, err := readTip(fs)
	if err != nil {
		t.Fatalf("readTip: %v", err)
	}
	if tip != rev.ID {
		t.Errorf("tip on disk = %s, want %s", tip, rev.ID)
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	r, fs := newRepo(t)
	cfg := &Config{
		User: UserConfig{Name: "Ada", Submitter: "bot"},
		Log:  LogConfig{Level: "debug"},
	}
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	got, err := LoadConfig(fs)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if *got != *cfg {
		t.Errorf("LoadConfig = %+v, want %+v", got, cfg)
	}

	rev := mustCommit(t, r, newWorkspace(t, fs, map[string]string{"/a": "a"}), object.ZeroID, "m")
	// An explicit author still takes the configured submitter.
	if rev.Submitter != "bot" {
		t.Errorf("Submitter = %q, want bot", rev.Submitter)
	}
}

func TestConfig_MissingUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(vfs.NewMem())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "none" {
		t.Errorf("Log.Level = %q, want none", cfg.Log.Level)
	}
}
