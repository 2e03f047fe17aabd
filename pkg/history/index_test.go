package history

import (
	"errors"
	"reflect"
	"testing"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

const testLog = "/.cairn/history.log"

func id(b byte) object.ID {
	var out object.ID
	for i := range out {
		out[i] = b
	}
	return out
}

func openIndex(t *testing.T, fs vfs.FS) *Index {
	t.Helper()
	ix, err := Open(fs, testLog)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func newIndex(t *testing.T) (*Index, vfs.FS) {
	t.Helper()
	fs := vfs.NewMem()
	if err := Init(fs, testLog); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return openIndex(t, fs), fs
}

func mustRecord(t *testing.T, ix *Index, p string, rev, content object.ID) bool {
	t.Helper()
	wrote, err := ix.Record(p, rev, content)
	if err != nil {
		t.Fatalf("Record(%s): %v", p, err)
	}
	return wrote
}

func TestRecordOnlyOnChange(t *testing.T) {
	ix, _ := newIndex(t)

	if !mustRecord(t, ix, "/a.txt", id(1), id(10)) {
		t.Error("first record not written")
	}
	if mustRecord(t, ix, "/a.txt", id(2), id(10)) {
		t.Error("unchanged id was recorded")
	}
	if !mustRecord(t, ix, "/a.txt", id(3), id(11)) {
		t.Error("changed id not written")
	}

	want := []Entry{
		{Revision: id(1), Content: id(10)},
		{Revision: id(3), Content: id(11)},
	}
	if got := ix.Entries("/a.txt"); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries = %v, want %v", got, want)
	}

	last, ok := ix.Last("/a.txt")
	if !ok {
		t.Fatal("Last: no history")
	}
	if last.Revision != id(3) {
		t.Errorf("Last.Revision = %s, want %s", last.Revision.Short(), id(3).Short())
	}
}

func TestRecordRemoval(t *testing.T) {
	ix, _ := newIndex(t)

	if mustRecord(t, ix, "/never", id(1), object.ZeroID) {
		t.Error("removal of a path without history was recorded")
	}
	if _, ok := ix.Last("/never"); ok {
		t.Error("/never has history")
	}

	mustRecord(t, ix, "/gone", id(1), id(5))
	if !mustRecord(t, ix, "/gone", id(2), object.ZeroID) {
		t.Error("removal not recorded")
	}
	if last, _ := ix.Last("/gone"); !last.Content.IsZero() {
		t.Errorf("Last.Content = %s, want zero", last.Content.Short())
	}

	// Reappearing with the same id as before removal is a change.
	if !mustRecord(t, ix, "/gone", id(3), id(5)) {
		t.Error("reappearance not recorded")
	}
	if n := len(ix.Entries("/gone")); n != 3 {
		t.Errorf("Entries = %d, want 3", n)
	}
}

func TestReopenReplays(t *testing.T) {
	ix, fs := newIndex(t)
	mustRecord(t, ix, "/", id(1), id(20))
	mustRecord(t, ix, "/dir/x", id(1), id(21))
	mustRecord(t, ix, "/dir/x", id(2), id(22))
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	re := openIndex(t, fs)
	if re.Len() != 2 {
		t.Errorf("Len = %d, want 2", re.Len())
	}
	want := []Entry{
		{Revision: id(1), Content: id(21)},
		{Revision: id(2), Content: id(22)},
	}
	if got := re.Entries("/dir/x"); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries = %v, want %v", got, want)
	}

	// Appends after reopen land after the replayed records.
	mustRecord(t, re, "/dir/x", id(3), id(23))
	if err := re.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again := openIndex(t, fs)
	if n := len(again.Entries("/dir/x")); n != 3 {
		t.Errorf("Entries after second reopen = %d, want 3", n)
	}
}

func TestEntriesIsACopy(t *testing.T) {
	ix, _ := newIndex(t)
	mustRecord(t, ix, "/a", id(1), id(2))

	list := ix.Entries("/a")
	list[0].Content = id(99)
	if last, _ := ix.Last("/a"); last.Content != id(2) {
		t.Errorf("Last.Content = %s, want %s", last.Content.Short(), id(2).Short())
	}
}

func TestWalk(t *testing.T) {
	ix, _ := newIndex(t)
	for _, p := range []string{"/d", "/d/a", "/d/b/c", "/dx", "/e"} {
		mustRecord(t, ix, p, id(1), id(7))
	}

	var got []string
	ix.Walk("/d", func(p string, entries []Entry) {
		got = append(got, p)
		if len(entries) != 1 {
			t.Errorf("%s: %d entries, want 1", p, len(entries))
		}
	})
	if want := []string{"/d", "/d/a", "/d/b/c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Walk(/d) = %v, want %v", got, want)
	}

	got = nil
	ix.Walk("/", func(p string, _ []Entry) { got = append(got, p) })
	if want := []string{"/d", "/d/a", "/d/b/c", "/dx", "/e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Walk(/) = %v, want %v", got, want)
	}
}

func TestWalkPassesCopies(t *testing.T) {
	ix, _ := newIndex(t)
	mustRecord(t, ix, "/d/a", id(1), id(2))
	mustRecord(t, ix, "/d", id(1), id(3))

	ix.Walk("/d", func(_ string, entries []Entry) {
		entries[0].Content = id(99)
	})
	for p, want := range map[string]object.ID{"/d": id(3), "/d/a": id(2)} {
		if last, _ := ix.Last(p); last.Content != want {
			t.Errorf("%s: Last.Content = %s, want %s", p, last.Content.Short(), want.Short())
		}
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(vfs.NewMem(), testLog); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Open(missing) err = %v, want ErrNotFound", err)
	}

	fs := vfs.NewMem()
	if err := vfs.WriteFile(fs, testLog, []byte("garbage!")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(fs, testLog); !errors.Is(err, store.ErrCorrupted) {
		t.Errorf("Open(garbage) err = %v, want ErrCorrupted", err)
	}

	fs = vfs.NewMem()
	if err := Init(fs, testLog); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ix := openIndex(t, fs)
	mustRecord(t, ix, "/a", id(1), id(2))
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	size, err := fs.Size(testLog)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if err := fs.Truncate(testLog, size-3); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if _, err := Open(fs, testLog); !errors.Is(err, store.ErrCorrupted) {
		t.Errorf("Open(truncated) err = %v, want ErrCorrupted", err)
	}
}
