package archive

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/vfs"
	"github.com/odvcencio/cairn/pkg/workspace"
)

func committedRepo(t *testing.T, files map[string]string) (*repo.Repo, *object.Revision) {
	t.Helper()
	fs := vfs.NewMem()
	r, err := repo.Init(fs)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	for p, data := range files {
		if err := vfs.WriteFile(fs, vfs.Join("/work", p), []byte(data)); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}
	rev, err := r.Commit(workspace.New(fs, "/work"), repo.CommitOptions{Message: "archive me"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return r, rev
}

func TestWriteRead(t *testing.T) {
	r, rev := committedRepo(t, map[string]string{
		"/z.txt":         "last",
		"/docs/guide.md": "# guide",
		"/docs/a.md":     "a",
	})

	var buf bytes.Buffer
	n, err := Write(&buf, r, rev.Tree, Options{Prefix: "release-1/"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 3 {
		t.Errorf("Write wrote %d files, want 3", n)
	}

	files, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []File{
		{Name: "release-1/docs/a.md", Data: []byte("a")},
		{Name: "release-1/docs/guide.md", Data: []byte("# guide")},
		{Name: "release-1/z.txt", Data: []byte("last")},
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Read = %+v, want %+v", files, want)
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	r, rev := committedRepo(t, map[string]string{"/a": "a", "/b/c": "c"})

	var first, second bytes.Buffer
	if _, err := Write(&first, r, rev.Tree, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Write(&second, r, rev.Tree, Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two archives of the same tree differ")
	}
}

func TestWriteMissingTree(t *testing.T) {
	r, _ := committedRepo(t, map[string]string{"/a": "a"})
	_, err := Write(&bytes.Buffer{}, r, object.HashObject(object.KindTree, []byte("nope")), Options{})
	if !errors.Is(err, repo.ErrCorrupted) {
		t.Fatalf("Write err = %v, want ErrCorrupted", err)
	}
}

func TestReadGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("definitely not zstd"))); err == nil {
		t.Fatal("Read accepted garbage")
	}
}
