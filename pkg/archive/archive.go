// Package archive exports a tree as a zstd-compressed tar stream.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/store"
)

// Source is what Write reads a tree from. *repo.Repo implements it.
type Source interface {
	Walk(tree object.ID, fn repo.WalkFunc) error
	OpenForRead(id object.ID) (*io.SectionReader, error)
}

// Options tune the archive.
type Options struct {
	Prefix  string            // prepended to every member name
	ModTime time.Time         // member mtime; zero means the Unix epoch
	Level   zstd.EncoderLevel // zero means zstd.SpeedDefault
}

// File is one member of an archive.
type File struct {
	Name string
	Data []byte
}

// Write streams every file of tree from src to w as tar compressed with
// zstd. It returns the number of files written.
func Write(w io.Writer, src Source, tree object.ID, opts Options) (int, error) {
	level := opts.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Unix(0, 0)
	}
	prefix := strings.Trim(opts.Prefix, "/")

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	tw := tar.NewWriter(enc)

	n := 0
	err = src.Walk(tree, func(p string, e store.Entry) error {
		name := strings.TrimPrefix(p, "/")
		if prefix != "" {
			name = prefix + "/" + name
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(e.Size),
			ModTime:  modTime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		r, err := src.OpenForRead(e.ID)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, r); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		n++
		return nil
	})
	if err != nil {
		tw.Close()
		enc.Close()
		return n, fmt.Errorf("archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return n, fmt.Errorf("archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("archive: %w", err)
	}
	return n, nil
}

// Read decodes a stream produced by Write, in archive order.
func Read(r io.Reader) ([]File, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	defer dec.Close()

	var files []File
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read archive: %s: %w", hdr.Name, err)
		}
		files = append(files, File{Name: hdr.Name, Data: data})
	}
}
