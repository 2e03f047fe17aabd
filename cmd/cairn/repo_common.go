package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odvcencio/cairn/pkg/logging"
	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// hostFS is the whole host filesystem, so a repository can be located
// from any path beneath it.
func hostFS() vfs.FS {
	return vfs.NewOS("/")
}

// hostPath turns a command-line path into an absolute slash path on hostFS.
func hostPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return filepath.ToSlash(abs), nil
}

// location is where --repo points: the repository root on the host and
// the path of --repo inside the repository.
type location struct {
	root   string
	inside string
}

// openRepo finds the repository containing --repo and opens it with a
// logger at --log-level, or the configured level when the flag is unset.
func openRepo(cmd *cobra.Command) (*repo.Repo, location, error) {
	p, _ := cmd.Flags().GetString("repo")
	abs, err := hostPath(p)
	if err != nil {
		return nil, location{}, err
	}

	fs := hostFS()
	found, root, inside, err := repo.Locate(fs, abs)
	if err != nil {
		return nil, location{}, err
	}
	if !found {
		return nil, location{}, fmt.Errorf("%s: %w (or any parent up to /)", abs, repo.ErrNotRepository)
	}
	sub := vfs.Sub(fs, root)

	log, err := commandLogger(cmd, sub)
	if err != nil {
		return nil, location{}, err
	}
	r, err := repo.Open(sub, repo.WithLogger(log))
	if err != nil {
		return nil, location{}, err
	}
	return r, location{root: root, inside: inside}, nil
}

func commandLogger(cmd *cobra.Command, fs vfs.FS) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		cfg, err := repo.LoadConfig(fs)
		if err != nil {
			return nil, err
		}
		level = cfg.Log.Level
	}
	return logging.New(level)
}

// resolveRevision maps "", "tip", a full id or a unique id prefix to a
// revision id.
func resolveRevision(r *repo.Repo, rev string) (object.ID, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" || rev == "tip" {
		tip := r.Tip()
		if tip.IsZero() {
			return object.ZeroID, fmt.Errorf("no revisions yet")
		}
		return tip, nil
	}
	if id, err := object.ParseID(rev); err == nil {
		return id, nil
	}

	var match object.ID
	n := 0
	for _, e := range r.Store.Entries(object.KindRevision) {
		if strings.HasPrefix(e.ID.String(), strings.ToLower(rev)) {
			match = e.ID
			n++
		}
	}
	switch n {
	case 0:
		return object.ZeroID, fmt.Errorf("revision %q: %w", rev, repo.ErrUnknownRevision)
	case 1:
		return match, nil
	default:
		return object.ZeroID, fmt.Errorf("revision %q is ambiguous (%d matches)", rev, n)
	}
}

// repoPath resolves a path argument against the position of --repo inside
// the repository. Absolute arguments are already repository paths.
func (l location) repoPath(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return vfs.Clean(arg)
	}
	return vfs.Join(l.inside, arg)
}
