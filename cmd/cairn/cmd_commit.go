package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/workspace"
)

func newCommitCmd() *cobra.Command {
	var (
		message string
		author  string
		base    string
		orphan  bool
		removed []string
	)

	cmd := &cobra.Command{
		Use:   "commit [dir]",
		Short: "Record the files under dir on top of the base revision",
		Long: `Record the files under dir on top of the base revision.

dir is laid over the repository root: files under it are added or
replaced, and everything else in the base revision is kept unless named
with --rm. dir defaults to the repository root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, loc, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			abs := loc.root
			if len(args) > 0 {
				if abs, err = hostPath(args[0]); err != nil {
					return err
				}
				if _, err := os.Stat(filepath.FromSlash(abs)); err != nil {
					return err
				}
			}
			ws := workspace.New(hostFS(), abs, workspace.WithIgnore(repo.MetaDir))
			for _, p := range removed {
				if err := ws.MarkRemove(loc.repoPath(p)); err != nil {
					return err
				}
			}

			baseID := object.ZeroID
			if !orphan && !r.Tip().IsZero() {
				if baseID, err = resolveRevision(r, base); err != nil {
					return err
				}
			}

			rev, err := r.Commit(ws, repo.CommitOptions{
				Message: message,
				Author:  author,
				Base:    baseID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", rev.ID.Short(), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "commit author (default from config, then $USER)")
	cmd.Flags().StringVar(&base, "base", "", "base revision (default tip)")
	cmd.Flags().BoolVar(&orphan, "orphan", false, "start from an empty tree instead of the tip")
	cmd.Flags().StringArrayVar(&removed, "rm", nil, "repository path to remove (repeatable)")
	return cmd
}
