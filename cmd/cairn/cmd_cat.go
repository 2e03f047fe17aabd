package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
)

func newCatCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file, or list a directory, as of a revision",
		Long: `Print a file, or list a directory, as of a revision.

A final path component of the form @<id> names an object directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, loc, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			revID := object.ZeroID
			if rev != "" {
				if revID, err = resolveRevision(r, rev); err != nil {
					return err
				}
			}
			p := loc.repoPath(args[0])
			id, err := r.Resolve(revID, p)
			if err != nil {
				return err
			}
			if id.IsZero() {
				return fmt.Errorf("cat %s: %w", p, repo.ErrNotFound)
			}

			e, _ := r.Stat(id)
			out := cmd.OutOrStdout()
			switch e.Kind {
			case object.KindContent:
				sr, err := r.OpenForRead(id)
				if err != nil {
					return err
				}
				_, err = io.Copy(out, sr)
				return err
			case object.KindTree:
				tree, err := r.ReadTree(id)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(tree))
				for name := range tree {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					child, _ := r.Stat(tree[name])
					fmt.Fprintf(out, "%-8s %s  %s\n", child.Kind, tree[name].Short(), name)
				}
				return nil
			default:
				rv, err := r.ReadRevision(id)
				if err != nil {
					return err
				}
				printRevision(out, rv, "")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "revision to read from (default tip)")
	return cmd
}
