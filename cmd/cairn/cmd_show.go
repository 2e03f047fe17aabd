package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/store"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [revision]",
		Short: "Show revision metadata and the files it changed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			id, err := resolveRevision(r, target)
			if err != nil {
				return err
			}
			rev, err := r.ReadRevision(id)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			out := cmd.OutOrStdout()
			printRevision(out, rev, "")

			files := func(tree object.ID) (map[string]object.ID, error) {
				m := make(map[string]object.ID)
				if tree.IsZero() {
					return m, nil
				}
				err := r.Walk(tree, func(p string, e store.Entry) error {
					m[p] = e.ID
					return nil
				})
				return m, err
			}

			var parentTree object.ID
			if !rev.Parent.IsZero() {
				parent, err := r.ReadRevision(rev.Parent)
				if err != nil {
					return fmt.Errorf("show: %w", err)
				}
				parentTree = parent.Tree
			}
			before, err := files(parentTree)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			after, err := files(rev.Tree)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			var lines []string
			for p, id := range after {
				old, ok := before[p]
				switch {
				case !ok:
					lines = append(lines, "A  "+p)
				case old != id:
					lines = append(lines, "M  "+p)
				}
			}
			for p := range before {
				if _, ok := after[p]; !ok {
					lines = append(lines, "D  "+p)
				}
			}
			sort.Slice(lines, func(i, j int) bool { return lines[i][3:] < lines[j][3:] })
			for _, l := range lines {
				fmt.Fprintln(out, l)
			}
			return nil
		},
	}
}
