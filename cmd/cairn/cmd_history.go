package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/history"
)

func newHistoryCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "List the revisions at which a path changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, loc, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			p := loc.repoPath(args[0])
			out := cmd.OutOrStdout()
			if recursive {
				r.HistoryUnder(p, func(path string, entries []history.Entry) {
					fmt.Fprintln(out, path)
					printHistory(out, entries, "  ")
				})
				return nil
			}

			entries := r.History(p)
			if len(entries) == 0 {
				fmt.Fprintf(out, "no history for %s\n", p)
				return nil
			}
			printHistory(out, entries, "")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "include every path below the given one")
	return cmd
}

func printHistory(out io.Writer, entries []history.Entry, indent string) {
	for _, e := range entries {
		if e.Content.IsZero() {
			fmt.Fprintf(out, "%s%s removed\n", indent, e.Revision.Short())
			continue
		}
		fmt.Fprintf(out, "%s%s %s\n", indent, e.Revision.Short(), e.Content.Short())
	}
}
