package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/object"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show revision history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			if r.Tip().IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "no revisions yet")
				return nil
			}
			start := ""
			if len(args) > 0 {
				start = args[0]
			}
			id, err := resolveRevision(r, start)
			if err != nil {
				return err
			}

			revs, err := r.Log(id, limit)
			if err != nil {
				return err
			}

			tip := r.Tip()
			out := cmd.OutOrStdout()
			for _, rev := range revs {
				decoration := ""
				if rev.ID == tip {
					decoration = "(tip)"
				}
				if oneline {
					if decoration != "" {
						fmt.Fprintf(out, "%s %s %s\n", rev.ID.Short(), decoration, rev.Message)
					} else {
						fmt.Fprintf(out, "%s %s\n", rev.ID.Short(), rev.Message)
					}
					continue
				}
				printRevision(out, rev, decoration)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "compact one-line format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of revisions to show (0 for all)")

	return cmd
}

func printRevision(out io.Writer, rev *object.Revision, decoration string) {
	if decoration != "" {
		fmt.Fprintf(out, "revision %s %s\n", rev.ID, decoration)
	} else {
		fmt.Fprintf(out, "revision %s\n", rev.ID)
	}
	fmt.Fprintf(out, "Author: %s\n", rev.Author)
	if rev.Submitter != "" && rev.Submitter != rev.Author {
		fmt.Fprintf(out, "Submitter: %s\n", rev.Submitter)
	}
	fmt.Fprintf(out, "Date:   %s\n", time.Unix(0, rev.Timestamp).Format("2006-01-02 15:04:05"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "    %s\n", rev.Message)
	fmt.Fprintln(out)
}
