package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/vfs"
)

func newCheckoutCmd() *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "checkout <dir>",
		Short: "Write the files of a revision into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := resolveRevision(r, rev)
			if err != nil {
				return err
			}
			abs, err := hostPath(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			n, err := r.Checkout(id, vfs.NewOS(abs), "/")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked out %d files from %s into %s\n", n, id.Short(), abs)
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "revision to check out (default tip)")
	return cmd
}
