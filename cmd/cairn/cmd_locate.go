package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/repo"
)

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate [path]",
		Short: "Print the repository root containing path and the path inside it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "."
			if len(args) > 0 {
				p = args[0]
			}
			abs, err := hostPath(p)
			if err != nil {
				return err
			}
			found, root, inside, err := repo.Locate(hostFS(), abs)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s: %w", abs, repo.ErrNotRepository)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", root, inside)
			return nil
		},
	}
}
