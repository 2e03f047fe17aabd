package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/vfs"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty cairn repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			// Ensure the target directory exists.
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			log, err := commandLogger(cmd, vfs.NewOS(abs))
			if err != nil {
				return err
			}
			r, err := repo.Init(vfs.NewOS(abs), repo.WithLogger(log))
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty cairn repository in %s\n", filepath.Join(abs, repo.MetaDir)+string(filepath.Separator))
			return nil
		},
	}
}
