package main

import (
	"fmt"
	"os"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/odvcencio/cairn/pkg/archive"
)

func newArchiveCmd() *cobra.Command {
	var (
		rev    string
		output string
		prefix string
		list   string
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export a revision as a .tar.zst archive, or list one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list != "" {
				f, err := os.Open(list)
				if err != nil {
					return err
				}
				defer f.Close()
				files, err := archive.Read(f)
				if err != nil {
					return err
				}
				for _, file := range files {
					fmt.Fprintf(out, "%10s  %s\n", units.HumanSize(float64(len(file.Data))), file.Name)
				}
				return nil
			}
			if output == "" {
				return fmt.Errorf("an output file is required (-o)")
			}

			r, _, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := resolveRevision(r, rev)
			if err != nil {
				return err
			}
			revision, err := r.ReadRevision(id)
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := archive.Write(f, r, revision.Tree, archive.Options{
				Prefix:  prefix,
				ModTime: time.Unix(0, revision.Timestamp),
			})
			if err = multierr.Append(err, f.Close()); err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintf(out, "wrote %d files from %s to %s\n", n, id.Short(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "revision to export (default tip)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive file to write")
	cmd.Flags().StringVar(&prefix, "prefix", "", "directory prepended to every archived path")
	cmd.Flags().StringVar(&list, "list", "", "list the contents of an existing archive instead")
	return cmd
}
