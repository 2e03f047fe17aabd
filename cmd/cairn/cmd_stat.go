package main

import (
	"fmt"
	"path"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/odvcencio/cairn/pkg/history"
	"github.com/odvcencio/cairn/pkg/object"
	"github.com/odvcencio/cairn/pkg/repo"
	"github.com/odvcencio/cairn/pkg/store"
)

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Summarize the object store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, loc, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "repository  %s\n", loc.root)
			if tip := r.Tip(); tip.IsZero() {
				fmt.Fprintln(out, "tip         (none)")
			} else {
				fmt.Fprintf(out, "tip         %s\n", tip)
			}

			for _, kind := range []object.Kind{object.KindContent, object.KindTree, object.KindRevision} {
				var total uint64
				entries := r.Store.Entries(kind)
				for _, e := range entries {
					total += e.Size
				}
				fmt.Fprintf(out, "%-11s %d objects, %s\n", kind, len(entries), units.HumanSize(float64(total)))
			}

			for _, name := range []string{store.ContentLogName, store.CatalogLogName, history.LogName} {
				size, err := r.FS.Size(path.Join("/", repo.MetaDir, name))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-11s %s\n", name, units.BytesSize(float64(size)))
			}
			return nil
		},
	}
}
