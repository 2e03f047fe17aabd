package repo

import (
	"path"
	"strings"

	"github.com/odvcencio/cairn/pkg/store"
	"github.com/odvcencio/cairn/pkg/vfs"
)

// Locate finds the repository that contains p on fs. It walks p from the
// root down, testing each prefix for a catalog log; the first prefix that
// has one is the repository root. inside is p relative to that root and is
// "/" when p is the root itself.
func Locate(fs vfs.FS, p string) (found bool, root, inside string, err error) {
	parts := vfs.Split(p)
	prefix := "/"
	for i := 0; i <= len(parts); i++ {
		if i > 0 {
			prefix = path.Join(prefix, parts[i-1])
		}
		st, err := fs.State(path.Join(prefix, MetaDir, store.CatalogLogName))
		if err != nil {
			return false, "", "", err
		}
		if st == vfs.Regular {
			return true, prefix, "/" + strings.Join(parts[i:], "/"), nil
		}
	}
	return false, "", "", nil
}
