package segment

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// DefaultCadenceTag selects fast-cadence light-curve products.
const DefaultCadenceTag = "a_fast"

// Discovery is the outcome of scanning a target directory.
type Discovery struct {
	Paths   []string // Files to load, in lexical walk order
	Skipped []string // Supported files rejected by the cadence filter
}

// Discover walks root recursively and returns every file a decoder supports
// whose name contains cadenceTag. Supported files without the tag are listed
// as skipped. An empty cadenceTag accepts every supported file.
func Discover(fsys fs.FS, root string, cadenceTag string, decoders Decoders) (*Discovery, error) {
	var d Discovery
	err := fs.WalkDir(fsys, root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !decoders.Supports(p) {
			return nil
		}

		if !strings.Contains(path.Base(p), cadenceTag) {
			d.Skipped = append(d.Skipped, p)
			return nil
		}

		d.Paths = append(d.Paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return &d, nil
}
