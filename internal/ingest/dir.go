package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// ParseDir parses every supported file under dir, in lexical path order. Files
// that fail to parse are reported in errs and do not stop the walk.
func ParseDir(dir string) (parsed []*Parsed, errs []error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !SupportedExt(filepath.Ext(path)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, []error{fmt.Errorf("walk %s: %w", dir, err)}
	}
	sort.Strings(paths)

	for _, path := range paths {
		p, err := ParseFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		parsed = append(parsed, p)
	}
	return parsed, errs
}
