package config

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandGlobs resolves the configured file globs against the local
// filesystem and returns the deduplicated, sorted list of files to
// publish. Ignore patterns are matched against the resolved paths.
func (c *Config) ExpandGlobs() ([]string, error) {
	seen := map[string]bool{}
	var files []string

	for _, g := range c.FileGlobs {
		matches, err := doublestar.FilepathGlob(g.Pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand glob %q: %w", g.Pattern, err)
		}

	match:
		for _, path := range matches {
			for _, ignore := range g.Ignore {
				ok, err := doublestar.PathMatch(ignore, path)
				if err != nil {
					return nil, fmt.Errorf("ignore pattern %q: %w", ignore, err)
				}
				if ok {
					continue match
				}
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
