// Package templates provides the read-only documents seeded into every
// connected store.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/dmitrijs2005/flogger/internal/client/models"
)

//go:embed repo_template
var embedded embed.FS

// Template is a document the store must contain.
type Template struct {
	Path    string
	Content string
}

// Embedded returns the templates compiled into the binary.
func Embedded() ([]Template, error) {
	sub, err := fs.Sub(embedded, "repo_template")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// FromDir reads templates from a directory on disk.
func FromDir(dir string) ([]Template, error) {
	return Load(os.DirFS(dir))
}

// Load walks fsys and maps each regular file "a/b.txt" to storage path
// "/a/b.txt". The result is sorted by path.
func Load(fsys fs.FS) ([]Template, error) {
	var out []Template
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read template %s: %w", p, err)
		}
		out = append(out, Template{Path: models.NormalizePath(p), Content: string(b)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Paths returns the storage paths of ts.
func Paths(ts []Template) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Path
	}
	return out
}
