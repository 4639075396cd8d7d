package excel

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"allday/domain/core"
)

// DirSource opens snapshot files from a local data directory
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Open opens name relative to the directory; absolute names are used as is
func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.dir, name)
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, p)
	}
	return f, err
}
