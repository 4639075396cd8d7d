package ports

import (
	"context"
	"io"
)

// SnapshotSource opens the input files of one market snapshot, from a
// local directory or object storage
type SnapshotSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
