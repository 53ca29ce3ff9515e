package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"subtrans/internal/fileutil"
	"subtrans/internal/services"
)

// Writer persists a finished output file and returns where it landed.
type Writer interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// DirWriter writes outputs into a directory with temp-then-rename semantics.
type DirWriter struct {
	Dir  string
	Perm os.FileMode
}

// Write implements Writer.
func (w DirWriter) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	path := filepath.Join(w.Dir, name)
	if err := fileutil.WriteFileAtomic(path, data, perm); err != nil {
		return "", services.Wrap(services.ErrIO, "pipeline", "write", path, err)
	}
	return path, nil
}
