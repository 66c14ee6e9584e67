// Package filebackend implements the hfile backend.Backend over a local
// filesystem path, via spf13/afero so tests can substitute an in-memory
// filesystem instead of touching disk.
package filebackend

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/javi11/hfile/internal/herrors"
)

// Backend wraps a single open afero.File. No buffering of its own:
// read/write/seek delegate directly to the underlying file.
type Backend struct {
	f afero.File
}

// Open opens path for reading ("r") or writing ("w") on fs. A nil fs
// defaults to the real OS filesystem (afero.NewOsFs()).
func Open(fs afero.Fs, path string, mode string) (*Backend, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var (
		f   afero.File
		err error
	)
	switch mode {
	case "r":
		f, err = fs.Open(path)
	case "w":
		f, err = fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	default:
		return nil, herrors.New("hopen", herrors.KindInvalid, nil)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, herrors.New("hopen", herrors.KindNotFound, err)
		}
		if os.IsPermission(err) {
			return nil, herrors.New("hopen", herrors.KindPermissionDenied, err)
		}
		return nil, herrors.New("hopen", herrors.KindIoError, err)
	}

	return &Backend{f: f}, nil
}

// Read implements backend.Reader. Retrying on EINTR is unnecessary here:
// the os package already retries it internally.
func (b *Backend) Read(_ context.Context, p []byte) (int, error) {
	n, err := b.f.Read(p)
	if err != nil && err != io.EOF {
		return n, herrors.New("hread", herrors.KindIoError, err)
	}
	return n, err
}

// Write implements backend.Writer.
func (b *Backend) Write(_ context.Context, p []byte) (int, error) {
	n, err := b.f.Write(p)
	if err != nil {
		return n, herrors.New("hwrite", herrors.KindIoError, err)
	}
	return n, nil
}

// Seek implements backend.Seeker.
func (b *Backend) Seek(_ context.Context, offset int64, whence int) (int64, error) {
	n, err := b.f.Seek(offset, whence)
	if err != nil {
		return n, herrors.New("hseek", herrors.KindIoError, err)
	}
	return n, nil
}

// Flush implements backend.Flusher by syncing the file to stable storage.
func (b *Backend) Flush(_ context.Context) error {
	if err := b.f.Sync(); err != nil {
		return herrors.New("hflush", herrors.KindIoError, err)
	}
	return nil
}

// Close implements backend.Closer.
func (b *Backend) Close() error {
	if err := b.f.Close(); err != nil {
		return herrors.New("hclose", herrors.KindIoError, err)
	}
	return nil
}
