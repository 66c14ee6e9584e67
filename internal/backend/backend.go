// Package backend defines the capability bundle every concrete byte source
// implements a subset of. A backend is a small interface with optional
// sub-capabilities detected via type assertion: any operation may be
// absent, and absence means the backend lacks that capability.
package backend

import "context"

// Reader is the read capability. Read may return a short count with a nil
// error; io.EOF signals end of stream.
type Reader interface {
	Read(ctx context.Context, p []byte) (n int, err error)
}

// Writer is the write capability.
type Writer interface {
	Write(ctx context.Context, p []byte) (n int, err error)
}

// Seeker is the seek capability. whence follows io.Seeker (io.SeekStart,
// io.SeekCurrent, io.SeekEnd).
type Seeker interface {
	Seek(ctx context.Context, offset int64, whence int) (int64, error)
}

// Flusher is the flush capability; backends without buffering of their own
// may omit it, hfile.Stream then treats Flush as a no-op for that backend.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Closer is mandatory for every backend.
type Closer interface {
	Close() error
}

// Backend is the minimal capability every concrete byte source implements:
// just Close. Read/Write/Seek/Flush are detected via the optional
// interfaces above.
type Backend interface {
	Closer
}
