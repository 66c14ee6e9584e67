// Package membackend implements the two in-memory hfile backends: the
// read-only "data:" literal backend and the read/write "mem:" backend that
// grows a caller-owned byte slice. Growth uses doubling capacity, the same
// amortized-append strategy Go's own append() uses.
package membackend

import (
	"context"
	"io"

	"github.com/javi11/hfile/internal/herrors"
)

// DataBackend serves the "data:" URL backend: an immutable, read-only,
// seekable byte slice parsed from the URL body (no percent-decoding in the
// base case).
type DataBackend struct {
	payload []byte
	pos     int64
}

// NewData returns a backend reading payload (a copy is not taken; callers
// must not mutate payload afterwards).
func NewData(payload []byte) *DataBackend {
	return &DataBackend{payload: payload}
}

// Read implements backend.Reader.
func (d *DataBackend) Read(_ context.Context, p []byte) (int, error) {
	if d.pos >= int64(len(d.payload)) {
		return 0, io.EOF
	}
	n := copy(p, d.payload[d.pos:])
	d.pos += int64(n)
	return n, nil
}

// Seek implements backend.Seeker.
func (d *DataBackend) Seek(_ context.Context, offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = d.pos + offset
	case io.SeekEnd:
		abs = int64(len(d.payload)) + offset
	default:
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
	if abs < 0 {
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
	d.pos = abs
	return abs, nil
}

// Close implements backend.Closer; the data: backend owns nothing that
// needs releasing.
func (d *DataBackend) Close() error {
	return nil
}
