package membackend

import (
	"context"
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/javi11/hfile/internal/herrors"
)

// MemBackend implements the "mem:" backend: read/write against a
// caller-owned, growable byte slice. In read mode it serves bytes from
// (*buf)[0:length); in write mode it appends, growing *buf with doubling
// capacity and mirroring the allocated capacity into *length while writing,
// then setting *length to the final written size on Close — matching the
// legacy pointer-pair contract even though a Go slice header already
// carries its own length (the mirrored lengthPtr exists purely for
// URL-encoding compatibility, see EncodeMemURL).
type MemBackend struct {
	buf       *[]byte
	lengthPtr *int64 // optional; mirrors the legacy pmlength contract
	write     bool
	readPos   int64
}

// NewMemory returns a write-mode backend appending into *buf.
func NewMemory(buf *[]byte) *MemBackend {
	return &MemBackend{buf: buf, write: true}
}

// NewMemoryReader returns a read-mode backend serving from *buf.
func NewMemoryReader(buf *[]byte) *MemBackend {
	return &MemBackend{buf: buf, write: false}
}

// newMemWithLength is used by the mem: URL dispatcher, which decodes both a
// buffer pointer and a length pointer per the legacy encoding.
func newMemWithLength(buf *[]byte, length *int64, write bool) *MemBackend {
	return &MemBackend{buf: buf, lengthPtr: length, write: write}
}

func (m *MemBackend) readLength() int64 {
	if m.lengthPtr != nil {
		return *m.lengthPtr
	}
	return int64(len(*m.buf))
}

// Read implements backend.Reader.
func (m *MemBackend) Read(_ context.Context, p []byte) (int, error) {
	if m.write {
		return 0, herrors.New("hread", herrors.KindUnsupported, nil)
	}
	limit := m.readLength()
	if m.readPos >= limit {
		return 0, io.EOF
	}
	avail := (*m.buf)[m.readPos:limit]
	n := copy(p, avail)
	m.readPos += int64(n)
	return n, nil
}

// Write implements backend.Writer, growing *buf with doubling capacity.
func (m *MemBackend) Write(_ context.Context, p []byte) (int, error) {
	if !m.write {
		return 0, herrors.New("hwrite", herrors.KindUnsupported, nil)
	}
	cur := *m.buf
	needed := len(cur) + len(p)
	if needed > cap(cur) {
		newCap := cap(cur) * 2
		if newCap < needed {
			newCap = needed
		}
		grown := make([]byte, len(cur), newCap)
		copy(grown, cur)
		cur = grown
	}
	cur = cur[:needed]
	copy(cur[needed-len(p):], p)
	*m.buf = cur
	if m.lengthPtr != nil {
		*m.lengthPtr = int64(cap(cur))
	}
	return len(p), nil
}

// Seek implements backend.Seeker.
func (m *MemBackend) Seek(_ context.Context, offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.readPos + offset
	case io.SeekEnd:
		abs = m.readLength() + offset
	default:
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
	if abs < 0 {
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
	m.readPos = abs
	return abs, nil
}

// Close implements backend.Closer. In write mode the mirrored length
// pointer, if any, is finalized to the actual written size; the backing
// slice itself survives close and is owned by the caller thereafter.
func (m *MemBackend) Close() error {
	if m.write && m.lengthPtr != nil {
		*m.lengthPtr = int64(len(*m.buf))
	}
	return nil
}

// --- mem: URL pointer encoding ---
//
// The URL is "mem:" followed by sizeof(void*) raw bytes forming &bufferPtr
// then sizeof(void*) raw bytes forming &length, concatenated. This is a
// compatibility contract with legacy callers that encode raw machine
// pointers in a string; it is fragile, and NewMemory/NewMemoryReader above
// are the recommended typed constructors instead. The functions below
// exist only so
// the "mem:" URL scheme recognized by hfile.Open (see dispatch.go) round-trips
// for callers that still rely on it. They depend on Go's current
// non-moving garbage collector: the pointee must stay reachable and at a
// stable address for the lifetime of the encoded URL.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// EncodeMemURL builds a "mem:" URL encoding pointers to the caller's buffer
// slice and length variable, for legacy round-tripping through hfile.Open.
func EncodeMemURL(bufPtr *[]byte, lengthPtr *int64) string {
	out := make([]byte, 4+2*ptrSize)
	copy(out, "mem:")
	binary.NativeEndian.PutUint64(out[4:], uint64(uintptr(unsafe.Pointer(bufPtr))))
	binary.NativeEndian.PutUint64(out[4+ptrSize:], uint64(uintptr(unsafe.Pointer(lengthPtr))))
	return string(out)
}

// DecodeMemURL reverses EncodeMemURL, recovering the original pointers.
func DecodeMemURL(url string) (bufPtr *[]byte, lengthPtr *int64, err error) {
	const prefix = "mem:"
	if len(url) < len(prefix)+2*ptrSize || url[:len(prefix)] != prefix {
		return nil, nil, herrors.New("hopen", herrors.KindInvalid, nil)
	}
	body := []byte(url[len(prefix):])
	bufAddr := uintptr(binary.NativeEndian.Uint64(body[:ptrSize]))
	lenAddr := uintptr(binary.NativeEndian.Uint64(body[ptrSize : 2*ptrSize]))
	//nolint:govet // intentional: reconstructing pointers encoded by EncodeMemURL, see doc comment above.
	bufPtr = (*[]byte)(unsafe.Pointer(bufAddr))
	//nolint:govet
	lengthPtr = (*int64)(unsafe.Pointer(lenAddr))
	return bufPtr, lengthPtr, nil
}

// OpenFromURL opens a mem: URL in either read or write mode, decoding the
// pointer pair.
func OpenFromURL(url string, mode string) (*MemBackend, error) {
	bufPtr, lengthPtr, err := DecodeMemURL(url)
	if err != nil {
		return nil, err
	}
	switch mode {
	case "r":
		return newMemWithLength(bufPtr, lengthPtr, false), nil
	case "w":
		return newMemWithLength(bufPtr, lengthPtr, true), nil
	default:
		return nil, herrors.New("hopen", herrors.KindInvalid, nil)
	}
}
