// Package hfile provides hStream, a uniform buffered byte-stream
// abstraction over local files, in-memory buffers, inline data, and
// resumable HTTP(S) downloads, addressed uniformly through a URL-like
// string or a typed constructor.
package hfile

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/javi11/hfile/internal/backend"
	"github.com/javi11/hfile/internal/herrors"
)

// Mode selects read or write access when opening a Stream. A Stream is
// never both readable and writable at once.
type Mode int

const (
	// ModeRead opens a Stream for reading.
	ModeRead Mode = iota
	// ModeWrite opens a Stream for writing.
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

// ctxReader adapts a backend.Reader, bound to a fixed context, to io.Reader
// so it can sit underneath a bufio.Reader.
type ctxReader struct {
	ctx context.Context
	be  backend.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	return r.be.Read(r.ctx, p)
}

// ctxWriter adapts a backend.Writer, bound to a fixed context, to
// io.Writer so it can sit underneath a bufio.Writer.
type ctxWriter struct {
	ctx context.Context
	be  backend.Writer
}

func (w *ctxWriter) Write(p []byte) (int, error) {
	return w.be.Write(w.ctx, p)
}

// Stream is a uniform, buffered byte stream over a backend.Backend. It
// implements io.Reader, io.Writer, io.Seeker, io.ByteReader, io.ByteWriter,
// and io.Closer, and additionally exposes Peek, Tell, and Err.
type Stream struct {
	ctx     context.Context
	be      backend.Backend
	mode    Mode
	bufSize int

	br *bufio.Reader
	bw *bufio.Writer

	offset int64
	err    error
	closed bool
}

// newStream wraps be in buffered I/O for the given mode. be must implement
// backend.Reader for ModeRead or backend.Writer for ModeWrite.
func newStream(ctx context.Context, be backend.Backend, mode Mode, bufSize int) (*Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	s := &Stream{ctx: ctx, be: be, mode: mode, bufSize: bufSize}
	switch mode {
	case ModeRead:
		r, ok := be.(backend.Reader)
		if !ok {
			_ = be.Close()
			return nil, herrors.New("hopen", herrors.KindUnsupported, errors.New("backend does not support reading"))
		}
		s.br = bufio.NewReaderSize(&ctxReader{ctx: ctx, be: r}, bufSize)
	case ModeWrite:
		w, ok := be.(backend.Writer)
		if !ok {
			_ = be.Close()
			return nil, herrors.New("hopen", herrors.KindUnsupported, errors.New("backend does not support writing"))
		}
		s.bw = bufio.NewWriterSize(&ctxWriter{ctx: ctx, be: w}, bufSize)
	default:
		_ = be.Close()
		return nil, herrors.New("hopen", herrors.KindInvalid, nil)
	}
	return s, nil
}

// Read implements io.Reader (hread).
func (s *Stream) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.mode != ModeRead {
		return 0, herrors.New("hread", herrors.KindUnsupported, nil)
	}
	n, err := s.br.Read(p)
	s.offset += int64(n)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// ReadByte implements io.ByteReader (hgetc).
func (s *Stream) ReadByte() (byte, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.mode != ModeRead {
		return 0, herrors.New("hgetc", herrors.KindUnsupported, nil)
	}
	c, err := s.br.ReadByte()
	if err == nil {
		s.offset++
		return c, nil
	}
	if err != io.EOF {
		s.err = err
	}
	return 0, err
}

// Peek returns the next n bytes without advancing the stream's position,
// mirroring bufio.Reader.Peek. Requesting more than the stream's buffer
// size returns bufio.ErrBufferFull wrapped as herrors.KindInvalid; short
// peeks near the end of a stream return fewer bytes alongside io.EOF,
// which is not itself an error condition.
func (s *Stream) Peek(n int) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.mode != ModeRead {
		return nil, herrors.New("hpeek", herrors.KindUnsupported, nil)
	}
	b, err := s.br.Peek(n)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return b, err
	case errors.Is(err, bufio.ErrBufferFull):
		return b, herrors.New("hpeek", herrors.KindInvalid, err)
	default:
		s.err = err
		return b, err
	}
}

// Write implements io.Writer (hwrite).
func (s *Stream) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.mode != ModeWrite {
		return 0, herrors.New("hwrite", herrors.KindUnsupported, nil)
	}
	n, err := s.bw.Write(p)
	s.offset += int64(n)
	if err != nil {
		s.err = err
	}
	return n, err
}

// WriteByte implements io.ByteWriter (hputc).
func (s *Stream) WriteByte(c byte) error {
	if s.err != nil {
		return s.err
	}
	if s.mode != ModeWrite {
		return herrors.New("hputc", herrors.KindUnsupported, nil)
	}
	if err := s.bw.WriteByte(c); err != nil {
		s.err = err
		return err
	}
	s.offset++
	return nil
}

// WriteString writes str (hputs).
func (s *Stream) WriteString(str string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.mode != ModeWrite {
		return 0, herrors.New("hputs", herrors.KindUnsupported, nil)
	}
	n, err := s.bw.WriteString(str)
	s.offset += int64(n)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Flush writes any buffered output through to the backend and, if the
// backend implements backend.Flusher, asks it to commit the data further
// (e.g. fsync). It is a no-op in read mode.
func (s *Stream) Flush() error {
	if s.err != nil {
		return s.err
	}
	if s.mode == ModeWrite {
		if err := s.bw.Flush(); err != nil {
			s.err = err
			return err
		}
	}
	if fl, ok := s.be.(backend.Flusher); ok {
		if err := fl.Flush(s.ctx); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

// Seek implements io.Seeker (hseek). In write mode, any unflushed writes
// are flushed before delegating to the backend. In read mode, a target
// that falls inside the buffer's already-fetched lookahead window (the
// bytes bufio has buffered but not yet handed to the caller) is reached by
// discarding forward within that buffer instead of calling the backend;
// any other target discards the buffer and seeks the backend directly.
// SEEK_END always requires the backend to resolve the target itself.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	seeker, ok := s.be.(backend.Seeker)
	if !ok {
		return 0, herrors.New("hseek", herrors.KindNotSeekable, nil)
	}
	if s.mode == ModeWrite {
		if err := s.bw.Flush(); err != nil {
			s.err = err
			return 0, err
		}
	}

	switch whence {
	case io.SeekStart, io.SeekCurrent:
		target := offset
		if whence == io.SeekCurrent {
			target = s.offset + offset
		}
		if s.mode == ModeRead && target >= s.offset {
			if delta := target - s.offset; delta <= int64(s.br.Buffered()) {
				if _, err := s.br.Discard(int(delta)); err != nil {
					s.err = err
					return 0, err
				}
				s.offset = target
				return target, nil
			}
		}
		return s.seekBackend(seeker, target, io.SeekStart)

	case io.SeekEnd:
		return s.seekBackend(seeker, offset, io.SeekEnd)

	default:
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
}

// seekBackend discards the buffer and delegates to the backend's Seek,
// the fallback path used whenever a read-mode target misses the buffered
// lookahead window, and always for write mode and SEEK_END.
func (s *Stream) seekBackend(seeker backend.Seeker, offset int64, whence int) (int64, error) {
	abs, err := seeker.Seek(s.ctx, offset, whence)
	if err != nil {
		s.err = err
		return 0, err
	}
	s.resetBuffers()
	s.offset = abs
	return abs, nil
}

func (s *Stream) resetBuffers() {
	switch s.mode {
	case ModeRead:
		r := s.be.(backend.Reader)
		s.br = bufio.NewReaderSize(&ctxReader{ctx: s.ctx, be: r}, s.bufSize)
	case ModeWrite:
		w := s.be.(backend.Writer)
		s.bw = bufio.NewWriterSize(&ctxWriter{ctx: s.ctx, be: w}, s.bufSize)
	}
}

// Tell reports the stream's current logical position (htell).
func (s *Stream) Tell() int64 {
	return s.offset
}

// Err returns the last non-EOF error observed by the stream, if any
// (herrno). It is sticky: once set, it is never cleared by a later
// successful operation.
func (s *Stream) Err() error {
	return s.err
}

// Close flushes any pending writes and releases the backend (hclose).
// Close is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var flushErr error
	if s.mode == ModeWrite {
		flushErr = s.Flush()
	}
	closeErr := s.be.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
