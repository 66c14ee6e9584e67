package hfile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanRangeHeader parses a "bytes=N-" Range header into its start offset.
func scanRangeHeader(header string, start *int) error {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("unsupported range header %q", header)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(header, prefix), "-"))
	if err != nil {
		return err
	}
	*start = n
	return nil
}

func contentRangeHeader(start, total int) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, total-1, total)
}

func makePayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 256)
	}
	return b
}

func TestStream_FileCopyThroughByteAtATime(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := makePayload(30000)

	w, err := OpenFile(fs, "/src.bin", ModeWrite)
	require.NoError(t, err)
	for _, b := range payload {
		require.NoError(t, w.WriteByte(b))
	}
	require.NoError(t, w.Close())

	r, err := OpenFile(fs, "/src.bin", ModeRead)
	require.NoError(t, err)
	defer r.Close()

	var out bytes.Buffer
	for {
		c, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out.WriteByte(c)
	}
	assert.Equal(t, payload, out.Bytes())
	assert.Equal(t, int64(len(payload)), r.Tell())
}

func TestStream_CopyThroughVariableChunkSizes(t *testing.T) {
	payload := makePayload(30000)
	for _, chunk := range []int{1, 13, 403, 999, 30000} {
		fs := afero.NewMemMapFs()
		w, err := OpenFile(fs, "/f.bin", ModeWrite)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := OpenFile(fs, "/f.bin", ModeRead)
		require.NoError(t, err)

		var out bytes.Buffer
		buf := make([]byte, chunk)
		for {
			n, err := r.Read(buf)
			out.Write(buf[:n])
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
		}
		assert.Equal(t, payload, out.Bytes(), "chunk size %d", chunk)
		require.NoError(t, r.Close())
	}
}

func TestStream_PeekDoesNotAdvanceOffset(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := []byte("hello, world")
	w, err := OpenFile(fs, "/p.bin", ModeWrite)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenFile(fs, "/p.bin", ModeRead)
	require.NoError(t, err)
	defer r.Close()

	peeked, err := r.Peek(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(peeked))
	assert.Equal(t, int64(0), r.Tell())

	got := make([]byte, 5)
	n, err := r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got[:n]))
	assert.Equal(t, int64(5), r.Tell())
}

func TestStream_SeekAndRewrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := OpenFile(fs, "/s.bin", ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = w.Seek(3, io.SeekStart)
	require.NoError(t, err)
	_, err = w.Write([]byte("XYZ"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenFile(fs, "/s.bin", ModeRead)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "012XYZ6789", string(got))
}

func TestStream_All256ByteValuesRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	w, err := OpenFile(fs, "/b.bin", ModeWrite)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenFile(fs, "/b.bin", ModeRead)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStream_DataURL(t *testing.T) {
	s, err := Open("data:hello hStream", ModeRead)
	require.NoError(t, err)
	defer s.Close()
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello hStream", string(got))
}

func TestStream_MemoryWriteThenDecreasingOrderSeekRead(t *testing.T) {
	var buf []byte
	payload := makePayload(2 * 1024 * 1024)

	w, err := OpenMemory(&buf, ModeWrite)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, len(payload), len(buf))

	r, err := OpenMemory(&buf, ModeRead)
	require.NoError(t, err)
	defer r.Close()

	for _, offset := range []int64{1 << 20, 1 << 19, 1 << 10, 100, 0} {
		_, err := r.Seek(offset, io.SeekStart)
		require.NoError(t, err)
		got := make([]byte, 1)
		_, err = r.Read(got)
		require.NoError(t, err)
		assert.Equal(t, payload[offset], got[0])
	}
}

func TestStream_HTTPTruncationNearBoundaryResumes(t *testing.T) {
	payload := makePayload(50000)
	const truncateAt = 25000
	cut := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rng := req.Header.Get("Range")
		if rng == "" && !cut {
			cut = true
			hj, ok := w.(http.Hijacker)
			if ok {
				w.Header().Set("Content-Length", "50000")
				w.WriteHeader(http.StatusOK)
				w.Write(payload[:truncateAt])
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
		}
		if rng == "" {
			w.Write(payload)
			return
		}
		var start int
		err := scanRangeHeader(rng, &start)
		require.NoError(t, err)
		w.Header().Set("Content-Range", contentRangeHeader(start, len(payload)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(payload[start:])
	}))
	defer srv.Close()

	s, err := OpenHTTP(context.Background(), srv.URL)
	require.NoError(t, err)
	defer s.Close()

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
