package httpbackend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javi11/hfile/internal/config"
	"github.com/javi11/hfile/internal/herrors"
)

// scanRange parses a "bytes=N-" Range header into its start offset.
func scanRange(header string, start *int) error {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return fmt.Errorf("unsupported range header %q", header)
	}
	body := strings.TrimPrefix(header, prefix)
	body = strings.TrimSuffix(body, "-")
	n, err := strconv.Atoi(body)
	if err != nil {
		return err
	}
	*start = n
	return nil
}

func contentRange(start, total int) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, total-1, total)
}

func testHTTPConfig() config.HTTPConfig {
	cfg := config.Default().HTTP
	cfg.MaxReopenAttempts = 5
	return cfg
}

func readAll(t *testing.T, r *Reader, chunk int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, chunk)
	for {
		n, err := r.Read(context.Background(), buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
	}
}

func TestReader_FullBodyNoTruncation(t *testing.T) {
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL, testHTTPConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r, 777)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), r.DeliveredBytes())
	assert.True(t, r.CoversFrom(0, int64(len(payload))))
}

// truncatingHandler serves Range requests honestly, but the first maxCuts
// fresh (non-Range) requests it cuts off after cutAt bytes by closing the
// connection mid-body, forcing the reader to reopen with a Range header.
type truncatingHandler struct {
	payload []byte
	cutAt   int
	cuts    int
	maxCuts int
}

func (h *truncatingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rng := req.Header.Get("Range")
	if rng == "" {
		if h.cuts < h.maxCuts {
			h.cuts++
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.Write(h.payload)
				return
			}
			w.Header().Set("Content-Length", strconv.Itoa(len(h.payload)))
			w.WriteHeader(http.StatusOK)
			w.Write(h.payload[:h.cutAt])
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Write(h.payload)
		return
	}

	var start int
	err := scanRange(rng, &start)
	if err != nil || start >= len(h.payload) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	w.Header().Set("Content-Range", contentRange(start, len(h.payload)))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(h.payload[start:])
}

func TestReader_ResumesAfterTruncation(t *testing.T) {
	payload := make([]byte, 20000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	h := &truncatingHandler{payload: payload, cutAt: 12345, maxCuts: 1}
	srv := httptest.NewServer(h)
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL, testHTTPConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	got := readAll(t, r, 4096)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), r.DeliveredBytes())
}

func TestReader_NotFoundSurfacesKindNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.URL, testHTTPConfig(), nil)
	require.Error(t, err)
	assert.True(t, herrors.Is(err, herrors.KindNotFound))
}

func TestReader_SeekEndUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL, testHTTPConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Seek(context.Background(), 0, io.SeekEnd)
	require.Error(t, err)
	assert.True(t, herrors.Is(err, herrors.KindNotSeekable))
}

func TestReader_SeekThenReadOpensNewSession(t *testing.T) {
	payload := []byte("0123456789abcdef")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rng := req.Header.Get("Range")
		var start int
		if rng != "" {
			scanRange(rng, &start)
			w.Header().Set("Content-Range", contentRange(start, len(payload)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(payload[start:])
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL, testHTTPConfig(), nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Seek(context.Background(), 10, io.SeekStart)
	require.NoError(t, err)

	got := readAll(t, r, 64)
	assert.Equal(t, payload[10:], got)
}
