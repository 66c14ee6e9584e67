package hfile

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"github.com/javi11/hfile/internal/backend"
	"github.com/javi11/hfile/internal/backend/filebackend"
	"github.com/javi11/hfile/internal/backend/httpbackend"
	"github.com/javi11/hfile/internal/backend/membackend"
	"github.com/javi11/hfile/internal/herrors"
)

func modeString(mode Mode) string {
	if mode == ModeWrite {
		return "w"
	}
	return "r"
}

// dispatch resolves url to a concrete backend, inferring the scheme from
// its prefix: "data:" and "mem:" are in-memory, "http://"/"https://" are
// resumable HTTP downloads, and anything else is a local filesystem path.
func dispatch(ctx context.Context, url string, mode Mode, so streamOptions) (backend.Backend, error) {
	switch {
	case strings.HasPrefix(url, "data:"):
		if mode == ModeWrite {
			return nil, herrors.New("hopen", herrors.KindUnsupported, nil)
		}
		return membackend.NewData([]byte(strings.TrimPrefix(url, "data:"))), nil

	case strings.HasPrefix(url, "mem:"):
		return membackend.OpenFromURL(url, modeString(mode))

	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if mode == ModeWrite {
			return nil, herrors.New("hopen", herrors.KindUnsupported, nil)
		}
		return httpbackend.Open(ctx, url, so.httpCfg, nil)

	default:
		return filebackend.Open(nil, url, modeString(mode))
	}
}

// Open opens url for reading or writing using a background context. url is
// dispatched by scheme prefix: "data:<bytes>", "mem:<encoded pointer
// pair>", "http(s)://...", or a local filesystem path.
func Open(url string, mode Mode, opts ...Option) (*Stream, error) {
	return OpenContext(context.Background(), url, mode, opts...)
}

// OpenContext is Open with an explicit context, used to bound network
// requests issued by the resumable HTTP backend.
func OpenContext(ctx context.Context, url string, mode Mode, opts ...Option) (*Stream, error) {
	so := defaultStreamOptions()
	for _, opt := range opts {
		opt(&so)
	}
	be, err := dispatch(ctx, url, mode, so)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, be, mode, so.bufferSize)
}

// OpenFile opens a local filesystem path through fs (afero.NewOsFs() if
// fs is nil; afero.NewMemMapFs() is the idiomatic substitute in tests).
func OpenFile(fs afero.Fs, path string, mode Mode, opts ...Option) (*Stream, error) {
	so := defaultStreamOptions()
	for _, opt := range opts {
		opt(&so)
	}
	be, err := filebackend.Open(fs, path, modeString(mode))
	if err != nil {
		return nil, err
	}
	return newStream(context.Background(), be, mode, so.bufferSize)
}

// OpenMemory opens a read/write "mem:"-style stream directly against a
// caller-owned byte slice, without going through URL encoding. This is the
// recommended typed alternative to EncodeMemURL/DecodeMemURL.
func OpenMemory(buf *[]byte, mode Mode, opts ...Option) (*Stream, error) {
	so := defaultStreamOptions()
	for _, opt := range opts {
		opt(&so)
	}
	var be backend.Backend
	if mode == ModeWrite {
		be = membackend.NewMemory(buf)
	} else {
		be = membackend.NewMemoryReader(buf)
	}
	return newStream(context.Background(), be, mode, so.bufferSize)
}

// OpenData opens a read-only stream over an inline byte payload, the
// typed equivalent of a "data:" URL.
func OpenData(payload []byte, opts ...Option) (*Stream, error) {
	so := defaultStreamOptions()
	for _, opt := range opts {
		opt(&so)
	}
	return newStream(context.Background(), membackend.NewData(payload), ModeRead, so.bufferSize)
}

// OpenHTTP opens a resumable read-only stream over an HTTP(S) URL.
func OpenHTTP(ctx context.Context, url string, opts ...Option) (*Stream, error) {
	so := defaultStreamOptions()
	for _, opt := range opts {
		opt(&so)
	}
	be, err := httpbackend.Open(ctx, url, so.httpCfg, nil)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, be, ModeRead, so.bufferSize)
}
