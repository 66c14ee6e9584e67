// Package httpbackend implements hfile's resumable HTTP range-streaming
// backend: it exposes a read/seek backend.Backend over an HTTP(S) URL that
// transparently reopens a Range request whenever the server's response
// ends before the caller has read everything.
package httpbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/javi11/hfile/internal/config"
	"github.com/javi11/hfile/internal/herrors"
)

// Reader implements backend.Reader, backend.Seeker, and backend.Closer
// over an HTTP(S) URL. It never implements backend.Writer: write-side HTTP
// is out of scope.
type Reader struct {
	url    string
	client *http.Client
	cfg    config.HTTPConfig
	log    *slog.Logger

	offset    int64 // next byte the caller will read (the logical position)
	totalSize int64 // meaningful only if haveTotal
	haveTotal bool

	resp          *http.Response
	sessionCancel context.CancelFunc // bounds the current session to cfg.Timeout
	sessionID     string
	sessionStart  int64 // S: offset the current session began streaming at
	delivered     int64 // D: bytes delivered to the caller in this session

	// deliveredAtOpen is a spans.totalDelivered() snapshot taken when the
	// current session opened.
	deliveredAtOpen int64

	spans deliveredSpans

	closed bool
}

// Open starts a resumable reader for url, performing the first HTTP
// request eagerly so that open failures (bad URL, 404, etc.) surface from
// Open itself rather than from the first Read.
func Open(ctx context.Context, url string, cfg config.HTTPConfig, log *slog.Logger) (*Reader, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Reader{
		url:       url,
		client:    newClient(cfg),
		cfg:       cfg,
		log:       log.With("component", "httpbackend", "url", url),
		totalSize: -1,
	}
	if err := r.openSession(ctx, 0); err != nil {
		return nil, err
	}
	return r, nil
}

// newSessionContext derives the context a session's request runs under,
// bounded by cfg.Timeout when one is configured. The cancel func is invoked
// by openSession itself when the session fails to open, and otherwise by
// endSession (or Close) once the session (not just its headers) has run
// its course.
func (r *Reader) newSessionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// endSession closes the active response body, if any, and releases the
// session's context, making it safe to call whether or not a session is
// currently open.
func (r *Reader) endSession() {
	if r.resp != nil {
		_ = r.resp.Body.Close()
		r.resp = nil
	}
	if r.sessionCancel != nil {
		r.sessionCancel()
		r.sessionCancel = nil
	}
}

// openSession starts a new HTTP session at the given logical offset,
// sending a Range header when offset > 0, and classifies the response
// status code. The session's context is bounded by cfg.Timeout so a
// connection that stalls mid-response does not block the caller forever.
func (r *Reader) openSession(ctx context.Context, offset int64) error {
	r.endSession()

	sessCtx, cancel := r.newSessionContext(ctx)

	req, err := http.NewRequestWithContext(sessCtx, http.MethodGet, r.url, nil)
	if err != nil {
		cancel()
		return herrors.New("hopen", herrors.KindInvalid, err)
	}
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	sessionID := uuid.NewString()
	log := r.log.With("session_id", sessionID, "offset", offset)
	log.DebugContext(ctx, "opening http session")

	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		return herrors.New("hopen", herrors.KindIoError, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && offset == 0:
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
	case resp.StatusCode >= 200 && resp.StatusCode < 300 && offset == 0:
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		_ = resp.Body.Close()
		cancel()
		if r.haveTotal && offset == r.totalSize {
			// Seeking exactly to end-of-file and reading is a legitimate
			// empty read, not an error.
			r.sessionID = sessionID
			r.sessionStart = offset
			r.delivered = 0
			r.deliveredAtOpen = r.spans.totalDelivered()
			return nil
		}
		return herrors.New("hopen", herrors.KindInvalid, fmt.Errorf("range not satisfiable at offset %d", offset))
	default:
		_ = resp.Body.Close()
		cancel()
		return herrors.New("hopen", herrors.FromHTTPStatus(resp.StatusCode), fmt.Errorf("unexpected status %s", resp.Status))
	}

	r.resp = resp
	r.sessionCancel = cancel
	r.sessionID = sessionID
	r.sessionStart = offset
	r.delivered = 0
	r.deliveredAtOpen = r.spans.totalDelivered()
	r.readTotalSize(resp, offset)
	log.DebugContext(ctx, "http session streaming", "status", resp.StatusCode)
	return nil
}

// readTotalSize records the resource's total length from Content-Range (on
// a 206) or Content-Length (on a 200 at offset 0), when the server
// provides one.
func (r *Reader) readTotalSize(resp *http.Response, offset int64) {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if idx := strings.LastIndex(cr, "/"); idx >= 0 {
			totalStr := cr[idx+1:]
			if totalStr != "*" {
				if n, err := strconv.ParseInt(totalStr, 10, 64); err == nil {
					r.totalSize = n
					r.haveTotal = true
				}
			}
		}
		return
	}
	if offset == 0 && resp.ContentLength >= 0 {
		r.totalSize = resp.ContentLength
		r.haveTotal = true
	}
}

// Read implements backend.Reader. It blocks on the underlying HTTP body
// read; Go ties that read to ctx via http.NewRequestWithContext, so
// canceling ctx (or cfg.Timeout elapsing) unblocks it promptly without a
// hand-rolled polling loop. A truncated session is retried in a loop
// rather than by recursing into Read, so a server that keeps truncating
// cannot grow the call stack without bound; the per-session delivered count
// shows whether each session actually made progress, so a session that opens
// successfully but delivers nothing before failing again is not retried
// forever.
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, herrors.New("hread", herrors.KindIoError, errors.New("stream is closed"))
	}
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if r.resp == nil {
			if err := r.openSession(ctx, r.offset); err != nil {
				return 0, err
			}
			if r.resp == nil {
				// openSession recorded an exact-EOF 416; nothing to read.
				return 0, io.EOF
			}
		}

		n, err := r.resp.Body.Read(p)
		if n > 0 {
			r.spans.insert(r.offset, r.offset+int64(n))
			r.offset += int64(n)
			r.delivered += int64(n)
		}

		switch {
		case err == nil:
			return n, nil

		case errors.Is(err, io.EOF):
			r.endSession()
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF

		default:
			// Mid-stream transport error: the session ended before a clean
			// EOF. net/http itself reports io.ErrUnexpectedEOF when a
			// Content-Length response closes short.
			r.endSession()

			if n > 0 {
				return n, nil
			}

			if r.haveTotal && r.offset >= r.totalSize {
				return 0, io.EOF
			}

			if r.delivered == 0 {
				// This session delivered nothing between opening and
				// failing: spec.md §4.4 permits automatic reopen only "as
				// long as progress is made", so retrying here would just
				// repeat the same failure with no new evidence that
				// resumption can succeed.
				return 0, herrors.New("hread", herrors.KindTruncated, err)
			}

			if reopenErr := r.reopenWithRetry(ctx); reopenErr != nil {
				return 0, herrors.New("hread", herrors.KindTruncated, reopenErr)
			}
			// Loop back and read from the freshly opened session.
		}
	}
}

// reopenWithRetry reissues a Range request starting at the current offset,
// retrying with backoff up to cfg.MaxReopenAttempts times. Non-recoverable
// classifications (not found, permission denied, invalid) are not retried.
func (r *Reader) reopenWithRetry(ctx context.Context) error {
	startOffset := r.offset
	return retry.Do(
		func() error {
			return r.openSession(ctx, startOffset)
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.cfg.MaxReopenAttempts)),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			var he *herrors.Error
			if errors.As(err, &he) {
				switch he.Kind {
				case herrors.KindNotFound, herrors.KindPermissionDenied, herrors.KindInvalid:
					return false
				}
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			r.log.DebugContext(ctx, "retrying truncated http session",
				"attempt", n+1, "offset", startOffset, "error", err)
		}),
	)
}

// Seek implements backend.Seeker. SEEK_END is unsupported over HTTP
// regardless of whether the total length happens to be known.
func (r *Reader) Seek(_ context.Context, offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, herrors.New("hseek", herrors.KindIoError, errors.New("stream is closed"))
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		return 0, herrors.New("hseek", herrors.KindNotSeekable, errors.New("SEEK_END is not supported over HTTP"))
	default:
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}
	if abs < 0 {
		return 0, herrors.New("hseek", herrors.KindInvalid, nil)
	}

	r.endSession()
	r.offset = abs
	return abs, nil
}

// Close implements backend.Closer.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var closeErr error
	if r.resp != nil {
		closeErr = r.resp.Body.Close()
		r.resp = nil
	}
	if r.sessionCancel != nil {
		r.sessionCancel()
		r.sessionCancel = nil
	}
	if closeErr != nil {
		return herrors.New("hclose", herrors.KindIoError, closeErr)
	}
	return nil
}

// DeliveredBytes returns the total number of bytes handed to the caller so
// far, across all sessions. Exposed for tests asserting that resumption
// covered the whole file with no gap around a truncation point.
func (r *Reader) DeliveredBytes() int64 {
	return r.spans.totalDelivered()
}

// CoversFrom reports whether [start, end) has been delivered to the caller
// as one contiguous span, regardless of how many sessions it took.
func (r *Reader) CoversFrom(start, end int64) bool {
	return r.spans.coversFrom(start, end)
}
