// Package herrors defines the error taxonomy shared by every hfile backend.
//
// A backend never returns a bare error for a failure a caller might want to
// branch on; it wraps the cause in an *Error carrying a Kind, so callers can
// use errors.As regardless of which backend produced the failure.
package herrors

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// KindUnknown is the zero value; it should never be returned deliberately.
	KindUnknown Kind = iota
	// KindNotFound means the resource does not exist (HTTP 404/410, ENOENT).
	KindNotFound
	// KindPermissionDenied means the caller isn't allowed to access the resource
	// (HTTP 401/403/407, EACCES).
	KindPermissionDenied
	// KindTimeout means the operation exceeded its deadline (HTTP 408/504).
	KindTimeout
	// KindTryAgain means the resource is temporarily unavailable (HTTP 503).
	KindTryAgain
	// KindInvalid means the request was malformed (bad URL, other 4xx).
	KindInvalid
	// KindNotSeekable means the backend lacks seek support, or a seek target
	// (e.g. SEEK_END over HTTP) isn't supported.
	KindNotSeekable
	// KindUnsupported means the operation isn't valid for the stream's mode
	// or the backend lacks the capability entirely.
	KindUnsupported
	// KindIoError covers all other transport, filesystem, or allocation
	// failures.
	KindIoError
	// KindTruncated means an HTTP session ended short and resumption could
	// not make further progress.
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindTimeout:
		return "timeout"
	case KindTryAgain:
		return "try_again"
	case KindInvalid:
		return "invalid"
	case KindNotSeekable:
		return "not_seekable"
	case KindUnsupported:
		return "unsupported"
	case KindIoError:
		return "io_error"
	case KindTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by hfile operations that fail
// for a classifiable reason. It wraps an underlying cause so errors.Is and
// errors.As both work against it.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "hopen", "hread", "hseek"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error for op/kind wrapping err (which may be nil).
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var he *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			he = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return he != nil && he.Kind == kind
}

// FromHTTPStatus maps an HTTP response status code that did not already
// succeed to a Kind. Callers decide which 2xx/206 codes count as success
// for a given request; this function only classifies failures.
func FromHTTPStatus(status int) Kind {
	switch status {
	case 404, 410:
		return KindNotFound
	case 401, 403, 407:
		return KindPermissionDenied
	case 408, 504:
		return KindTimeout
	case 503:
		return KindTryAgain
	case 416:
		return KindInvalid
	default:
		switch {
		case status >= 400 && status < 500:
			return KindInvalid
		default:
			return KindIoError
		}
	}
}
