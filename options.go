package hfile

import "github.com/javi11/hfile/internal/config"

// DefaultBufferSize is the hStream buffer capacity used when no
// WithBufferSize option is given.
const DefaultBufferSize = config.DefaultBufferSize

// Option configures a Stream at Open time.
type Option func(*streamOptions)

type streamOptions struct {
	bufferSize int
	httpCfg    config.HTTPConfig
}

func defaultStreamOptions() streamOptions {
	cfg := config.Default()
	return streamOptions{
		bufferSize: cfg.BufferSize,
		httpCfg:    cfg.HTTP,
	}
}

// WithBufferSize overrides the hStream buffer capacity. Values below 4 KiB
// are raised to 4 KiB; a pathologically small buffer defeats the
// peek-beyond-one-call refill logic in Stream.Peek.
func WithBufferSize(n int) Option {
	return func(o *streamOptions) {
		if n < 4096 {
			n = 4096
		}
		o.bufferSize = n
	}
}

// WithHTTPConfig overrides the resumable HTTP backend's tunables (timeout,
// max redirects, max reopen attempts, user agent).
func WithHTTPConfig(cfg config.HTTPConfig) Option {
	return func(o *streamOptions) {
		o.httpCfg = cfg
	}
}
