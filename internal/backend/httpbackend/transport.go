package httpbackend

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/net/http2"

	"github.com/javi11/hfile/internal/config"
)

var (
	transportOnce sync.Once
	sharedClient  *http.Client
)

// sharedTransport returns the process-wide HTTP transport, initialized
// exactly once and shared across every Reader.
func sharedTransport() *http.Client {
	transportOnce.Do(func() {
		base := &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}
		// Explicitly configure HTTP/2 rather than relying on the zero-value
		// Transport's implicit upgrade, so a connection that drops mid-stream
		// is something this package's resumption logic observes uniformly
		// across HTTP/1.1 and HTTP/2.
		_ = http2.ConfigureTransport(base)
		sharedClient = &http.Client{Transport: base}
	})
	return sharedClient
}

// newClient returns an *http.Client sharing the process-wide transport but
// with its own redirect policy, since MaxRedirects is a per-backend
// (really per-Config) tunable.
func newClient(cfg config.HTTPConfig) *http.Client {
	base := sharedTransport()
	maxRedirects := cfg.MaxRedirects
	return &http.Client{
		Transport: base.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}
