package requestor

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production VivialConnect API endpoint.
	DefaultBaseURL = "https://api.vivialconnect.net/api/v1.0"
	// DefaultTimeout bounds every request when no other timeout is set.
	DefaultTimeout = 30 * time.Second
)

// Option configures a Requestor
type Option func(*Requestor)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(r *Requestor) {
		r.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per request timeout. It also overrides the timeout of
// a client given with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Requestor) {
		r.timeout = timeout
		r.timeoutSet = true
	}
}

// WithHTTPClient sets a custom HTTP client. The requestor works on a copy:
// its redirect policy is replaced so that 3xx responses reach the caller as
// errors, and WithTimeout and WithInsecureSkipVerify still apply to it. An
// insecure transport is only derived from an *http.Transport or a nil one.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Requestor) {
		r.httpClient = client
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify(skip bool) Option {
	return func(r *Requestor) {
		r.insecureSkipVerify = skip
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(r *Requestor) {
		r.userAgent = userAgent
	}
}

// insecureTransport returns a copy of rt that skips certificate
// verification, or rt itself when it is not an *http.Transport.
func insecureTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	base, ok := rt.(*http.Transport)
	if !ok {
		return rt
	}
	transport := base.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
	return transport
}

// newHTTPClient builds the client used when none was supplied
func newHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
