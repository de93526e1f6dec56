package requestor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/vivialconnect/inflect"
)

const contentTypeJSON = "application/json"

// Credentials identify the account every request is made for.
type Credentials struct {
	APIKey    string
	APISecret string
	AccountID string
}

// Requestor signs and sends requests to the VivialConnect API. It is safe
// for concurrent use; configuration is fixed after New returns.
type Requestor struct {
	creds              Credentials
	baseURL            string
	timeout            time.Duration
	timeoutSet         bool
	insecureSkipVerify bool
	userAgent          string
	httpClient         *http.Client
	logger             zerolog.Logger
	now                func() time.Time
}

// New creates a requestor for the given credentials
func New(creds Credentials, logger zerolog.Logger, opts ...Option) (*Requestor, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrRequestor)
	}
	if creds.AccountID == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrRequestor)
	}

	r := &Requestor{
		creds:     creds,
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := url.Parse(r.baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrRequestor, err)
	}

	if r.httpClient == nil {
		r.httpClient = newHTTPClient(r.timeout, r.insecureSkipVerify)
	} else {
		client := *r.httpClient
		if r.timeoutSet {
			client.Timeout = r.timeout
		}
		if r.insecureSkipVerify {
			client.Transport = insecureTransport(client.Transport)
		}
		r.httpClient = &client
	}
	r.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return r, nil
}

// AccountID returns the account the requestor was configured for
func (r *Requestor) AccountID() string {
	return r.creds.AccountID
}

// BaseURL returns the API endpoint requests are sent to
func (r *Requestor) BaseURL() string {
	return r.baseURL
}

// Get issues a GET request
func (r *Requestor) Get(ctx context.Context, path string, params map[string]any) (any, error) {
	return r.Do(ctx, http.MethodGet, path, params, nil)
}

// Post issues a POST request with payload encoded as JSON
func (r *Requestor) Post(ctx context.Context, path string, params map[string]any, payload any) (any, error) {
	return r.Do(ctx, http.MethodPost, path, params, payload)
}

// Put issues a PUT request with payload encoded as JSON
func (r *Requestor) Put(ctx context.Context, path string, params map[string]any, payload any) (any, error) {
	return r.Do(ctx, http.MethodPut, path, params, payload)
}

// Delete issues a DELETE request. payload may be nil.
func (r *Requestor) Delete(ctx context.Context, path string, params map[string]any, payload any) (any, error) {
	return r.Do(ctx, http.MethodDelete, path, params, payload)
}

// Do sends exactly one signed request and returns the decoded JSON body.
// A 204 or empty 2xx response yields nil. Failed responses are returned as
// *Error values classified by status code.
func (r *Requestor) Do(ctx context.Context, method, path string, params map[string]any, payload any) (any, error) {
	method = strings.ToUpper(method)

	var body []byte
	switch method {
	case http.MethodGet:
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		if payload != nil {
			encoded, err := encodeBody(payload)
			if err != nil {
				return nil, &Error{Kind: KindRequestor, Message: "failed to encode request body", Err: err}
			}
			body = encoded
		}
	default:
		return nil, &Error{Kind: KindRequestor, Message: fmt.Sprintf("invalid request method: %s", method)}
	}

	if r.creds.APISecret == "" {
		return nil, &Error{Kind: KindRequestor, Message: "no API secret provided"}
	}

	absURL := buildURL(r.baseURL+path, params)
	parsed, err := url.Parse(absURL)
	if err != nil {
		return nil, &Error{Kind: KindRequestor, Message: "invalid request URL", Err: err}
	}

	now := r.now().UTC()
	headers := map[string]string{
		"Date": now.Format(http.TimeFormat),
		"Host": parsed.Host,
	}
	if len(body) > 0 || method == http.MethodPost || method == http.MethodPut {
		headers["Content-Type"] = contentTypeJSON
	}

	timestamp := now.Format(authDateFormat)
	digest, signed := Sign(r.creds.APISecret, method, timestamp, parsed, headers, body)

	req, err := http.NewRequestWithContext(ctx, method, absURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindRequestor, Message: "failed to create request", Err: err}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Host = parsed.Host
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("X-VivialConnect-User-Agent", clientUserAgent())
	req.Header.Set(headerAuthDate, timestamp)
	req.Header.Set(headerSignedHeaders, strings.Join(signed, ";"))
	req.Header.Set(headerAuthorization, authorization(r.creds.APIKey, digest))

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Kind:    KindConnectionError,
			Message: "unexpected error communicating with VivialConnect",
			URL:     absURL,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindConnectionError, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	r.logger.Debug().
		Str("method", method).
		Str("path", parsed.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("VivialConnect API request")

	return interpretResponse(resp.StatusCode, respBody, absURL, resp.Header)
}

func encodeBody(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	return inflect.ToJSON(payload, "")
}

// interpretResponse decodes a response body and classifies failures
func interpretResponse(status int, body []byte, requestURL string, header http.Header) (any, error) {
	success := status >= 200 && status < 300
	trimmed := bytes.TrimSpace(body)

	if success && len(trimmed) == 0 {
		return nil, nil
	}

	decoded, err := inflect.JSONToMap(trimmed)
	if err != nil {
		if success {
			return nil, &Error{
				Kind:       KindRequestor,
				StatusCode: status,
				Message:    fmt.Sprintf("invalid JSON response body from API: (%d) %s", status, string(body)),
				Body:       string(body),
				Err:        err,
			}
		}
		decoded = nil
	}

	if !success {
		return nil, newStatusError(status, body, decoded, requestURL, header)
	}
	return decoded, nil
}
