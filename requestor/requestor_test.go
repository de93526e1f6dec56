package requestor

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequestor(t *testing.T, baseURL, secret string, opts ...Option) *Requestor {
	t.Helper()
	opts = append([]Option{WithBaseURL(baseURL)}, opts...)
	r, err := New(Credentials{APIKey: "key", APISecret: secret, AccountID: "1"}, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid config",
			creds: Credentials{APIKey: "key", APISecret: "secret", AccountID: "1"},
		},
		{
			name:    "missing API key",
			creds:   Credentials{APISecret: "secret", AccountID: "1"},
			wantErr: true,
			errMsg:  "API key is required",
		},
		{
			name:    "missing account",
			creds:   Credentials{APIKey: "key", APISecret: "secret"},
			wantErr: true,
			errMsg:  "account id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.creds, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrRequestor)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultBaseURL, r.BaseURL())
			assert.Equal(t, "1", r.AccountID())
			assert.Equal(t, DefaultTimeout, r.httpClient.Timeout)
		})
	}
}

func TestOptions(t *testing.T) {
	creds := Credentials{APIKey: "key", APISecret: "secret", AccountID: "1"}

	t.Run("with timeout", func(t *testing.T) {
		r, err := New(creds, zerolog.Nop(), WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, r.httpClient.Timeout)
	})

	t.Run("with base url", func(t *testing.T) {
		r, err := New(creds, zerolog.Nop(), WithBaseURL("http://localhost:8080/api/v1.0/"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/api/v1.0", r.BaseURL())
	})

	t.Run("with custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		r, err := New(creds, zerolog.Nop(), WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, r.httpClient.Timeout)
		assert.NotNil(t, r.httpClient.CheckRedirect)
		assert.Nil(t, custom.CheckRedirect, "caller's client is not modified")
	})

	t.Run("custom http client keeps timeout and tls options", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second, Transport: &http.Transport{}}
		r, err := New(creds, zerolog.Nop(),
			WithHTTPClient(custom), WithTimeout(2*time.Second), WithInsecureSkipVerify(true))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, r.httpClient.Timeout)
		transport, ok := r.httpClient.Transport.(*http.Transport)
		require.True(t, ok)
		assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)

		assert.Equal(t, 10*time.Second, custom.Timeout, "caller's client is not modified")
		assert.Nil(t, custom.Transport.(*http.Transport).TLSClientConfig)
	})

	t.Run("with insecure skip verify", func(t *testing.T) {
		r, err := New(creds, zerolog.Nop(), WithInsecureSkipVerify(true))
		require.NoError(t, err)
		transport, ok := r.httpClient.Transport.(*http.Transport)
		require.True(t, ok)
		assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	})

	t.Run("with user agent", func(t *testing.T) {
		r, err := New(creds, zerolog.Nop(), WithUserAgent("custom/1.0"))
		require.NoError(t, err)
		assert.Equal(t, "custom/1.0", r.userAgent)
	})
}

func TestDoHeaders(t *testing.T) {
	fixed := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/accounts/1/messages.json", r.URL.Path)
		assert.Equal(t, "limit=5&tags%5Bcolor%5D=red&to%5B0%5D=%2B15551234567", r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "20240305T070809Z", r.Header.Get("X-Auth-Date"))
		assert.Equal(t, "Tue, 05 Mar 2024 07:08:09 GMT", r.Header.Get("Date"))
		assert.Equal(t, "content-type;date;host", r.Header.Get("X-Auth-SignedHeaders"))
		assert.Regexp(t, `^HMAC key:[0-9a-f]{64}$`, r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent(), r.Header.Get("User-Agent"))

		var ua map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("X-VivialConnect-User-Agent")), &ua))
		assert.Equal(t, "go", ua["lang"])
		assert.Equal(t, Version, ua["client_version"])

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":{"body":"hello"}}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"id":7,"body":"hello"}}`))
	}))
	defer server.Close()

	r := newTestRequestor(t, server.URL+"/api/v1.0", "secret")
	r.now = func() time.Time { return fixed }

	params := map[string]any{
		"limit": 5,
		"to":    []string{"+15551234567"},
		"tags":  map[string]string{"color": "red"},
		"skip":  nil,
	}
	got, err := r.Post(t.Context(), "/accounts/1/messages.json", params, map[string]any{"message": map[string]any{"body": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": map[string]any{"id": float64(7), "body": "hello"}}, got)
}

func TestDoResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     any
		wantKind Kind
		wantErr  bool
	}{
		{name: "ok", status: 200, body: `{"count": 3}`, want: map[string]any{"count": float64(3)}},
		{name: "no content", status: 204, body: "", want: nil},
		{name: "empty ok", status: 200, body: "  ", want: nil},
		{name: "invalid json", status: 200, body: "<html>", wantErr: true, wantKind: KindRequestor},
		{name: "not found", status: 404, body: `{"message":"not found"}`, wantErr: true, wantKind: KindResourceNotFound},
		{name: "invalid", status: 422, body: `{"error":"to_number required"}`, wantErr: true, wantKind: KindResourceInvalid},
		{name: "rate limited", status: 429, body: `{}`, wantErr: true, wantKind: KindRateLimit},
		{name: "server error html", status: 502, body: "<html>bad gateway</html>", wantErr: true, wantKind: KindServerError},
		{name: "teapot", status: 418, body: `{}`, wantErr: true, wantKind: KindClientError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			r := newTestRequestor(t, server.URL, "secret")
			got, err := r.Get(t.Context(), "/x.json", nil)
			if tt.wantErr {
				require.Error(t, err)
				var reqErr *Error
				require.ErrorAs(t, err, &reqErr)
				assert.Equal(t, tt.wantKind, reqErr.Kind)
				assert.Equal(t, tt.status, reqErr.StatusCode)
				assert.Equal(t, tt.body, reqErr.Body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoDoesNotFollowRedirects(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/elsewhere.json", http.StatusFound)
	}))
	defer server.Close()

	r := newTestRequestor(t, server.URL, "secret")
	_, err := r.Get(t.Context(), "/x.json", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedirection)
	assert.Equal(t, 1, hits)

	var reqErr *Error
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "/elsewhere.json", reqErr.URL)
}

func TestDoConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	r := newTestRequestor(t, url, "secret")
	_, err := r.Get(t.Context(), "/x.json", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, ErrRequestor)
}

func TestDoLocalFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	t.Run("missing secret", func(t *testing.T) {
		r := newTestRequestor(t, server.URL, "")
		_, err := r.Get(t.Context(), "/x.json", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no API secret provided")
	})

	t.Run("invalid method", func(t *testing.T) {
		r := newTestRequestor(t, server.URL, "secret")
		_, err := r.Do(t.Context(), "PATCH", "/x.json", nil, nil)
		require.Error(t, err)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindRequestor, kind)
	})

	assert.Zero(t, hits)
}

func TestPostWithoutPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(0), r.ContentLength)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	r := newTestRequestor(t, server.URL, "secret")
	got, err := r.Post(t.Context(), "/x.json", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodeParams(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	got := EncodeParams(map[string]any{
		"start":  ts,
		"ids":    []int{4, 5},
		"filter": map[string]any{"b": "2", "a": "1"},
		"none":   nil,
		"flag":   true,
	})
	assert.Equal(t, "filter%5Ba%5D=1&filter%5Bb%5D=2&flag=true&ids%5B0%5D=4&ids%5B1%5D=5&start=1700000000", got)

	assert.Equal(t, "http://x/y.json?a=1", buildURL("http://x/y.json", map[string]any{"a": 1}))
	assert.Equal(t, "http://x/y.json?z=0&a=1", buildURL("http://x/y.json?z=0", map[string]any{"a": 1}))
	assert.Equal(t, "http://x/y.json", buildURL("http://x/y.json", nil))
}
