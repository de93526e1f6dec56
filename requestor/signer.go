package requestor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// authDateFormat is the compact ISO 8601 form used in X-Auth-Date.
	authDateFormat = "20060102T150405Z"

	headerAuthorization = "Authorization"
	headerAuthDate      = "X-Auth-Date"
	headerSignedHeaders = "X-Auth-SignedHeaders"
)

// signedHeaderNames are the only headers that take part in the signature.
var signedHeaderNames = map[string]bool{
	"content-type": true,
	"date":         true,
	"host":         true,
}

// ErrInvalidSignature is returned by VerifyRequest when the signature does
// not match the request.
var ErrInvalidSignature = errors.New("invalid request signature")

// Sign computes the HMAC-SHA256 signature for a request and returns the hex
// digest with the sorted list of header names that were signed.
func Sign(secret, method, timestamp string, u *url.URL, headers map[string]string, body []byte) (string, []string) {
	canonical, signed := canonicalRequest(method, timestamp, u, headers, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil)), signed
}

func canonicalRequest(method, timestamp string, u *url.URL, headers map[string]string, body []byte) (string, []string) {
	var signed, canonicalHeaders []string
	for key, value := range headers {
		lower := strings.ToLower(key)
		if signedHeaderNames[lower] {
			canonicalHeaders = append(canonicalHeaders, lower+":"+value)
			signed = append(signed, lower)
		}
	}
	sort.Strings(signed)
	sort.Strings(canonicalHeaders)

	// ParseQuery keeps every pair it could parse alongside the first error
	values, _ := url.ParseQuery(u.RawQuery)
	var query []string
	for key, list := range values {
		for _, v := range list {
			query = append(query, uriEncode(key, true)+"="+uriEncode(v, true))
		}
	}
	sort.Strings(query)

	bodyHash := sha256.Sum256(body)

	return strings.Join([]string{
		strings.ToUpper(method),
		timestamp,
		uriEncode(u.Path, false),
		strings.Join(query, "&"),
		strings.Join(canonicalHeaders, "\n"),
		strings.Join(signed, ";"),
		hex.EncodeToString(bodyHash[:]),
	}, "\n"), signed
}

// uriEncode percent-encodes everything except unreserved characters, and
// slashes unless encodeSlash is set.
func uriEncode(s string, encodeSlash bool) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

// authorization formats the Authorization header value.
func authorization(apiKey, digest string) string {
	if apiKey == "" {
		return "HMAC " + digest
	}
	return "HMAC " + apiKey + ":" + digest
}

// VerifyRequest checks the HMAC signature of an incoming request. lookup
// returns the secret for an API key. body must be the exact request body.
// It returns the API key the request was signed with.
func VerifyRequest(r *http.Request, body []byte, lookup func(apiKey string) (string, bool)) (string, error) {
	auth := r.Header.Get(headerAuthorization)
	if !strings.HasPrefix(auth, "HMAC ") {
		return "", fmt.Errorf("%w: missing HMAC authorization", ErrInvalidSignature)
	}
	apiKey, digest, ok := strings.Cut(strings.TrimPrefix(auth, "HMAC "), ":")
	if !ok {
		return "", fmt.Errorf("%w: authorization must be key:digest", ErrInvalidSignature)
	}

	secret, ok := lookup(apiKey)
	if !ok {
		return "", fmt.Errorf("%w: unknown api key %q", ErrInvalidSignature, apiKey)
	}

	timestamp := r.Header.Get(headerAuthDate)
	if _, err := time.Parse(authDateFormat, timestamp); err != nil {
		return "", fmt.Errorf("%w: bad %s header", ErrInvalidSignature, headerAuthDate)
	}

	headers := make(map[string]string)
	for _, name := range strings.Split(r.Header.Get(headerSignedHeaders), ";") {
		switch name {
		case "":
			continue
		case "host":
			headers[name] = r.Host
		default:
			headers[name] = r.Header.Get(name)
		}
	}

	expected, _ := Sign(secret, r.Method, timestamp, r.URL, headers, body)
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return "", ErrInvalidSignature
	}
	return apiKey, nil
}
