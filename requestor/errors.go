package requestor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindRequestor is the generic failure: unreadable bodies, unexpected
	// statuses and local signing problems.
	KindRequestor Kind = iota
	// KindConnectionError indicates a transport failure (DNS, TLS, timeout).
	KindConnectionError
	// KindRedirection indicates a 3xx response. Redirects are never followed.
	KindRedirection
	// KindBadRequest indicates a 400 response.
	KindBadRequest
	// KindUnauthorizedAccess indicates a 401 response.
	KindUnauthorizedAccess
	// KindForbiddenAccess indicates a 403 response.
	KindForbiddenAccess
	// KindResourceNotFound indicates a 404 response.
	KindResourceNotFound
	// KindMethodNotAllowed indicates a 405 response.
	KindMethodNotAllowed
	// KindResourceConflict indicates a 409 response.
	KindResourceConflict
	// KindResourceInvalid indicates a 422 response.
	KindResourceInvalid
	// KindRateLimit indicates a 429 response.
	KindRateLimit
	// KindClientError indicates any other 4xx response.
	KindClientError
	// KindServerError indicates a 5xx response.
	KindServerError
)

// Sentinel errors, one per Kind. Match them with errors.Is.
var (
	ErrRequestor          = errors.New("requestor error")
	ErrConnection         = errors.New("connection error")
	ErrRedirection        = errors.New("redirection")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorizedAccess = errors.New("unauthorized access")
	ErrForbiddenAccess    = errors.New("forbidden access")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrResourceConflict   = errors.New("resource conflict")
	ErrResourceInvalid    = errors.New("resource invalid")
	ErrRateLimit          = errors.New("rate limit reached")
	ErrClientError        = errors.New("client error")
	ErrServerError        = errors.New("server error")

	// ErrResource marks failures raised locally while building or
	// processing a resource, before or after the request itself.
	ErrResource = errors.New("resource error")
)

var kindSentinels = map[Kind]error{
	KindRequestor:          ErrRequestor,
	KindConnectionError:    ErrConnection,
	KindRedirection:        ErrRedirection,
	KindBadRequest:         ErrBadRequest,
	KindUnauthorizedAccess: ErrUnauthorizedAccess,
	KindForbiddenAccess:    ErrForbiddenAccess,
	KindResourceNotFound:   ErrResourceNotFound,
	KindMethodNotAllowed:   ErrMethodNotAllowed,
	KindResourceConflict:   ErrResourceConflict,
	KindResourceInvalid:    ErrResourceInvalid,
	KindRateLimit:          ErrRateLimit,
	KindClientError:        ErrClientError,
	KindServerError:        ErrServerError,
}

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindConnectionError:
		return "ConnectionError"
	case KindRedirection:
		return "Redirection"
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorizedAccess:
		return "UnauthorizedAccess"
	case KindForbiddenAccess:
		return "ForbiddenAccess"
	case KindResourceNotFound:
		return "ResourceNotFound"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindResourceConflict:
		return "ResourceConflict"
	case KindResourceInvalid:
		return "ResourceInvalid"
	case KindRateLimit:
		return "RateLimit"
	case KindClientError:
		return "ClientError"
	case KindServerError:
		return "ServerError"
	default:
		return "RequestorError"
	}
}

// Sentinel returns the sentinel error matched by errors of this kind
func (k Kind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return ErrRequestor
}

// IsClientError reports whether the kind is one of the 4xx kinds
func (k Kind) IsClientError() bool {
	return k >= KindBadRequest && k <= KindClientError
}

// KindForStatus maps an HTTP status code to its Kind. 2xx codes map to
// KindRequestor; callers only classify failed responses.
func KindForStatus(status int) Kind {
	switch {
	case status >= 300 && status < 400:
		return KindRedirection
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusUnauthorized:
		return KindUnauthorizedAccess
	case status == http.StatusForbidden:
		return KindForbiddenAccess
	case status == http.StatusNotFound:
		return KindResourceNotFound
	case status == http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case status == http.StatusConflict:
		return KindResourceConflict
	case status == http.StatusUnprocessableEntity:
		return KindResourceInvalid
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 400 && status < 500:
		return KindClientError
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindRequestor
	}
}

// Error is returned for every failed request. It carries the original
// status code and response body.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Body       string

	// ErrorCode and Param are copied from the service's error body when present.
	ErrorCode string
	Param     string

	// URL and Header are set for redirections.
	URL    string
	Header http.Header

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("vivialconnect: ")
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		if e.ErrorCode != "" {
			b.WriteString(e.ErrorCode)
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying transport error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind, ErrClientError for every 4xx
// kind and ErrRequestor for all of them.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRequestor:
		return true
	case ErrClientError:
		return e.Kind.IsClientError()
	}
	return target == e.Kind.Sentinel()
}

// IsNotFound checks if the error indicates a not found response
func (e *Error) IsNotFound() bool {
	return e.Kind == KindResourceNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *Error) IsUnauthorized() bool {
	return e.Kind == KindUnauthorizedAccess || e.Kind == KindForbiddenAccess
}

// KindOf extracts the Kind from err, reporting false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr.Kind, true
	}
	return KindRequestor, false
}

// newStatusError builds the error for a non-2xx response. decoded is the
// parsed body, or nil when the body was not JSON.
func newStatusError(status int, body []byte, decoded any, requestURL string, header http.Header) *Error {
	e := &Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Body:       string(body),
	}

	fallback := fmt.Sprintf("invalid response from API: (%d) %s", status, requestURL)
	switch v := decoded.(type) {
	case map[string]any:
		e.Message = fallback
		if raw, ok := v["error"]; ok {
			switch msg := raw.(type) {
			case string:
				e.Message = msg
			case map[string]any:
				if s, ok := msg["message"].(string); ok {
					e.Message = s
				}
				if p, ok := msg["param"].(string); ok {
					e.Param = p
				}
			}
		} else if s, ok := v["message"].(string); ok {
			e.Message = s
		}
		if code, ok := v["error_code"]; ok && code != nil {
			e.ErrorCode = fmt.Sprint(code)
		}
	case nil:
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	default:
		e.Message = fmt.Sprint(v)
	}

	if e.Kind == KindRedirection {
		e.URL = header.Get("Location")
		if e.URL == "" {
			e.URL = requestURL
		}
		e.Header = header
	}

	return e
}
