// Package requestor implements the signed HTTP transport for the
// VivialConnect REST API.
//
// Every request is authenticated with an HMAC-SHA256 signature computed over
// a canonical form of the request: method, timestamp, path, sorted query,
// the Content-Type, Date and Host headers and a hash of the body. The
// signature travels in the Authorization header as "HMAC key:digest"
// together with X-Auth-Date and X-Auth-SignedHeaders.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	req, err := requestor.New(requestor.Credentials{
//		APIKey:    "your-api-key",
//		APISecret: "your-api-secret",
//		AccountID: "12345",
//	}, logger, requestor.WithTimeout(10*time.Second))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	body, err := req.Get(ctx, "/accounts/12345/messages.json", map[string]any{"page": 1})
//
// # Error Handling
//
// Failed requests return *Error. Its Kind is derived from the status code
// and errors.Is matches the corresponding sentinel:
//
//   - ErrConnection: transport failure, no response received
//   - ErrRedirection: 3xx response (redirects are not followed)
//   - ErrBadRequest, ErrUnauthorizedAccess, ErrForbiddenAccess,
//     ErrResourceNotFound, ErrMethodNotAllowed, ErrResourceConflict,
//     ErrResourceInvalid, ErrRateLimit: the matching 4xx status
//   - ErrClientError: any 4xx status
//   - ErrServerError: 5xx status
//   - ErrRequestor: every error above, plus invalid JSON and local failures
//
//	if errors.Is(err, requestor.ErrResourceNotFound) {
//		// gone
//	}
//
// No request is ever retried.
package requestor
