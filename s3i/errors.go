package s3i

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ProtocolError is the diagnostic base shared by all S3I errors. It
// carries whatever the failing exchange produced: response headers, the
// outbound body (for sends), the HTTP status code and the raw response
// text. Fields are optional; String rendering appends only what is set,
// in a stable order, so operator logs stay greppable.
type ProtocolError struct {
	Message    string
	Headers    http.Header
	Body       any
	StatusCode int
	Response   string

	// Err is the underlying cause, if any (transport errors, context
	// cancellation). Exposed through Unwrap so errors.Is still sees
	// context.Canceled and friends.
	Err error
}

func (e *ProtocolError) Error() string {
	var meta []string

	if e.Headers != nil {
		meta = append(meta, fmt.Sprintf("headers: %v", e.Headers))
	}

	if e.Body != nil {
		meta = append(meta, fmt.Sprintf("body: %v", e.Body))
	}

	if e.StatusCode != 0 {
		meta = append(meta, fmt.Sprintf("status code: %d", e.StatusCode))
	}

	if e.Response != "" {
		meta = append(meta, fmt.Sprintf("response: %s", e.Response))
	}

	if e.Err != nil {
		meta = append(meta, fmt.Sprintf("cause: %v", e.Err))
	}

	if len(meta) == 0 {
		return e.Message
	}

	return e.Message + " | " + strings.Join(meta, " | ")
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// AuthenticationError reports a failure to obtain or refresh a token
// from the identity provider.
type AuthenticationError struct {
	ProtocolError
}

// InvalidCredentialsError reports that the identity provider explicitly
// rejected the client credentials. Unlike other authentication failures
// it is not retryable. It unwraps to AuthenticationError, so
// errors.As with either type matches.
type InvalidCredentialsError struct {
	AuthenticationError
}

func (e *InvalidCredentialsError) Unwrap() error { return &e.AuthenticationError }

// BrokerError reports a non-success response from the message broker.
// Callers inspect StatusCode to tell an empty queue from a genuine
// fault; the client itself never retries.
type BrokerError struct {
	ProtocolError
}

// IsInvalidCredentials reports whether err (or any error in its chain)
// is an InvalidCredentialsError.
func IsInvalidCredentials(err error) bool {
	var ice *InvalidCredentialsError
	return errors.As(err, &ice)
}

// IsAuthentication reports whether err is any identity-provider failure,
// including rejected credentials.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// AsBrokerError extracts a BrokerError from err's chain, if present.
func AsBrokerError(err error) (*BrokerError, bool) {
	var be *BrokerError
	ok := errors.As(err, &be)

	return be, ok
}
