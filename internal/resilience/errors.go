package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an external failure (rate limit, provider outage,
// dropped connection) that is safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient. statusCode may be 0.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// StatusFunc extracts the HTTP status carried by a provider SDK error and
// returns 0 when there is none.
type StatusFunc func(error) int

// FirstStatus combines several extractors; the first non-zero status wins.
func FirstStatus(fns ...StatusFunc) StatusFunc {
	return func(err error) int {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if code := fn(err); code != 0 {
				return code
			}
		}
		return 0
	}
}

// transientMessages are substrings of network failures that HTTP clients
// tend to flatten into plain error strings.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is a TransientError, a network timeout, a
// reset or refused connection, or reads like one.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryOnStatus returns a ShouldRetry func that accepts IsTransient errors
// and errors whose status, as reported by statusOf, is transient.
func RetryOnStatus(statusOf StatusFunc) func(error) bool {
	return func(err error) bool {
		if IsTransient(err) {
			return true
		}
		return statusOf != nil && IsTransientHTTPStatus(statusOf(err))
	}
}

// IsTransientHTTPStatus reports whether a status means the request may
// succeed if repeated. 529 is Anthropic's overloaded response.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	default:
		return false
	}
}
