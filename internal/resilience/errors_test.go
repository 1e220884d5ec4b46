package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded"), 529), true},
		{"wrapped explicit", fmt.Errorf("chat: %w", NewTransientError(errors.New("limited"), 429)), true},
		{"plain", errors.New("invalid prompt: empty"), false},
		{"reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"message reset", errors.New("read: connection reset by peer"), true},
		{"message tls", errors.New("net/http: TLS handshake timeout"), true},
		{"message eof", errors.New("POST /v1/files: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 413, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 503)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 503, te.StatusCode)
	assert.Equal(t, "root cause", te.Error())
}

func TestFirstStatus(t *testing.T) {
	none := func(error) int { return 0 }
	teapot := func(error) int { return 418 }
	limited := func(error) int { return 429 }

	assert.Equal(t, 418, FirstStatus(none, nil, teapot, limited)(errors.New("x")))
	assert.Equal(t, 0, FirstStatus(none)(errors.New("x")))
	assert.Equal(t, 0, FirstStatus()(errors.New("x")))
}

func TestRetryOnStatus(t *testing.T) {
	statuses := map[string]int{"limited": 429, "bad": 400, "too large": 413}
	retry := RetryOnStatus(func(err error) int { return statuses[err.Error()] })

	assert.True(t, retry(errors.New("limited")))
	assert.False(t, retry(errors.New("bad")))
	assert.False(t, retry(errors.New("too large")))
	assert.True(t, retry(errors.New("connection reset by peer")))

	assert.False(t, RetryOnStatus(nil)(errors.New("limited")))
}
