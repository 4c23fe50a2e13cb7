package llm

import (
	"context"
	"errors"
	"fmt"
)

// Failure taxonomy for model calls. Auth is terminal; the rest are retryable
// until the policy's attempts are exhausted.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrTimeout           = errors.New("timeout")
	ErrAuth              = errors.New("authentication failed")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// Retryable reports whether a failed call may be attempted again.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) || errors.Is(err, ErrTimeout)
}

// ClassifyStatus maps an HTTP status code onto the taxonomy.
func ClassifyStatus(code int, body string) error {
	switch {
	case code == 401 || code == 403:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, code, body)
	case code == 429:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, code, body)
	case code == 408 || code == 504:
		return fmt.Errorf("%w: status %d: %s", ErrTimeout, code, body)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServer, code, body)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, body)
	}
}

// ClassifyTransport maps transport-level failures (ctx deadline, net errors)
// onto the taxonomy.
func ClassifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrServer, err)
}
