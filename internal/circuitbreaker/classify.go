package circuitbreaker

import (
	"context"
	"errors"
	"net"
	"os"
)

// httpStatusError is an interface for errors carrying an HTTP status code.
// The upstream client's response errors implement it.
type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyError returns the error weight for circuit breaker tracking.
//
// Weights:
//   - timeout (deadline exceeded) -> 1.5
//   - 5xx -> 1.0
//   - 429 -> 0.5
//   - other 4xx -> 0.0 (bad request or missing content, not a CMS outage)
//   - network errors -> 1.0
//   - nil -> 0.0
func ClassifyError(err error) float64 {
	if err == nil {
		return 0
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return 1.5
	}

	var he httpStatusError
	if errors.As(err, &he) {
		return classifyStatus(he.HTTPStatus())
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return 1.0
	}

	// Generic errors (e.g. connection refused) count as a CMS fault.
	return 1.0
}

// classifyStatus returns the error weight for an HTTP status code.
func classifyStatus(code int) float64 {
	switch {
	case code == 429:
		return 0.5
	case code >= 500:
		return 1.0
	default:
		return 0.0
	}
}
