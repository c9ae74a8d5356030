package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"
)

// cmsError implements httpStatusError for testing.
type cmsError struct {
	code int
}

func (e *cmsError) Error() string   { return fmt.Sprintf("cms: HTTP %d", e.code) }
func (e *cmsError) HTTPStatus() int { return e.code }

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want float64
	}{
		{"nil", nil, 0},
		{"rate_limited", &cmsError{429}, 0.5},
		{"server_error", &cmsError{500}, 1.0},
		{"bad_gateway", &cmsError{502}, 1.0},
		{"not_found", &cmsError{404}, 0.0},
		{"bad_request", &cmsError{400}, 0.0},
		{"wrapped_status", fmt.Errorf("fetch: %w", &cmsError{503}), 1.0},
		{"context_deadline", context.DeadlineExceeded, 1.5},
		{"os_deadline", os.ErrDeadlineExceeded, 1.5},
		{"wrapped_deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), 1.5},
		{"network_error", &net.OpError{Op: "dial", Err: errors.New("refused")}, 1.0},
		{"generic_error", errors.New("something broke"), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyError(tt.err)
			if got != tt.want {
				t.Errorf("ClassifyError(%v) = %f, want %f", tt.err, got, tt.want)
			}
		})
	}
}
