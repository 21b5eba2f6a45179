package weather

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/i474232898/air-quality-forecast/internal/resilience"
)

// ErrDependencyTimeout matches any DependencyError caused by a timeout.
var ErrDependencyTimeout = errors.New("dependency timeout")

// DependencyError reports an unreachable or failing weather/geocoding provider.
type DependencyError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *DependencyError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
	}
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDependencyTimeout) select timeouts.
func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyTimeout && e.Timeout
}

// NotFoundError reports an unresolvable place name with best-effort alternatives.
type NotFoundError struct {
	Query       string
	Suggestions []Suggestion
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("location '%s' not found", e.Query)
}

// Classify wraps err from provider as a *DependencyError, detecting timeouts and
// upstream status codes. Errors that already carry a classification pass through.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var dep *DependencyError
	var nf *NotFoundError
	if errors.As(err, &dep) || errors.As(err, &nf) {
		return err
	}

	out := &DependencyError{Provider: provider, Err: err}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		out.Timeout = true
	}
	var statusErr *resilience.StatusError
	if errors.As(err, &statusErr) {
		out.StatusCode = statusErr.StatusCode
	}
	return out
}
