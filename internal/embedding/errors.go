package embedding

import (
	"errors"
	"fmt"
)

// ErrUpstream marks failures raised by the embedding provider.
var ErrUpstream = errors.New("embedding provider failed")

// UpstreamError wraps a provider failure with the provider name.
type UpstreamError struct {
	Provider string
	cause    error
}

// NewUpstreamError wraps cause as a failure of provider.
func NewUpstreamError(provider string, cause error) *UpstreamError {
	return &UpstreamError{Provider: provider, cause: cause}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s embedding failed: %v", e.Provider, e.cause)
}

func (e *UpstreamError) Unwrap() error { return e.cause }

// Is reports ErrUpstream so callers can match without knowing the concrete type.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func errBatchLength(want, got int) error {
	return fmt.Errorf("batch returned %d embeddings for %d inputs", got, want)
}
