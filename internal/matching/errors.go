package matching

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation marks invalid input rejected before any external call.
	ErrValidation = errors.New("invalid match request")
	// ErrNotFound marks a referenced job that does not exist.
	ErrNotFound = errors.New("job not found")
	// ErrMissingEmbedding marks a stored job that has not been embedded yet.
	ErrMissingEmbedding = errors.New("job has no stored embedding")
	// ErrUpstream marks a failure of the embedding, search, record or explanation provider.
	ErrUpstream = errors.New("upstream dependency failed")
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("upstream call timed out")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func upstream(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
