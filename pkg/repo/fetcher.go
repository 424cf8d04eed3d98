package repo

import (
	"context"
	"errors"
	"fmt"

	"stacksignal/pkg/detector"
)

// ErrRepositoryUnreachable is returned when the repository listing itself
// cannot be obtained (missing repository, unknown branch, network failure).
var ErrRepositoryUnreachable = errors.New("repository unreachable")

// Fetcher retrieves the detection-relevant files of a repository
type Fetcher interface {
	FetchFiles(ctx context.Context, ref Reference, branch string) ([]detector.RepositoryFile, error)
}

// FetchError describes a failed request against the hosting service
type FetchError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d", e.Operation, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return e.Operation + " failed"
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
