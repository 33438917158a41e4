// Package generate talks to a local Ollama-compatible text generation
// backend.
package generate

import (
	"context"
	"errors"
	"fmt"
)

// Options are the per-request generation settings.
type Options struct {
	Temperature     float64
	ContextWindow   int
	MaxOutputTokens int
}

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// ErrUnavailable marks transient backend failures: connection refused,
// timeouts, overload. Callers may retry; the client already retries a
// bounded number of times before returning it.
var ErrUnavailable = errors.New("generate: backend unavailable")

// RejectedError marks permanent request failures such as an unknown
// model or a malformed request. Retrying will not help.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("generate: backend rejected request (status %d): %s", e.Status, e.Reason)
}

// IsRejected reports whether err is a permanent backend rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
