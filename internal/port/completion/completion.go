// Package completion defines the text-completion oracle port (interface).
// The oracle is fallible and non-deterministic: every output is re-validated
// against a strict schema before use, and malformed output is a first-class
// failure mode, never a crash.
package completion

import "context"

// Oracle is the port interface for LLM text completion.
type Oracle interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, prompt string) (string, error)
}
