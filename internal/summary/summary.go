// Package summary defines the optional message summarization contract.
package summary

import "context"

// Summarizer produces a one-sentence natural-language summary of a
// received message. Implementations are best-effort: callers must treat
// any error as "no summary" and carry on.
type Summarizer interface {
	Summarize(ctx context.Context, from, subject, snippet string) (string, error)
}
