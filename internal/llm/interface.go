package llm

import "context"

// Client sends one system instruction plus one user message and returns the completion text.
type Client interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}
