package llm

import (
	"context"
)

// Client produces one completion for a system instruction and a user prompt.
type Client interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
