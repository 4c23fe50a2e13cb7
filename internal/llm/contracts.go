package llm

import (
	"context"

	"github.com/poextract/poextract/internal/entity"
)

// Message is one role-tagged prompt part.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// Request is a single structured-output model call.
type Request struct {
	Messages   []Message
	SchemaName string
	Schema     map[string]any
}

// PromptChars is the total prompt size, used to scale the call timeout.
func (r Request) PromptChars() int {
	n := 0
	for _, m := range r.Messages {
		n += len(m.Content)
	}
	return n
}

// Reply is the raw model output plus reported token usage. Usage is passed
// through for cost/rate tracking; this package does not interpret it.
type Reply struct {
	Content string
	Usage   entity.TokenUsage
}

// Extractor is the interface the orchestrator depends on for model calls.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Reply, error)
}
