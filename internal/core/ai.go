package core

import (
	"context"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	WebSearch    bool
}

// Delta is one streamed event. Either field may be empty.
type Delta struct {
	Text      string
	Citations []models.Citation
}

// CompletionStream yields deltas until Recv returns io.EOF.
type CompletionStream interface {
	Recv() (*Delta, error)
	Close() error
}

type LLMProvider interface {
	Name() string
	StreamCompletion(ctx context.Context, req *CompletionRequest) (CompletionStream, error)
}
