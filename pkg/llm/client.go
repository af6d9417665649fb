package llm

import "context"

// Message is a single role-tagged chat message in the upstream wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is a rendered prompt: one system instruction and one user data
// message. Messages() fixes the order, which defines conversation turn order
// for the upstream model.
type Prompt struct {
	System string
	User   string
}

func (p Prompt) Messages() []Message {
	return []Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

type CompletionClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
