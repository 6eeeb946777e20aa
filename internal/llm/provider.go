// Package llm abstracts the chat-completion providers used to generate
// relationship advice.
package llm

import "context"

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-independent chat completion request.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	// JSONMode asks the provider to return a single JSON object.
	JSONMode bool
}

// CompletionResponse is a provider-independent chat completion result.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	DurationMS   int64
}

// Provider is a chat completion backend.
type Provider interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
