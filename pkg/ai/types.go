package ai

import (
	"context"
	"errors"
)

var (
	// ErrProviderNotConfigured indicates the selected provider has no credentials.
	ErrProviderNotConfigured = errors.New("ai provider not configured")
	// ErrUnknownProvider indicates the configured provider name is not supported.
	ErrUnknownProvider = errors.New("unknown ai provider")
	// ErrEmptyCompletion indicates the provider answered without any choices.
	ErrEmptyCompletion = errors.New("ai provider returned no completion")
)

// Message roles accepted in CompletionRequest.History.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a prior conversation turn.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest describes a single text generation call.
type CompletionRequest struct {
	System  string
	Prompt  string
	History []Message
	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// CompletionResult is the raw model output plus accounting data.
type CompletionResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Completer generates text from a prompt. Implementations are safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
