package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeProvider(t *testing.T, status int, body string, captured *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if captured != nil {
			payload, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(payload, captured)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "test-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"career\": \"x\"}  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func TestNewCompleterValidatesConfig(t *testing.T) {
	_, err := NewCompleter(Config{Provider: "openai"})
	require.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewCompleter(Config{Provider: "llama-farm", APIKey: "k"})
	require.ErrorIs(t, err, ErrUnknownProvider)

	completer, err := NewCompleter(Config{Provider: "Gemini", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, completer.Provider())
	require.Equal(t, "gemini-2.0-flash", completer.Model())

	completer, err = NewCompleter(Config{APIKey: "k", Model: "gpt-4.1"})
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, completer.Provider())
	require.Equal(t, "gpt-4.1", completer.Model())
}

func TestCompleteSendsJSONRequest(t *testing.T) {
	var captured capturedRequest
	var auth string
	server := fakeProvider(t, http.StatusOK, completionBody, &captured, &auth)

	completer, err := NewCompleter(Config{Provider: ProviderOpenRouter, APIKey: "secret", BaseURL: server.URL + "/v1/", Model: "test-model", Logger: zerolog.Nop()})
	require.NoError(t, err)

	result, err := completer.Complete(context.Background(), CompletionRequest{
		System: "system prompt",
		Prompt: "make a roadmap",
		History: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
		JSON: true,
	})
	require.NoError(t, err)

	require.Equal(t, `{"career": "x"}`, result.Content)
	require.Equal(t, "test-model", result.Model)
	require.Equal(t, 12, result.PromptTokens)
	require.Equal(t, 7, result.CompletionTokens)

	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, "test-model", captured.Model)
	require.NotNil(t, captured.ResponseFormat)
	require.Equal(t, "json_object", captured.ResponseFormat.Type)
	require.Len(t, captured.Messages, 4)
	require.Equal(t, "system", captured.Messages[0].Role)
	require.Equal(t, "assistant", captured.Messages[2].Role)
	require.Equal(t, "user", captured.Messages[3].Role)
	require.Equal(t, "make a roadmap", captured.Messages[3].Content)
}

func TestCompleteTextModeOmitsResponseFormat(t *testing.T) {
	var captured capturedRequest
	server := fakeProvider(t, http.StatusOK, completionBody, &captured, nil)

	completer, err := NewCompleter(Config{APIKey: "secret", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	require.NoError(t, err)
	require.Nil(t, captured.ResponseFormat)
	require.Len(t, captured.Messages, 1)
}

func TestCompleteSurfacesProviderErrors(t *testing.T) {
	server := fakeProvider(t, http.StatusTooManyRequests, `{"error": {"message": "rate limited", "type": "rate_limit"}}`, nil, nil)

	completer, err := NewCompleter(Config{APIKey: "secret", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "openai completion")
}

func TestCompleteWithoutChoices(t *testing.T) {
	server := fakeProvider(t, http.StatusOK, `{"id": "x", "model": "m", "choices": []}`, nil, nil)

	completer, err := NewCompleter(Config{APIKey: "secret", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}
