package service

import (
	"context"
	"errors"
	"html"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/internal/repository"
	"github.com/noah-isme/skillpath-api/pkg/ai"
)

func newChatFixture(t *testing.T, reply string, turns int) (ChatService, *stubCompleter) {
	t.Helper()
	db := openServiceDB(t)
	completer := &stubCompleter{content: reply}
	svc := NewChatService(repository.NewChatRepository(db), completer, validator.New(), turns, zerolog.Nop())
	return svc, completer
}

func TestChatServiceSendStoresBothTurns(t *testing.T) {
	svc, completer := newChatFixture(t, "Go is a great first backend language.", 3)
	ctx := context.Background()

	result, err := svc.Send(ctx, "u1", dto.ChatSendRequest{Message: "Which language should I learn?"})
	require.NoError(t, err)
	require.Equal(t, models.ChatRoleUser, result.Message.Role)
	require.Equal(t, models.ChatRoleAssistant, result.Reply.Role)
	require.Equal(t, "Go is a great first backend language.", result.Reply.Content)

	require.Len(t, completer.requests, 1)
	require.False(t, completer.requests[0].JSON)
	require.Empty(t, completer.requests[0].History)

	history, err := svc.History(ctx, "u1", dto.ChatHistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Which language should I learn?", history[0].Content)
}

func TestChatServiceReplaysRecentTurns(t *testing.T) {
	svc, completer := newChatFixture(t, "ok", 1)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		_, err := svc.Send(ctx, "u1", dto.ChatSendRequest{Message: msg})
		require.NoError(t, err)
	}

	last := completer.requests[len(completer.requests)-1]
	require.Equal(t, "third", last.Prompt)
	require.Equal(t, []ai.Message{
		{Role: ai.RoleUser, Content: "second"},
		{Role: ai.RoleAssistant, Content: "ok"},
	}, last.History)
}

func TestChatServiceSanitisesMarkup(t *testing.T) {
	svc, completer := newChatFixture(t, "<b>Rust</b> & Go <script>alert(1)</script>", 0)

	result, err := svc.Send(context.Background(), "u1", dto.ChatSendRequest{Message: `<img src=x onerror=alert(1)>What's "next"?`})
	require.NoError(t, err)
	require.Equal(t, "What&#39;s &#34;next&#34;?", completer.requests[0].Prompt)
	require.Equal(t, "What&#39;s &#34;next&#34;?", result.Message.Content)
	require.NotContains(t, result.Reply.Content, "<")
	require.Contains(t, result.Reply.Content, "Rust")
	require.Contains(t, result.Reply.Content, "&amp; Go")
}

func TestChatServiceSanitisesEntityEncodedMarkup(t *testing.T) {
	svc, completer := newChatFixture(t, "&lt;img src=x onerror=alert(1)&gt;Try &amp;lt;b&amp;gt;Go", 0)
	ctx := context.Background()

	result, err := svc.Send(ctx, "u1", dto.ChatSendRequest{Message: "&lt;script&gt;alert(1)&lt;/script&gt;hi"})
	require.NoError(t, err)
	require.Equal(t, "hi", completer.requests[0].Prompt)
	require.Equal(t, "hi", result.Message.Content)
	require.Equal(t, "Try Go", result.Reply.Content)

	history, err := svc.History(ctx, "u1", dto.ChatHistoryQuery{})
	require.NoError(t, err)
	for _, message := range history {
		require.NotContains(t, message.Content, "<")
		require.NotContains(t, html.UnescapeString(message.Content), "<")
	}
}

func TestChatServiceRejectsEmptyMessages(t *testing.T) {
	svc, completer := newChatFixture(t, "ok", 0)

	_, err := svc.Send(context.Background(), "u1", dto.ChatSendRequest{Message: "<p></p>"})
	require.ErrorIs(t, err, ErrChatEmptyMessage)

	_, err = svc.Send(context.Background(), "u1", dto.ChatSendRequest{})
	require.Error(t, err)
	require.Empty(t, completer.requests)
}

func TestChatServiceProviderFailureStoresNothing(t *testing.T) {
	svc, completer := newChatFixture(t, "", 0)
	completer.err = errors.New("rate limited")
	ctx := context.Background()

	_, err := svc.Send(ctx, "u1", dto.ChatSendRequest{Message: "hello"})
	require.ErrorIs(t, err, ErrChatCompletionFailed)

	history, err := svc.History(ctx, "u1", dto.ChatHistoryQuery{})
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestChatServiceWithoutCompleter(t *testing.T) {
	db := openServiceDB(t)
	svc := NewChatService(repository.NewChatRepository(db), nil, validator.New(), 2, zerolog.Nop())

	_, err := svc.Send(context.Background(), "u1", dto.ChatSendRequest{Message: "hello"})
	require.ErrorIs(t, err, ErrChatUnavailable)
}

func TestChatServiceClear(t *testing.T) {
	svc, _ := newChatFixture(t, "ok", 0)
	ctx := context.Background()

	_, err := svc.Send(ctx, "u1", dto.ChatSendRequest{Message: "hello"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, "u2", dto.ChatSendRequest{Message: "hello"})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "u1"))

	mine, err := svc.History(ctx, "u1", dto.ChatHistoryQuery{})
	require.NoError(t, err)
	require.Empty(t, mine)

	theirs, err := svc.History(ctx, "u2", dto.ChatHistoryQuery{})
	require.NoError(t, err)
	require.Len(t, theirs, 2)
}

func TestChatErrorMessageHidesProviderDetails(t *testing.T) {
	require.Equal(t, ErrChatEmptyMessage.Error(), chatErrorMessage(ErrChatEmptyMessage))
	require.NotContains(t, chatErrorMessage(errors.Join(ErrChatCompletionFailed, errors.New("api key sk-123"))), "sk-123")
}
