package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/internal/observability"
	"github.com/noah-isme/skillpath-api/internal/repository"
	"github.com/noah-isme/skillpath-api/pkg/ai"
)

const (
	chatSendBufferSize = 8
	chatPingInterval   = 30 * time.Second
	maxSanitizePasses  = 4
	chatSystemPrompt   = "You are SkillPath, a friendly assistant in a terminal-style chat. " +
		"Answer questions about programming, technology careers and learning paths concisely. " +
		"Use plain text or short markdown; never output HTML."
)

var (
	// ErrChatEmptyMessage indicates a message with no content left after sanitising.
	ErrChatEmptyMessage = errors.New("message content empty after sanitization")
	// ErrChatUnavailable indicates no AI provider is configured for chat.
	ErrChatUnavailable = errors.New("chat assistant is not configured")
	// ErrChatCompletionFailed wraps provider failures during chat.
	ErrChatCompletionFailed = errors.New("chat reply failed")
)

// ChatConnectionOptions wraps metadata extracted during the HTTP upgrade.
type ChatConnectionOptions struct {
	UserID        string
	CorrelationID string
	Context       context.Context
}

// ChatService answers terminal chat messages and keeps per-user history.
type ChatService interface {
	Send(ctx context.Context, userID string, req dto.ChatSendRequest) (dto.ChatReplyResponse, error)
	History(ctx context.Context, userID string, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error)
	Clear(ctx context.Context, userID string) error
	ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions)
}

type chatService struct {
	repo         repository.ChatRepository
	completer    ai.Completer
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	historyTurns int
	logger       zerolog.Logger
	tracer       trace.Tracer
}

type chatClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatSocketFrame
	options ChatConnectionOptions
	service *chatService
	closed  chan struct{}
	once    sync.Once
}

// NewChatService creates the chat service. historyTurns bounds how many prior exchanges
// are replayed to the model.
func NewChatService(repo repository.ChatRepository, completer ai.Completer, validate *validator.Validate, historyTurns int, logger zerolog.Logger) ChatService {
	if historyTurns < 0 {
		historyTurns = 0
	}
	return &chatService{
		repo:         repo,
		completer:    completer,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		historyTurns: historyTurns,
		logger:       logger.With().Str("component", "chat_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/skillpath-api/internal/service/chat"),
	}
}

func (s *chatService) Send(ctx context.Context, userID string, req dto.ChatSendRequest) (dto.ChatReplyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatReplyResponse{}, err
	}

	clean := s.sanitize(req.Message)
	if clean == "" {
		return dto.ChatReplyResponse{}, ErrChatEmptyMessage
	}
	if s.completer == nil {
		return dto.ChatReplyResponse{}, ErrChatUnavailable
	}

	attrs := []attribute.KeyValue{attribute.Int("chat.message_length", len(clean))}
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		attrs = append(attrs, attribute.String("correlation_id", correlation))
	}
	ctx, span := s.tracer.Start(ctx, "chat.reply", trace.WithAttributes(attrs...))
	defer span.End()

	history, err := s.recentTurns(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return dto.ChatReplyResponse{}, err
	}

	completion, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:  chatSystemPrompt,
		Prompt:  clean,
		History: history,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Str("user_id", userID).Msg("chat completion failed")
		return dto.ChatReplyResponse{}, errors.Join(ErrChatCompletionFailed, err)
	}

	reply := s.sanitize(completion.Content)
	if reply == "" {
		return dto.ChatReplyResponse{}, errors.Join(ErrChatCompletionFailed, ai.ErrEmptyCompletion)
	}

	userMessage := models.ChatMessage{UserID: userID, Role: models.ChatRoleUser, Content: clean}
	assistantMessage := models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: reply}
	if err := s.repo.Save(ctx, &userMessage, &assistantMessage); err != nil {
		span.RecordError(err)
		return dto.ChatReplyResponse{}, err
	}

	observability.ChatMessages().WithLabelValues(models.ChatRoleUser).Inc()
	observability.ChatMessages().WithLabelValues(models.ChatRoleAssistant).Inc()

	return dto.ChatReplyResponse{
		Message: dto.NewChatMessageResponse(userMessage),
		Reply:   dto.NewChatMessageResponse(assistantMessage),
	}, nil
}

func (s *chatService) History(ctx context.Context, userID string, query dto.ChatHistoryQuery) ([]dto.ChatMessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListByUser(ctx, userID, query.Limit)
	if err != nil {
		return nil, err
	}
	return dto.NewChatMessageResponseSlice(messages), nil
}

func (s *chatService) Clear(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}

func (s *chatService) ServeConnection(conn *websocket.Conn, opts ChatConnectionOptions) {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.CorrelationID != "" {
		opts.Context = middleware.ContextWithCorrelation(opts.Context, opts.CorrelationID)
	}

	client := &chatClient{
		conn:    conn,
		send:    make(chan dto.ChatSocketFrame, chatSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	go client.writer()
	client.reader()
}

func (s *chatService) recentTurns(ctx context.Context, userID string) ([]ai.Message, error) {
	if s.historyTurns == 0 {
		return nil, nil
	}
	messages, err := s.repo.ListByUser(ctx, userID, s.historyTurns*2)
	if err != nil {
		return nil, err
	}
	history := make([]ai.Message, 0, len(messages))
	for _, message := range messages {
		role := ai.RoleUser
		if message.Role == models.ChatRoleAssistant {
			role = ai.RoleAssistant
		}
		history = append(history, ai.Message{Role: role, Content: message.Content})
	}
	return history, nil
}

// sanitize returns HTML-safe text. Entity-encoded markup is decoded and sanitised again
// until the output is stable, so nothing escaped can turn back into a tag downstream.
func (s *chatService) sanitize(input string) string {
	current := s.sanitizer.Sanitize(input)
	for pass := 0; pass < maxSanitizePasses; pass++ {
		next := s.sanitizer.Sanitize(html.UnescapeString(current))
		if next == current {
			break
		}
		current = next
	}
	return strings.TrimSpace(current)
}

func (c *chatClient) reader() {
	defer c.close()

	for {
		var payload dto.ChatSendRequest
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("chat read loop ended")
			return
		}

		frame := dto.ChatSocketFrame{Type: dto.ChatFrameReply}
		reply, err := c.service.Send(c.options.Context, c.options.UserID, payload)
		if err != nil {
			c.service.logger.Warn().Err(err).Str("user_id", c.options.UserID).Msg("failed to process chat message")
			frame = dto.ChatSocketFrame{Type: dto.ChatFrameError, Error: chatErrorMessage(err)}
		} else {
			frame.Reply = &reply
		}

		select {
		case c.send <- frame:
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) writer() {
	defer c.close()

	ticker := time.NewTicker(chatPingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteJSON(frame); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

func chatErrorMessage(err error) string {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return "message must be between 1 and 4000 characters"
	case errors.Is(err, ErrChatEmptyMessage):
		return ErrChatEmptyMessage.Error()
	case errors.Is(err, ErrChatUnavailable):
		return ErrChatUnavailable.Error()
	default:
		return "the assistant could not answer right now, try again"
	}
}
