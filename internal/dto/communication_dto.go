package dto

import (
	"time"

	"github.com/noah-isme/skillpath-api/internal/models"
)

// ChatSendRequest is a message typed into the terminal chatbot.
type ChatSendRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

// ChatHistoryQuery represents query filters for retrieving chat history.
type ChatHistoryQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatReplyResponse pairs the stored user message with the assistant reply.
type ChatReplyResponse struct {
	Message ChatMessageResponse `json:"message"`
	Reply   ChatMessageResponse `json:"reply"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:        message.ID,
		Role:      message.Role,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// Websocket frame types.
const (
	ChatFrameReply = "reply"
	ChatFrameError = "error"
)

// ChatSocketFrame is written to websocket clients for every inbound message.
type ChatSocketFrame struct {
	Type  string             `json:"type"`
	Reply *ChatReplyResponse `json:"reply,omitempty"`
	Error string             `json:"error,omitempty"`
}
