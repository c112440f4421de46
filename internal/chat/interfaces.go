package chat

import (
	"context"

	"edujourney/internal/api"
	"edujourney/internal/journey"
)

// Backend is the subset of the API client the assistant needs.
type Backend interface {
	CreateChatSession(ctx context.Context, subjectID, levelID journey.ID) (api.ChatSession, error)
	ChatSessions(ctx context.Context) ([]api.ChatSession, error)
	ChatMessages(ctx context.Context, sessionID journey.ID) ([]api.ChatMessage, error)
	SendChatMessage(ctx context.Context, sessionID journey.ID, message string) (api.ChatReply, error)
}

var _ Backend = (*api.Client)(nil)
