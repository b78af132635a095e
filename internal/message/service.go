// Package message wraps the messaging endpoints. The receiver of a sent
// message is never named by the client: the server routes each message to
// the caller's partner.
package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/duetchat/duet/internal/api"
	"github.com/duetchat/duet/internal/model"
)

// DefaultPageSize matches the server's conversation page size.
const DefaultPageSize = 50

type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Send submits a message to the implicit partner. Server errors come back
// as-is for the caller to display.
func (s *Service) Send(ctx context.Context, content, messageType string) (*model.Message, error) {
	if messageType == "" {
		messageType = model.MessageTypeText
	}
	var out model.Message
	err := s.client.Post(ctx, "/messages/", model.MessageCreate{
		Content:     strings.TrimSpace(content),
		MessageType: messageType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversation fetches one page of history, most recent message first.
func (s *Service) Conversation(ctx context.Context, skip, limit int) (*model.Conversation, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var out model.Conversation
	path := fmt.Sprintf("/messages/conversation?skip=%d&limit=%d", skip, limit)
	if err := s.client.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead flags the given messages as read. Idempotent; callers treat it
// as fire-and-forget.
func (s *Service) MarkRead(ctx context.Context, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return s.client.Put(ctx, "/messages/read", model.MessageReadUpdate{MessageIDs: messageIDs}, nil)
}
