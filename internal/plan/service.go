package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/duetchat/duet/internal/api"
)

const (
	suggestFallbackMessage = "AI処理中にエラーが発生しました。しばらく時間をおいて再度お試しください。"
	testFallbackMessage    = "AIテスト中にエラーが発生しました。"
)

// Service fetches plan suggestions from the AI endpoints and normalizes
// whatever comes back. Calls resolve to a Response even on transport
// failure, so callers never need a separate error path for rendering.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// Suggest asks the backend to propose date plans from the recent
// conversation.
func (s *Service) Suggest(ctx context.Context) Response {
	return s.call(ctx, "/ai/suggest-plans", suggestFallbackMessage)
}

// Test runs the backend's AI connectivity check.
func (s *Service) Test(ctx context.Context) Response {
	return s.call(ctx, "/ai/test", testFallbackMessage)
}

func (s *Service) call(ctx context.Context, path, fallback string) Response {
	var raw json.RawMessage
	if err := s.client.Post(ctx, path, nil, &raw); err != nil {
		s.logger.Warn("ai request failed", "path", path, "error", err)
		detail := api.Detail(err)
		if detail == "" {
			detail = err.Error()
		}
		return Response{Success: false, Message: fallback, Error: detail}
	}
	return Normalize(raw)
}

// FormatPlanMessage renders a plan as the chat message sent when a user
// shares a suggestion with their partner.
func FormatPlanMessage(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 AI提案: %s\n\n", p.Title)
	b.WriteString(p.Description)
	b.WriteString("\n")
	if p.Schedule != "" {
		fmt.Fprintf(&b, "\n⏰ スケジュール: %s", p.Schedule)
	}
	if p.Budget != "" {
		fmt.Fprintf(&b, "\n💰 予算: %s", p.Budget)
	}
	if len(p.Highlights) > 0 {
		b.WriteString("\n\n✨ おすすめポイント:")
		for _, h := range p.Highlights {
			b.WriteString("\n• " + h)
		}
	}
	if len(p.Notes) > 0 {
		b.WriteString("\n\n📝 注意事項:")
		for _, n := range p.Notes {
			b.WriteString("\n• " + n)
		}
	}
	b.WriteString("\n\nどう思う？ 💕")
	return b.String()
}
