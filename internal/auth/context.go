package auth

import (
	"context"

	"github.com/duetchat/duet/internal/model"
)

type contextKey struct{}

// AuthContext carries the resolved session id and the cached user profile
// through the call chain. Credential lookups are always scoped to SessionID;
// nothing downstream re-derives a "current" session ambiently.
type AuthContext struct {
	SessionID string
	User      *model.User
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func SessionID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.SessionID
}

func CurrentUser(ctx context.Context) *model.User {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.User
}

func HasPartner(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok || ac.User == nil {
		return false
	}
	return ac.User.HasPartner
}
