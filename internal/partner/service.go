// Package partner implements invite-code discovery and the partner
// relationship lifecycle. A user has at most one partner; the invite code is
// the only way to find and connect to one.
package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/duetchat/duet/internal/api"
	"github.com/duetchat/duet/internal/auth"
	"github.com/duetchat/duet/internal/model"
)

// ErrAlreadyPartnered is the client-side guard against regenerating an
// invite code while connected. It is advisory: the server enforces the same
// rule authoritatively.
var ErrAlreadyPartnered = errors.New("already connected to a partner")

type Service struct {
	client *api.Client
}

func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// InviteCode returns the caller's current invite code.
func (s *Service) InviteCode(ctx context.Context) (*model.InviteCodeResponse, error) {
	var out model.InviteCodeResponse
	if err := s.client.Get(ctx, "/users/my-invite-code", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegenerateInviteCode invalidates the previous code and issues a new one.
// Rejected locally when the authenticated user (carried in ctx) already has
// a partner.
func (s *Service) RegenerateInviteCode(ctx context.Context) (*model.InviteCodeResponse, error) {
	if auth.HasPartner(ctx) {
		return nil, ErrAlreadyPartnered
	}
	var out model.InviteCodeResponse
	if err := s.client.Post(ctx, "/users/regenerate-invite-code", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchByCode looks up the user owning an invite code. Searching alone
// changes no state; CanConnect is false when the target is already taken.
func (s *Service) SearchByCode(ctx context.Context, code string) (*model.PartnerSearchResult, error) {
	if code == "" {
		return nil, fmt.Errorf("invite code is empty")
	}
	var out model.PartnerSearchResult
	if err := s.client.Get(ctx, "/users/search-by-code/"+code, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectByCode establishes the partner relationship. The server does not
// push a profile refresh afterwards, so the caller must merge the returned
// partner into its cached user via User.SetPartner.
func (s *Service) ConnectByCode(ctx context.Context, code string) (*model.PartnerConnectResult, error) {
	if code == "" {
		return nil, fmt.Errorf("invite code is empty")
	}
	var out model.PartnerConnectResult
	if err := s.client.Post(ctx, "/users/partner-connect-by-code", map[string]string{"invite_code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns the server's snapshot of the partner relationship.
func (s *Service) Status(ctx context.Context) (*model.PartnerStatus, error) {
	var out model.PartnerStatus
	if err := s.client.Get(ctx, "/users/partner-status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove severs the relationship. The caller must clear the cached partner
// fields via User.ClearPartner.
func (s *Service) Remove(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := s.client.Delete(ctx, "/users/partner", &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
