package model

// InviteCodeResponse is returned when fetching or regenerating an invite code.
type InviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
	Message    string `json:"message"`
}

// PartnerSearchResult describes a prospective partner found by invite code.
// CanConnect is false when the target already has a different partner.
type PartnerSearchResult struct {
	UserID          int64   `json:"user_id"`
	Username        string  `json:"username"`
	DisplayName     string  `json:"display_name"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
	InviteCode      string  `json:"invite_code"`
	CanConnect      bool    `json:"can_connect"`
}

// PartnerConnectResult is returned after a successful connect.
type PartnerConnectResult struct {
	Message   string     `json:"message"`
	Partner   UserPublic `json:"partner"`
	ChatReady bool       `json:"chat_ready"`
}

// PartnerStatus is the server's snapshot of the caller's partner relationship.
type PartnerStatus struct {
	HasPartner bool        `json:"has_partner"`
	Partner    *UserPublic `json:"partner,omitempty"`
	CanChat    bool        `json:"can_chat"`
	Message    string      `json:"message"`
}
