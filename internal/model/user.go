package model

// UserPublic is the profile shape the server exposes for other users.
type UserPublic struct {
	UserID          int64   `json:"user_id"`
	Username        string  `json:"username"`
	DisplayName     string  `json:"display_name"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// User is the authenticated user's full profile, including partner state.
type User struct {
	UserID          int64       `json:"user_id"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	DisplayName     string      `json:"display_name"`
	ProfileImageURL *string     `json:"profile_image_url,omitempty"`
	PartnerID       *int64      `json:"partner_id,omitempty"`
	Partner         *UserPublic `json:"partner,omitempty"`
	HasPartner      bool        `json:"has_partner"`
	InviteCode      string      `json:"invite_code"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

// SetPartner merges a newly connected partner into the cached profile.
// The server does not push profile updates after a connect, so partner_id,
// partner, and has_partner have to be kept in agreement locally.
func (u *User) SetPartner(p UserPublic) {
	partner := p
	u.Partner = &partner
	u.PartnerID = &partner.UserID
	u.HasPartner = true
}

// ClearPartner removes the cached partner after a relationship is severed.
func (u *User) ClearPartner() {
	u.Partner = nil
	u.PartnerID = nil
	u.HasPartner = false
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	DisplayName     string  `json:"display_name"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// LoginInput is the payload for password login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
