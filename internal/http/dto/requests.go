package dto

import (
	"regexp"

	"github.com/goongpt/backend/internal/solana"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

type ChallengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

type AuthRequest struct {
	WalletAddress  string `json:"wallet_address"`
	SignedMessage  string `json:"signed_message"` // base64 detached signature
	Message        string `json:"message"`        // точный текст challenge
	ChallengeToken string `json:"challenge_token"`
}

type RegisterRequest struct {
	WalletAddress  string  `json:"wallet_address"`
	Username       string  `json:"username"`
	Email          *string `json:"email,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// Validate возвращает пофилдовые ошибки; пустая map — всё валидно.
func (r *RegisterRequest) Validate() map[string]string {
	fields := make(map[string]string)
	if r.WalletAddress == "" {
		fields["wallet_address"] = "wallet_address is required"
	} else if _, err := solana.DecodeAddress(r.WalletAddress); err != nil {
		// Кошелёк, не декодирующийся в Ed25519-ключ, никогда не пройдёт /auth
		fields["wallet_address"] = "invalid solana wallet address"
	}
	if !usernameRe.MatchString(r.Username) {
		fields["username"] = "username must be 3-20 characters, alphanumeric or underscore"
	}
	if r.Email != nil && *r.Email != "" && !emailRe.MatchString(*r.Email) {
		fields["email"] = "invalid email format"
	}
	return fields
}

type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

func (r *UpdateProfileRequest) Validate() map[string]string {
	fields := make(map[string]string)
	if r.Username != nil && !usernameRe.MatchString(*r.Username) {
		fields["username"] = "username must be 3-20 characters, alphanumeric or underscore"
	}
	if r.Email != nil && *r.Email != "" && !emailRe.MatchString(*r.Email) {
		fields["email"] = "invalid email format"
	}
	return fields
}
