package dto

import (
	"time"

	"github.com/goongpt/backend/internal/models"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type ChallengeResponse struct {
	Message        string `json:"message"`
	ChallengeToken string `json:"challenge_token"`
	ExpiresIn      int    `json:"expires_in"` // секунды
}

type AuthResponse struct {
	Authenticated     bool         `json:"authenticated"`
	NeedsRegistration bool         `json:"needs_registration,omitempty"`
	WalletAddress     string       `json:"wallet_address,omitempty"`
	User              *models.User `json:"user,omitempty"`
	Token             string       `json:"token,omitempty"`
	ExpiresAt         *time.Time   `json:"expires_at,omitempty"`
}

type RegisterResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}
