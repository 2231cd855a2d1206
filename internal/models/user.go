package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                uuid.UUID `json:"id"`
	WalletAddress     string    `json:"wallet_address"`
	Username          string    `json:"username"`
	Email             *string   `json:"email,omitempty"`
	ProfilePicture    *string   `json:"profile_picture,omitempty"`
	TokenBalance      int64     `json:"token_balance"`
	TotalTokensEarned int64     `json:"total_tokens_earned"`
	DailyTokensEarned int64     `json:"daily_tokens_earned"`
	LastTokenEarnDate *string   `json:"last_token_earn_date,omitempty"` // YYYY-MM-DD
	CreditsBalance    int64     `json:"credits_balance"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
