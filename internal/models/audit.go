package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditLogin             = "login"
	AuditRegister          = "register"
	AuditLogout            = "logout"
	AuditRateLimitRejected = "rate_limit_rejected"
)

type AuditEvent struct {
	ID            uuid.UUID  `json:"id"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	WalletAddress *string    `json:"wallet_address,omitempty"`
	Action        string     `json:"action"`
	IP            string     `json:"ip,omitempty"`
	Meta          any        `json:"meta,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
