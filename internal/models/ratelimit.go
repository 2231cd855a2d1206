package models

import "time"

// RateLimitWindow — персистентный fixed-window счётчик для авторизованных
// кошельков. Одна строка на пару (wallet_address, action_type); протухшее
// окно заменяется целиком, счётчик начинается заново с 1.
type RateLimitWindow struct {
	WalletAddress string    `json:"wallet_address"`
	ActionType    string    `json:"action_type"`
	RequestCount  int       `json:"request_count"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
}
