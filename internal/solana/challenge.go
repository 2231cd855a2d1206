package solana

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ChallengePreamble — первая строка challenge-сообщения. Текст не
	// security-critical, но подписанное сообщение должно совпадать
	// byte-for-byte с тем, что выдал сервер.
	ChallengePreamble = "GoonGPT wants you to sign in with your Solana account:"

	// MaxChallengeAge — максимальный возраст challenge (защита от replay).
	MaxChallengeAge = 5 * time.Minute
)

// Challenge — распарсенное challenge-сообщение.
type Challenge struct {
	WalletAddress string
	IssuedAt      time.Time // millisecond precision
	Nonce         string
}

// BuildChallenge собирает текст для подписи кошельком:
//
//	<preamble>\n<wallet>\n<unix ms>\n<nonce>
func BuildChallenge(wallet string, issuedAt time.Time, nonce string) string {
	return strings.Join([]string{
		ChallengePreamble,
		wallet,
		strconv.FormatInt(issuedAt.UnixMilli(), 10),
		nonce,
	}, "\n")
}

// ParseChallenge разбирает подписанное сообщение обратно в Challenge.
func ParseChallenge(message string) (*Challenge, error) {
	lines := strings.Split(message, "\n")
	if len(lines) != 4 {
		return nil, fmt.Errorf("invalid challenge format: expected 4 lines, got %d", len(lines))
	}
	if lines[0] != ChallengePreamble {
		return nil, fmt.Errorf("invalid challenge preamble")
	}

	ms, err := strconv.ParseInt(lines[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge timestamp: %w", err)
	}

	return &Challenge{
		WalletAddress: lines[1],
		IssuedAt:      time.UnixMilli(ms),
		Nonce:         lines[3],
	}, nil
}

// Validate проверяет, что challenge выписан на этот кошелёк и ещё свежий.
func (c *Challenge) Validate(wallet string, now time.Time) error {
	if c.WalletAddress != wallet {
		return fmt.Errorf("challenge issued for a different wallet")
	}
	age := now.Sub(c.IssuedAt)
	if age > MaxChallengeAge {
		return fmt.Errorf("challenge expired: %s old", age.Round(time.Second))
	}
	// Защита от timestamp из будущего (clock skew макс. 1 мин)
	if c.IssuedAt.After(now.Add(1 * time.Minute)) {
		return fmt.Errorf("challenge timestamp is in the future")
	}
	return nil
}
