package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/models"
	"github.com/goongpt/backend/internal/ratelimit"
	"github.com/goongpt/backend/internal/repositories"
	"go.uber.org/zap"
)

// RateLimitMiddleware проверяет квоту до любой бизнес-логики.
// Identity: wallet_address из JSON-тела → кошелёк из сессии → IP.
// Отказ — немедленный 429 с контрактом заголовков, дальше по цепочке
// запрос не идёт.
func RateLimitMiddleware(limiter *ratelimit.Limiter, audit repositories.AuditStore, actionType string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := resolveWallet(c)

		var rej *ratelimit.Rejection
		if wallet != "" {
			rej = limiter.CheckWallet(c.Context(), wallet, actionType)
		} else {
			rej = limiter.CheckIP(ClientIP(c), actionType)
		}
		if rej == nil {
			return c.Next()
		}

		recordRejection(c, audit, actionType, wallet, log)

		c.Set("Retry-After", strconv.Itoa(rej.RetryAfter))
		c.Set("X-RateLimit-Limit", strconv.Itoa(rej.Limit))
		c.Set("X-RateLimit-Remaining", "0")
		c.Set("X-RateLimit-Reset", strconv.FormatInt(rej.WindowEnd.Unix(), 10))

		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":      "rate limit exceeded",
			"retryAfter": rej.RetryAfter,
			"limit":      rej.Limit,
			"remaining":  0,
		})
	}
}

// resolveWallet: явный wallet_address в теле приоритетнее сессии.
func resolveWallet(c *fiber.Ctx) string {
	var probe struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.Unmarshal(c.Body(), &probe); err == nil && probe.WalletAddress != "" {
		return probe.WalletAddress
	}

	if user := GetUser(c); user != nil {
		return user.WalletAddress
	}
	return ""
}

func recordRejection(c *fiber.Ctx, audit repositories.AuditStore, actionType, wallet string, log *zap.Logger) {
	e := models.AuditEvent{
		Action: models.AuditRateLimitRejected,
		IP:     ClientIP(c),
		Meta:   map[string]any{"action_type": actionType},
	}
	if wallet != "" {
		e.WalletAddress = &wallet
	}
	if err := audit.Record(c.Context(), e); err != nil {
		log.Debug("failed to record rate limit rejection", zap.Error(err))
	}
}
