package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/auth"
	"github.com/goongpt/backend/internal/models"
	"github.com/goongpt/backend/internal/services"
	"go.uber.org/zap"
)

const (
	CtxUser    = "user"
	CtxSession = "session"
)

// SessionToken достаёт session token из cookie или Authorization: Bearer.
func SessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(auth.SessionCookieName); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
		return token
	}
	return ""
}

// SessionMiddleware резолвит сессию, если она есть. Никогда не
// отбивает запрос: любая внутренняя ошибка деградирует до анонима,
// чтобы клиентские флоу не падали, а просили логин.
func SessionMiddleware(authService *services.AuthService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)
		if token == "" {
			return c.Next()
		}

		session, user, err := authService.ValidateSession(c.Context(), token)
		if err != nil {
			log.Warn("session validation error", zap.Error(err))
			return c.Next()
		}
		if session != nil {
			c.Locals(CtxSession, session)
			c.Locals(CtxUser, user)
		}
		return c.Next()
	}
}

// RequireAuth — после SessionMiddleware; без валидной сессии 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		return c.Next()
	}
}

func GetUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(CtxUser).(*models.User)
	return u
}

func GetSession(c *fiber.Ctx) *models.Session {
	s, _ := c.Locals(CtxSession).(*models.Session)
	return s
}

// ClientIP — первый адрес из X-Forwarded-For, затем X-Real-IP,
// затем адрес соединения.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := c.Get("X-Real-IP"); real != "" {
		return real
	}
	return c.IP()
}
