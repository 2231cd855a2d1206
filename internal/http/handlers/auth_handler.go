package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/auth"
	"github.com/goongpt/backend/internal/config"
	"github.com/goongpt/backend/internal/http/dto"
	"github.com/goongpt/backend/internal/middleware"
	"github.com/goongpt/backend/internal/models"
	"github.com/goongpt/backend/internal/repositories"
	"github.com/goongpt/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg, log: log}
}

// Challenge выдаёт сообщение для подписи кошельком.
// POST /api/v1/auth/challenge
func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	var req dto.ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.WalletAddress == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address is required"})
	}

	message, token, err := h.authService.Challenge(c.Context(), req.WalletAddress)
	if err != nil {
		h.log.Debug("challenge generation failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid wallet address"})
	}

	return c.JSON(dto.ChallengeResponse{
		Message:        message,
		ChallengeToken: token,
		ExpiresIn:      int(h.cfg.ChallengeTTL.Seconds()),
	})
}

// Authenticate — логин подписью кошелька.
// POST /api/v1/auth
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {
	var req dto.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.WalletAddress == "" || req.SignedMessage == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "wallet_address, signed_message and message are required"})
	}

	result, err := h.authService.Authenticate(c.Context(), req.WalletAddress, req.SignedMessage, req.Message, req.ChallengeToken, middleware.ClientIP(c))
	if errors.Is(err, services.ErrAuthFailed) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "authentication failed"})
	}
	if err != nil {
		h.log.Error("authenticate error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	if result.NeedsRegistration {
		return c.JSON(dto.AuthResponse{
			Authenticated:     true,
			NeedsRegistration: true,
			WalletAddress:     req.WalletAddress,
		})
	}

	h.setSessionCookie(c, result.Session)
	expires := result.Session.ExpiresAt
	return c.JSON(dto.AuthResponse{
		Authenticated: true,
		User:          result.User,
		Token:         result.Session.Token,
		ExpiresAt:     &expires,
	})
}

// Register создаёт юзера и сразу логинит.
// POST /api/v1/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if fields := req.Validate(); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "validation failed", Fields: fields})
	}

	user := &models.User{
		WalletAddress:  req.WalletAddress,
		Username:       req.Username,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
	}
	session, err := h.authService.Register(c.Context(), user, middleware.ClientIP(c))
	if errors.Is(err, repositories.ErrConflict) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "wallet address or username already registered"})
	}
	if err != nil {
		h.log.Error("register error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	h.setSessionCookie(c, session)
	return c.Status(fiber.StatusCreated).JSON(dto.RegisterResponse{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// GetSession — кто я. Никогда не отдаёт ошибку: любые проблемы
// деградируют до authenticated:false.
// GET /api/v1/session
func (h *AuthHandler) GetSession(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	return c.JSON(dto.SessionResponse{
		Authenticated: user != nil,
		User:          user,
	})
}

// Logout всегда успешен и всегда чистит cookie.
// POST /api/v1/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.authService.Logout(c.Context(), middleware.SessionToken(c), middleware.ClientIP(c))
	h.clearSessionCookie(c)
	return c.JSON(dto.LogoutResponse{Success: true})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, session *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Secure:   h.cfg.SecureCookies,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Secure:   h.cfg.SecureCookies,
	})
}
