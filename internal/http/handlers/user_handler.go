package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/config"
	"github.com/goongpt/backend/internal/http/dto"
	"github.com/goongpt/backend/internal/middleware"
	"github.com/goongpt/backend/internal/repositories"
	"go.uber.org/zap"
)

type UserHandler struct {
	users repositories.UserStore
	cfg   *config.Config
	log   *zap.Logger
}

func NewUserHandler(users repositories.UserStore, cfg *config.Config, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, cfg: cfg, log: log}
}

// GET /api/v1/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	return c.JSON(dto.UserResponse{User: middleware.GetUser(c)})
}

// PUT /api/v1/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if fields := req.Validate(); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "validation failed", Fields: fields})
	}

	user := middleware.GetUser(c)
	updated, err := h.users.UpdateProfile(c.Context(), user.ID, repositories.ProfileUpdate{
		Username:       req.Username,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
	})
	if errors.Is(err, repositories.ErrConflict) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: "username already taken"})
	}
	if err != nil {
		h.log.Error("profile update error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.UserResponse{User: updated})
}

// EarnTokens — дневное начисление токенов за активность.
// POST /api/v1/me/tokens/earn
func (h *UserHandler) EarnTokens(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	day := time.Now().UTC().Format("2006-01-02")

	updated, err := h.users.EarnTokens(c.Context(), user.ID, h.cfg.TokenEarnAmount, day, h.cfg.DailyTokenCap)
	if errors.Is(err, repositories.ErrDailyCapReached) {
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{Error: "daily token cap reached"})
	}
	if err != nil {
		h.log.Error("token earn error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.UserResponse{User: updated})
}
