package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/http/dto"
	"github.com/goongpt/backend/internal/ratelimit"
	"github.com/goongpt/backend/internal/services"
	"go.uber.org/zap"
)

// GenerationHandler — тонкие proxy-ручки генерации. Квоты проверяет
// rate-limit middleware до входа сюда; тела провайдеров прозрачны.
type GenerationHandler struct {
	generation *services.GenerationService
	log        *zap.Logger
}

func NewGenerationHandler(generation *services.GenerationService, log *zap.Logger) *GenerationHandler {
	return &GenerationHandler{generation: generation, log: log}
}

func (h *GenerationHandler) Chat(c *fiber.Ctx) error {
	return h.generate(c, ratelimit.ActionChat)
}

func (h *GenerationHandler) Image(c *fiber.Ctx) error {
	return h.generate(c, ratelimit.ActionImage)
}

func (h *GenerationHandler) Video(c *fiber.Ctx) error {
	return h.generate(c, ratelimit.ActionVideo)
}

func (h *GenerationHandler) ASMR(c *fiber.Ctx) error {
	return h.generate(c, ratelimit.ActionASMR)
}

func (h *GenerationHandler) Faceswap(c *fiber.Ctx) error {
	return h.generate(c, ratelimit.ActionFaceswap)
}

// FaceswapStatus — статус асинхронной faceswap-задачи. Создание задачи
// тратит квоту, поллинг статуса — нет.
func (h *GenerationHandler) FaceswapStatus(c *fiber.Ctx) error {
	raw, err := h.generation.PredictionStatus(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("prediction status failed", zap.String("id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "generation provider error"})
	}
	c.Set("Content-Type", "application/json")
	return c.Send(raw)
}

func (h *GenerationHandler) generate(c *fiber.Ctx, actionType string) error {
	var payload map[string]any
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	// wallet_address — поле для rate limiter-а, провайдеру оно не нужно
	delete(payload, "wallet_address")

	raw, err := h.generation.Generate(c.Context(), actionType, payload)
	if err != nil {
		h.log.Error("generation failed", zap.String("action", actionType), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "generation provider error"})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(raw)
}
