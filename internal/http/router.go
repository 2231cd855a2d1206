package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goongpt/backend/internal/http/handlers"
	"github.com/goongpt/backend/internal/middleware"
	"github.com/goongpt/backend/internal/ratelimit"
	"github.com/goongpt/backend/internal/repositories"
	"github.com/goongpt/backend/internal/services"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	log *zap.Logger,
	limiter *ratelimit.Limiter,
	audit repositories.AuditStore,
	authService *services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	genHandler *handlers.GenerationHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.SessionMiddleware(authService, log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	rl := func(action string) fiber.Handler {
		return middleware.RateLimitMiddleware(limiter, audit, action, log)
	}

	api := app.Group("/api/v1")

	// Auth (public, своя квота)
	api.Post("/auth/challenge", rl(ratelimit.ActionAuth), authHandler.Challenge)
	api.Post("/auth", rl(ratelimit.ActionAuth), authHandler.Authenticate)
	api.Post("/register", rl(ratelimit.ActionAuth), authHandler.Register)
	api.Get("/session", authHandler.GetSession)
	api.Post("/logout", authHandler.Logout)

	// Generation (доступна и анонимам — у них свои квоты по IP)
	api.Post("/chat", rl(ratelimit.ActionChat), genHandler.Chat)
	api.Post("/image", rl(ratelimit.ActionImage), genHandler.Image)
	api.Post("/video", rl(ratelimit.ActionVideo), genHandler.Video)
	api.Post("/asmr", rl(ratelimit.ActionASMR), genHandler.ASMR)
	api.Post("/faceswap", rl(ratelimit.ActionFaceswap), genHandler.Faceswap)
	api.Get("/faceswap/:id", genHandler.FaceswapStatus)

	// Protected
	protected := api.Group("", middleware.RequireAuth())
	protected.Get("/me", userHandler.GetMe)
	protected.Put("/profile", userHandler.UpdateProfile)
	protected.Post("/me/tokens/earn", userHandler.EarnTokens)
}
