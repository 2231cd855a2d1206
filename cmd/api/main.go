package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goongpt/backend/internal/auth"
	"github.com/goongpt/backend/internal/config"
	"github.com/goongpt/backend/internal/db"
	apphttp "github.com/goongpt/backend/internal/http"
	"github.com/goongpt/backend/internal/http/handlers"
	"github.com/goongpt/backend/internal/ratelimit"
	"github.com/goongpt/backend/internal/repositories"
	"github.com/goongpt/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: hosted postgres+redis либо локальный файловый бэкенд.
	// Всё дальше зависит только от интерфейсов repositories.
	var (
		users      repositories.UserStore
		sessions   repositories.SessionStore
		rlStore    repositories.RateLimitStore
		auditStore repositories.AuditStore
		nonces     auth.NonceStore
	)

	switch cfg.StorageBackend {
	case config.BackendFile:
		fs, err := repositories.NewFileStore(cfg.FileStorePath)
		if err != nil {
			log.Fatal("failed to open file store", zap.Error(err))
		}
		users, sessions, rlStore, auditStore = fs, fs.Sessions(), fs, fs
		nonces = auth.NewMemoryNonceStore()
		log.Info("using file storage backend", zap.String("path", cfg.FileStorePath))

	default:
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}

		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		users = repositories.NewUserRepo(pool)
		sessions = repositories.NewSessionRepo(pool)
		rlStore = repositories.NewRateLimitRepo(pool)
		auditStore = repositories.NewAuditRepo(pool)
		nonces = auth.NewRedisNonceStore(rdb)
	}

	// Rate limiter: анонимные счётчики + фоновая уборка
	anon := ratelimit.NewMemoryLimiter()
	anon.Start()
	defer anon.Stop()
	limiter := ratelimit.NewLimiter(rlStore, anon, log)

	// Services
	authService := services.NewAuthService(users, sessions, nonces, auditStore, cfg, log)
	modelslab := services.NewModelsLabClient(cfg.ModelsLabBaseURL, cfg.ModelsLabAPIKey, cfg.ProviderTimeout, log)
	venice := services.NewVeniceClient(cfg.VeniceBaseURL, cfg.VeniceAPIKey, cfg.ProviderTimeout, log)
	replicate := services.NewReplicateClient(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken, cfg.ProviderTimeout, log)
	generation := services.NewGenerationService(modelslab, venice, replicate, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, cfg, log)
	userHandler := handlers.NewUserHandler(users, cfg, log)
	genHandler := handlers.NewGenerationHandler(generation, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, log, limiter, auditStore, authService, authHandler, userHandler, genHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
