package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/goongpt/backend/internal/repositories"
	"go.uber.org/zap"
)

const (
	ActionChat     = "chat"
	ActionImage    = "image"
	ActionVideo    = "video"
	ActionAuth     = "auth"
	ActionASMR     = "asmr"
	ActionFaceswap = "faceswap"
)

// ActionConfig — квоты одного типа действия.
type ActionConfig struct {
	Window               time.Duration
	MaxRequests          int // авторизованный кошелёк
	AnonymousMaxRequests int // аноним по IP
}

// Actions — фиксированная таблица квот. Deployment-time константы,
// не runtime-параметры.
var Actions = map[string]ActionConfig{
	ActionChat:     {Window: 60 * time.Second, MaxRequests: 15, AnonymousMaxRequests: 3},
	ActionImage:    {Window: 60 * time.Second, MaxRequests: 10, AnonymousMaxRequests: 2},
	ActionVideo:    {Window: 300 * time.Second, MaxRequests: 5, AnonymousMaxRequests: 1},
	ActionAuth:     {Window: 900 * time.Second, MaxRequests: 10, AnonymousMaxRequests: 5},
	ActionASMR:     {Window: 60 * time.Second, MaxRequests: 10, AnonymousMaxRequests: 5},
	ActionFaceswap: {Window: 60 * time.Second, MaxRequests: 10, AnonymousMaxRequests: 2},
}

// Rejection — отказ по квоте. nil от Check* означает "пропускаем".
type Rejection struct {
	RetryAfter int // секунды, минимум 1
	Limit      int
	WindowEnd  time.Time
}

// Limiter объединяет оба пути: персистентные окна для кошельков
// и in-memory счётчики для анонимов.
type Limiter struct {
	store repositories.RateLimitStore
	anon  *MemoryLimiter
	log   *zap.Logger
}

func NewLimiter(store repositories.RateLimitStore, anon *MemoryLimiter, log *zap.Logger) *Limiter {
	return &Limiter{store: store, anon: anon, log: log}
}

// CheckWallet — авторизованный путь. Ошибка стора логируется и запрос
// пропускается (fail open): недоступность инфраструктуры не должна
// блокировать легитимный трафик, квоты здесь — защита от абьюза,
// не биллинг.
func (l *Limiter) CheckWallet(ctx context.Context, walletAddress, actionType string) *Rejection {
	cfg, ok := Actions[actionType]
	if !ok {
		return nil
	}

	now := time.Now()
	res, err := l.store.Consume(ctx, walletAddress, actionType, cfg.MaxRequests, cfg.Window, now)
	if err != nil {
		l.log.Error("rate limit store error, allowing request",
			zap.String("wallet", walletAddress),
			zap.String("action", actionType),
			zap.Error(err),
		)
		return nil
	}
	if res.Allowed {
		return nil
	}
	return reject(cfg.MaxRequests, res.WindowEnd, now)
}

// CheckIP — анонимный путь, ключ "action:ip".
func (l *Limiter) CheckIP(ip, actionType string) *Rejection {
	cfg, ok := Actions[actionType]
	if !ok {
		return nil
	}

	now := time.Now()
	allowed, _, resetTime := l.anon.Consume(actionType+":"+ip, cfg.AnonymousMaxRequests, cfg.Window, now)
	if allowed {
		return nil
	}
	return reject(cfg.AnonymousMaxRequests, resetTime, now)
}

func reject(limit int, windowEnd, now time.Time) *Rejection {
	retryAfter := int(math.Ceil(windowEnd.Sub(now).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &Rejection{RetryAfter: retryAfter, Limit: limit, WindowEnd: windowEnd}
}
