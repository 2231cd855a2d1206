package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/goongpt/backend/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict — нарушение уникальности wallet_address или username.
	ErrConflict        = errors.New("already exists")
	ErrDailyCapReached = errors.New("daily token cap reached")
)

// ProfileUpdate — частичное обновление профиля. nil-поля не трогаются.
type ProfileUpdate struct {
	Username       *string
	Email          *string
	ProfilePicture *string
}

type UserStore interface {
	// Create возвращает ErrConflict, если wallet_address или username заняты.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.User, error)
	// EarnTokens атомарно начисляет токены с дневным потолком.
	// day — календарная дата "YYYY-MM-DD"; смена дня обнуляет дневной счётчик.
	EarnTokens(ctx context.Context, id uuid.UUID, amount int64, day string, dailyCap int64) (*models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	// GetByToken возвращает ErrNotFound для неизвестного токена.
	// Проверка expires_at — забота вызывающего (lazy expiry).
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// ConsumeResult — исход одной попытки потратить квоту.
type ConsumeResult struct {
	Allowed   bool
	Count     int
	WindowEnd time.Time
}

type RateLimitStore interface {
	// Consume атомарно инкрементирует счётчик окна (wallet, action),
	// не давая ему перешагнуть max. Протухшее окно заменяется новым
	// со счётчиком 1.
	Consume(ctx context.Context, walletAddress, actionType string, max int, window time.Duration, now time.Time) (*ConsumeResult, error)
}

type AuditStore interface {
	Record(ctx context.Context, e models.AuditEvent) error
}
