package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/goongpt/backend/internal/auth"
	"github.com/goongpt/backend/internal/config"
	"github.com/goongpt/backend/internal/models"
	"github.com/goongpt/backend/internal/repositories"
	"github.com/goongpt/backend/internal/solana"
	"go.uber.org/zap"
)

// ErrAuthFailed — любой провал аутентификации (подпись, challenge, nonce).
// Наружу всегда уходит 401 без деталей.
var ErrAuthFailed = errors.New("authentication failed")

type AuthService struct {
	users    repositories.UserStore
	sessions repositories.SessionStore
	nonces   auth.NonceStore
	audit    repositories.AuditStore
	cfg      *config.Config
	log      *zap.Logger
}

func NewAuthService(
	users repositories.UserStore,
	sessions repositories.SessionStore,
	nonces auth.NonceStore,
	audit repositories.AuditStore,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		nonces:   nonces,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

// Challenge выдаёт challenge-сообщение для подписи кошельком плюс
// challenge-токен, привязывающий nonce к кошельку.
func (s *AuthService) Challenge(ctx context.Context, walletAddress string) (message, challengeToken string, err error) {
	if _, err := solana.DecodeAddress(walletAddress); err != nil {
		return "", "", fmt.Errorf("invalid wallet address: %w", err)
	}

	nonce := auth.GenerateNonce()
	if err := s.nonces.Put(ctx, nonce, s.cfg.ChallengeTTL); err != nil {
		return "", "", fmt.Errorf("failed to store challenge nonce: %w", err)
	}

	message = solana.BuildChallenge(walletAddress, time.Now(), nonce)
	challengeToken, err = auth.GenerateChallengeToken(s.cfg.ChallengeSecret, walletAddress, nonce, s.cfg.ChallengeTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign challenge token: %w", err)
	}
	return message, challengeToken, nil
}

// AuthResult — исход аутентификации. NeedsRegistration значит подпись
// валидна, но юзера с таким кошельком ещё нет — сессия не выдаётся,
// регистрация отдельная операция.
type AuthResult struct {
	NeedsRegistration bool
	User              *models.User
	Session           *models.Session
}

// Authenticate — проверка подписи → поиск юзера → выпуск сессии.
// Любой провал проверки возвращается как ErrAuthFailed без побочных
// эффектов; ошибки стора юзеров/сессий — fail closed.
func (s *AuthService) Authenticate(ctx context.Context, walletAddress, signedMessage, message, challengeToken, ip string) (*AuthResult, error) {
	ch, err := solana.ParseChallenge(message)
	if err != nil {
		s.log.Debug("challenge parse failed", zap.Error(err))
		return nil, ErrAuthFailed
	}
	if err := ch.Validate(walletAddress, time.Now()); err != nil {
		s.log.Debug("challenge validation failed", zap.Error(err))
		return nil, ErrAuthFailed
	}

	// Challenge-токен должен ссылаться на тот же кошелёк и nonce.
	claims, err := auth.ParseChallengeToken(s.cfg.ChallengeSecret, challengeToken)
	if err != nil || claims.WalletAddress != walletAddress || claims.Nonce != ch.Nonce {
		s.log.Debug("challenge token check failed", zap.Error(err))
		return nil, ErrAuthFailed
	}

	if err := solana.VerifySignature(walletAddress, []byte(message), signedMessage); err != nil {
		s.log.Debug("signature verification failed", zap.Error(err))
		return nil, ErrAuthFailed
	}

	// Nonce сгорает только после валидной подписи.
	ok, err := s.nonces.Consume(ctx, ch.Nonce)
	if err != nil {
		return nil, fmt.Errorf("nonce store error: %w", err)
	}
	if !ok {
		s.log.Debug("challenge nonce replayed or expired", zap.String("wallet", walletAddress))
		return nil, ErrAuthFailed
	}

	user, err := s.users.GetByWallet(ctx, walletAddress)
	if errors.Is(err, repositories.ErrNotFound) {
		return &AuthResult{NeedsRegistration: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	session, err := s.MintSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, models.AuditLogin, &user.ID, &walletAddress, ip, nil)
	return &AuthResult{User: user, Session: session}, nil
}

// MintSession выпускает новую сессию: 32 случайных байта, 7 дней жизни.
func (s *AuthService) MintSession(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(auth.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

// ValidateSession — lazy expiry: протухшая сессия удаляется при первом
// чтении. (nil, nil, nil) означает "не аутентифицирован" без ошибки.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.Session, *models.User, error) {
	if token == "" {
		return nil, nil, nil
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if !session.Valid(time.Now()) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			s.log.Warn("failed to purge expired session", zap.Error(err))
		}
		return nil, nil, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Register создаёт юзера (уникальность кошелька и username — на сторе)
// и сразу выпускает сессию, как при логине.
func (s *AuthService) Register(ctx context.Context, u *models.User, ip string) (*models.Session, error) {
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	session, err := s.MintSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, models.AuditRegister, &u.ID, &u.WalletAddress, ip, nil)
	return session, nil
}

// Logout идемпотентен: ошибки стора логируются, клиенту всегда успех.
func (s *AuthService) Logout(ctx context.Context, token, ip string) {
	if token == "" {
		return
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		s.log.Warn("failed to delete session on logout", zap.Error(err))
	}
	s.recordAudit(ctx, models.AuditLogout, nil, nil, ip, nil)
}

func (s *AuthService) recordAudit(ctx context.Context, action string, userID *uuid.UUID, wallet *string, ip string, meta any) {
	e := models.AuditEvent{UserID: userID, WalletAddress: wallet, Action: action, IP: ip, Meta: meta}
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.Warn("failed to record audit event", zap.String("action", action), zap.Error(err))
	}
}
