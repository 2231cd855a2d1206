package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/goongpt/backend/internal/models"
)

// FileStore — локальный файловый бэкенд для разработки без Postgres/Redis.
// Реализует UserStore, SessionStore, RateLimitStore и AuditStore поверх
// одного JSON-файла. Все мутации сериализуются одним мьютексом, поэтому
// read-then-write проверки уникальности здесь безопасны в рамках процесса.
type FileStore struct {
	mu   sync.Mutex
	path string
	data fileData
}

type fileData struct {
	Users    []*models.User                      `json:"users"`
	Sessions map[string]*models.Session          `json:"sessions"` // token -> session
	Windows  map[string]*models.RateLimitWindow  `json:"windows"`  // wallet|action -> window
	Audit    []models.AuditEvent                 `json:"audit"`
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: fileData{
			Sessions: make(map[string]*models.Session),
			Windows:  make(map[string]*models.RateLimitWindow),
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("corrupt store file %s: %w", path, err)
	}
	if s.data.Sessions == nil {
		s.data.Sessions = make(map[string]*models.Session)
	}
	if s.data.Windows == nil {
		s.data.Windows = make(map[string]*models.RateLimitWindow)
	}
	return s, nil
}

// save пишет снапшот на диск. Вызывающий держит mu.
func (s *FileStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// --- UserStore ---

func (s *FileStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if existing.WalletAddress == u.WalletAddress || existing.Username == u.Username {
			return ErrConflict
		}
	}

	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.data.Users = append(s.data.Users, u)
	return s.save()
}

func (s *FileStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.Users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) GetByWallet(_ context.Context, walletAddress string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.Users {
		if u.WalletAddress == walletAddress {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) UpdateProfile(_ context.Context, id uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.User
	for _, u := range s.data.Users {
		if u.ID == id {
			target = u
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	if upd.Username != nil && *upd.Username != target.Username {
		for _, u := range s.data.Users {
			if u.ID != id && u.Username == *upd.Username {
				return nil, ErrConflict
			}
		}
		target.Username = *upd.Username
	}
	if upd.Email != nil {
		target.Email = upd.Email
	}
	if upd.ProfilePicture != nil {
		target.ProfilePicture = upd.ProfilePicture
	}
	target.UpdatedAt = time.Now()

	if err := s.save(); err != nil {
		return nil, err
	}
	cp := *target
	return &cp, nil
}

func (s *FileStore) EarnTokens(_ context.Context, id uuid.UUID, amount int64, day string, dailyCap int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.User
	for _, u := range s.data.Users {
		if u.ID == id {
			target = u
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	daily := target.DailyTokensEarned
	if target.LastTokenEarnDate == nil || *target.LastTokenEarnDate != day {
		daily = 0
	}
	if daily+amount > dailyCap {
		return nil, ErrDailyCapReached
	}

	target.DailyTokensEarned = daily + amount
	target.TokenBalance += amount
	target.TotalTokensEarned += amount
	target.LastTokenEarnDate = &day
	target.UpdatedAt = time.Now()

	if err := s.save(); err != nil {
		return nil, err
	}
	cp := *target
	return &cp, nil
}

// --- SessionStore ---

// Sessions возвращает SessionStore-представление файлового бэкенда.
// Отдельный тип нужен только из-за коллизии имени Create с UserStore.
func (s *FileStore) Sessions() SessionStore {
	return fileSessionStore{s}
}

type fileSessionStore struct {
	fs *FileStore
}

func (f fileSessionStore) Create(ctx context.Context, sess *models.Session) error {
	return f.fs.createSession(ctx, sess)
}

func (f fileSessionStore) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return f.fs.getSessionByToken(ctx, token)
}

func (f fileSessionStore) DeleteByToken(ctx context.Context, token string) error {
	return f.fs.deleteSessionByToken(ctx, token)
}

func (s *FileStore) createSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.ID = uuid.New()
	sess.CreatedAt = time.Now()
	s.data.Sessions[sess.Token] = sess
	return s.save()
}

func (s *FileStore) getSessionByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data.Sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *FileStore) deleteSessionByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Sessions[token]; !ok {
		return nil
	}
	delete(s.data.Sessions, token)
	return s.save()
}

// --- RateLimitStore ---

func (s *FileStore) Consume(_ context.Context, walletAddress, actionType string, max int, window time.Duration, now time.Time) (*ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletAddress + "|" + actionType
	w, ok := s.data.Windows[key]
	if !ok || !w.WindowEnd.After(now) {
		// Нет окна или протухло — новое окно, счётчик с единицы.
		w = &models.RateLimitWindow{
			WalletAddress: walletAddress,
			ActionType:    actionType,
			RequestCount:  1,
			WindowStart:   now,
			WindowEnd:     now.Add(window),
		}
		s.data.Windows[key] = w
		if err := s.save(); err != nil {
			return nil, err
		}
		return &ConsumeResult{Allowed: true, Count: 1, WindowEnd: w.WindowEnd}, nil
	}

	if w.RequestCount >= max {
		return &ConsumeResult{Allowed: false, Count: w.RequestCount, WindowEnd: w.WindowEnd}, nil
	}

	w.RequestCount++
	if err := s.save(); err != nil {
		return nil, err
	}
	return &ConsumeResult{Allowed: true, Count: w.RequestCount, WindowEnd: w.WindowEnd}, nil
}

// --- AuditStore ---

func (s *FileStore) Record(_ context.Context, e models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	s.data.Audit = append(s.data.Audit, e)
	return s.save()
}
