package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore хранит одноразовые challenge-nonce (защита от replay).
// Nonce регистрируется при выдаче challenge и сгорает при первом логине.
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume атомарно проверяет и удаляет nonce. false — nonce
	// неизвестен, протух или уже использован.
	Consume(ctx context.Context, nonce string) (bool, error)
}

func GenerateNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// --- Redis (hosted mode) ---

type RedisNonceStore struct {
	rdb *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{rdb: rdb}
}

func (s *RedisNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return s.rdb.Set(ctx, "challenge:"+nonce, "1", ttl).Err()
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	err := s.rdb.GetDel(ctx, "challenge:"+nonce).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- In-memory (file-storage mode, один процесс) ---

type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time // nonce -> expiry
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{nonces: make(map[string]time.Time)}
}

func (s *MemoryNonceStore) Put(_ context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[nonce] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryNonceStore) Consume(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.nonces[nonce]
	if !ok {
		return false, nil
	}
	delete(s.nonces, nonce)
	if time.Now().After(expiry) {
		return false, nil
	}
	return true, nil
}
