package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultSweepInterval — период фоновой уборки анонимных счётчиков.
	DefaultSweepInterval = 5 * time.Minute

	// DefaultStaleAfter — сколько держим запись после конца её окна.
	DefaultStaleAfter = time.Hour
)

type anonEntry struct {
	Count     int
	ResetTime time.Time
}

// MemoryLimiter — анонимные счётчики по IP. Живут только в памяти
// процесса: рестарт обнуляет их, для неавторизованного трафика это
// принятая слабая гарантия. Явно конструируется и останавливается,
// чтобы тесты могли поднимать свой экземпляр.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*anonEntry

	sweepInterval time.Duration
	staleAfter    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries:       make(map[string]*anonEntry),
		sweepInterval: DefaultSweepInterval,
		staleAfter:    DefaultStaleAfter,
	}
}

// Consume тратит единицу квоты по ключу (обычно "action:ip").
func (m *MemoryLimiter) Consume(key string, max int, window time.Duration, now time.Time) (allowed bool, count int, resetTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || now.After(e.ResetTime) {
		e = &anonEntry{Count: 1, ResetTime: now.Add(window)}
		m.entries[key] = e
		return true, 1, e.ResetTime
	}

	if e.Count+1 > max {
		return false, e.Count, e.ResetTime
	}

	e.Count++
	return true, e.Count, e.ResetTime
}

// Start запускает фоновую уборку. Повторный Start — no-op.
func (m *MemoryLimiter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func(stopCh, doneCh chan struct{}) {
		defer close(doneCh)
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep(time.Now())
			case <-stopCh:
				return
			}
		}
	}(m.stopCh, m.doneCh)
}

// Stop останавливает уборку и дожидается выхода горутины.
func (m *MemoryLimiter) Stop() {
	m.mu.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// sweep выбрасывает записи, чьё окно закончилось больше staleAfter назад.
func (m *MemoryLimiter) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if now.Sub(e.ResetTime) > m.staleAfter {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
