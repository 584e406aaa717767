package infra

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bff-gateway/middleware/ratelimit/domain"
)

// LocalStore é um token bucket por chave (x/time/rate) com cache e limpeza
// periódica. É o modo de limite para instância única, onde não há redis.
//
// A taxa é derivada do par limite/janela: rps = limite/janela, burst = limite.
type LocalStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*localEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type LocalStoreOption func(*LocalStore)

func WithIdleTTL(d time.Duration) LocalStoreOption {
	return func(s *LocalStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) LocalStoreOption {
	return func(s *LocalStore) { s.cleanupEvery = d }
}

func NewLocalStore(limit int64, window time.Duration, opts ...LocalStoreOption) *LocalStore {
	s := &LocalStore{
		entries:      make(map[domain.Key]*localEntry),
		rps:          rate.Limit(float64(limit) / window.Seconds()),
		burst:        int(limit),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implementa domain.LimiterStore. O *rate.Limiter devolvido também
// satisfaz domain.TokenCounter (método Tokens), usado nos headers.
func (s *LocalStore) Get(key domain.Key) domain.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &localEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *LocalStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *LocalStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
