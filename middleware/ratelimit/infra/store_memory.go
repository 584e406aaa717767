package infra

import (
	"context"
	"sync"
	"time"

	"bff-gateway/middleware/ratelimit/domain"
)

// MemoryCounterStore é uma janela fixa em memória com a mesma semântica do
// contador redis (expiração definida no primeiro hit da janela).
//
// Útil para testes e desenvolvimento; não compartilha estado entre instâncias
// e não é indicada para produção.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*windowEntry

	cleanupEvery time.Duration
}

type windowEntry struct {
	count     int64
	expiresAt time.Time
}

type MemoryCounterOption func(*MemoryCounterStore)

func WithMemoryCleanupEvery(d time.Duration) MemoryCounterOption {
	return func(s *MemoryCounterStore) { s.cleanupEvery = d }
}

func NewMemoryCounterStore(opts ...MemoryCounterOption) *MemoryCounterStore {
	s := &MemoryCounterStore{
		entries:      make(map[domain.Key]*windowEntry),
		cleanupEvery: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implementa domain.CounterStore.
func (s *MemoryCounterStore) Incr(_ context.Context, key domain.Key, window time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok && now.Before(ent.expiresAt) {
		ent.count++
		return ent.count, nil
	}

	// janela nova: contagem volta a 1 e a expiração é fixada agora
	s.entries[key] = &windowEntry{count: 1, expiresAt: now.Add(window)}
	return 1, nil
}

func (s *MemoryCounterStore) Cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove janelas expiradas
// periodicamente. Pare cancelando o contexto.
func (s *MemoryCounterStore) StartJanitor(ctx DoneContext) {
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

// DoneContext é o mínimo necessário para aceitar context.Context sem acoplar
// a assinatura dos janitors ao pacote context.
type DoneContext interface {
	Done() <-chan struct{}
}
