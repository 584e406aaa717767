package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"bff-gateway/middleware/ratelimit/domain"
)

// FixedWindowService aplica a regra de janela fixa sobre um contador
// distribuído (redis em produção).
//
// O incremento acontece ANTES da checagem e também conta requisições que
// serão rejeitadas. Comportamento intencional para proteção contra abuso:
// martelar um endpoint bloqueado não zera a janela.
type FixedWindowService struct {
	Store  domain.CounterStore
	Limit  int64
	Window time.Duration
	Log    logrus.FieldLogger
}

// Decide incrementa o contador da chave e decide allow/deny.
//
// Falha da store NÃO bloqueia a requisição: a decisão sai Allowed com
// Degraded=true e o erro vai para o log. Contagem exatamente igual ao limite
// ainda passa; só count > limit rejeita.
func (s FixedWindowService) Decide(ctx context.Context, id domain.Identity, endpoint string) domain.Decision {
	if s.Store == nil || s.Limit <= 0 {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}
	}

	key := domain.KeyFor(id, endpoint)
	count, err := s.Store.Incr(ctx, key, s.Window)
	if err != nil {
		if s.Log != nil {
			s.Log.WithFields(logrus.Fields{
				"key":      string(key),
				"endpoint": endpoint,
			}).WithError(err).Warn("rate limit store unavailable, failing open")
		}
		return domain.Decision{
			Allowed:   true,
			Degraded:  true,
			Limit:     s.Limit,
			Remaining: s.Limit,
			ResetAt:   time.Now().Add(s.Window),
		}
	}

	remaining := s.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	dec := domain.Decision{
		Allowed:   count <= s.Limit,
		Limit:     s.Limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(s.Window),
	}
	if !dec.Allowed {
		dec.RetryAfter = s.Window
	}
	return dec
}

// LocalService aplica o limite com um token bucket em memória.
//
// Serve para instância única (sem redis). A aproximação: rps = limite/janela
// e burst = limite, então o comportamento converge para a mesma taxa média
// da janela fixa distribuída.
type LocalService struct {
	Store  domain.LimiterStore
	Limit  int64
	Window time.Duration
}

func (s LocalService) Decide(_ context.Context, id domain.Identity, endpoint string) domain.Decision {
	if s.Store == nil || s.Limit <= 0 {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}
	}

	key := domain.KeyFor(id, endpoint)
	lim := s.Store.Get(key)
	if lim == nil {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}
	}

	dec := domain.Decision{
		Limit:   s.Limit,
		ResetAt: time.Now().Add(s.Window),
	}
	dec.Allowed = lim.Allow()
	if tc, ok := lim.(domain.TokenCounter); ok {
		if tokens := int64(tc.Tokens()); tokens > 0 {
			dec.Remaining = tokens
		}
	}
	if !dec.Allowed {
		dec.RetryAfter = s.Window
	}
	return dec
}
