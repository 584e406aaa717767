package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"bff-gateway/envelope"
	"bff-gateway/middleware/ratelimit/domain"
)

// Decider é o caso de uso que o middleware consulta por requisição.
// Implementado por application.FixedWindowService (redis) e
// application.LocalService (token bucket em memória).
type Decider interface {
	Decide(ctx context.Context, id domain.Identity, endpoint string) domain.Decision
}

type Options struct {
	// Limiter decide allow/deny. Obrigatório (nil = middleware vira no-op).
	Limiter Decider

	// Endpoint é o nome lógico da rota na chave do limite (ex: "login").
	Endpoint string

	// Identity extrai quem está sendo limitado. Default: ByIP("", false).
	Identity IdentityFunc

	// Stats recebe cada decisão, best-effort.
	Stats domain.StatsStore

	Log logrus.FieldLogger
}

// Middleware aplica o rate limit por identidade+endpoint.
//
// Os headers X-RateLimit-* são escritos em TODA resposta da rota, permitida
// ou não, para o cliente web poder se auto-regular antes do 429.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Identity == nil {
		opts.Identity = ByIP("", false)
	}

	return func(next http.Handler) http.Handler {
		if opts.Limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := opts.Identity(r)
			dec := opts.Limiter.Decide(r.Context(), id, opts.Endpoint)

			w.Header().Set("X-RateLimit-Limit", formatInt64(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", formatInt64(dec.Remaining))
			if !dec.ResetAt.IsZero() {
				w.Header().Set("X-RateLimit-Reset", formatInt64(dec.ResetAt.Unix()))
			}

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:      domain.KeyFor(id, opts.Endpoint),
					Endpoint: opts.Endpoint,
					Allowed:  dec.Allowed,
					Degraded: dec.Degraded,
					At:       time.Now(),
				})
			}

			if !dec.Allowed {
				if opts.Log != nil {
					opts.Log.WithFields(logrus.Fields{
						"endpoint": opts.Endpoint,
						"type":     string(id.Type),
					}).Info("rate limit exceeded")
				}
				retryAfter := int(dec.RetryAfter.Seconds())
				w.Header().Set("Retry-After", formatInt(retryAfter))
				envelope.Write(w, envelope.RateLimited(retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
