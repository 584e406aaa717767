package ratelimit

import (
	"net/http"
	"time"

	"bff-gateway/envelope"
	"bff-gateway/middleware/ratelimit/application"
	"bff-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita quantas requisições atravessam o gateway ao
// mesmo tempo. Sem vaga dentro do timeout, responde 503 BFF_OVERLOADED no
// envelope padrão: condição local, distinta de BFF_CORE_API_UNAVAILABLE.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				envelope.Write(w, envelope.New(http.StatusServiceUnavailable, envelope.CodeOverloaded, "too many concurrent requests"))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
