package auth

import (
	"net/http"

	"bff-gateway/envelope"
	"bff-gateway/middleware/auth/application"
	"bff-gateway/middleware/auth/domain"
	"bff-gateway/upstream"
)

type Options struct {
	Verifier application.Verifier

	// Optional permite requisição anônima: sem token o handler segue sem
	// principal no contexto. Token presente mas inválido ainda é 401:
	// token errado nunca passa batido.
	Optional bool
}

// Middleware autentica a requisição e injeta o principal no contexto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := upstream.BearerToken(r)
			if token == "" && opts.Optional {
				next.ServeHTTP(w, r)
				return
			}

			p, err := opts.Verifier.Verify(r.Context(), token)
			if err != nil {
				envelope.Write(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), p)))
		})
	}
}

// FromContext reexporta a leitura do principal para os chamadores do
// middleware não precisarem importar o pacote domain.
func FromContext(r *http.Request) (domain.Principal, bool) {
	return domain.FromContext(r.Context())
}
