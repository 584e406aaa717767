package auth

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"bff-gateway/middleware/auth/application"
	"bff-gateway/upstream"
)

// InvalidateOnLogout apaga a entrada de cache do token ANTES de repassar o
// logout para o core.
//
// A ordem importa: se a invalidação acontecesse depois da resposta, uma
// repetição da mesma requisição poderia ler do cache um "ainda autenticado"
// de um token já revogado.
//
// Falha na invalidação não aborta o logout: com a store fora, as próximas
// leituras do cache também falham e degradam para miss, então o token não
// volta a ser servido de lá de qualquer forma. O erro vai para o log.
func InvalidateOnLogout(v application.Verifier, log logrus.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := upstream.BearerToken(r); token != "" {
				if err := v.Invalidate(r.Context(), token); err != nil && log != nil {
					log.WithError(err).Warn("failed to invalidate token cache on logout")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
