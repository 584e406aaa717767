// Package correlation gera/propaga o id de correlação de cada requisição.
//
// O id junta os logs do gateway com os do core para uma mesma operação
// lógica: o browser pode mandar o header, e quando não manda o gateway gera
// um. O id vai no contexto, na resposta e em toda chamada ao core.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header é o nome do header de correlação, igual nos dois sentidos.
const Header = "X-Correlation-Id"

type ctxKey struct{}

// Middleware garante que toda requisição carrega um id de correlação.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID devolve um contexto carregando o id de correlação.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext devolve o id de correlação, ou vazio se não houver.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}

// FromRequest devolve o id da requisição: contexto primeiro, header depois.
func FromRequest(r *http.Request) string {
	if id := FromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(Header)
}
