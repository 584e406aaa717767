package domain

import (
	"context"
	"time"
)

// Surface separa os espaços de principal do gateway. O namespace entra na
// chave de cache para que um token de admin e um de cliente nunca colidam.
//
// A superfície é sempre um parâmetro explícito do wiring, nunca inferida de
// prefixo de rota ou flag de runtime.
type Surface string

const (
	SurfaceCustomer Surface = "customer"
	SurfaceAdmin    Surface = "admin"
)

// Principal é o dono autenticado de um token, como o core o descreve.
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenCache guarda principals por hash de token, com TTL curto.
//
// Todas as operações são um único round trip atômico do lado da store;
// o chamador nunca faz read-modify-write.
type TokenCache interface {
	// Get devolve (valor, true, nil) em hit e (nil, false, nil) em miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// IdentityClient resolve um token no principal dono dele, consultando a
// fonte da verdade (o core service).
type IdentityClient interface {
	Identity(ctx context.Context, token string) (Principal, error)
}

type ctxKey struct{}

// WithPrincipal devolve um contexto carregando o principal autenticado.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext devolve o principal autenticado da requisição, se houver.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
