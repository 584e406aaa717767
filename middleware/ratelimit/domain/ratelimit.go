package domain

import (
	"context"
	"time"
)

// IdentifierType distingue o tipo de identidade usado na chave do limite.
// Endpoints anônimos (login, cadastro) limitam por IP; endpoints autenticados
// limitam por usuário.
type IdentifierType string

const (
	IdentifierIP   IdentifierType = "ip"
	IdentifierUser IdentifierType = "user"
)

// Identity é quem está sendo limitado.
type Identity struct {
	Type  IdentifierType
	Value string
}

type Key string

// KeyFor monta a chave composta "<tipo>:<valor>:<endpoint>".
// O endpoint entra na chave para que limites de rotas diferentes não se
// misturem para o mesmo chamador.
func KeyFor(id Identity, endpoint string) Key {
	return Key(string(id.Type) + ":" + id.Value + ":" + endpoint)
}

// CounterStore incrementa o contador de janela fixa de uma chave.
//
// Contrato: o incremento e a expiração são UMA operação atômica do lado da
// store: a expiração só é definida quando o valor pós-incremento é 1
// (primeiro hit de uma janela nova). O chamador nunca faz read-modify-write.
type CounterStore interface {
	Incr(ctx context.Context, key Key, window time.Duration) (int64, error)
}

// Limiter representa algo que pode decidir se uma ação é permitida agora.
// Usado no modo local (instância única), onde um token bucket substitui o
// contador distribuído.
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter local por chave.
type LimiterStore interface {
	Get(Key) Limiter
}

// TokenCounter é opcional em um Limiter local: expõe quantos tokens restam
// para preencher os headers X-RateLimit-*.
type TokenCounter interface {
	Tokens() float64
}

// Decision é o resultado de uma checagem de limite.
//
// Degraded=true significa que a store estava indisponível e o gateway
// decidiu permitir (fail open): uma queda do redis não pode virar negação
// de serviço contra tráfego legítimo.
type Decision struct {
	Allowed  bool
	Degraded bool

	Limit     int64
	Remaining int64
	ResetAt   time.Time

	// RetryAfter é a dica devolvida ao chamador quando bloqueado
	// (igual ao tamanho da janela).
	RetryAfter time.Duration
}
