package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do rate limit para fins de observação.
//
// Cuidado com cardinalidade: gravar Identity.Value sem controle pode explodir
// o número de chaves na base (por isso o rastreio por chave é opcional nas
// implementações).
type StatsEvent struct {
	Key      Key
	Endpoint string
	Allowed  bool
	Degraded bool

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de decisão.
//
// O middleware trata erro como best-effort: estatística nunca derruba request.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
