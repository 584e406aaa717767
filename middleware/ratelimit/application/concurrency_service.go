package application

import (
	"context"
	"time"

	"bff-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService decide se uma requisição pode ocupar uma vaga de
// execução no gateway. Não sabe nada sobre HTTP; o adapter traduz a recusa
// em resposta.
type ConcurrencyService struct {
	Pool domain.SlotPool

	// AcquireTimeout limita a espera por vaga. Zero ou negativo espera
	// até o contexto da requisição cancelar.
	AcquireTimeout time.Duration
}

// Acquire tenta ocupar uma vaga e devolve (release, ok). Com ok=false
// nenhuma vaga foi ocupada e release não deve ser chamada.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}
	return s.Pool.Acquire(ctx)
}
