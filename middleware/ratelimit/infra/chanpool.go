package infra

import (
	"context"

	"bff-gateway/middleware/ratelimit/domain"
)

// chanPool implementa domain.SlotPool com um channel bufferizado como
// semáforo: mandar ocupa uma vaga, receber devolve.
type chanPool struct {
	slots chan struct{}
}

// NewChanPool cria um pool com `max` vagas simultâneas.
func NewChanPool(max int) domain.SlotPool {
	return &chanPool{slots: make(chan struct{}, max)}
}

// Acquire bloqueia até conseguir uma vaga ou o contexto encerrar.
// A função de release devolvida deve ser chamada exatamente uma vez.
func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, true
	case <-ctx.Done():
		return nil, false
	}
}
