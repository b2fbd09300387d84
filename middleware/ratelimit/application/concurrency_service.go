package application

import (
	"context"
	"sync"
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
)

// ConcurrencyService decide se uma requisição ganha vaga de atendimento.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire espera por uma vaga. AcquireTimeout <= 0 espera até o ctx encerrar.
// O release devolvido pode ser chamado mais de uma vez; só a primeira conta.
func (s ConcurrencyService) Acquire(ctx context.Context) (release func(), ok bool) {
	if s.Pool == nil {
		return func() {}, true
	}
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	rel, ok := s.Pool.Acquire(ctx)
	if !ok {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(rel) }, true
}

// Load devolve a ocupação do pool, quando ele a expõe (domain.SlotGauge).
func (s ConcurrencyService) Load() (inUse, capacity int, ok bool) {
	g, ok := s.Pool.(domain.SlotGauge)
	if !ok {
		return 0, 0, false
	}
	return g.InUse(), g.Cap(), true
}
