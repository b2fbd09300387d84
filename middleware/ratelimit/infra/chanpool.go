package infra

import (
	"context"

	"soundboard-gateway/middleware/ratelimit/domain"
)

// ChanPool limita quantas requisições o servidor atende ao mesmo tempo.
type ChanPool struct {
	sem chan struct{}
}

var (
	_ domain.SlotPool  = (*ChanPool)(nil)
	_ domain.SlotGauge = (*ChanPool)(nil)
)

// NewChanPool cria um pool baseado em channel com capacidade `max` (mínimo 1).
func NewChanPool(max int) *ChanPool {
	if max < 1 {
		max = 1
	}
	return &ChanPool{sem: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse devolve quantas vagas estão ocupadas agora.
func (p *ChanPool) InUse() int { return len(p.sem) }

func (p *ChanPool) Cap() int { return cap(p.sem) }
