package domain

import "context"

// SlotPool limita quantas requisições o servidor atende ao mesmo tempo.
// Acquire bloqueia até haver vaga ou o ctx encerrar; release devolve a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

// SlotGauge é implementado por pools que expõem a ocupação atual.
type SlotGauge interface {
	InUse() int
	Cap() int
}
