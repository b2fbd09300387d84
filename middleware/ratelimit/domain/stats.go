package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Method/Path são strings genéricas; Used/Limit espelham a Decision.
//
// Observação: cuidado com cardinalidade ao persistir Key (um IP por dispositivo
// na rede local é aceitável, mas não em redes grandes).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Used    int
	Limit   int

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// O middleware trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
