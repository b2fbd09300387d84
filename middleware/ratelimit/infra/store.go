package infra

import (
	"context"
	"strings"
	"sync"
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// Store guarda um token-bucket (x/time/rate) por host remoto.
//
// É o freio de saída das buscas de página em /play-url: a cota por cliente
// limita quem chama o servidor; este Store limita o quanto o servidor chama
// cada site externo. Hosts ociosos são descartados pelo janitor.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*storeEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

var _ domain.LimiterStore = (*Store)(nil)

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*Store)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

// NewStore cria o Store. rps <= 0 desliga o freio (rate.Inf).
func NewStore(rps float64, burst int, opts ...StoreOption) *Store {
	lim := rate.Limit(rps)
	if rps <= 0 {
		lim = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	s := &Store{
		entries:      make(map[string]*storeEntry),
		rps:          lim,
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) RPS() float64                { return float64(s.rps) }
func (s *Store) Burst() int                  { return s.burst }
func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }

// Get implementa domain.LimiterStore.
func (s *Store) Get(key domain.Key) domain.Limiter {
	return s.Limiter(string(key))
}

// Limiter devolve o bucket do host (comparação sem diferenciar maiúsculas).
func (s *Store) Limiter(host string) *rate.Limiter {
	host = strings.ToLower(host)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[host]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[host] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

// Wait bloqueia até o host ter um token ou o ctx encerrar.
func (s *Store) Wait(ctx context.Context, host string) error {
	return s.Limiter(host).Wait(ctx)
}

// Len devolve quantos hosts estão em cache.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa hosts inativos periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context nos janitors.
type DoneContext interface {
	Done() <-chan struct{}
}
