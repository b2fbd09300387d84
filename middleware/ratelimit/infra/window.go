package infra

import (
	"sort"
	"sync"
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
	"soundboard-gateway/observe"
)

// WindowStore implementa a cota por cliente em janela deslizante.
//
// Cada cliente guarda a sequência (crescente) dos instantes admitidos.
// A expiração é preguiçosa: toda consulta descarta o que saiu da janela.
// Tabela e toggle ficam sob o mesmo mutex; observadores rodam fora dele.
type WindowStore struct {
	mu      sync.Mutex
	policy  domain.Policy
	enabled bool
	entries map[domain.Key][]time.Time

	now        func() time.Time
	sweepEvery time.Duration

	changes observe.Hub[domain.QuotaChange]
}

type WindowOption func(*WindowStore)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) WindowOption {
	return func(s *WindowStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEnabled define o estado inicial do toggle (padrão: ligado).
func WithEnabled(enabled bool) WindowOption {
	return func(s *WindowStore) { s.enabled = enabled }
}

// WithSweepEvery liga a varredura periódica de clientes ociosos.
// Zero (padrão) mantém apenas a expiração preguiçosa.
func WithSweepEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.sweepEvery = d }
}

func NewWindowStore(p domain.Policy, opts ...WindowOption) *WindowStore {
	if p.MaxRequests <= 0 || p.Window <= 0 {
		p = domain.DefaultPolicy
	}
	s := &WindowStore{
		policy:  p,
		enabled: true,
		entries: make(map[domain.Key][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WindowStore) Policy() domain.Policy { return s.policy }

// CheckAndRecord implementa domain.QuotaStore.
func (s *WindowStore) CheckAndRecord(key domain.Key) domain.Decision {
	s.mu.Lock()
	now := s.now()
	if !s.enabled {
		s.mu.Unlock()
		return domain.Decision{Allowed: true, Used: 0, Limit: s.policy.MaxRequests}
	}

	ts := evictUntil(s.entries[key], now.Add(-s.policy.Window))
	if len(ts) >= s.policy.MaxRequests {
		s.entries[key] = ts
		retry := retryAfter(ts[0].Add(s.policy.Window).Sub(now))
		dec := domain.Decision{
			Allowed:    false,
			Used:       len(ts),
			Limit:      s.policy.MaxRequests,
			RetryAfter: retry,
		}
		s.mu.Unlock()
		return dec
	}

	ts = append(ts, now)
	s.entries[key] = ts
	dec := domain.Decision{Allowed: true, Used: len(ts), Limit: s.policy.MaxRequests}
	s.mu.Unlock()

	s.changes.Publish(domain.QuotaChange{
		Key:     key,
		Used:    dec.Used,
		Limit:   dec.Limit,
		Enabled: true,
		At:      now,
	})
	return dec
}

// Snapshot devolve as cotas vivas, ordenadas por chave.
// Clientes sem nenhum instante na janela são removidos da tabela.
func (s *WindowStore) Snapshot() []domain.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	out := make([]domain.Quota, 0, len(s.entries))
	for k, ts := range s.entries {
		out = append(out, domain.Quota{Key: k, Used: len(ts), Limit: s.policy.MaxRequests})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Sweep executa a mesma expiração do Snapshot, sem montar a resposta.
func (s *WindowStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *WindowStore) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.policy.Window)
	for k, ts := range s.entries {
		ts = evictUntil(ts, cutoff)
		if len(ts) == 0 {
			delete(s.entries, k)
			continue
		}
		s.entries[k] = ts
	}
}

func (s *WindowStore) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetEnabled liga/desliga a cota. Os instantes já registrados são mantidos:
// ao religar, a janela volta a valer com o histórico intacto.
func (s *WindowStore) SetEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.enabled != enabled
	s.enabled = enabled
	now := s.now()
	s.mu.Unlock()

	if changed {
		s.changes.Publish(domain.QuotaChange{
			Limit:   s.policy.MaxRequests,
			Enabled: enabled,
			At:      now,
		})
	}
}

// Subscribe registra um observador de admissões e mudanças de toggle.
func (s *WindowStore) Subscribe(fn func(domain.QuotaChange)) (cancel func()) {
	return s.changes.Subscribe(fn)
}

// StartJanitor inicia a varredura periódica, se configurada.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.sweepEvery <= 0 {
		return
	}

	t := time.NewTicker(s.sweepEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}

// evictUntil remove os instantes <= cutoff. Um instante exatamente na borda
// já conta como fora da janela.
func evictUntil(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	if i == len(ts) {
		return nil
	}
	return append([]time.Time(nil), ts[i:]...)
}

// retryAfter arredonda para cima em segundos, com piso de 1s.
func retryAfter(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
