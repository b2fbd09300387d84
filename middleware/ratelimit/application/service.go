package application

import (
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store domain.QuotaStore
	// MinRetryAfter é o piso da dica de retry em rejeições (padrão 1s).
	MinRetryAfter time.Duration
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	if s.MinRetryAfter <= 0 {
		s.MinRetryAfter = 1 * time.Second
	}

	dec := s.Store.CheckAndRecord(key)
	if dec.Allowed {
		dec.RetryAfter = 0
		return dec
	}
	if dec.RetryAfter < s.MinRetryAfter {
		dec.RetryAfter = s.MinRetryAfter
	}
	return dec
}
