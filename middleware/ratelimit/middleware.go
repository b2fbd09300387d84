package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"soundboard-gateway/middleware/ratelimit/application"
	"soundboard-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

type Options struct {
	Store        domain.QuotaStore
	Stats        domain.StatsStore
	KeyFn        KeyFunc
	RejectStatus int
	// MinRetryAfter é o piso da dica de retry (padrão 1s).
	MinRetryAfter       time.Duration
	AddRateLimitHeaders bool
}

// ClientKey identifica o cliente pelo host de RemoteAddr.
//
// Nenhum header é considerado: na rede local cada aparelho tem seu endereço,
// e X-Forwarded-For seria uma forma trivial de fugir da cota.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}

// RejectBody é o corpo JSON de uma requisição rejeitada pela cota.
type RejectBody struct {
	Error             string `json:"error"`
	Used              int    `json:"used"`
	Limit             int    `json:"limit"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ClientKey
	}

	svc := application.Service{
		Store:         opts.Store,
		MinRetryAfter: opts.MinRetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec := svc.Decide(domain.Key(key))
			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Allowed: dec.Allowed,
					Used:    dec.Used,
					Limit:   dec.Limit,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}

			if opts.AddRateLimitHeaders && dec.Limit > 0 {
				remaining := dec.Limit - dec.Used
				if remaining < 0 {
					remaining = 0
				}
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(remaining))
			}

			if !dec.Allowed {
				secs := dec.RetryAfterSeconds()
				w.Header().Set("Retry-After", formatInt(secs))
				writeJSON(w, opts.RejectStatus, RejectBody{
					Error:             "Rate limit exceeded",
					Used:              dec.Used,
					Limit:             dec.Limit,
					RetryAfterSeconds: secs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
