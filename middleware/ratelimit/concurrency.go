package ratelimit

import (
	"log"
	"net/http"
	"time"

	"soundboard-gateway/middleware/ratelimit/application"
	"soundboard-gateway/middleware/ratelimit/domain"
	"soundboard-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// Pool permite injetar um pool próprio; nil cria um ChanPool de Max vagas.
	Pool domain.SlotPool
}

type busyBody struct {
	Error string `json:"error"`
	InUse int    `json:"inUse,omitempty"`
	Cap   int    `json:"capacity,omitempty"`
}

// ConcurrencyMiddleware limita quantas requisições são atendidas ao mesmo tempo.
// Max <= 0 (sem Pool) desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		if opts.Max <= 0 {
			return func(next http.Handler) http.Handler { return next }
		}
		opts.Pool = infra.NewChanPool(opts.Max)
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				body := busyBody{Error: "Server busy"}
				if in, c, ok := svc.Load(); ok {
					body.InUse, body.Cap = in, c
				}
				log.Printf("HTTP: busy %d/%d, rejecting %s %s from %s", body.InUse, body.Cap, r.Method, r.URL.Path, ClientKey(r))
				writeJSON(w, opts.RejectStatus, body)
				return
			}
			defer release()
			next.ServeHTTP(w, r)
		})
	}
}
