package server

import (
	"net/http"
	"time"

	"soundboard-gateway/config"
)

// NewHTTPServer aplica os timeouts configurados ao http.Server.
func NewHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           h,
		ReadHeaderTimeout: orDefault(cfg.ReadHeaderTimeout.Duration, 10*time.Second),
		ReadTimeout:       orDefault(cfg.ReadTimeout.Duration, 30*time.Second),
		WriteTimeout:      orDefault(cfg.WriteTimeout.Duration, 30*time.Second),
		IdleTimeout:       orDefault(cfg.IdleTimeout.Duration, 90*time.Second),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
