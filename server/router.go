// Package server expõe o soundboard por HTTP.
//
// Todas as rotas são GET e respondem com corpo de tamanho fixo (JSON ou HTML).
// /play e /play-url passam pela checagem de parâmetro e depois pela cota por cliente.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"soundboard-gateway/middleware/ratelimit"
	"soundboard-gateway/middleware/ratelimit/domain"
	"soundboard-gateway/recency"
)

// Player é o motor de reprodução visto pelo roteador.
type Player interface {
	Play(locator string) error
	Stop()
	IsPlaying() bool
}

// Recents é a lista de sons recentes vista pelo roteador.
type Recents interface {
	Record(ctx context.Context, key string) (recency.Item, error)
	Snapshot() recency.View
}

// Quotas é a cota por cliente vista pelo roteador.
type Quotas interface {
	domain.QuotaStore
	Snapshot() []domain.Quota
	Policy() domain.Policy
	Enabled() bool
}

// MediaLocator compõe o endereço do áudio a partir da chave.
type MediaLocator interface {
	Resolve(key string) string
}

// PageResolver extrai a chave de um som de uma página externa.
type PageResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

type Options struct {
	Player  Player
	Recents Recents
	Quotas  Quotas
	Locator MediaLocator
	Pages   PageResolver
	Stats   domain.StatsStore

	AddRateLimitHeaders bool
	AccessLog           bool
}

type Router struct {
	player  Player
	recents Recents
	quotas  Quotas
	locator MediaLocator
	pages   PageResolver

	routes    map[string]http.Handler
	accessLog bool
}

// Endpoints lista as rotas conhecidas (corpo do 404 e página inicial).
var Endpoints = []string{
	"/play?file=<name>.mp3",
	"/play-url?url=<page>",
	"/stop",
	"/status",
	"/recent",
	"/rate-limits",
	"/ui",
}

func NewRouter(opts Options) *Router {
	rt := &Router{
		player:    opts.Player,
		recents:   opts.Recents,
		quotas:    opts.Quotas,
		locator:   opts.Locator,
		pages:     opts.Pages,
		accessLog: opts.AccessLog,
	}

	limited := ratelimit.Middleware(ratelimit.Options{
		Store:               opts.Quotas,
		Stats:               opts.Stats,
		KeyFn:               ratelimit.ClientKey,
		RejectStatus:        http.StatusTooManyRequests,
		AddRateLimitHeaders: opts.AddRateLimitHeaders,
	})

	rt.routes = map[string]http.Handler{
		"/play":        requireParam("file", "/play?file=example.mp3", limited(http.HandlerFunc(rt.handlePlay))),
		"/play-url":    requireParam("url", "/play-url?url=https://www.myinstants.com/en/instant/example/", limited(http.HandlerFunc(rt.handlePlayURL))),
		"/stop":        http.HandlerFunc(rt.handleStop),
		"/status":      http.HandlerFunc(rt.handleStatus),
		"/recent":      http.HandlerFunc(rt.handleRecent),
		"/rate-limits": http.HandlerFunc(rt.handleRateLimits),
		"/ui":          http.HandlerFunc(rt.handleUI),
		"/":            http.HandlerFunc(rt.handleIndex),
	}
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !rt.accessLog {
		rt.dispatch(w, r)
		return
	}
	start := time.Now()
	sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rt.dispatch(sr, r)
	log.Printf("HTTP: %s %s %d %s %s", r.Method, r.URL.Path, sr.status, ratelimit.ClientKey(r), time.Since(start).Round(time.Microsecond))
}

func (rt *Router) dispatch(w http.ResponseWriter, r *http.Request) {
	h, ok := rt.routes[r.URL.Path]
	if !ok {
		writeJSON(w, http.StatusNotFound, notFoundBody{Error: "Not found", Endpoints: Endpoints})
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}
	h.ServeHTTP(w, r)
}

// requireParam responde 400 antes da cota quando o parâmetro falta ou está em branco.
func requireParam(name, usage string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queryParam(r, name) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: "Missing '" + name + "' parameter",
				Usage: usage,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
