package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"soundboard-gateway/recency"
	"soundboard-gateway/resolver"
)

func queryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

type playBody struct {
	Status string `json:"status"`
	File   string `json:"file"`
	URL    string `json:"url"`
	Page   string `json:"page,omitempty"`
}

func (rt *Router) handlePlay(w http.ResponseWriter, r *http.Request) {
	file := queryParam(r, "file")
	locator, err := rt.play(r.Context(), file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to play sound", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, playBody{Status: "playing", File: file, URL: locator})
}

func (rt *Router) handlePlayURL(w http.ResponseWriter, r *http.Request) {
	page := queryParam(r, "url")
	if rt.pages == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Page resolution unavailable"})
		return
	}

	file, err := rt.pages.Resolve(r.Context(), page)
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No sound found on page", Message: page})
		return
	case errors.Is(err, resolver.ErrInvalidPage):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid page url", Message: page})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to resolve page", Message: err.Error()})
		return
	}

	locator, err := rt.play(r.Context(), file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to play sound", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, playBody{Status: "playing", File: file, URL: locator, Page: page})
}

// play toca a chave e registra nos recentes. Falha ao persistir só é logada.
func (rt *Router) play(ctx context.Context, file string) (string, error) {
	locator := rt.locator.Resolve(file)
	if err := rt.player.Play(locator); err != nil {
		return locator, err
	}
	if rt.recents != nil {
		if _, err := rt.recents.Record(ctx, file); err != nil {
			log.Printf("RECENT: record %q: %v", file, err)
		}
	}
	return locator, nil
}

// PlayKey toca um som a pedido do host (ex: toque na lista de recentes),
// sem passar pela cota por cliente.
func (rt *Router) PlayKey(ctx context.Context, key string) (recency.Item, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return recency.Item{}, recency.ErrEmptyKey
	}
	if err := rt.player.Play(rt.locator.Resolve(key)); err != nil {
		return recency.Item{}, err
	}
	if rt.recents == nil {
		return recency.Item{Filename: key}, nil
	}
	return rt.recents.Record(ctx, key)
}

func (rt *Router) handleStop(w http.ResponseWriter, r *http.Request) {
	rt.player.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

type statusBody struct {
	Server  string `json:"server"`
	Playing bool   `json:"playing"`
}

func (rt *Router) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusBody{Server: "running", Playing: rt.player.IsPlaying()})
}

func (rt *Router) handleRecent(w http.ResponseWriter, r *http.Request) {
	view := recency.View{Sounds: []recency.Item{}}
	if rt.recents != nil {
		view = rt.recents.Snapshot()
	}
	writeJSON(w, http.StatusOK, view)
}

type quotaView struct {
	IP    string `json:"ip"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

type rateLimitsBody struct {
	Quotas        []quotaView `json:"quotas"`
	MaxRequests   int         `json:"maxRequests"`
	WindowMinutes int         `json:"windowMinutes"`
	Enabled       bool        `json:"enabled"`
}

func (rt *Router) handleRateLimits(w http.ResponseWriter, r *http.Request) {
	snap := rt.quotas.Snapshot()
	p := rt.quotas.Policy()
	body := rateLimitsBody{
		Quotas:        make([]quotaView, 0, len(snap)),
		MaxRequests:   p.MaxRequests,
		WindowMinutes: p.WindowMinutes(),
		Enabled:       rt.quotas.Enabled(),
	}
	for _, q := range snap {
		body.Quotas = append(body.Quotas, quotaView{IP: string(q.Key), Used: q.Used, Limit: q.Limit})
	}
	writeJSON(w, http.StatusOK, body)
}

func (rt *Router) handleUI(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, uiPage)
}

func (rt *Router) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, indexPage)
}
