package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Usage   string `json:"usage,omitempty"`
}

type notFoundBody struct {
	Error     string   `json:"error"`
	Endpoints []string `json:"endpoints"`
}

// writeJSON renderiza o corpo inteiro antes de escrever, para fixar Content-Length.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("HTTP: encode response: %v", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal error"}`)
	}
	write(w, status, "application/json", body)
}

func writeHTML(w http.ResponseWriter, status int, page []byte) {
	write(w, status, "text/html; charset=utf-8", page)
}

func write(w http.ResponseWriter, status int, contentType string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
