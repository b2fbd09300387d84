package ratelimit

// Utilitários pequenos de formatação de headers e corpo das respostas de rejeição.

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// writeJSON renderiza o corpo antes de escrever, para fixar Content-Length.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", formatInt(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
