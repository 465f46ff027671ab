package http

import (
	"encoding/json"
	"net/http"

	"housefund/internal/core"
)

// errorResponse is the wire shape for all error replies.
type errorResponse struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Remaining *core.Money `json:"remaining,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
