package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Kind is the typed error classification sent to clients. Clients branch on
// this, never on message text.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindUnknown      Kind = "unknown"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

func statusFor(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, kind Kind, message string) {
	writeJSON(w, statusFor(kind), ErrorResponse{Error: message, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
