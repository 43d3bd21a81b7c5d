// Package api exposes the HTTP surface: interpretation, history and health,
// plus the realtime upgrade endpoint.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every route. ws and metrics may be nil to leave those
// endpoints out.
func NewRouter(h *Handler, ws http.HandlerFunc, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/interpret-gesture", h.InterpretGesture).Methods(http.MethodPost)
	r.HandleFunc("/api/gesture-history", h.GestureHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/gesture/{id}", h.GetGesture).Methods(http.MethodGet)
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)

	if ws != nil {
		r.HandleFunc("/ws", ws)
	}
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	return r
}
