package handlers

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, ch *ContactHandler) {
	r.HandleFunc("/healthz", HandleHealth).Methods("GET")
	// The contact handler does its own method dispatch so unsupported
	// methods get the JSON 405 body.
	r.Handle("/api/contact", ch)
}
