// Package httpapi serves the plain HTTP surface used by the browser pages:
// JSON endpoints, SSE and WebSocket push, health, metrics and static files.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmynk/slicetally/internal/broadcast"
	"github.com/mmynk/slicetally/internal/groupstore"
	"github.com/mmynk/slicetally/internal/middleware"
)

// Options configures the router.
type Options struct {
	Store       *groupstore.Store
	Broadcaster *broadcast.Broadcaster

	// StaticDir is served for every GET that matches no other route.
	// Empty disables static files.
	StaticDir string

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	// RPCPath and RPCHandler mount the Connect service.
	RPCPath    string
	RPCHandler http.Handler
}

// Server holds the handlers' dependencies.
type Server struct {
	store *groupstore.Store
	bc    *broadcast.Broadcaster
}

// NewRouter builds the HTTP handler for every route.
func NewRouter(opts Options) *mux.Router {
	s := &Server{store: opts.Store, bc: opts.Broadcaster}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	if opts.RPCHandler != nil {
		r.PathPrefix(opts.RPCPath).Handler(opts.RPCHandler)
	}

	r.Methods(http.MethodPost).Path("/create-group").HandlerFunc(s.createGroup)
	r.Methods(http.MethodPost).Path("/join-group").HandlerFunc(s.joinGroup)
	r.Methods(http.MethodPost).Path("/update-slices").HandlerFunc(s.updateSlices)
	r.Methods(http.MethodPost).Path("/rename-participant").HandlerFunc(s.renameParticipant)
	r.Methods(http.MethodPost).Path("/leave-group").HandlerFunc(s.leaveGroup)
	r.Methods(http.MethodGet).Path("/group-info").HandlerFunc(s.groupInfo)
	r.Methods(http.MethodGet).Path("/events").HandlerFunc(s.events)
	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.ws)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.health)

	if opts.Metrics != nil {
		r.Methods(http.MethodGet).Path("/metrics").Handler(opts.Metrics)
	}
	if opts.StaticDir != "" {
		r.Methods(http.MethodGet, http.MethodHead).PathPrefix("/").Handler(http.FileServer(http.Dir(opts.StaticDir)))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}
