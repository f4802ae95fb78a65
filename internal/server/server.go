// Package server wires the treasury API routes over an injected store.
package server

import (
	"net/http"

	"github.com/calybase/treasury/internal/handlers"
	"github.com/calybase/treasury/internal/middleware"
	"github.com/calybase/treasury/internal/statement"
)

// Server represents the treasury API server
type Server struct {
	mux *http.ServeMux
}

// New creates a server over the given store and statement parser. The
// store is injected so the same routes run against Firestore in hosted
// mode and SQLite locally.
func New(s handlers.Store, parser *statement.Parser) *Server {
	srv := &Server{mux: http.NewServeMux()}
	srv.setupRoutes(s, parser)
	return srv
}

// setupRoutes configures all HTTP routes
func (srv *Server) setupRoutes(s handlers.Store, parser *statement.Parser) {
	srv.mux.HandleFunc("/health", handlers.HealthCheck)

	apiHandler := handlers.NewAPIHandler(s, parser)
	srv.mux.HandleFunc("/api/import", apiHandler.Import)
	srv.mux.HandleFunc("/api/matches", apiHandler.Matches)
	srv.mux.HandleFunc("/api/matches/confirm", apiHandler.ConfirmMatch)
	srv.mux.HandleFunc("/api/export", apiHandler.Export)
}

// Handler returns the HTTP handler
func (srv *Server) Handler() http.Handler {
	return middleware.CORS(srv.mux)
}
