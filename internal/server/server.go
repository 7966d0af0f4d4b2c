package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"docquery/internal/chunker"
	"docquery/internal/port"
	"docquery/internal/service"
)

// Config holds the HTTP boundary configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server exposes the retrieval operations to the external orchestration
// layer. Answer synthesis and file upload handling live outside; this surface
// returns ranked, attributed sources.
type Server struct {
	cfg        Config
	svc        *service.Service
	chunker    port.Chunker
	router     chi.Router
	httpServer *http.Server
}

// New builds the server. The chunker splits ingested text; nil selects the
// stock word-window chunker.
func New(cfg Config, svc *service.Service, chk port.Chunker) *Server {
	if chk == nil {
		chk = chunker.NewWordChunker(500, 50, 50)
	}
	s := &Server{cfg: cfg, svc: svc, chunker: chk}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/documents", s.handleIngest)
	r.Get("/documents", s.handleListDocuments)
	r.Get("/documents/{id}", s.handleDocumentInfo)
	r.Delete("/documents/{id}", s.handleDeleteDocument)

	r.Post("/query", s.handleQuery)
	r.Post("/multi-query", s.handleMultiQuery)

	r.Get("/collection", s.handleListCollection)
	r.Post("/collection/{id}", s.handleAddToCollection)
	r.Delete("/collection/{id}", s.handleRemoveFromCollection)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening on the configured address and blocks until the
// server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	fmt.Printf("docquery API listening on %s\n", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
