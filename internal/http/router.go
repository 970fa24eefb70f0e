package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"coach-ai/internal/handlers"
	"coach-ai/internal/rag"
	"coach-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	RAGEngine   rag.Engine
	VectorStore vectorstore.VectorStore
	Collection  string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	askHandler := handlers.NewAskHandler(deps.RAGEngine)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.Collection)

	r.Method(http.MethodPost, "/ask", askHandler)
	r.Method(http.MethodPost, "/coach", askHandler)
	r.Get("/ping", handlers.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
