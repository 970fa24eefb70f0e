package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"coach-ai/internal/contextutil"
	"coach-ai/internal/vectorstore"
)

const storeCheckTimeout = 5 * time.Second

// HealthHandler reports whether the coach can retrieve from its knowledge base.
type HealthHandler struct {
	store      vectorstore.VectorStore
	collection string
	timeout    time.Duration
}

func NewHealthHandler(store vectorstore.VectorStore, collection string) *HealthHandler {
	return &HealthHandler{
		store:      store,
		collection: collection,
		timeout:    storeCheckTimeout,
	}
}

// HealthResponse is the readiness report for the coach.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// "healthy" when the knowledge base can be searched, "unhealthy" otherwise
	Status string `json:"status"`

	// RFC 3339 time of the check, UTC
	Timestamp string `json:"timestamp"`

	// Collection the coach retrieves from
	Collection string `json:"collection"`

	// Per-dependency result, "ok" or "error"
	Checks map[string]string `json:"checks"`

	// Reasons the coach cannot answer from documents
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP confirms the document collection is present in the vector store.
// The chat provider is not contacted.
//
// swagger:route GET /api/health healthCheck
//
// # Knowledge base readiness
//
// 200 when the document collection exists, 503 when the store is unreachable
// or nothing has been ingested yet.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Knowledge base ready
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: Knowledge base not ready
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Collection: h.collection,
		Checks:     map[string]string{"vector_store": "ok"},
	}
	code := http.StatusOK

	if issue := h.storeIssue(checkCtx, logger); issue != "" {
		resp.Status = "unhealthy"
		resp.Checks["vector_store"] = "error"
		resp.Issues = []string{issue}
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

// storeIssue returns "" when the collection can be searched.
func (h *HealthHandler) storeIssue(ctx context.Context, logger *slog.Logger) string {
	exists, err := h.store.CollectionExists(ctx, h.collection)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "vector store unreachable", "collection", h.collection, "error", err)
		return "vector_store_unavailable"
	case !exists:
		logger.WarnContext(ctx, "collection not ingested yet", "collection", h.collection)
		return "collection_missing"
	}
	return ""
}
