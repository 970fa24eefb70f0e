package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"coach-ai/internal/contextutil"
	"coach-ai/internal/rag"
)

const maxRequestBody = 1 << 20

// AskHandler handles HTTP requests for coaching questions.
type AskHandler struct {
	ragEngine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(ragEngine rag.Engine) *AskHandler {
	return &AskHandler{ragEngine: ragEngine}
}

// AskRequest represents the HTTP request payload for coaching questions.
//
// swagger:model AskRequest
type AskRequest struct {
	// The user's question
	Query string `json:"query"`

	// Question is accepted from older /coach clients when query is absent.
	Question string `json:"question,omitempty"`

	// Optional profile used to tailor the advice
	Profile *rag.Profile `json:"profile,omitempty"`
}

// AskResponse represents the HTTP response payload for coaching questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer
	Response string `json:"response"`

	// Texts of the retrieved chunks, best match first
	SourceDocuments []string `json:"source_documents"`
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for coaching questions.
//
// swagger:route POST /ask askCoach
//
// # Ask the fitness coach
//
// Embeds the question wrapped with the optional profile, retrieves the closest
// document chunks and answers from them. Also served at POST /coach.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer with the retrieved source texts
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Missing query or malformed body
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding or chat provider unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := req.Query
	if strings.TrimSpace(query) == "" {
		query = req.Question
	}
	if strings.TrimSpace(query) == "" {
		logger.WarnContext(ctx, "missing query in request")
		writeError(w, http.StatusBadRequest, "Missing query")
		return
	}

	ragReq := rag.AskRequest{Query: query}
	if req.Profile != nil {
		ragReq.Profile = *req.Profile
	}

	ragResp, err := h.ragEngine.Answer(ctx, ragReq)
	if err != nil {
		logger.ErrorContext(ctx, "RAG engine error", "error", err)
		writeServiceError(w, err)
		return
	}

	resp := AskResponse{
		Response:        ragResp.Response,
		SourceDocuments: ragResp.SourceDocuments,
	}
	if resp.SourceDocuments == nil {
		resp.SourceDocuments = []string{}
	}

	writeJSON(w, http.StatusOK, resp)
}
