package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks coach-ai/internal/rag Engine,Embedder,ChatClient

import (
	"context"
	"errors"
	"strings"

	"coach-ai/internal/contextutil"
	"coach-ai/internal/llm"
	"coach-ai/internal/service"
	"coach-ai/internal/vectorstore"
)

const (
	// DefaultK is the number of chunks retrieved per question.
	DefaultK = 10

	// fallbackSources is how many retrieved chunks the fallback answer quotes.
	fallbackSources = 3

	fallbackPrefix = "Here’s what the documents say:\n"

	systemPrompt = "Use the following pieces of context to answer the user's question. \n" +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
		"----------------\n"
)

// Engine answers coaching questions from the ingested documents.
type Engine interface {
	// Answer retrieves the chunks closest to the wrapped query and asks the chat model.
	Answer(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatClient sends a message list to a chat model.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Options configures retrieval and generation.
type Options struct {
	Collection  string
	K           int
	Model       string
	Temperature float32
}

type ragEngine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	chat        ChatClient
	opts        Options
}

// NewEngine creates a new RAG engine.
func NewEngine(embedder Embedder, vectorStore vectorstore.VectorStore, chat ChatClient, opts Options) Engine {
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	return &ragEngine{
		embedder:    embedder,
		vectorStore: vectorStore,
		chat:        chat,
		opts:        opts,
	}
}

// Answer answers a coaching question using RAG.
func (e *ragEngine) Answer(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return AskResponse{}, &service.ValidationError{Field: "query", Message: "Missing query"}
	}

	wrapped := WrapQuery(req.Query, req.Profile)
	logger.InfoContext(ctx, "RAG query started",
		"query", query,
		"k", e.opts.K,
		"collection", e.opts.Collection,
	)

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{wrapped})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return AskResponse{}, service.Classify(service.ErrExternalService, err, "failed to embed query")
	}
	if len(embeddings) == 0 {
		return AskResponse{}, service.Classify(service.ErrExternalService, errors.New("no embedding returned"), "failed to embed query")
	}

	results, err := e.vectorStore.Search(ctx, e.opts.Collection, embeddings[0], e.opts.K)
	if err != nil {
		if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.ErrorContext(ctx, "vector search failed", "error", err)
			return AskResponse{}, service.Classify(service.ErrVectorStore, err, "failed to search vector store")
		}
		logger.WarnContext(ctx, "collection not found, answering without context", "collection", e.opts.Collection)
		results = nil
	}

	sources := sourceTexts(results)
	logger.DebugContext(ctx, "retrieved chunks", "results", len(results), "sources", len(sources))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt + strings.Join(sources, "\n\n")},
		{Role: llm.RoleUser, Content: wrapped},
	}
	answer, err := e.chat.ChatWithMessages(ctx, messages, llm.ChatParams{
		Model:       e.opts.Model,
		Temperature: e.opts.Temperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "chat completion failed", "error", err)
		return AskResponse{}, service.Classify(service.ErrExternalService, err, "failed to generate answer")
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		logger.WarnContext(ctx, "empty answer from model, using document fallback")
		answer = fallbackAnswer(sources)
	}

	logger.InfoContext(ctx, "RAG query completed", "sources", len(sources), "answer_length", len(answer))

	return AskResponse{Response: answer, SourceDocuments: sources}, nil
}

// sourceTexts returns the chunk texts in rank order, skipping chunks without text.
func sourceTexts(results []vectorstore.SearchResult) []string {
	sources := make([]string, 0, len(results))
	for _, r := range results {
		text, _ := r.Meta["text"].(string)
		if text == "" {
			continue
		}
		sources = append(sources, text)
	}
	return sources
}

func fallbackAnswer(sources []string) string {
	n := min(len(sources), fallbackSources)
	return fallbackPrefix + strings.Join(sources[:n], "\n\n")
}

