package llm

import (
	"net/http"
	"time"
)

// Message represents a single message in a chat conversation.
// This type is used by the RAG engine and other structured message consumers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	// Zero gives the most deterministic answers, which is what the coach wants.
	Temperature float32
}

// defaultTimeout bounds a single provider call. Chat completions on large
// contexts can take a while, so this is generous.
const defaultTimeout = 120 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
