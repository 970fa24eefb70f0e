package rag

// AskRequest represents a coaching question.
type AskRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// Profile optionally tailors the advice to the user.
	Profile Profile `json:"profile"`
}

// AskResponse represents the answer to a coaching question.
type AskResponse struct {
	// Response is the model answer, or the fallback built from the retrieved chunks.
	Response string `json:"response"`
	// SourceDocuments are the texts of every retrieved chunk, best match first.
	SourceDocuments []string `json:"source_documents"`
}
