package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ModelCatalog lists the models a provider serves via GET /v1/models.
type ModelCatalog struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewModelCatalog creates a new model catalog client.
func NewModelCatalog(baseURL, apiKey string) *ModelCatalog {
	return &ModelCatalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(),
	}
}

// ModelInfo is one entry of the /v1/models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelsResponse represents the response from the /v1/models endpoint.
type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ListModels returns the IDs of all models the provider exposes.
func (mc *ModelCatalog) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/v1/models", mc.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", mc.apiKey))

	resp, err := mc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var modelsResp ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	ids := make([]string, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// HasModel reports whether modelName is served by the provider.
func (mc *ModelCatalog) HasModel(ctx context.Context, modelName string) (bool, error) {
	ids, err := mc.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == modelName {
			return true, nil
		}
	}
	return false, nil
}
