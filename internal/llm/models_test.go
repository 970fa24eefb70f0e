package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModelCatalog_HasModel(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		serverResp func(w http.ResponseWriter, r *http.Request)
		want       bool
		wantErr    bool
	}{
		{
			name:  "model listed",
			model: "gpt-4",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/models" {
					t.Errorf("expected /v1/models, got %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
				}
				_ = json.NewEncoder(w).Encode(ModelsResponse{Data: []ModelInfo{{ID: "gpt-3.5-turbo"}, {ID: "gpt-4"}}})
			},
			want: true,
		},
		{
			name:  "model missing",
			model: "gpt-5",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ModelsResponse{Data: []ModelInfo{{ID: "gpt-4"}}})
			},
			want: false,
		},
		{
			name:  "unauthorized",
			model: "gpt-4",
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			catalog := NewModelCatalog(server.URL, "test-key")
			got, err := catalog.HasModel(context.Background(), tt.model)
			if tt.wantErr {
				if err == nil {
					t.Error("HasModel() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("HasModel() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasModel() = %v, want %v", got, tt.want)
			}
		})
	}
}
