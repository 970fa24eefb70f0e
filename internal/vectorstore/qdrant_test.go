package vectorstore

import (
	"context"
	"net/url"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestGRPCAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantHost string
		wantPort int
	}{
		{
			name:     "default http port",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:     "no port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:     "no hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.urlStr)
			if err != nil {
				t.Fatalf("url.Parse() error = %v", err)
			}

			host, port := grpcAddress(u)
			if host != tt.wantHost {
				t.Errorf("host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_EarlyReturns(t *testing.T) {
	// A zero store has no client; these calls must return before touching it.
	store := &QdrantStore{}
	ctx := context.Background()

	if err := store.Upsert(ctx, "coach", nil); err != nil {
		t.Errorf("Upsert() with no points error = %v", err)
	}
	if err := store.Delete(ctx, "coach", nil); err != nil {
		t.Errorf("Delete() with no ids error = %v", err)
	}
	if _, err := store.Search(ctx, "coach", []float32{1, 2}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "coach", []float32{1, 2}, -1); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() on store without client error = %v", err)
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	if got := convertPayloadToMap(nil); got == nil || len(got) != 0 {
		t.Errorf("convertPayloadToMap(nil) = %v, want empty map", got)
	}

	payload := qdrant.NewValueMap(map[string]any{
		"text":        "squat with a neutral spine",
		"chunk_index": int64(3),
		"score":       0.5,
		"draft":       false,
	})
	got := convertPayloadToMap(payload)

	if got["text"] != "squat with a neutral spine" {
		t.Errorf("text = %v", got["text"])
	}
	if got["chunk_index"] != int64(3) {
		t.Errorf("chunk_index = %v (%T), want int64 3", got["chunk_index"], got["chunk_index"])
	}
	if got["score"] != 0.5 {
		t.Errorf("score = %v", got["score"])
	}
	if got["draft"] != false {
		t.Errorf("draft = %v", got["draft"])
	}
}
