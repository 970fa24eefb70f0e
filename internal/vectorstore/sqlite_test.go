package vectorstore

import (
	"context"
	"errors"
	"testing"
)

func newTestSQLiteStore(t *testing.T, dir string) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testPoints() []Point {
	return []Point{
		{ID: "11111111-1111-5111-8111-111111111111", Vec: []float32{1, 0, 0}, Meta: map[string]any{"text": "squats", "chunk_index": int64(0), "source": "docs/legs.pdf"}},
		{ID: "22222222-2222-5222-8222-222222222222", Vec: []float32{0, 1, 0}, Meta: map[string]any{"text": "push ups", "chunk_index": int64(1), "source": "docs/arms.pdf"}},
		{ID: "33333333-3333-5333-8333-333333333333", Vec: []float32{0.9, 0.1, 0}, Meta: map[string]any{"text": "lunges", "chunk_index": int64(2), "source": "docs/legs.pdf"}},
	}
}

func TestSQLiteStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, t.TempDir())

	if err := store.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.Upsert(ctx, "coach", testPoints()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "coach", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Meta["text"] != "squats" {
		t.Errorf("results[0] text = %v, want squats", results[0].Meta["text"])
	}
	if results[1].Meta["text"] != "lunges" {
		t.Errorf("results[1] text = %v, want lunges", results[1].Meta["text"])
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by score: %v < %v", results[0].Score, results[1].Score)
	}
	if results[0].Score < 0.99 {
		t.Errorf("exact match score = %v, want ~1", results[0].Score)
	}
	if results[0].Meta["chunk_index"] != int64(0) {
		t.Errorf("chunk_index = %v (%T), want int64 0", results[0].Meta["chunk_index"], results[0].Meta["chunk_index"])
	}
	if results[0].PointID != "11111111-1111-5111-8111-111111111111" {
		t.Errorf("PointID = %v", results[0].PointID)
	}
}

func TestSQLiteStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, t.TempDir())

	if err := store.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Upsert(ctx, "coach", testPoints()); err != nil {
			t.Fatalf("Upsert() #%d error = %v", i, err)
		}
	}

	n, err := store.Count(ctx, "coach")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	// Replacing a point moves its vector and text.
	updated := Point{ID: testPoints()[1].ID, Vec: []float32{0, 0, 1}, Meta: map[string]any{"text": "planks"}}
	if err := store.Upsert(ctx, "coach", []Point{updated}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	results, err := store.Search(ctx, "coach", []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Meta["text"] != "planks" {
		t.Errorf("Search() = %+v, want planks", results)
	}
	if n, _ := store.Count(ctx, "coach"); n != 3 {
		t.Errorf("Count() after replace = %d, want 3", n)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, t.TempDir())

	if err := store.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	points := testPoints()
	if err := store.Upsert(ctx, "coach", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := store.Delete(ctx, "coach", []string{points[0].ID, "unknown"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n, _ := store.Count(ctx, "coach"); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	results, err := store.Search(ctx, "coach", []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range results {
		if r.PointID == points[0].ID {
			t.Error("deleted point still returned by Search()")
		}
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := first.Upsert(ctx, "coach", testPoints()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second := newTestSQLiteStore(t, dir)
	exists, err := second.CollectionExists(ctx, "coach")
	if err != nil || !exists {
		t.Fatalf("CollectionExists() = %v, %v; want true", exists, err)
	}
	if n, _ := second.Count(ctx, "coach"); n != 3 {
		t.Errorf("Count() after reopen = %d, want 3", n)
	}
}

func TestSQLiteStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t, t.TempDir())

	if _, err := store.Search(ctx, "coach", []float32{1, 0, 0}, 1); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Search() on missing collection error = %v, want ErrCollectionNotFound", err)
	}
	if exists, err := store.CollectionExists(ctx, "coach"); err != nil || exists {
		t.Errorf("CollectionExists() = %v, %v; want false, nil", exists, err)
	}
	if n, err := store.Count(ctx, "coach"); err != nil || n != 0 {
		t.Errorf("Count() on missing collection = %d, %v; want 0, nil", n, err)
	}
	if err := store.EnsureCollection(ctx, "bad name;", 3); err == nil {
		t.Error("EnsureCollection() with invalid name should return error")
	}

	if err := store.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	if err := store.EnsureCollection(ctx, "coach", 3); err != nil {
		t.Errorf("EnsureCollection() second call error = %v", err)
	}
	if err := store.EnsureCollection(ctx, "coach", 4); err == nil {
		t.Error("EnsureCollection() with different size should return error")
	}
	if err := store.Upsert(ctx, "coach", []Point{{ID: "x", Vec: []float32{1, 0}}}); err == nil {
		t.Error("Upsert() with wrong vector size should return error")
	}
	if _, err := store.Search(ctx, "coach", []float32{1, 0}, 1); err == nil {
		t.Error("Search() with wrong query size should return error")
	}
	if _, err := store.Search(ctx, "coach", []float32{1, 0, 0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
}

func TestDecodeMeta(t *testing.T) {
	meta, err := decodeMeta(`{"text":"a","page_number":2,"ratio":0.25,"ok":true}`)
	if err != nil {
		t.Fatalf("decodeMeta() error = %v", err)
	}
	if meta["page_number"] != int64(2) {
		t.Errorf("page_number = %v (%T), want int64", meta["page_number"], meta["page_number"])
	}
	if meta["ratio"] != 0.25 {
		t.Errorf("ratio = %v, want 0.25", meta["ratio"])
	}
	if meta["ok"] != true || meta["text"] != "a" {
		t.Errorf("decodeMeta() = %v", meta)
	}

	if _, err := decodeMeta("not json"); err == nil {
		t.Error("decodeMeta() with invalid JSON should return error")
	}
}
