package chunker

import (
	"reflect"
	"testing"
)

func TestSanitizeMetadata(t *testing.T) {
	type point struct{ X, Y int }
	title := "ptr"

	in := map[string]any{
		"source":      "docs/a.pdf",
		"page_count":  3,
		"size":        uint32(7),
		"score":       float32(0.5),
		"ratio":       0.25,
		"ocr":         false,
		"languages":   []string{"eng"},
		"coordinates": map[string]any{"x": 1},
		"point":       point{1, 2},
		"title_ptr":   &title,
		"empty":       nil,
	}

	want := map[string]any{
		"source":     "docs/a.pdf",
		"page_count": int64(3),
		"size":       int64(7),
		"score":      float64(0.5),
		"ratio":      0.25,
		"ocr":        false,
	}

	got := SanitizeMetadata(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeMetadata() = %#v, want %#v", got, want)
	}
	if _, ok := in["languages"]; !ok {
		t.Error("SanitizeMetadata() must not mutate its input")
	}
}

func TestSanitizeMetadata_Nil(t *testing.T) {
	got := SanitizeMetadata(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("SanitizeMetadata(nil) = %#v, want empty map", got)
	}
}
