// Package chunker splits documents into fixed-size overlapping character windows.
package chunker

import (
	"strings"
	"unicode/utf8"

	"coach-ai/internal/document"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

// Chunk is one window of a document's text.
type Chunk struct {
	Index      int            // Position within the document (starts at 0)
	StartIndex int            // Rune offset of the window in the document text
	Text       string         // Window text
	Metadata   map[string]any // Primitive-only metadata, safe for vector store payloads
}

// Splitter cuts text into windows of Size runes, consecutive windows sharing Overlap runes.
type Splitter struct {
	Size    int
	Overlap int
}

// NewSplitter creates a Splitter, replacing unusable parameters:
// a non-positive size becomes DefaultChunkSize, a negative overlap becomes 0,
// and an overlap that would stall the window becomes size/2.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Windows returns the rune offsets [start, end) of every window over a text of n runes.
// The last window is the first one that reaches the end of the text.
func (s *Splitter) Windows(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	stride := s.Size - s.Overlap
	var windows [][2]int
	for start := 0; ; start += stride {
		end := start + s.Size
		if end >= n {
			windows = append(windows, [2]int{start, n})
			return windows
		}
		windows = append(windows, [2]int{start, end})
	}
}

// SplitText splits text into windows. Whitespace-only windows are dropped.
func (s *Splitter) SplitText(text string) []Chunk {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	runes := []rune(text)

	var chunks []Chunk
	for _, w := range s.Windows(len(runes)) {
		window := string(runes[w[0]:w[1]])
		if strings.TrimSpace(window) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			StartIndex: w[0],
			Text:       window,
		})
	}
	return chunks
}

// Split splits a document's concatenated page text and attaches metadata to every chunk:
// the document metadata (sanitized) plus start_index, chunk_index and page_number.
func (s *Splitter) Split(doc *document.Document) []Chunk {
	chunks := s.SplitText(doc.Text())
	base := SanitizeMetadata(doc.Metadata)
	for i := range chunks {
		meta := make(map[string]any, len(base)+3)
		for k, v := range base {
			meta[k] = v
		}
		meta["start_index"] = int64(chunks[i].StartIndex)
		meta["chunk_index"] = int64(chunks[i].Index)
		if page := doc.PageAt(chunks[i].StartIndex); page > 0 {
			meta["page_number"] = int64(page)
		}
		chunks[i].Metadata = meta
	}
	return chunks
}
