package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"coach-ai/internal/contextutil"
)

// PDFLoader extracts plain text from PDF files, one Page per PDF page.
type PDFLoader struct{}

// NewPDFLoader creates a new PDFLoader.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load opens path and extracts the text of every page.
// Pages that fail to decode are logged and left empty rather than failing the document.
// A malformed file that makes the parser panic is reported as an error.
func (l *PDFLoader) Load(ctx context.Context, path string) (doc *Document, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("failed to parse pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.WarnContext(ctx, "failed to extract page text", "path", path, "page", i, "error", err)
			text = ""
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	meta := map[string]any{
		"source":     path,
		"filename":   filepath.Base(path),
		"file_type":  "pdf",
		"page_count": numPages,
	}
	info := reader.Trailer().Key("Info")
	if title := strings.TrimSpace(info.Key("Title").Text()); title != "" {
		meta["title"] = title
	}
	if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
		meta["author"] = author
	}

	logger.DebugContext(ctx, "loaded pdf", "path", path, "pages", numPages)
	return &Document{
		Source:   path,
		Filename: filepath.Base(path),
		Pages:    pages,
		Metadata: meta,
	}, nil
}
