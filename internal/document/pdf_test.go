package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestPDF writes a minimal single-font PDF with one text line per page.
func writeTestPDF(t *testing.T, path string, pageTexts ...string) {
	t.Helper()

	var objects []string
	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := make([]string, len(pageTexts))
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageTexts)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestPDFLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.pdf")
	writeTestPDF(t, path, "Squat three sets", "Rest two minutes")

	doc, err := NewPDFLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if doc.Filename != "program.pdf" {
		t.Errorf("Filename = %q, want program.pdf", doc.Filename)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("Load() returned %d pages, want 2", len(doc.Pages))
	}
	if !strings.Contains(doc.Pages[0].Text, "Squat three sets") {
		t.Errorf("page 1 text = %q, want it to contain %q", doc.Pages[0].Text, "Squat three sets")
	}
	if !strings.Contains(doc.Pages[1].Text, "Rest two minutes") {
		t.Errorf("page 2 text = %q, want it to contain %q", doc.Pages[1].Text, "Rest two minutes")
	}
	if doc.Metadata["page_count"] != 2 {
		t.Errorf("page_count = %v, want 2", doc.Metadata["page_count"])
	}
	if doc.Metadata["file_type"] != "pdf" {
		t.Errorf("file_type = %v, want pdf", doc.Metadata["file_type"])
	}
}

func TestPDFLoader_LoadInvalid(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"not a pdf", garbage},
		{"missing file", filepath.Join(dir, "missing.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewPDFLoader().Load(context.Background(), tt.path)
			if err == nil {
				t.Error("Load() expected error, got nil")
			}
			if doc != nil {
				t.Error("Load() should return nil document on error")
			}
		})
	}
}
