package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"coach-ai/internal/contextutil"
)

// MarkdownLoader renders Markdown files to plain text as a single page.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Load reads path and strips Markdown syntax, keeping block boundaries as newlines.
func (l *MarkdownLoader) Load(ctx context.Context, path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	plain, title := l.PlainText(content)

	meta := map[string]any{
		"source":     path,
		"filename":   filepath.Base(path),
		"file_type":  "markdown",
		"page_count": 1,
	}
	if title != "" {
		meta["title"] = title
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "loaded markdown", "path", path, "length", len(plain))
	return &Document{
		Source:   path,
		Filename: filepath.Base(path),
		Pages:    []Page{{Number: 1, Text: plain}},
		Metadata: meta,
	}, nil
}

// PlainText returns the text content of a Markdown document and its first heading.
func (l *MarkdownLoader) PlainText(content []byte) (plain string, title string) {
	doc := l.parser.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	newline := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				newline()
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if title == "" {
				title = headingText(node, content)
			}
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				b.Write(line.Value(content))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			newline()
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String()), title
}

func headingText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
