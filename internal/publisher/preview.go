package publisher

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/halim714/markpress/internal/frontmatter"
)

// Preview renders the HTML a publish would produce for this body: metadata
// stripped, internal links rewritten, markdown converted with the same GFM
// dialect the site uses.
type Preview struct {
	engine   goldmark.Markdown
	resolver TargetResolver
}

// NewPreview builds a preview renderer. resolver may be nil; internal links
// are then left untouched.
func NewPreview(resolver TargetResolver) *Preview {
	return &Preview{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		resolver: resolver,
	}
}

// Render converts body markdown to HTML.
func (p *Preview) Render(ctx context.Context, content string) ([]byte, error) {
	_, stripped := frontmatter.Parse([]byte(content))
	body, err := RewriteLinks(ctx, string(stripped), p.resolver)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.engine.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("publisher: render preview: %w", err)
	}
	return buf.Bytes(), nil
}
