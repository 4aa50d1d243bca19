// Package render converts assembled pipeline output into the requested
// output format. Executors produce markdown; html goes through goldmark and
// json serializes the per-page sections.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Renderer struct {
	markdown goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{markdown: goldmark.New()}
}

func (r *Renderer) Render(markdown string, sections []domain.PageSection, format string) (string, error) {
	switch format {
	case domain.FormatMarkdown, "":
		return markdown, nil

	case domain.FormatHTML:
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(markdown), &buf); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
		return buf.String(), nil

	case domain.FormatJSON:
		data, err := json.Marshal(struct {
			Pages []domain.PageSection `json:"pages"`
		}{Pages: sections})
		if err != nil {
			return "", fmt.Errorf("render json: %w", err)
		}
		return string(data), nil

	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "render output", fmt.Errorf("unknown format %q", format))
	}
}
