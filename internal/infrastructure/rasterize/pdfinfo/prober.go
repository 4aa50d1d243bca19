// Package pdfinfo inspects PDFs without rasterizing them. The probe feeds
// result metadata only; the rasterizer stays authoritative for page content.
package pdfinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Prober struct{}

func New() *Prober {
	return &Prober{}
}

// Probe reports the page count and how many pages carry an embedded text
// layer. The underlying parser panics on some malformed files, so the probe
// recovers and reports a decode failure instead.
func (p *Prober) Probe(ctx context.Context, path string) (info domain.PDFInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			info = domain.PDFInfo{}
			err = domain.WrapError(domain.ErrDecode, "probe pdf", fmt.Errorf("parser panic: %v", r))
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return domain.PDFInfo{}, domain.WrapError(domain.ErrDecode, "probe pdf", err)
	}
	defer f.Close()

	info.Pages = reader.NumPage()
	for n := 1; n <= info.Pages; n++ {
		if err := ctx.Err(); err != nil {
			return domain.PDFInfo{}, err
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, textErr := page.GetPlainText(nil)
		if textErr == nil && strings.TrimSpace(text) != "" {
			info.TextLayerPages++
		}
	}
	return info, nil
}
