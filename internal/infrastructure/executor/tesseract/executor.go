// Package tesseract is the local-inference OCR executor backed by the
// gosseract client. Initialization is cheap; a client is created per call and
// closed before returning.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Executor struct {
	languages []string
}

func New(languages ...string) *Executor {
	return &Executor{languages: languages}
}

func (e *Executor) Extract(ctx context.Context, img image.Image, opts domain.OCROptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "encode page raster", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "set page image", err)
	}
	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return "", domain.WrapError(domain.ErrExtraction, "set languages", err)
		}
	}

	text, err := client.Text()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "recognize text", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrExtraction, "recognize text", fmt.Errorf("empty extraction result"))
	}

	// Tesseract has no native token budget; the ceiling is enforced on the
	// produced text instead.
	return domain.ClampOutput(text, opts.MaxOutputTokens), nil
}
