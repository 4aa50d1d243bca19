// Package mupdf decodes source documents into page rasters via go-fitz.
package mupdf

import (
	"context"
	"fmt"
	"image"
	"os"

	fitz "github.com/gen2brain/go-fitz"

	// Decoders for the single-image path. PNG/JPEG/GIF come from the standard
	// library; webp/tiff/bmp from golang.org/x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
)

type Rasterizer struct{}

func New() *Rasterizer {
	return &Rasterizer{}
}

// RasterizePDF renders every page of the PDF at path into an RGBA raster, in
// page order.
func (r *Rasterizer) RasterizePDF(ctx context.Context, path string) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDecode, "open pdf", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.Image(n)
		if err != nil {
			return nil, domain.WrapError(domain.ErrDecode, fmt.Sprintf("rasterize page %d", n+1), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// DecodeImage decodes a single-image source into a canonical raster and
// reports the detected source format.
func (r *Rasterizer) DecodeImage(_ context.Context, path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrDecode, "open image", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrDecode, "decode image", err)
	}
	return img, format, nil
}
