package domain

import (
	"github.com/go-playground/validator/v10"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

const (
	DefaultMaxOutputTokens = 8192
	MinOutputTokens        = 1024
	MaxOutputTokens        = 32768
)

// OCROptions are the caller-supplied processing parameters for one job. They
// are consumed by the pipeline and never persisted.
type OCROptions struct {
	PageRange             string `json:"page_range,omitempty" validate:"omitempty,pagerange"`
	MaxOutputTokens       int    `json:"max_output_tokens" validate:"min=1024,max=32768"`
	IncludeImages         bool   `json:"include_images"`
	IncludeHeadersFooters bool   `json:"include_headers_footers"`
	OutputFormat          string `json:"output_format" validate:"oneof=markdown html json"`
}

func DefaultOCROptions() OCROptions {
	return OCROptions{
		MaxOutputTokens: DefaultMaxOutputTokens,
		IncludeImages:   true,
		OutputFormat:    FormatMarkdown,
	}
}

var validate = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Page range grammar is checked here; bounds need the page count and are
	// checked inside the pipeline.
	_ = v.RegisterValidation("pagerange", func(fl validator.FieldLevel) bool {
		return ValidatePageRangeSyntax(fl.Field().String()) == nil
	})
	return v
}

// Validate rejects malformed options before any job is created.
func (o OCROptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		return WrapError(ErrInvalidInput, "validate ocr options", err)
	}
	return nil
}

// ClampOutput enforces the max_output_tokens ceiling on extracted text for
// executors without a native token budget. A token is approximated at four
// bytes; the cut never splits a rune.
func ClampOutput(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	limit := maxTokens * 4
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
