package domain

import (
	"strings"
	"testing"
)

func TestDefaultOCROptionsAreValid(t *testing.T) {
	if err := DefaultOCROptions().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestOCROptionsValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*OCROptions)
		wantErr bool
	}{
		{"valid page range", func(o *OCROptions) { o.PageRange = "1-3,7" }, false},
		{"broken page range", func(o *OCROptions) { o.PageRange = "1;3" }, true},
		{"tokens below floor", func(o *OCROptions) { o.MaxOutputTokens = 100 }, true},
		{"tokens above ceiling", func(o *OCROptions) { o.MaxOutputTokens = 100000 }, true},
		{"html format", func(o *OCROptions) { o.OutputFormat = FormatHTML }, false},
		{"json format", func(o *OCROptions) { o.OutputFormat = FormatJSON }, false},
		{"unknown format", func(o *OCROptions) { o.OutputFormat = "pdf" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOCROptions()
			tc.mutate(&opts)
			err := opts.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if tc.wantErr && !IsKind(err, ErrInvalidInput) {
				t.Fatalf("expected invalid-input kind, got %v", err)
			}
		})
	}
}

func TestClampOutputRespectsTokenCeiling(t *testing.T) {
	text := strings.Repeat("a", 10000)
	clamped := ClampOutput(text, MinOutputTokens)
	if len(clamped) != MinOutputTokens*4 {
		t.Fatalf("expected %d bytes, got %d", MinOutputTokens*4, len(clamped))
	}

	if got := ClampOutput("short", MinOutputTokens); got != "short" {
		t.Fatalf("text under the ceiling must pass through, got %q", got)
	}
	if got := ClampOutput(text, 0); got != text {
		t.Fatalf("non-positive ceiling must pass through")
	}
}

func TestClampOutputNeverSplitsRunes(t *testing.T) {
	// 4100 bytes of two-byte runes against a 1024-token (4096-byte) ceiling:
	// the cut lands mid-rune and must back up.
	text := strings.Repeat("é", 2050)
	clamped := ClampOutput(text, MinOutputTokens)
	if len(clamped)%2 != 0 {
		t.Fatalf("clamp split a rune: %d bytes", len(clamped))
	}
	if !strings.HasPrefix(text, clamped) {
		t.Fatalf("clamped text must be a prefix of the input")
	}
}
