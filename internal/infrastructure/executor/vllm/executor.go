// Package vllm is the remote-inference OCR executor. It speaks the
// OpenAI-compatible chat-completions dialect served by vLLM, sending each page
// raster as an inline data URL.
package vllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/ocr-backend/internal/core/domain"
	"github.com/kirillkom/ocr-backend/internal/infrastructure/resilience"
)

type Executor struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model, apiKey string, executor *resilience.Executor) *Executor {
	return &Executor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

func (e *Executor) Extract(ctx context.Context, img image.Image, opts domain.OCROptions) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "encode page raster", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	payload := map[string]any{
		"model": e.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
					{"type": "text", "text": buildPrompt(opts)},
				},
			},
		},
		"max_tokens": opts.MaxOutputTokens,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	call := func(callCtx context.Context) error {
		return e.postJSON(callCtx, "/chat/completions", payload, &response)
	}

	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "vllm.extract", call, classifyVLLMError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "vllm extract", wrapTemporaryIfNeeded(err))
	}

	if len(response.Choices) == 0 {
		return "", domain.WrapError(domain.ErrExtraction, "vllm extract", fmt.Errorf("response carries no choices"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", domain.WrapError(domain.ErrExtraction, "vllm extract", fmt.Errorf("empty extraction result"))
	}
	return domain.ClampOutput(content, opts.MaxOutputTokens), nil
}

func buildPrompt(opts domain.OCROptions) string {
	var b strings.Builder
	b.WriteString("Extract all text from this image as markdown, preserving the reading order.")
	if !opts.IncludeHeadersFooters {
		b.WriteString(" Skip page headers and footers.")
	}
	return b.String()
}

func (e *Executor) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vllm extract request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode extract response: %w", err)
	}
	return nil
}
