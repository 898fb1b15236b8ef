package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "rental-search/internal/common/errors"
	commonhttp "rental-search/internal/common/http"
	"rental-search/internal/common/logger"
)

// HTTPProvider calls an Ollama-compatible /api/embeddings endpoint.
type HTTPProvider struct {
	client    *commonhttp.Client
	baseURL   string
	model     string
	dimension int
	logger    logger.Logger
}

type HTTPConfig struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewHTTPProvider(cfg HTTPConfig, log logger.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		client:    commonhttp.NewClient(timeout),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		logger:    log.WithFields(map[string]interface{}{"component": "embedding-provider", "model": cfg.Model}),
	}
}

func (p *HTTPProvider) Model() string { return p.model }

func (p *HTTPProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrUnavailable)
	}

	start := time.Now()
	var resp embedResponse
	err := p.client.PostJSON(ctx, p.baseURL+"/api/embeddings", embedRequest{Model: p.model, Prompt: text}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, apperrors.NewExternalServiceUnavailableError("embedding", err))
	}

	if p.dimension > 0 && len(resp.Embedding) != p.dimension {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", ErrUnavailable, p.dimension, len(resp.Embedding))
	}

	vec, ok := Normalize(resp.Embedding)
	if !ok {
		return nil, fmt.Errorf("%w: degenerate vector", ErrUnavailable)
	}

	p.logger.Debug("query embedded", map[string]interface{}{
		"dimension":  len(vec),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return vec, nil
}
