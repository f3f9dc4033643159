// Package provider builds the configured vision extractor.
package provider

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm/gemini"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm/openai"
)

// New returns nil for provider "none". The returned close func is never nil.
func New(ctx context.Context, cfg common.VisionConfig, logger *slog.Logger) (llm.VisionExtractor, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "", "none":
		return nil, noop, nil
	case "openai":
		c := openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
		return c, noop, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout}, logger)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	default:
		return nil, noop, common.NewAppError(common.CodeConfig, "unknown vision provider "+cfg.Provider, common.ErrInvalidArgument)
	}
}
