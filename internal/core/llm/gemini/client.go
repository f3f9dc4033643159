// Package gemini reads receipts with Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm"
)

const defaultModel = "gemini-1.5-flash"

// generator is the part of *genai.GenerativeModel the client needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements llm.VisionExtractor.
type Client struct {
	client  *genai.Client
	model   generator
	name    string
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "gemini api key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.1)

	c := newWithGenerator(model, cfg.Model, cfg.Timeout, logger)
	c.client = client
	return c, nil
}

func newWithGenerator(g generator, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{model: g, name: model, timeout: timeout, logger: logger}
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) ExtractReceipt(ctx context.Context, img llm.Image) (llm.VisionReceipt, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()

	c.logger.Info("llm.extract.start", "provider", c.Name(), "model", c.name, "image_bytes", len(img.Data))

	prompt := llm.BuildSystemPrompt(constants.AsStringSlice()) + "\n\n" + llm.BuildUserPrompt("")
	resp, err := c.model.GenerateContent(ctx,
		genai.ImageData(img.Format(), img.Data),
		genai.Text(prompt),
	)
	if err != nil {
		c.logger.Error("llm.extract.http_error", "provider", c.Name(), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.VisionReceipt{}, nil, common.Unavailable("gemini generate", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return llm.VisionReceipt{}, nil, errors.New("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	out, doc, err := llm.DecodeReceipt([]byte(text.String()), c.logger)
	if err != nil {
		c.logger.Error("llm.extract.schema_validation_failed", "provider", c.Name(), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.VisionReceipt{}, doc, err
	}
	c.logger.Info("llm.extract.ok",
		"provider", c.Name(),
		"store", out.StoreName,
		"items", len(out.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, doc, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
