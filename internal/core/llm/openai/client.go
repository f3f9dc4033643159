package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractReceipt implements llm.VisionExtractor over chat/completions with the
// image attached as a data URL.
func (c *Client) ExtractReceipt(ctx context.Context, img llm.Image) (llm.VisionReceipt, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", c.Name(),
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"image_bytes", len(img.Data),
		"mime", img.MIME,
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(constants.AsStringSlice())},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": llm.BuildUserPrompt(filepath.Base(img.Path))},
				{"type": "image_url", "image_url": map[string]any{"url": img.DataURL()}},
			}},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionReceipt{}, nil, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionReceipt{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionReceipt{}, raw, fmt.Errorf("no choices in openai response")
	}

	out, doc, err := llm.DecodeReceipt([]byte(cc.Choices[0].Message.Content), c.logger)
	if err != nil {
		c.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionReceipt{}, doc, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"store", out.StoreName,
		"date", out.Date,
		"items", len(out.Items),
		"has_total", out.Total != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, doc, nil
}
