// Package core wires parsing, validation and price recording into the
// per-file pipeline run by the daemon and the CLI.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

// ReceiptParser turns a receipt file into a validated receipt; *llm.HybridParser satisfies it.
type ReceiptParser interface {
	Parse(ctx context.Context, path string) (entity.ParsedReceipt, error)
}

// ReceiptSaver keeps the parsed receipt so item corrections can refer to it.
type ReceiptSaver interface {
	Save(ctx context.Context, userID uuid.UUID, storeID *uuid.UUID, parsed entity.ParsedReceipt) (entity.StoredReceipt, error)
}

// Invalidator drops cached comparisons for the given item names.
type Invalidator interface {
	Invalidate(ctx context.Context, itemNames ...string) error
}

// Result is what one ProcessFile call produced.
type Result struct {
	Parsed     entity.ParsedReceipt
	OutputPath string
	Recorded   bool
	ReceiptID  *uuid.UUID
}

// Processor runs parse, validate, optional price recording and the outbox write.
type Processor struct {
	parser      ReceiptParser
	recorder    *pricing.Recorder
	saver       ReceiptSaver
	invalidator Invalidator
	storeID     uuid.UUID
	userID      uuid.UUID
	outboxDir   string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type ProcessorOption func(*Processor)

// WithRecording records prices for every valid receipt against one store and user.
func WithRecording(recorder *pricing.Recorder, storeID, userID uuid.UUID) ProcessorOption {
	return func(p *Processor) {
		p.recorder, p.storeID, p.userID = recorder, storeID, userID
	}
}

func WithReceiptSaver(s ReceiptSaver) ProcessorOption {
	return func(p *Processor) { p.saver = s }
}

func WithInvalidator(inv Invalidator) ProcessorOption {
	return func(p *Processor) { p.invalidator = inv }
}

// WithOutbox writes results under dir instead of next to the input file.
func WithOutbox(dir string) ProcessorOption {
	return func(p *Processor) { p.outboxDir = dir }
}

func WithMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

func NewProcessor(parser ReceiptParser, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{parser: parser, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile parses path and writes <name>.receipt.json. Prices are recorded
// only for receipts that pass validation; a failed write is logged and the
// result still reaches the outbox.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	parsed, err := p.parser.Parse(ctx, path)
	if err != nil {
		p.metrics.ReceiptProcessed(metrics.OutcomeFailed, 0, 0)
		p.logger.Error("processor.parse.failed", "path", path, "error", err)
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	outcome := metrics.OutcomeValid
	if !parsed.Validation.IsValid {
		outcome = metrics.OutcomeInvalid
	}
	p.metrics.ReceiptProcessed(outcome, len(parsed.Receipt.Items), parsed.Validation.ConfidenceScore)

	res := Result{Parsed: parsed}
	if parsed.Validation.IsValid && p.recorder != nil {
		res.Recorded = p.recorder.StoreReceiptPrices(ctx, parsed.Receipt, p.storeID, p.userID)
		if res.Recorded && p.invalidator != nil {
			if err := p.invalidator.Invalidate(ctx, itemNames(parsed.Receipt)...); err != nil {
				p.logger.Warn("processor.cache.invalidate_failed", "path", path, "error", err)
			}
		}
	}
	if p.saver != nil && p.userID != uuid.Nil {
		var storeID *uuid.UUID
		if p.storeID != uuid.Nil {
			storeID = &p.storeID
		}
		stored, err := p.saver.Save(ctx, p.userID, storeID, parsed)
		if err != nil {
			p.logger.Warn("processor.receipt.save_failed", "path", path, "error", err)
		} else {
			res.ReceiptID = &stored.ID
		}
	}

	out, err := p.writeResult(path, parsed)
	if err != nil {
		p.logger.Error("processor.write.failed", "path", path, "error", err)
		return res, err
	}
	res.OutputPath = out

	p.metrics.JobDuration(time.Since(start).Seconds())
	p.logger.Info("processor.file.ok",
		"path", path,
		"method", parsed.Method,
		"items", len(parsed.Receipt.Items),
		"valid", parsed.Validation.IsValid,
		"confidence", parsed.Validation.ConfidenceScore,
		"tier", constants.ConfidenceTier(parsed.Validation.ConfidenceScore),
		"recorded", res.Recorded,
		"output", out,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// OutputPath is where the result for path is written.
func (p *Processor) OutputPath(path string) string {
	dir := p.outboxDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, base+constants.ResultSuffix)
}

func (p *Processor) writeResult(path string, parsed entity.ParsedReceipt) (string, error) {
	out := p.OutputPath(path)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create outbox: %w", err)
	}
	b, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return out, nil
}

func itemNames(r entity.ReceiptData) []string {
	names := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		names = append(names, it.Name)
	}
	return names
}
