package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/core/ocr"
	"github.com/joseph-ayodele/receiptradar/internal/core/parser"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// MethodOCR labels receipts reconstructed from OCR fragments.
const MethodOCR = "ocr"

// FragmentSource produces OCR fragments for an image; *ocr.Engine satisfies it.
type FragmentSource interface {
	Fragments(ctx context.Context, path string) ([]entity.TextFragment, error)
}

// HybridParser prefers a vision model and falls back to OCR plus the rule parser.
type HybridParser struct {
	vision        VisionExtractor
	ocr           FragmentSource
	parser        *parser.Parser
	categorizer   *parser.Categorizer
	minConfidence float64
	logger        *slog.Logger
}

// NewHybridParser builds a parser. vision may be nil, in which case every image goes through OCR.
func NewHybridParser(vision VisionExtractor, source FragmentSource, minConfidence float64, logger *slog.Logger) *HybridParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridParser{
		vision:        vision,
		ocr:           source,
		parser:        parser.New(logger),
		categorizer:   parser.NewCategorizer(),
		minConfidence: minConfidence,
		logger:        logger,
	}
}

// Parse reconstructs the receipt at path. Fragment JSON files skip the vision step.
func (h *HybridParser) Parse(ctx context.Context, path string) (entity.ParsedReceipt, error) {
	start := time.Now()
	format := constants.MapExtToFormat(filepath.Ext(path))

	if format == constants.FormatImage && h.vision != nil {
		rec, err := h.parseVision(ctx, path)
		switch {
		case err == nil && Usable(rec):
			out := h.finish(rec, "vision:"+h.vision.Name(), path)
			h.logger.Info("llm.hybrid.ok", "method", out.Method, "items", len(rec.Items),
				"elapsed_ms", time.Since(start).Milliseconds())
			return out, nil
		case err == nil:
			h.logger.Warn("llm.hybrid.vision_empty", "path", path, "provider", h.vision.Name())
		default:
			h.logger.Warn("llm.hybrid.vision_failed", "path", path, "provider", h.vision.Name(), "error", err)
		}
	}

	var frags []entity.TextFragment
	var err error
	switch format {
	case constants.FormatFragments:
		frags, err = ocr.ReadFragmentsFile(path)
	case constants.FormatImage:
		if h.ocr == nil {
			return entity.ParsedReceipt{}, errors.New("no OCR engine configured")
		}
		frags, err = h.ocr.Fragments(ctx, path)
	default:
		return entity.ParsedReceipt{}, fmt.Errorf("unsupported input: %s", path)
	}
	if err != nil {
		return entity.ParsedReceipt{}, fmt.Errorf("fragments: %w", err)
	}
	if h.minConfidence > 0 {
		frags = ocr.FilterByConfidence(frags, h.minConfidence)
	}

	out := h.finish(h.parser.Parse(frags), MethodOCR, path)
	h.logger.Info("llm.hybrid.ok", "method", out.Method, "fragments", len(frags), "items", len(out.Receipt.Items),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (h *HybridParser) parseVision(ctx context.Context, path string) (entity.ReceiptData, error) {
	img, err := LoadImage(path)
	if err != nil {
		return entity.ReceiptData{}, err
	}
	v, _, err := h.vision.ExtractReceipt(ctx, img)
	if err != nil {
		return entity.ReceiptData{}, err
	}
	return ToReceiptData(v, h.categorizer.Categorize), nil
}

func (h *HybridParser) finish(rec entity.ReceiptData, method, path string) entity.ParsedReceipt {
	return entity.ParsedReceipt{
		Receipt:    rec,
		Validation: parser.Validate(rec),
		Method:     method,
		SourcePath: path,
	}
}
