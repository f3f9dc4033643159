package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // 4 (single column of variable sizes) suits till receipts
	OEM         int // 0 = engine default
}

// Engine turns a receipt image into line fragments via tesseract TSV output.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// Fragments runs OCR on path and returns one fragment per detected text line,
// ordered top to bottom.
func (e *Engine) Fragments(ctx context.Context, path string) ([]entity.TextFragment, error) {
	start := time.Now()
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract tsv: %w: %s", err, truncate(string(errb), 512))
	}
	frags := ParseTSV(string(out))
	e.logger.Debug("ocr.tesseract.ok",
		"path", path,
		"fragments", len(frags),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return frags, nil
}

type lineKey struct{ block, par, line int }

type lineAcc struct {
	words                  []string
	confSum                float64
	left, top, right, bott float64
}

// ParseTSV groups tesseract word rows (level 5) into line fragments.
// Columns: level page block par line word left top width height conf text.
func ParseTSV(tsv string) []entity.TextFragment {
	var order []lineKey
	acc := map[lineKey]*lineAcc{}

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		nums, ok := atoiAll(cols[2], cols[3], cols[4], cols[6], cols[7], cols[8], cols[9])
		if !ok {
			continue
		}
		key := lineKey{nums[0], nums[1], nums[2]}
		left, top := float64(nums[3]), float64(nums[4])
		right, bott := left+float64(nums[5]), top+float64(nums[6])

		a, seen := acc[key]
		if !seen {
			a = &lineAcc{left: left, top: top, right: right, bott: bott}
			acc[key] = a
			order = append(order, key)
		}
		a.words = append(a.words, word)
		a.confSum += conf
		a.left = math.Min(a.left, left)
		a.top = math.Min(a.top, top)
		a.right = math.Max(a.right, right)
		a.bott = math.Max(a.bott, bott)
	}

	frags := make([]entity.TextFragment, 0, len(order))
	for _, k := range order {
		a := acc[k]
		frags = append(frags, entity.TextFragment{
			Text: strings.Join(a.words, " "),
			BoundingBox: entity.BoundingBox{
				{X: a.left, Y: a.top}, {X: a.right, Y: a.top},
				{X: a.right, Y: a.bott}, {X: a.left, Y: a.bott},
			},
			Confidence: a.confSum / float64(len(a.words)) / 100,
		})
	}
	return SortByY(frags)
}

func atoiAll(ss ...string) ([]int, bool) {
	out := make([]int, len(ss))
	for i, s := range ss {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
