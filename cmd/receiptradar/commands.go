package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/core"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm"
	"github.com/joseph-ayodele/receiptradar/internal/core/llm/provider"
	"github.com/joseph-ayodele/receiptradar/internal/core/ocr"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/export"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

var errUsage = errors.New("wrong number of arguments")

func (a *app) parseCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("parse").SetParent(parent)
	xlsx := fs.StringLong("xlsx", "", "also write the receipt to this workbook")
	noVision := fs.BoolLong("no-vision", "skip the vision provider and use OCR only")

	return &ff.Command{
		Name:      "parse",
		Usage:     "receiptradar parse [FLAGS] <image|fragments.json>",
		ShortHelp: "reconstruct a receipt and print it as JSON",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			if err := a.setup(); err != nil {
				return err
			}
			if *noVision {
				a.cfg.Vision.Provider = "none"
			}
			parser, closeParser, err := a.parser(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeParser() }()

			parsed, err := parser.Parse(ctx, args[0])
			if err != nil {
				return err
			}
			if *xlsx != "" {
				if err := export.NewService(a.logger).ExportReceipt(parsed.Receipt, parsed.Validation, *xlsx); err != nil {
					return err
				}
			}
			return writeJSON(a.stdout, parsed)
		},
	}
}

func (a *app) recordCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("record").SetParent(parent)
	store := fs.StringLong("store", "", "store ID the receipt was issued by")
	user := fs.StringLong("user", "", "user ID recording the receipt")
	outbox := fs.StringLong("outbox", "", "directory for the result JSON (default: next to the input)")

	return &ff.Command{
		Name:      "record",
		Usage:     "receiptradar record --store ID --user ID <image|fragments.json>",
		ShortHelp: "parse a receipt and record its prices",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			storeID, err := parseID("store", *store)
			if err != nil {
				return err
			}
			userID, err := parseID("user", *user)
			if err != nil {
				return err
			}
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			if _, err := b.Users.Register(ctx, userID); err != nil {
				return err
			}
			parser, closeParser, err := a.parser(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeParser() }()

			opts := []core.ProcessorOption{
				core.WithRecording(pricing.NewRecorder(b.History, a.logger, nil), storeID, userID),
			}
			if *outbox != "" {
				opts = append(opts, core.WithOutbox(*outbox))
			}
			if b.Receipts != nil {
				opts = append(opts, core.WithReceiptSaver(b.Receipts))
			}
			if b.Cache != nil {
				opts = append(opts, core.WithInvalidator(b.Cache))
			}
			res, err := core.NewProcessor(parser, a.logger, opts...).ProcessFile(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, map[string]any{
				"output":     res.OutputPath,
				"recorded":   res.Recorded,
				"receipt_id": res.ReceiptID,
				"method":     res.Parsed.Method,
				"validation": res.Parsed.Validation,
			})
		},
	}
}

func (a *app) analyzeCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("analyze").SetParent(parent)
	store := fs.StringLong("store", "", "store the basket was bought at")
	xlsx := fs.StringLong("xlsx", "", "also write the savings to this workbook")

	return &ff.Command{
		Name:      "analyze",
		Usage:     "receiptradar analyze --store ID <receipt.json>",
		ShortHelp: "find cheaper stores for the items of a parsed receipt",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return errUsage
			}
			storeID, err := parseID("store", *store)
			if err != nil {
				return err
			}
			receipt, err := readReceipt(args[0])
			if err != nil {
				return err
			}
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			analyzer := pricing.NewAnalyzer(b.History, a.logger,
				pricing.WithLookbackDays(a.cfg.Pricing.SavingsLookbackDays),
				pricing.WithMinPointConfidence(a.cfg.Pricing.MinPointConfidence),
			)
			analysis := analyzer.AnalyzeBasket(ctx, receipt.Items, storeID)
			if *xlsx != "" {
				if err := export.NewService(a.logger).ExportBasket(analysis, *xlsx); err != nil {
					return err
				}
			}
			return writeJSON(a.stdout, analysis)
		},
	}
}

func (a *app) historyCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("history").SetParent(parent)
	store := fs.StringLong("store", "", "limit to one store ID")
	days := fs.IntLong("days", 0, "lookback in days (default RADAR_PRICING_HISTORY_DAYS)")

	return &ff.Command{
		Name:      "history",
		Usage:     "receiptradar history [--store ID] [--days N] <item name>",
		ShortHelp: "print the recorded prices of an item",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			var storeID *uuid.UUID
			if *store != "" {
				id, err := parseID("store", *store)
				if err != nil {
					return err
				}
				storeID = &id
			}
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			lookback := *days
			if lookback <= 0 {
				lookback = a.cfg.Pricing.HistoryDays
			}
			name := pricing.NormalizeItemName(strings.Join(args, " "))
			if name == "" {
				return common.NewAppError(common.CodeInvalidArgument, "item name is empty after normalization", common.ErrInvalidArgument)
			}
			points, err := b.History.PriceHistory(ctx, name, storeID, lookback)
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, points)
		},
	}
}

func (a *app) compareCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("compare").SetParent(parent)
	return &ff.Command{
		Name:      "compare",
		Usage:     "receiptradar compare <item name>",
		ShortHelp: "compare an item's recent prices across active stores",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			stats, err := b.Comparer.CompareStores(ctx, pricing.NormalizeItemName(strings.Join(args, " ")))
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, stats)
		},
	}
}

func (a *app) storesCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("stores").SetParent(parent)

	addFlags := ff.NewFlagSet("add").SetParent(fs)
	name := addFlags.StringLong("name", "", "display name")
	chain := addFlags.StringLong("chain", "", "chain the store belongs to")
	location := addFlags.StringLong("location", "", "suburb or address")
	inactive := addFlags.BoolLong("inactive", "create the store without including it in comparisons")
	known := fs.BoolLong("known", "list the chains recognised on receipt headers instead")

	list := func(ctx context.Context, args []string) error {
		if *known {
			for _, s := range constants.KnownStores() {
				fmt.Fprintln(a.stdout, s)
			}
			return nil
		}
		b, err := a.open(ctx)
		if err != nil {
			return err
		}
		stores, err := b.Stores.ListActive(ctx)
		if err != nil {
			return err
		}
		return writeJSON(a.stdout, stores)
	}

	return &ff.Command{
		Name:      "stores",
		Usage:     "receiptradar stores [--known] [add --name NAME]",
		ShortHelp: "list active stores or add one",
		Flags:     fs,
		Exec:      list,
		Subcommands: []*ff.Command{{
			Name:      "add",
			Usage:     "receiptradar stores add --name NAME [--chain C] [--location L]",
			ShortHelp: "register a store",
			Flags:     addFlags,
			Exec: func(ctx context.Context, args []string) error {
				if strings.TrimSpace(*name) == "" {
					return common.NewAppError(common.CodeInvalidArgument, "--name is required", common.ErrInvalidArgument)
				}
				b, err := a.open(ctx)
				if err != nil {
					return err
				}
				created, err := b.Stores.Create(ctx, entity.Store{
					Name:     strings.TrimSpace(*name),
					Chain:    *chain,
					Location: *location,
					Active:   !*inactive,
				})
				if err != nil {
					return err
				}
				return writeJSON(a.stdout, created)
			},
		}},
	}
}

func (a *app) correctCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("correct").SetParent(parent)
	receipt := fs.StringLong("receipt", "", "receipt ID returned by record")
	user := fs.StringLong("user", "", "user making the correction")
	origName := fs.StringLong("name", "", "item name as segmented")
	origPrice := fs.StringLong("price", "", "item price as segmented")
	origQty := fs.IntLong("quantity", 1, "item quantity as segmented")
	newName := fs.StringLong("to-name", "", "corrected name (default: unchanged)")
	newPrice := fs.StringLong("to-price", "", "corrected price")
	newQty := fs.IntLong("to-quantity", 0, "corrected quantity")
	newCategory := fs.StringLong("to-category", "", "corrected category")

	return &ff.Command{
		Name:      "correct",
		Usage:     "receiptradar correct --receipt ID --user ID --name N --price P [--to-* ...]",
		ShortHelp: "record a fix to a segmented item",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			receiptID, err := parseID("receipt", *receipt)
			if err != nil {
				return err
			}
			userID, err := parseID("user", *user)
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(*origPrice)
			if err != nil {
				return common.NewAppError(common.CodeInvalidArgument, "--price: "+err.Error(), common.ErrInvalidArgument)
			}
			c := entity.ItemCorrection{
				ReceiptID:        receiptID,
				UserID:           userID,
				OriginalName:     *origName,
				CorrectedName:    *newName,
				OriginalPrice:    price,
				OriginalQuantity: *origQty,
			}
			if c.CorrectedName == "" {
				c.CorrectedName = c.OriginalName
			}
			if *newPrice != "" {
				p, err := decimal.NewFromString(*newPrice)
				if err != nil {
					return common.NewAppError(common.CodeInvalidArgument, "--to-price: "+err.Error(), common.ErrInvalidArgument)
				}
				c.CorrectedPrice = &p
			}
			if *newQty != 0 {
				c.CorrectedQuantity = newQty
			}
			if *newCategory != "" {
				cat, ok := constants.Canonicalize(*newCategory)
				if !ok {
					return common.NewAppError(common.CodeInvalidArgument, "unknown category "+*newCategory, common.ErrInvalidArgument)
				}
				c.CorrectedCategory = &cat
			}

			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			if b.Corrections == nil {
				return common.NewAppError(common.CodeInvalidArgument, "corrections need the postgres backend", common.ErrInvalidArgument)
			}
			saved, err := b.Corrections.Record(ctx, c)
			if err != nil {
				return err
			}
			return writeJSON(a.stdout, saved)
		},
	}
}

func (a *app) categoriesCommand(parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("categories").SetParent(parent)
	return &ff.Command{
		Name:      "categories",
		Usage:     "receiptradar categories",
		ShortHelp: "list the grocery categories items are assigned to",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			for _, c := range constants.AsStringSlice() {
				fmt.Fprintln(a.stdout, c)
			}
			return nil
		},
	}
}

// parser builds the hybrid parser from configuration. The close func is never nil.
func (a *app) parser(ctx context.Context) (*llm.HybridParser, func() error, error) {
	vision, closeVision, err := provider.New(ctx, a.cfg.Vision, a.logger)
	if err != nil {
		return nil, closeVision, err
	}
	engine := ocr.NewEngine(ocr.Config{
		Tesseract:   a.cfg.OCR.Tesseract,
		Lang:        a.cfg.OCR.Lang,
		TessdataDir: a.cfg.OCR.TessdataDir,
		PSM:         a.cfg.OCR.PSM,
	}, nil, a.logger)
	return llm.NewHybridParser(vision, engine, a.cfg.OCR.MinConfidence, a.logger), closeVision, nil
}

// readReceipt accepts either a processor result (ParsedReceipt) or bare receipt JSON.
func readReceipt(path string) (entity.ReceiptData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return entity.ReceiptData{}, err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return entity.ReceiptData{}, common.NewAppError(common.CodeParse, "decode "+path, errors.Join(common.ErrParseFailed, err))
	}
	if raw, ok := probe["receipt"]; ok {
		b = raw
	}
	var r entity.ReceiptData
	if err := json.Unmarshal(b, &r); err != nil {
		return entity.ReceiptData{}, common.NewAppError(common.CodeParse, "decode "+path, errors.Join(common.ErrParseFailed, err))
	}
	return r, nil
}

func parseID(flag, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, common.NewAppError(common.CodeInvalidArgument, "--"+flag+" must be a UUID", common.ErrInvalidArgument)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
