package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

type stubParser struct {
	parsed entity.ParsedReceipt
	err    error
}

func (s stubParser) Parse(_ context.Context, path string) (entity.ParsedReceipt, error) {
	out := s.parsed
	out.SourcePath = path
	return out, s.err
}

type stubWriter struct {
	batches []entity.PriceBatch
	err     error
}

func (w *stubWriter) RecordReceipt(_ context.Context, b entity.PriceBatch) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, b)
	return nil
}

type stubSaver struct{ saved int }

func (s *stubSaver) Save(_ context.Context, userID uuid.UUID, _ *uuid.UUID, parsed entity.ParsedReceipt) (entity.StoredReceipt, error) {
	s.saved++
	return entity.StoredReceipt{ID: uuid.New(), UserID: userID}, nil
}

type stubInvalidator struct{ names []string }

func (s *stubInvalidator) Invalidate(_ context.Context, names ...string) error {
	s.names = append(s.names, names...)
	return nil
}

func parsedReceipt(valid bool) entity.ParsedReceipt {
	store := "FreshMart"
	total := decimal.RequireFromString("4.20")
	rec := entity.NewReceiptData()
	rec.StoreName, rec.Total = &store, &total
	rec.Items = []entity.ReceiptItem{{Name: "MILK 2L", Price: total, Quantity: 1, Confidence: 0.8}}
	return entity.ParsedReceipt{
		Receipt:    rec,
		Validation: entity.ValidationReport{IsValid: valid, ConfidenceScore: 0.8, Issues: []string{}, Warnings: []string{}},
		Method:     "ocr",
	}
}

func TestProcessor_ProcessFile(t *testing.T) {
	tests := []struct {
		name         string
		parsed       entity.ParsedReceipt
		writerErr    error
		wantRecorded bool
		wantBatches  int
		wantOutcome  string
	}{
		{name: "valid receipt is recorded", parsed: parsedReceipt(true), wantRecorded: true, wantBatches: 1, wantOutcome: metrics.OutcomeValid},
		{name: "invalid receipt is not recorded", parsed: parsedReceipt(false), wantOutcome: metrics.OutcomeInvalid},
		{name: "failed write still reaches outbox", parsed: parsedReceipt(true), writerErr: errors.New("tx aborted"), wantOutcome: metrics.OutcomeValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			outbox := filepath.Join(dir, "outbox")
			m := metrics.New(prometheus.NewRegistry())
			writer := &stubWriter{err: tt.writerErr}
			saver := &stubSaver{}
			inv := &stubInvalidator{}
			storeID, userID := uuid.New(), uuid.New()

			p := NewProcessor(stubParser{parsed: tt.parsed}, nil,
				WithRecording(pricing.NewRecorder(writer, nil, m), storeID, userID),
				WithReceiptSaver(saver),
				WithInvalidator(inv),
				WithOutbox(outbox),
				WithMetrics(m),
			)

			res, err := p.ProcessFile(context.Background(), filepath.Join(dir, "receipt.png"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantRecorded, res.Recorded)
			assert.Len(t, writer.batches, tt.wantBatches)
			assert.Equal(t, 1, saver.saved)
			require.NotNil(t, res.ReceiptID)
			if tt.wantRecorded {
				assert.Equal(t, []string{"MILK 2L"}, inv.names)
			} else {
				assert.Empty(t, inv.names)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiptsProcessedCounter(tt.wantOutcome)))

			assert.Equal(t, filepath.Join(outbox, "receipt.receipt.json"), res.OutputPath)
			b, err := os.ReadFile(res.OutputPath)
			require.NoError(t, err)
			var got struct {
				Receipt    entity.ReceiptData      `json:"receipt"`
				Validation entity.ValidationReport `json:"validation"`
				Method     string                  `json:"method"`
			}
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, "ocr", got.Method)
			require.Len(t, got.Receipt.Items, 1)
			assert.Equal(t, tt.parsed.Validation.IsValid, got.Validation.IsValid)
		})
	}
}

func TestProcessor_ParseFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewProcessor(stubParser{err: errors.New("tesseract missing")}, nil, WithMetrics(m))
	_, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "r.png"))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiptsProcessedCounter(metrics.OutcomeFailed)))
}

func TestProcessor_OutputPathDefaultsNextToInput(t *testing.T) {
	p := NewProcessor(stubParser{}, nil)
	assert.Equal(t, filepath.Join("inbox", "scan-01.receipt.json"), p.OutputPath(filepath.Join("inbox", "scan-01.jpg")))
}
