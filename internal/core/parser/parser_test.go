package parser

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/core/ocr"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var countdownLines = []string{
	"COUNTDOWN MT ALBERT",
	"15/12/2024",
	"BREAD WHT 700G $3.50",
	"MILK 2L $4.20",
	"APPLE RED 1KG $5.99",
	"TOTAL $13.69",
}

func TestParseCountdownReceipt(t *testing.T) {
	p := New(nil)
	r := p.Parse(ocr.FromLines(countdownLines))

	require.NotNil(t, r.StoreName)
	assert.Equal(t, "COUNTDOWN MT ALBERT", *r.StoreName)
	require.NotNil(t, r.Date)
	assert.Equal(t, time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC), *r.Date)
	require.NotNil(t, r.Total)
	assert.Equal(t, "13.69", r.Total.StringFixed(2))
	assert.Nil(t, r.Subtotal)
	assert.Nil(t, r.Tax)

	require.Len(t, r.Items, 3)
	wantNames := []string{"BREAD WHT 700G", "MILK 2L", "APPLE RED 1KG"}
	wantCats := []constants.Category{constants.Pantry, constants.Dairy, constants.FreshProduce}
	for i, it := range r.Items {
		assert.Equal(t, wantNames[i], it.Name)
		require.NotNil(t, it.Category)
		assert.Equal(t, wantCats[i], *it.Category)
		assert.Equal(t, 1, it.Quantity)
	}

	rep := Validate(r)
	assert.True(t, rep.IsValid)
	assert.Empty(t, rep.Issues)
	assert.Empty(t, rep.Warnings)
	assert.InDelta(t, 0.66, rep.ConfidenceScore, 1e-9)
}

func TestParseOrdersByY(t *testing.T) {
	frags := ocr.FromLines(countdownLines)
	shuffled := []entity.TextFragment{frags[5], frags[2], frags[0], frags[4], frags[1], frags[3]}

	p := New(nil)
	assert.Equal(t, p.Parse(frags), p.Parse(shuffled))
}

func TestParseIsIdempotent(t *testing.T) {
	p := New(nil)
	frags := ocr.FromLines(countdownLines)
	first := p.Parse(frags)
	second := p.Parse(frags)
	assert.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestParseEmptyInput(t *testing.T) {
	r := New(nil).Parse(nil)
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
	assert.Nil(t, r.StoreName)
	assert.Nil(t, r.Date)
	assert.Nil(t, r.Total)
	assert.Nil(t, r.Subtotal)
	assert.Nil(t, r.Tax)
	assert.Nil(t, r.ReceiptNumber)

	rep := Validate(r)
	assert.False(t, rep.IsValid)
	assert.Equal(t, []string{IssueNoStore, IssueNoTotal, IssueNoItems}, rep.Issues)
	assert.Zero(t, rep.ConfidenceScore)
}

func TestParseDropsNoiseFragments(t *testing.T) {
	r := New(nil).ParseLines([]string{"|", "~~", "NEW WORLD", "x", "MILK 2L $4.20", "TOTAL 4.20"})
	require.NotNil(t, r.StoreName)
	assert.Equal(t, "NEW WORLD", *r.StoreName)
	require.Len(t, r.Items, 1)
}

func TestParseQuantityLine(t *testing.T) {
	r := New(nil).ParseLines([]string{"2 x BREAD WHT 700G $7.00"})
	require.Len(t, r.Items, 1)
	it := r.Items[0]
	assert.Equal(t, "BREAD WHT 700G", it.Name)
	assert.Equal(t, "7.00", it.Price.StringFixed(2))
	assert.Equal(t, 2, it.Quantity)
}

func TestParseRejectsOutOfRangePrice(t *testing.T) {
	r := New(nil).Parse([]entity.TextFragment{{Text: "BULK ORDER  15000.00", Confidence: 0.9}})
	assert.Empty(t, r.Items)
}

func TestParseUsesRawLineForLayoutSignal(t *testing.T) {
	r := New(nil).Parse([]entity.TextFragment{{Text: "GADGET      12.00", Confidence: 0.9}})
	require.Len(t, r.Items, 1)
	// 0.5 + name 0.2 + price 0.2 + tabular 0.1 + clean 0.1, capped
	assert.Equal(t, 0.95, r.Items[0].Confidence)
}

func TestParseReceiptNumberAndTaxLines(t *testing.T) {
	r := New(nil).ParseLines([]string{
		"PAKnSAVE ALBANY",
		"Receipt: 99812",
		"CHEDDAR 1KG 12.99",
		"SUBTOTAL 12.99",
		"GST 1.69",
		"TOTAL 12.99",
	})
	require.NotNil(t, r.ReceiptNumber)
	assert.Equal(t, "99812", *r.ReceiptNumber)
	require.NotNil(t, r.Subtotal)
	require.NotNil(t, r.Tax)
	assert.Equal(t, "1.69", r.Tax.StringFixed(2))
	require.Len(t, r.Items, 1)
}

func TestReceiptJSONShape(t *testing.T) {
	r := New(nil).ParseLines(countdownLines)
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "2024-12-15", m["date"])
	assert.Equal(t, 13.69, m["total"])
	assert.Nil(t, m["subtotal"])

	var back entity.ReceiptData
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Len(t, back.Items, 3)
	assert.Equal(t, "13.69", back.Total.StringFixed(2))

	empty, err := json.Marshal(entity.NewReceiptData())
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"date":""`)
	assert.Contains(t, string(empty), `"items":[]`)
}
