package ocr

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// SortByY returns a copy of fragments ordered by top-left Y. The sort is
// stable so already-ordered input comes back unchanged.
func SortByY(fragments []entity.TextFragment) []entity.TextFragment {
	out := make([]entity.TextFragment, len(fragments))
	copy(out, fragments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BoundingBox.Top() < out[j].BoundingBox.Top()
	})
	return out
}

// FilterByConfidence drops fragments below min. A non-positive min keeps everything.
func FilterByConfidence(fragments []entity.TextFragment, min float64) []entity.TextFragment {
	if min <= 0 {
		return fragments
	}
	out := make([]entity.TextFragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Confidence >= min {
			out = append(out, f)
		}
	}
	return out
}

// FromLines builds synthetic fragments stacked top to bottom, for callers
// that only have plain text lines.
func FromLines(lines []string) []entity.TextFragment {
	out := make([]entity.TextFragment, len(lines))
	for i, ln := range lines {
		y := float64(i * 20)
		out[i] = entity.TextFragment{
			Text: ln,
			BoundingBox: entity.BoundingBox{
				{X: 0, Y: y}, {X: 100, Y: y}, {X: 100, Y: y + 15}, {X: 0, Y: y + 15},
			},
			Confidence: 1,
		}
	}
	return out
}

// ReadFragmentsFile loads a JSON array of fragments produced by an external OCR engine.
func ReadFragmentsFile(path string) ([]entity.TextFragment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fragments: %w", err)
	}
	var frags []entity.TextFragment
	if err := json.Unmarshal(b, &frags); err != nil {
		return nil, fmt.Errorf("decode fragments %s: %w", path, err)
	}
	return frags, nil
}
