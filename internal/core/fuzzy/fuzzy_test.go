package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("milk", "milk"))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	// lcs("milk","mik") = 3 -> 200*3/7
	assert.InDelta(t, 85.714, Ratio("milk", "mik"), 0.001)
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"exact substring", "bread wht 700g", "bread", 100},
		{"argument order irrelevant", "bread", "bread wht 700g", 100},
		{"multi-word keyword", "cream cheese spread", "cream cheese", 100},
		{"no shared letters", "xyz", "milk", 0},
		{"empty", "", "milk", 0},
		// best window "aple" vs "apple": lcs 4 -> 200*4/9
		{"ocr dropped letter", "aple red", "apple", 88.888},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PartialRatio(tt.a, tt.b), 0.01)
		})
	}
}

func TestPartialRatioSymmetricForEqualLengths(t *testing.T) {
	assert.Equal(t, PartialRatio("abcd", "bcda"), PartialRatio("bcda", "abcd"))
}
