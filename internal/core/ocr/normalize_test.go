package ocr

import (
	"testing"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps price punctuation", "MILK 2L   $4.20", "MILK 2L $4.20"},
		{"strips artifacts", "BREAD|WHT~ 700G ¦ $3.50", "BREADWHT 700G $3.50"},
		{"keeps allowed symbols", "Q#12 @ 2/3 (x) & co, *", "Q#12 @ 2/3 (x) & co, *"},
		{"does not substitute letters", "O0l1 COLA", "O0l1 COLA"},
		{"tabs and newlines collapse", "\tTOTAL\n\n13.69 ", "TOTAL 13.69"},
		{"all noise", "|~^!", ""},
		{"empty", "", ""},
		{"unicode letters survive", "Café Latte 4.50", "Café Latte 4.50"},
		{"no-break space separates words", "MILK\u00a02L $4.20", "MILK 2L $4.20"},
		{"ideographic space collapses", "EGGS\u3000\u00a0 12PK", "EGGS 12PK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable(""))
	assert.False(t, Usable("x"))
	assert.True(t, Usable("xy"))
}

func frag(text string, y, conf float64) entity.TextFragment {
	return entity.TextFragment{
		Text:        text,
		BoundingBox: entity.BoundingBox{{X: 0, Y: y}, {X: 10, Y: y}, {X: 10, Y: y + 5}, {X: 0, Y: y + 5}},
		Confidence:  conf,
	}
}

func TestSortByY(t *testing.T) {
	in := []entity.TextFragment{frag("c", 30, 1), frag("a", 10, 1), frag("b1", 20, 1), frag("b2", 20, 1)}
	got := SortByY(in)

	texts := make([]string, len(got))
	for i, f := range got {
		texts[i] = f.Text
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, texts)
	assert.Equal(t, "c", in[0].Text, "input must not be reordered")
}

func TestFilterByConfidence(t *testing.T) {
	in := []entity.TextFragment{frag("keep", 0, 0.9), frag("drop", 10, 0.2), frag("edge", 20, 0.5)}
	assert.Len(t, FilterByConfidence(in, 0.5), 2)
	assert.Len(t, FilterByConfidence(in, 0), 3)
}

func TestFromLines(t *testing.T) {
	frags := FromLines([]string{"first", "second"})
	assert.Len(t, frags, 2)
	assert.Less(t, frags[0].BoundingBox.Top(), frags[1].BoundingBox.Top())
}
