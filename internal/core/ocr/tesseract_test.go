package ocr

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receiptradar/internal/common"
)

type stubRunner struct {
	out  string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, _ string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.args = args
	return []byte(s.out), []byte("boom"), s.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t600\t800\t-1\t\n" +
	"5\t1\t1\t1\t2\t1\t10\t60\t50\t12\t90\tMILK\n" +
	"5\t1\t1\t1\t2\t2\t70\t61\t30\t12\t80\t2L\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t120\t14\t96\tCOUNTDOWN\n" +
	"5\t1\t1\t1\t1\t2\t140\t10\t40\t14\t-1\t \n"

func TestParseTSV(t *testing.T) {
	frags := ParseTSV(sampleTSV)
	require.Len(t, frags, 2)

	assert.Equal(t, "COUNTDOWN", frags[0].Text)
	assert.InDelta(t, 0.96, frags[0].Confidence, 1e-9)

	assert.Equal(t, "MILK 2L", frags[1].Text)
	assert.InDelta(t, 0.85, frags[1].Confidence, 1e-9)
	assert.Equal(t, 10.0, frags[1].BoundingBox[0].X)
	assert.Equal(t, 60.0, frags[1].BoundingBox[0].Y)
	assert.Equal(t, 100.0, frags[1].BoundingBox[2].X)
	assert.Equal(t, 73.0, frags[1].BoundingBox[2].Y)
}

func TestEngineFragments(t *testing.T) {
	r := &stubRunner{out: sampleTSV}
	e := NewEngine(Config{PSM: 4}, r, nil)

	frags, err := e.Fragments(context.Background(), "/tmp/r.png")
	require.NoError(t, err)
	assert.Len(t, frags, 2)
	assert.Equal(t, []string{"/tmp/r.png", "stdout", "-l", "eng", "--psm", "4", "tsv"}, r.args)
}

func TestEngineFragmentsError(t *testing.T) {
	e := NewEngine(Config{}, &stubRunner{err: errors.New("exit 1")}, nil)
	_, err := e.Fragments(context.Background(), "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract tsv")
}

func TestEngineFragmentsMissingBinary(t *testing.T) {
	e := NewEngine(Config{Tesseract: "tesseract-not-installed-here"}, nil, nil)
	_, err := e.Fragments(context.Background(), "x.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}
