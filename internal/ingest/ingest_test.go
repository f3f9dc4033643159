package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestEligible(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"inbox/scan.jpg", true},
		{"inbox/SCAN.PNG", true},
		{"inbox/fragments.json", true},
		{"inbox/scan.tiff", true},
		{"inbox/scan.receipt.json", false},
		{"inbox/.scan.jpg", false},
		{"inbox/scan.jpg.tmp", false},
		{"inbox/notes.txt", false},
		{"inbox/receipt.pdf", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(tt.path))
		})
	}
}

func TestDeduper(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.jpg"), "same bytes")
	write(t, filepath.Join(dir, "b.jpg"), "same bytes")
	write(t, filepath.Join(dir, "c.jpg"), "other bytes")

	d := NewDeduper()
	h1, dup, err := d.Check(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Len(t, h1, 64)

	h2, dup, err := d.Check(filepath.Join(dir, "b.jpg"))
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, h1, h2)

	_, dup, err = d.Check(filepath.Join(dir, "c.jpg"))
	require.NoError(t, err)
	assert.False(t, dup)

	_, _, err = d.Check(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestSweepDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "one.jpg"), "1")
	write(t, filepath.Join(root, "copy-of-one.jpg"), "1")
	write(t, filepath.Join(root, "sub", "two.json"), "[]")
	write(t, filepath.Join(root, "sub", "two.receipt.json"), "{}")
	write(t, filepath.Join(root, ".cache", "hidden.jpg"), "h")
	write(t, filepath.Join(root, "fail.png"), "f")
	write(t, filepath.Join(root, "readme.txt"), "x")

	var got []string
	sink := func(_ context.Context, path string) error {
		if filepath.Base(path) == "fail.png" {
			return errors.New("queue closed")
		}
		got = append(got, filepath.Base(path))
		return nil
	}

	results, stats, err := SweepDirectory(context.Background(), root, NewDeduper(), sink, nil)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "two.json")
	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Len(t, results, 4)
}

func TestSweepDirectory_RequiresRoot(t *testing.T) {
	_, _, err := SweepDirectory(context.Background(), " ", nil, nil, nil)
	assert.Error(t, err)
}

func TestStartWatcher_DebouncesAndFilters(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	target := filepath.Join(root, "scan.jpg")
	for i := 0; i < 5; i++ {
		write(t, target, "chunk")
	}
	write(t, filepath.Join(root, "scan.receipt.json"), "{}")
	write(t, filepath.Join(root, ".partial.jpg"), "x")

	select {
	case p := <-events:
		assert.Equal(t, target, p)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for new receipt")
	}

	select {
	case p := <-events:
		t.Fatalf("unexpected second event %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
