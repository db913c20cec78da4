package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestIngestPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.md")
	write(t, p, "abc")

	src, err := NewIngestor(nil).IngestPath(p)

	require.NoError(t, err)
	assert.Equal(t, "md", src.Ext)
	assert.Equal(t, constants.TEXT, src.Format)
	assert.Equal(t, int64(3), src.SizeBytes)
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", src.HashHex)
}

func TestIngestPath_Unsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.docx")
	write(t, p, "x")

	_, err := NewIngestor(nil).IngestPath(p)

	assert.ErrorIs(t, err, common.ErrUnsupported)
}

func TestIngestPath_ContentMismatch(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"fake.pdf", "Invoice No: 12", true},
		{"real.pdf", "%PDF-1.7\n", false},
		{"photo.png", "%PDF-1.4\n", true},
		{"photo.jpg", "\xff\xd8\xff\xe0\x00\x10JFIF\x00", false},
		{"notes.md", "%PDF-1.4\n", true},
		{"notes.txt", "Company Name: EQMS", false},
		{"empty.pdf", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.name)
			write(t, p, tt.body)

			src, err := NewIngestor(nil).IngestPath(p)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.body)), src.SizeBytes)
		})
	}
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "one.md"), "same body")
	write(t, filepath.Join(root, "nested", "two.txt"), "same body")
	write(t, filepath.Join(root, "nested", "three.pdf"), "%PDF-1.4")
	write(t, filepath.Join(root, "notes.docx"), "ignored")
	write(t, filepath.Join(root, ".hidden", "four.md"), "hidden")

	sources, stats, err := NewIngestor(nil).IngestDirectory(root, true)

	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(0), stats.Failed)
	require.Len(t, sources, 3)

	var dups int
	for _, s := range sources {
		if s.Deduplicated {
			dups++
		}
	}
	assert.Equal(t, 1, dups)
}

func TestIngestDirectory_EmptyRoot(t *testing.T) {
	_, _, err := NewIngestor(nil).IngestDirectory("  ", false)
	assert.Error(t, err)
}

func TestWatch_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "existing.md"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := NewIngestor(nil).Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    20 * time.Millisecond,
	})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "existing.md"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial scan event")
	}

	write(t, filepath.Join(root, "new.txt"), "y")
	write(t, filepath.Join(root, "skip.docx"), "z")

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.txt"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for new file")
	}

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := NewIngestor(nil).Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
