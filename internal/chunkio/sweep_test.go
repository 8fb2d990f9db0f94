package chunkio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesOnlyExpiredChunks(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	oldBatch := NewBatchTimestamp(now.Add(-10 * 24 * time.Hour))
	freshBatch := NewBatchTimestamp(now.Add(-2 * 24 * time.Hour))

	oldPath, _, err := WriteChunk(dir, oldBatch, 1, 1, []byte("[]"))
	require.NoError(t, err)
	freshPath, _, err := WriteChunk(dir, freshBatch, 1, 1, []byte("[]"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	removed, err := Sweep(dir, 7*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "keep.txt"))
	assert.NoError(t, err)
}

func TestSweepMissingDir(t *testing.T) {
	removed, err := Sweep(filepath.Join(t.TempDir(), "missing"), time.Hour, time.Now())
	assert.NoError(t, err)
	assert.Zero(t, removed)
}

func TestZipChunks(t *testing.T) {
	dir := t.TempDir()
	batch := "2025-03-14-092653"

	path1, _, err := WriteChunk(dir, batch, 1, 2, []byte(`[{"external_id":"a"}]`))
	require.NoError(t, err)
	path2, _, err := WriteChunk(dir, batch, 2, 2, []byte(`[{"external_id":"b"}]`))
	require.NoError(t, err)

	chunks := []ChunkFile{
		{Name: filepath.Base(path1), Path: path1},
		{Name: filepath.Base(path2), Path: path2},
	}

	dest := filepath.Join(t.TempDir(), "offload.zip")
	require.NoError(t, ZipChunks(chunks, dest))

	reader, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer reader.Close()
	assert.Len(t, reader.File, 2)
	assert.Equal(t, filepath.Base(path1), reader.File[0].Name)
}
