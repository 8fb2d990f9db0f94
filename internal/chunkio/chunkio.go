/*
Copyright 2025 Sellergrid Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package chunkio owns the filesystem half of the pipeline: chunk file naming,
// discovery of pending chunks, archival of committed ones, and the retention
// sweep. All batch and sequence metadata lives in the filename; chunk files
// themselves are bare JSON arrays.
package chunkio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const (
	PendingDir   = "pending"
	ProcessedDir = "processed"

	// BatchTimestampLayout sorts lexically in chronological order.
	BatchTimestampLayout = "2006-01-02-150405"
)

// Sequence and total are at least three digits but may widen past 999.
var chunkFileRe = regexp.MustCompile(`^chunk-(\d{4}-\d{2}-\d{2}-\d{6})-(\d{3,})-of-(\d{3,})\.json$`)

// ChunkFile is the parsed identity of one chunk file on disk.
type ChunkFile struct {
	Path           string
	Name           string
	BatchTimestamp string
	Sequence       int
	Total          int
}

// NewBatchTimestamp formats a batch timestamp for chunk filenames.
func NewBatchTimestamp(t time.Time) string {
	return t.UTC().Format(BatchTimestampLayout)
}

// FileName builds a chunk filename. Sequence and total are zero-padded so the
// names sort lexically within a batch as a fallback to numeric ordering.
func FileName(batchTimestamp string, sequence, total int) string {
	return fmt.Sprintf("chunk-%s-%03d-of-%03d.json", batchTimestamp, sequence, total)
}

// ParseFileName parses a chunk filename back into its identity.
func ParseFileName(name string) (*ChunkFile, error) {
	m := chunkFileRe.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("not a chunk file: %s", name)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, err
	}
	total, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, err
	}
	return &ChunkFile{
		Name:           name,
		BatchTimestamp: m[1],
		Sequence:       seq,
		Total:          total,
	}, nil
}

// EnsureDir creates the directory if it does not exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// WriteChunk persists one page payload as a chunk file under dir.
// It returns the written path and byte size.
func WriteChunk(dir, batchTimestamp string, sequence, total int, payload []byte) (string, int64, error) {
	if err := EnsureDir(dir); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, FileName(batchTimestamp, sequence, total))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", 0, err
	}
	return path, int64(len(payload)), nil
}

// ListPending returns the chunk files awaiting sync, ordered by sequence
// number with filename as the tie-breaker. A run may pick up chunks from more
// than one historical batch; all of them are included. A missing or empty
// directory yields an empty list, not an error.
func ListPending(pendingDir string) ([]ChunkFile, error) {
	entries, err := os.ReadDir(pendingDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	chunks := make([]ChunkFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		chunk, err := ParseFileName(entry.Name())
		if err != nil {
			continue
		}
		chunk.Path = filepath.Join(pendingDir, entry.Name())
		chunks = append(chunks, *chunk)
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Sequence != chunks[j].Sequence {
			return chunks[i].Sequence < chunks[j].Sequence
		}
		return chunks[i].Name < chunks[j].Name
	})
	return chunks, nil
}

// MissingSequences reports which sequence numbers of a batch are absent from
// the given chunk set. Chunks belonging to other batches are ignored.
func MissingSequences(batchTimestamp string, total int, chunks []ChunkFile) []int {
	present := make(map[int]bool, total)
	for _, chunk := range chunks {
		if chunk.BatchTimestamp != batchTimestamp {
			continue
		}
		present[chunk.Sequence] = true
	}

	var missing []int
	for seq := 1; seq <= total; seq++ {
		if !present[seq] {
			missing = append(missing, seq)
		}
	}
	return missing
}

// Archive atomically relocates a committed chunk file into processedDir.
// Rename, not copy+delete, so a chunk is never present in both directories.
func Archive(chunkPath, processedDir string) error {
	if err := EnsureDir(processedDir); err != nil {
		return err
	}
	return os.Rename(chunkPath, filepath.Join(processedDir, filepath.Base(chunkPath)))
}

// LatestBatchTime reports the newest batch timestamp found across the given
// directories, for the download freshness check.
func LatestBatchTime(dirs ...string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			chunk, err := ParseFileName(entry.Name())
			if err != nil {
				continue
			}
			t, err := time.Parse(BatchTimestampLayout, chunk.BatchTimestamp)
			if err != nil {
				continue
			}
			if t.After(latest) {
				latest = t
				found = true
			}
		}
	}
	return latest, found
}
