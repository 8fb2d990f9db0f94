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

package catsync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/internal/chunkio"
	"github.com/sellergrid/catsync/internal/syncerror"
	"github.com/sellergrid/catsync/model"
)

// DownloadOptions controls one download invocation.
type DownloadOptions struct {
	// ChunkSize overrides the configured records-per-chunk when positive.
	ChunkSize int
	// Force downloads even when a recent batch already exists on disk.
	Force bool
}

// DownloadCatalog pulls the full external catalog page by page and persists
// each page as a numbered chunk file in the pending directory. The first page
// must succeed; it establishes the catalog size and therefore the chunk count.
// Later pages that fail after retries are logged and skipped so one bad page
// cannot sink the rest of the batch.
func (c *Catsync) DownloadCatalog(ctx context.Context, opts DownloadOptions) (*model.DownloadResult, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		window := time.Duration(configuration.Storage.FreshnessHours) * time.Hour
		if latest, ok := chunkio.LatestBatchTime(c.pendingDir(), c.processedDir()); ok {
			if time.Since(latest) < window {
				logrus.Infof("skipping download, batch %s is younger than %s", chunkio.NewBatchTimestamp(latest), window)
				return &model.DownloadResult{Skipped: true}, nil
			}
		}
	}

	chunkSize := c.chunkSize
	if opts.ChunkSize > 0 {
		chunkSize = opts.ChunkSize
		if chunkSize < config.MIN_CHUNK_SIZE {
			chunkSize = config.MIN_CHUNK_SIZE
		}
		if chunkSize > config.MAX_CHUNK_SIZE {
			chunkSize = config.MAX_CHUNK_SIZE
		}
	}

	batch := chunkio.NewBatchTimestamp(time.Now())
	result := &model.DownloadResult{BatchTimestamp: batch}

	// The first page is special: it sizes the run. Failing here is fatal.
	first, err := c.catalog.FetchPage(ctx, chunkSize, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching first catalog page: %w", err)
	}

	total := first.Total
	if total == 0 {
		if first.Records >= chunkSize {
			// A full first page with no reported total leaves the chunk count
			// unknowable; numbered filenames cannot be produced.
			return nil, syncerror.NewSyncError(syncerror.ErrInternal,
				"Catalog did not report a total count and the first page is full.", nil)
		}
		total = first.Records
	}

	totalChunks := (total + chunkSize - 1) / chunkSize
	if totalChunks == 0 {
		logrus.Warn("catalog reported zero items, nothing to download")
		return result, nil
	}
	result.TotalChunks = totalChunks

	writePage := func(seq int, payload []byte, records int) error {
		_, size, err := chunkio.WriteChunk(c.pendingDir(), batch, seq, totalChunks, payload)
		if err != nil {
			return err
		}
		result.ChunksWritten++
		result.Records += int64(records)
		result.Bytes += size
		logrus.Infof("wrote chunk %d/%d (%d records, %d bytes)", seq, totalChunks, records, size)
		return nil
	}

	if err := writePage(1, first.Payload, first.Records); err != nil {
		return nil, err
	}
	// Release the first page before fetching the rest.
	first = nil

	for seq := 2; seq <= totalChunks; seq++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := c.catalog.FetchPage(ctx, chunkSize, seq)
		if err != nil {
			logrus.Errorf("giving up on catalog page %d: %v", seq, err)
			result.ChunksFailed++
			continue
		}
		if err := writePage(seq, page.Payload, page.Records); err != nil {
			logrus.Errorf("could not persist chunk %d: %v", seq, err)
			result.ChunksFailed++
		}
	}

	if result.ChunksFailed > 0 {
		logrus.Warnf("download finished with gaps: %s", result)
		return result, fmt.Errorf("%d of %d catalog pages failed to download", result.ChunksFailed, totalChunks)
	}

	logrus.Infof("download complete: %s", result)
	return result, nil
}
