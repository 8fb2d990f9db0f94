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
	"encoding/json"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/internal/chunkio"
	redlock "github.com/sellergrid/catsync/internal/lock"
	"github.com/sellergrid/catsync/internal/notification"
	"github.com/sellergrid/catsync/internal/syncerror"
	"github.com/sellergrid/catsync/model"
)

const (
	// syncLockTTL bounds how long a crashed run can block the next one.
	syncLockTTL = 30 * time.Minute

	syncLockWait = 30 * time.Second
)

// SyncPending discovers chunk files in the pending directory and commits them
// to the database one at a time, in bounded batches within each chunk. A chunk
// that commits is archived immediately, so a crash mid-run never replays
// finished work; a partially-committed chunk stays in pending and is retried
// in full, which is safe because upserts are idempotent per record. Chunks
// that fail stay in pending for the next run.
//
// After all chunks are attempted, items absent from the entire batch are
// deactivated. Reconciliation runs only over a complete view: it is skipped
// when any chunk failed to commit, and when any batch is missing sequences
// from this run's pending set. A partial view of the catalog must not
// deactivate items that live in the failed or missing chunks.
func (c *Catsync) SyncPending(ctx context.Context) (*model.SyncStats, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		locker := redlock.NewSyncLocker(c.redis, configuration.ProjectName)
		if err := locker.WaitLock(ctx, syncLockTTL, syncLockWait); err != nil {
			return nil, syncerror.NewSyncError(syncerror.ErrConflict, "Another sync run holds the lock.", err)
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.Warnf("could not release sync lock: %v", err)
			}
		}()
	}

	chunks, err := chunkio.ListPending(c.pendingDir())
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		logrus.Info("no pending chunks, nothing to sync")
		return &model.SyncStats{}, nil
	}

	start := time.Now()
	stats := &model.SyncStats{}
	seenIDs := make([]string, 0, len(chunks)*config.DEFAULT_CHUNK_SIZE)

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		chunkStats, ids, err := c.syncChunkFile(ctx, chunk.Path)
		if err != nil {
			logrus.Errorf("chunk %s failed, leaving in pending: %v", chunk.Name, err)
			stats.ChunksFailed++
			continue
		}
		stats.Merge(chunkStats)
		seenIDs = append(seenIDs, ids...)

		if err := chunkio.Archive(chunk.Path, c.processedDir()); err != nil {
			// The chunk is committed; a failed rename means it will be seen
			// again next run and re-upserted, which is safe but wasteful.
			logrus.Errorf("committed chunk %s could not be archived: %v", chunk.Name, err)
		}
		stats.ChunksProcessed++
		logrus.Infof("chunk %s committed: added=%d updated=%d skipped=%d",
			chunk.Name, chunkStats.Added, chunkStats.Updated, chunkStats.Skipped)
	}

	switch {
	case stats.ChunksFailed > 0:
		logrus.Warnf("skipping deactivation, %d chunk(s) failed", stats.ChunksFailed)
	case !c.batchesComplete(chunks):
		logrus.Warn("skipping deactivation, run is missing downloaded chunks")
	case len(seenIDs) > 0:
		deactivated, err := c.datasource.DeactivateItemsExcept(ctx, seenIDs)
		if err != nil {
			return stats, err
		}
		stats.Deactivated = deactivated
	}

	stats.Duration = time.Since(start)
	logrus.Infof("sync complete: %s", stats)
	notification.NotifySyncReport(stats)
	return stats, nil
}

// batchesComplete checks that every batch appearing in the run has all of its
// declared sequences in this run's chunk listing. Only chunks processed now
// count: a sequence archived by an earlier, interrupted run contributed no IDs
// to this run's seen set, so it must not vouch for completeness.
func (c *Catsync) batchesComplete(chunks []chunkio.ChunkFile) bool {
	totals := make(map[string]int)
	for _, chunk := range chunks {
		if chunk.Total > totals[chunk.BatchTimestamp] {
			totals[chunk.BatchTimestamp] = chunk.Total
		}
	}
	for batch, total := range totals {
		if missing := chunkio.MissingSequences(batch, total, chunks); len(missing) > 0 {
			logrus.Warnf("batch %s is missing chunk sequence(s) %v", batch, missing)
			return false
		}
	}
	return true
}

// SyncFile ingests a single catalog dump outside the chunk pipeline. The file
// is treated as a complete catalog snapshot: its records are upserted and
// everything absent from it is deactivated right away. The file is left where
// it is.
func (c *Catsync) SyncFile(ctx context.Context, path string) (*model.SyncStats, error) {
	start := time.Now()
	stats := &model.SyncStats{}

	chunkStats, ids, err := c.syncChunkFile(ctx, path)
	if err != nil {
		return nil, err
	}
	stats.Merge(chunkStats)
	stats.ChunksProcessed = 1

	if len(ids) > 0 {
		deactivated, err := c.datasource.DeactivateItemsExcept(ctx, ids)
		if err != nil {
			return stats, err
		}
		stats.Deactivated = deactivated
	}

	stats.Duration = time.Since(start)
	logrus.Infof("file sync complete: %s", stats)
	return stats, nil
}

// syncChunkFile loads one chunk file and commits its records in bounded
// batches. It returns the chunk counters and the external IDs present in the
// chunk.
// Records without an external ID are counted as skipped, never fatal; a file
// that does not parse at all fails the whole chunk.
func (c *Catsync) syncChunkFile(ctx context.Context, path string) (model.ChunkStats, []string, error) {
	var stats model.ChunkStats

	payload, err := os.ReadFile(path)
	if err != nil {
		return stats, nil, err
	}

	var records []*model.CatalogRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return stats, nil, syncerror.NewSyncError(syncerror.ErrMalformed, "Chunk file is not a JSON array of records.", err)
	}
	payload = nil

	stats.Total = int64(len(records))
	valid := make([]*model.CatalogRecord, 0, len(records))
	for _, record := range records {
		if err := record.Validate(); err != nil {
			logrus.Warnf("skipping record without external id: %v", err)
			stats.Skipped++
			continue
		}
		valid = append(valid, record)
	}

	added, updated, itemIDs, err := c.datasource.UpsertItems(ctx, valid)
	if err != nil {
		return model.ChunkStats{}, nil, err
	}
	stats.Added = int64(added)
	stats.Updated = int64(updated)

	ids := make([]string, 0, len(valid))
	prices := make([]*model.PriceRecord, 0, len(valid))
	now := time.Now()
	for _, record := range valid {
		ids = append(ids, record.ExternalID)
		if record.Price == nil {
			continue
		}
		prices = append(prices, &model.PriceRecord{
			ItemID:     itemIDs[record.ExternalID],
			Currency:   record.Price.Currency,
			Amount:     record.Price.Amount,
			RecordedAt: now,
		})
	}

	if len(prices) > 0 {
		written, err := c.datasource.RecordPrices(ctx, prices)
		if err != nil {
			// Items are already committed; price history is best-effort.
			logrus.Errorf("could not record prices for %s: %v", path, err)
		} else {
			stats.PriceRecordsCreated = int64(written)
		}
	}

	// Drop the chunk's records before the next file is loaded so peak memory
	// tracks one chunk, not the whole batch.
	records = nil
	valid = nil
	prices = nil
	runtime.GC()

	return stats, ids, nil
}
