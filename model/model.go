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

package model

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateUUIDWithSuffix generates a new UUID and prefixes it with the given module name.
// Used for internal identifiers such as "itm_..." and "prc_...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// PriceQuote is the optional price block carried by a catalog record.
type PriceQuote struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// CatalogRecord is one item as delivered by the external catalog API.
// Identity is ExternalID; every other field is mutable on re-sync.
type CatalogRecord struct {
	ExternalID string                 `json:"external_id"`
	Name       string                 `json:"name"`
	Category   string                 `json:"category"`
	Tradable   *bool                  `json:"tradable"`
	Marketable *bool                  `json:"marketable"`
	Commodity  *bool                  `json:"commodity"`
	IconURL    string                 `json:"icon_url"`
	Price      *PriceQuote            `json:"price"`
	MetaData   map[string]interface{} `json:"meta_data"`
}

// Validate checks that a catalog record carries a usable identifier.
// Records failing validation are counted as skipped, never fatal.
func (r CatalogRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ExternalID, validation.Required),
	)
}

// Item is the durable local record an external catalog record maps onto.
// Items are never hard-deleted; absence from the catalog only flips Active.
type Item struct {
	ID         int64                  `json:"-"`
	ItemID     string                 `json:"item_id"`
	ExternalID string                 `json:"external_id"`
	Name       string                 `json:"name"`
	Category   string                 `json:"category"`
	Tradable   bool                   `json:"tradable"`
	Marketable bool                   `json:"marketable"`
	Commodity  bool                   `json:"commodity"`
	IconURL    string                 `json:"icon_url"`
	Active     bool                   `json:"active"`
	MetaData   map[string]interface{} `json:"meta_data"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// PriceRecord is one price-history entry derived from a catalog record.
type PriceRecord struct {
	ID            int64           `json:"-"`
	PriceRecordID string          `json:"price_record_id"`
	ItemID        string          `json:"item_id"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// ChunkStats holds the counters produced by committing a single chunk file.
type ChunkStats struct {
	Added               int64
	Updated             int64
	Skipped             int64
	PriceRecordsCreated int64
	Total               int64
}

// SyncStats is the aggregate result of one sync invocation.
type SyncStats struct {
	Added               int64         `json:"added"`
	Updated             int64         `json:"updated"`
	Skipped             int64         `json:"skipped"`
	Deactivated         int64         `json:"deactivated"`
	PriceRecordsCreated int64         `json:"price_records_created"`
	Total               int64         `json:"total"`
	ChunksProcessed     int           `json:"chunks_processed"`
	ChunksFailed        int           `json:"chunks_failed"`
	Duration            time.Duration `json:"duration"`
}

// Merge folds a single chunk's counters into the run aggregate.
func (s *SyncStats) Merge(cs ChunkStats) {
	s.Added += cs.Added
	s.Updated += cs.Updated
	s.Skipped += cs.Skipped
	s.PriceRecordsCreated += cs.PriceRecordsCreated
	s.Total += cs.Total
}

func (s *SyncStats) String() string {
	return fmt.Sprintf(
		"added=%d updated=%d skipped=%d deactivated=%d price_records=%d total=%d chunks=%d failed_chunks=%d duration=%s",
		s.Added, s.Updated, s.Skipped, s.Deactivated, s.PriceRecordsCreated,
		s.Total, s.ChunksProcessed, s.ChunksFailed, s.Duration.Round(time.Millisecond))
}

// DownloadResult summarizes one download invocation.
type DownloadResult struct {
	BatchTimestamp string `json:"batch_timestamp"`
	TotalChunks    int    `json:"total_chunks"`
	ChunksWritten  int    `json:"chunks_written"`
	ChunksFailed   int    `json:"chunks_failed"`
	Records        int64  `json:"records"`
	Bytes          int64  `json:"bytes"`
	Skipped        bool   `json:"skipped"`
}

func (r *DownloadResult) String() string {
	if r.Skipped {
		return "download skipped: catalog is still fresh"
	}
	return fmt.Sprintf("batch=%s chunks=%d/%d failed=%d records=%d bytes=%d",
		r.BatchTimestamp, r.ChunksWritten, r.TotalChunks, r.ChunksFailed, r.Records, r.Bytes)
}
