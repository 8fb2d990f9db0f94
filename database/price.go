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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/sellergrid/catsync/internal/syncerror"
	"github.com/sellergrid/catsync/model"
)

// RecordPrices appends price observations for items in a single transaction.
// Returns the number of rows written.
func (d Datasource) RecordPrices(ctx context.Context, records []*model.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to begin price transaction.", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_records (price_record_id, item_id, currency, amount, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, syncerror.NewSyncError(syncerror.ErrInternal, "Failed to prepare price statement.", err)
	}
	defer stmt.Close()

	written := 0
	for _, record := range records {
		if record.PriceRecordID == "" {
			record.PriceRecordID = model.GenerateUUIDWithSuffix("price")
		}
		if record.RecordedAt.IsZero() {
			record.RecordedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx, record.PriceRecordID, record.ItemID, record.Currency, record.Amount, record.RecordedAt)
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return 0, rollbackErr
			}
			return 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to record price.", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to commit price transaction.", err)
	}
	return written, nil
}

// GetLatestPrice retrieves the most recent price observation for an item.
func (d Datasource) GetLatestPrice(ctx context.Context, itemID string) (*model.PriceRecord, error) {
	var record model.PriceRecord
	err := d.Conn.QueryRowContext(ctx, `
		SELECT price_record_id, item_id, currency, amount, recorded_at
		FROM price_records
		WHERE item_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, itemID).Scan(&record.PriceRecordID, &record.ItemID, &record.Currency, &record.Amount, &record.RecordedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, syncerror.NewSyncError(syncerror.ErrNotFound, "No price recorded for item.", err)
		}
		return nil, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to retrieve latest price.", err)
	}
	return &record, nil
}
