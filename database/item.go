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
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/sellergrid/catsync/internal/syncerror"
	"github.com/sellergrid/catsync/model"
)

// upsertBatchSize bounds how many records are committed per transaction.
// A chunk lands in slices of this size so a crash mid-chunk loses at most
// one uncommitted batch; replaying the chunk is safe because upserts are
// idempotent per record.
const upsertBatchSize = 500

// UpsertItems inserts or updates a chunk's records, committing in bounded
// batches. Batches that committed before a failure stay committed; the
// returned counters cover them, alongside the error. The returned itemIDs map
// external identifiers to the item IDs assigned (or already held) in the
// database, so callers can attach price records without a second query.
func (d Datasource) UpsertItems(ctx context.Context, records []*model.CatalogRecord) (int, int, map[string]string, error) {
	if len(records) == 0 {
		return 0, 0, map[string]string{}, nil
	}

	added, updated := 0, 0
	itemIDs := make(map[string]string, len(records))

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		a, u, err := d.upsertBatch(ctx, records[start:end], itemIDs)
		added += a
		updated += u
		if err != nil {
			return added, updated, itemIDs, err
		}
	}
	return added, updated, itemIDs, nil
}

// upsertBatch commits one bounded batch in its own transaction.
func (d Datasource) upsertBatch(ctx context.Context, records []*model.CatalogRecord, itemIDs map[string]string) (int, int, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to begin upsert transaction.", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (item_id, external_id, name, category, tradable, marketable, commodity, icon_url, active, updated_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), $9)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			tradable = COALESCE(EXCLUDED.tradable, items.tradable),
			marketable = COALESCE(EXCLUDED.marketable, items.marketable),
			commodity = COALESCE(EXCLUDED.commodity, items.commodity),
			icon_url = EXCLUDED.icon_url,
			active = TRUE,
			updated_at = NOW(),
			meta_data = EXCLUDED.meta_data
		RETURNING item_id, (xmax = 0) AS inserted
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, 0, syncerror.NewSyncError(syncerror.ErrInternal, "Failed to prepare upsert statement.", err)
	}
	defer stmt.Close()

	added, updated := 0, 0
	for _, record := range records {
		metaDataJSON, err := json.Marshal(record.MetaData)
		if err != nil {
			_ = tx.Rollback()
			return 0, 0, syncerror.NewSyncError(syncerror.ErrInvalidRecord, "Failed to marshal record metadata.", err)
		}

		var itemID string
		var inserted bool
		err = stmt.QueryRowContext(ctx,
			model.GenerateUUIDWithSuffix("item"),
			record.ExternalID,
			record.Name,
			record.Category,
			record.Tradable,
			record.Marketable,
			record.Commodity,
			record.IconURL,
			metaDataJSON,
		).Scan(&itemID, &inserted)
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return 0, 0, rollbackErr
			}
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return 0, 0, syncerror.NewSyncError(syncerror.ErrConflict, "Catalog record collides with an existing item.", err)
			}
			return 0, 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to upsert catalog record.", err)
		}

		itemIDs[record.ExternalID] = itemID
		if inserted {
			added++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to commit upsert batch.", err)
	}
	return added, updated, nil
}

// GetItemByExternalID retrieves an item by the identifier the upstream catalog
// uses for it.
func (d Datasource) GetItemByExternalID(ctx context.Context, externalID string) (*model.Item, error) {
	var item model.Item
	var metaDataJSON []byte
	err := d.Conn.QueryRowContext(ctx, `
		SELECT item_id, external_id, name, category, tradable, marketable, commodity, icon_url, active, created_at, updated_at, meta_data
		FROM items
		WHERE external_id = $1
	`, externalID).Scan(
		&item.ItemID,
		&item.ExternalID,
		&item.Name,
		&item.Category,
		&item.Tradable,
		&item.Marketable,
		&item.Commodity,
		&item.IconURL,
		&item.Active,
		&item.CreatedAt,
		&item.UpdatedAt,
		&metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, syncerror.NewSyncError(syncerror.ErrNotFound, "Item not found.", err)
		}
		return nil, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to retrieve item.", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &item.MetaData); err != nil {
			return nil, syncerror.NewSyncError(syncerror.ErrInternal, "Failed to unmarshal item metadata.", err)
		}
	}
	return &item, nil
}

// DeactivateItemsExcept marks every active item whose external ID is not in
// the given set as inactive. An empty set is rejected: a run that saw zero
// records must never wipe the whole catalog.
func (d Datasource) DeactivateItemsExcept(ctx context.Context, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, syncerror.NewSyncError(syncerror.ErrInvalidRecord, "Refusing to deactivate against an empty ID set.", nil)
	}

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE items
		SET active = FALSE, updated_at = NOW()
		WHERE active = TRUE AND NOT (external_id = ANY($1))
	`, pq.Array(externalIDs))
	if err != nil {
		return 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to deactivate stale items.", err)
	}
	return result.RowsAffected()
}

// CountActiveItems counts items currently marked active.
func (d Datasource) CountActiveItems(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	var count int64
	err := d.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE active = TRUE`).Scan(&count)
	if err != nil {
		return 0, syncerror.NewSyncError(syncerror.ErrTransient, "Failed to count active items.", err)
	}
	return count, nil
}
