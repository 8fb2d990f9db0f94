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

	"github.com/sellergrid/catsync/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	item  // Interface for catalog item operations
	price // Interface for price history operations
}

// item defines methods for handling catalog items.
type item interface {
	UpsertItems(ctx context.Context, records []*model.CatalogRecord) (added, updated int, itemIDs map[string]string, err error) // Inserts or updates a batch of catalog records
	GetItemByExternalID(ctx context.Context, externalID string) (*model.Item, error)                                            // Retrieves an item by its upstream identifier
	DeactivateItemsExcept(ctx context.Context, externalIDs []string) (int64, error)                                             // Deactivates every active item not in the given set
	CountActiveItems(ctx context.Context) (int64, error)                                                                        // Counts items currently marked active
}

// price defines methods for handling price history.
type price interface {
	RecordPrices(ctx context.Context, records []*model.PriceRecord) (int, error)   // Appends price observations for items
	GetLatestPrice(ctx context.Context, itemID string) (*model.PriceRecord, error) // Retrieves the most recent price observation for an item
}
