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
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sellergrid/catsync/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Item methods

func (m *MockDataSource) UpsertItems(ctx context.Context, records []*model.CatalogRecord) (int, int, map[string]string, error) {
	args := m.Called(ctx, records)
	var ids map[string]string
	if args.Get(2) != nil {
		ids = args.Get(2).(map[string]string)
	}
	return args.Int(0), args.Int(1), ids, args.Error(3)
}

func (m *MockDataSource) GetItemByExternalID(ctx context.Context, externalID string) (*model.Item, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockDataSource) DeactivateItemsExcept(ctx context.Context, externalIDs []string) (int64, error) {
	args := m.Called(ctx, externalIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) CountActiveItems(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Price methods

func (m *MockDataSource) RecordPrices(ctx context.Context, records []*model.PriceRecord) (int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockDataSource) GetLatestPrice(ctx context.Context, itemID string) (*model.PriceRecord, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PriceRecord), args.Error(1)
}
