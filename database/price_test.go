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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sellergrid/catsync/internal/syncerror"
	"github.com/sellergrid/catsync/model"
)

func TestRecordPrices_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	records := []*model.PriceRecord{
		{ItemID: "item_abc", Currency: "USD", Amount: decimal.RequireFromString("12.50")},
		{ItemID: "item_def", Currency: "USD", Amount: decimal.RequireFromString("0.03")},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO price_records")
	prepared.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "item_abc", "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prepared.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "item_def", "USD", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	written, err := ds.RecordPrices(context.Background(), records)
	assert.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.NotEmpty(t, records[0].PriceRecordID)
	assert.WithinDuration(t, time.Now(), records[0].RecordedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPrices_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	written, err := ds.RecordPrices(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPrices_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	records := []*model.PriceRecord{
		{ItemID: "item_abc", Currency: "USD", Amount: decimal.NewFromInt(5)},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO price_records")
	prepared.ExpectExec().
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err = ds.RecordPrices(context.Background(), records)
	assert.Error(t, err)
	assert.True(t, syncerror.Retryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestPrice(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()
	mock.ExpectQuery("SELECT price_record_id").
		WithArgs("item_abc").
		WillReturnRows(sqlmock.NewRows([]string{"price_record_id", "item_id", "currency", "amount", "recorded_at"}).
			AddRow("price_xyz", "item_abc", "USD", "12.50", now))

	record, err := ds.GetLatestPrice(context.Background(), "item_abc")
	assert.NoError(t, err)
	assert.Equal(t, "price_xyz", record.PriceRecordID)
	assert.Equal(t, "12.50", record.Amount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestPrice_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT price_record_id").
		WithArgs("item_missing").
		WillReturnRows(sqlmock.NewRows([]string{"price_record_id"}))

	_, err = ds.GetLatestPrice(context.Background(), "item_missing")
	assert.Error(t, err)
	var syncErr syncerror.SyncError
	assert.True(t, errors.As(err, &syncErr))
	assert.Equal(t, syncerror.ErrNotFound, syncErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
