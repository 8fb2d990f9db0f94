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
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/database/mocks"
	"github.com/sellergrid/catsync/internal/chunkio"
)

func newTestCatsync(t *testing.T, ds *mocks.MockDataSource) *Catsync {
	t.Helper()

	config.MockConfig(&config.Configuration{
		ProjectName: "catsync-test",
		Catalog: config.CatalogConfig{
			BaseURL:        "https://catalog.example.com",
			APIKey:         "test-key",
			TimeoutSeconds: 5,
			ChunkSize:      3,
		},
		Storage: config.StorageConfig{
			Dir:            t.TempDir(),
			RetentionDays:  7,
			FreshnessHours: 24,
		},
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost/test"},
	})

	cs, err := NewCatsync(ds)
	require.NoError(t, err)
	return cs
}

func registerPage(page int, body string, total int) {
	url := fmt.Sprintf("https://catalog.example.com/items?page=%d&page_size=3", page)
	httpmock.RegisterResponder("GET", url, func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(200, body)
		resp.Header.Set("X-Total-Count", fmt.Sprintf("%d", total))
		return resp, nil
	})
}

func TestDownloadCatalogWritesNumberedChunks(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	// 8 records at 3 per page is 3 chunks, the last one short.
	registerPage(1, `[{"external_id":"a"},{"external_id":"b"},{"external_id":"c"}]`, 8)
	registerPage(2, `[{"external_id":"d"},{"external_id":"e"},{"external_id":"f"}]`, 8)
	registerPage(3, `[{"external_id":"g"},{"external_id":"h"}]`, 8)

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 3, result.ChunksWritten)
	assert.Zero(t, result.ChunksFailed)
	assert.Equal(t, int64(8), result.Records)
	assert.False(t, result.Skipped)

	chunks, err := chunkio.ListPending(cs.pendingDir())
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].Sequence)
	assert.Equal(t, 3, chunks[0].Total)
	assert.Equal(t, result.BatchTimestamp, chunks[0].BatchTimestamp)
}

func TestDownloadCatalogContinuesPastFailedPages(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	registerPage(1, `[{"external_id":"a"},{"external_id":"b"},{"external_id":"c"}]`, 9)
	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=2&page_size=3",
		httpmock.NewStringResponder(403, "forbidden"))
	registerPage(3, `[{"external_id":"g"},{"external_id":"h"},{"external_id":"i"}]`, 9)

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	assert.Error(t, err)
	assert.Equal(t, 2, result.ChunksWritten)
	assert.Equal(t, 1, result.ChunksFailed)

	chunks, listErr := chunkio.ListPending(cs.pendingDir())
	require.NoError(t, listErr)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Sequence)
	assert.Equal(t, 3, chunks[1].Sequence)
}

func TestDownloadCatalogFirstPageFailureIsFatal(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=1&page_size=3",
		httpmock.NewStringResponder(403, "forbidden"))

	_, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	assert.Error(t, err)

	chunks, listErr := chunkio.ListPending(cs.pendingDir())
	require.NoError(t, listErr)
	assert.Empty(t, chunks)
}

func TestDownloadCatalogShortFirstPageWithoutTotal(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=1&page_size=3",
		httpmock.NewStringResponder(200, `[{"external_id":"a"},{"external_id":"b"}]`))

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalChunks)
	assert.Equal(t, 1, result.ChunksWritten)
	assert.Equal(t, int64(2), result.Records)
}

func TestDownloadCatalogFullFirstPageWithoutTotalIsFatal(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=1&page_size=3",
		httpmock.NewStringResponder(200, `[{"external_id":"a"},{"external_id":"b"},{"external_id":"c"}]`))

	_, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	assert.Error(t, err)
}

func TestDownloadCatalogSkipsFreshBatch(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	// A batch from an hour ago is well inside the 24h freshness window.
	recent := chunkio.NewBatchTimestamp(time.Now().Add(-1 * time.Hour))
	_, _, err := chunkio.WriteChunk(cs.processedDir(), recent, 1, 1, []byte("[]"))
	require.NoError(t, err)

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestDownloadCatalogForceBypassesFreshness(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	recent := chunkio.NewBatchTimestamp(time.Now().Add(-1 * time.Hour))
	_, _, err := chunkio.WriteChunk(cs.processedDir(), recent, 1, 1, []byte("[]"))
	require.NoError(t, err)

	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=1&page_size=3",
		httpmock.NewStringResponder(200, `[{"external_id":"a"}]`))

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.ChunksWritten)
}

func TestDownloadCatalogChunkSizeOverride(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	httpmock.RegisterResponder("GET", "https://catalog.example.com/items?page=1&page_size=200",
		httpmock.NewStringResponder(200, `[{"external_id":"a"}]`))

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{ChunkSize: 200})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksWritten)
}

func TestDownloadCatalogChunkSizeOverrideIsFloored(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	cs := newTestCatsync(t, &mocks.MockDataSource{})

	// A pathological override is raised to the minimum page size.
	httpmock.RegisterResponder("GET", fmt.Sprintf("https://catalog.example.com/items?page=1&page_size=%d", config.MIN_CHUNK_SIZE),
		httpmock.NewStringResponder(200, `[{"external_id":"a"}]`))

	result, err := cs.DownloadCatalog(context.Background(), DownloadOptions{ChunkSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksWritten)
}
