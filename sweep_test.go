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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellergrid/catsync/database/mocks"
	"github.com/sellergrid/catsync/internal/chunkio"
)

func TestSweepChunksRemovesExpiredFromBothDirs(t *testing.T) {
	cs := newTestCatsync(t, &mocks.MockDataSource{})

	old := chunkio.NewBatchTimestamp(time.Now().Add(-10 * 24 * time.Hour))
	fresh := chunkio.NewBatchTimestamp(time.Now().Add(-2 * 24 * time.Hour))

	_, _, err := chunkio.WriteChunk(cs.processedDir(), old, 1, 1, []byte("[]"))
	require.NoError(t, err)
	_, _, err = chunkio.WriteChunk(cs.pendingDir(), old, 2, 2, []byte("[]"))
	require.NoError(t, err)
	_, _, err = chunkio.WriteChunk(cs.processedDir(), fresh, 1, 1, []byte("[]"))
	require.NoError(t, err)

	removed, err := cs.SweepChunks(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	kept, err := chunkio.ListPending(cs.processedDir())
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, fresh, kept[0].BatchTimestamp)
}

func TestSweepChunksOffloadNeedsBucket(t *testing.T) {
	cs := newTestCatsync(t, &mocks.MockDataSource{})

	old := chunkio.NewBatchTimestamp(time.Now().Add(-10 * 24 * time.Hour))
	_, _, err := chunkio.WriteChunk(cs.processedDir(), old, 1, 1, []byte("[]"))
	require.NoError(t, err)

	_, err = cs.SweepChunks(context.Background(), true)
	assert.Error(t, err)

	// Without the offload, nothing may be deleted.
	kept, err := chunkio.ListPending(cs.processedDir())
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSweepChunksNothingExpired(t *testing.T) {
	cs := newTestCatsync(t, &mocks.MockDataSource{})

	fresh := chunkio.NewBatchTimestamp(time.Now().Add(-1 * time.Hour))
	_, _, err := chunkio.WriteChunk(cs.processedDir(), fresh, 1, 1, []byte("[]"))
	require.NoError(t, err)

	removed, err := cs.SweepChunks(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
