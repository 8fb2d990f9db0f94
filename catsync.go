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
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/database"
	"github.com/sellergrid/catsync/internal/chunkio"
	"github.com/sellergrid/catsync/internal/fetch"
)

// Catsync represents the main struct for the catalog sync pipeline.
type Catsync struct {
	datasource database.IDataSource
	catalog    *fetch.Client
	redis      redis.UniversalClient
	storageDir string
	chunkSize  int
}

// NewCatsync initializes a new instance of Catsync with the provided database
// datasource. It fetches the configuration and wires the catalog client and,
// when configured, the Redis client used for the sync run lock.
func NewCatsync(db database.IDataSource) (*Catsync, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	catalog := fetch.NewClient(
		configuration.Catalog.BaseURL,
		configuration.Catalog.APIKey,
		time.Duration(configuration.Catalog.TimeoutSeconds)*time.Second,
	)

	var redisClient redis.UniversalClient
	if configuration.Redis.Dns != "" {
		opts, err := redis.ParseURL("redis://" + configuration.Redis.Dns)
		if err != nil {
			return nil, err
		}
		redisClient = redis.NewClient(opts)
	}

	return &Catsync{
		datasource: db,
		catalog:    catalog,
		redis:      redisClient,
		storageDir: configuration.Storage.Dir,
		chunkSize:  configuration.Catalog.ChunkSize,
	}, nil
}

func (c *Catsync) pendingDir() string {
	return filepath.Join(c.storageDir, chunkio.PendingDir)
}

func (c *Catsync) processedDir() string {
	return filepath.Join(c.storageDir, chunkio.ProcessedDir)
}
