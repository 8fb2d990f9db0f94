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
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/internal/chunkio"
)

// SweepChunks removes chunk files older than the configured retention window
// from both the pending and processed directories. With offload set, the
// expired processed chunks are first zipped and uploaded to S3 so the raw
// payloads survive their deletion; expired pending chunks were never
// committed and are deleted outright.
func (c *Catsync) SweepChunks(ctx context.Context, offload bool) (int, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return 0, err
	}

	retention := time.Duration(configuration.Storage.RetentionDays) * 24 * time.Hour
	now := time.Now()

	expired, err := chunkio.ExpiredChunks(c.processedDir(), retention, now)
	if err != nil {
		return 0, err
	}

	if offload && len(expired) > 0 {
		if configuration.S3BucketName == "" {
			return 0, fmt.Errorf("offload requested but no S3 bucket is configured")
		}
		zipName := fmt.Sprintf("chunks-%s.zip", chunkio.NewBatchTimestamp(now))
		zipPath := filepath.Join(c.storageDir, zipName)
		if err := chunkio.ZipChunks(expired, zipPath); err != nil {
			return 0, err
		}
		err = chunkio.UploadToS3(ctx, zipPath, configuration.S3BucketName, zipName,
			configuration.AwsAccessKeyId, configuration.AwsSecretAccessKey, configuration.S3Region)
		if removeErr := os.Remove(zipPath); removeErr != nil {
			logrus.Warnf("sweep: could not remove local archive %s: %v", zipPath, removeErr)
		}
		if err != nil {
			// Keep the chunks; deleting them with the offload missing would
			// lose the only copy.
			return 0, err
		}
		logrus.Infof("sweep: offloaded %d chunk(s) to s3://%s/%s", len(expired), configuration.S3BucketName, zipName)
	}

	removed, err := chunkio.Sweep(c.processedDir(), retention, now)
	if err != nil {
		return removed, err
	}

	stale, err := chunkio.Sweep(c.pendingDir(), retention, now)
	if err != nil {
		return removed, err
	}
	removed += stale

	logrus.Infof("sweep: removed %d chunk file(s)", removed)
	return removed, nil
}
