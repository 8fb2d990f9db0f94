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

package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sellergrid/catsync"
	"github.com/sellergrid/catsync/internal/notification"
)

func downloadCommands(c *catsyncInstance) *cobra.Command {
	var chunkSize int
	var force bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "download the external catalog into pending chunk files",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := c.catsync.DownloadCatalog(context.Background(), catsync.DownloadOptions{
				ChunkSize: chunkSize,
				Force:     force,
			})
			if err != nil {
				notification.NotifyError(err)
				if result == nil {
					// First-page failure; nothing was written.
					logrus.Fatal(err)
				}
				// Partial batches are valid, sync will take what exists.
				logrus.Error(err)
			}
			if result != nil {
				logrus.Info(result)
			}
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "records per chunk file (defaults to the configured size)")
	cmd.Flags().BoolVar(&force, "force", false, "download even if a recent batch already exists")

	return cmd
}
