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

	"github.com/sellergrid/catsync/internal/notification"
)

func syncCommands(c *catsyncInstance) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "commit pending chunk files to the database",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if file != "" {
				stats, err := c.catsync.SyncFile(ctx, file)
				if err != nil {
					notification.NotifyError(err)
					logrus.Fatal(err)
				}
				logrus.Info(stats)
				return
			}

			stats, err := c.catsync.SyncPending(ctx)
			if err != nil {
				notification.NotifyError(err)
				logrus.Fatal(err)
			}
			logrus.Info(stats)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "sync a single catalog dump instead of the pending directory")

	return cmd
}
