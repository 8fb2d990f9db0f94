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
)

func sweepCommands(c *catsyncInstance) *cobra.Command {
	var offload bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "delete chunk files past the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			removed, err := c.catsync.SweepChunks(context.Background(), offload)
			if err != nil {
				logrus.Error(err)
				return
			}
			logrus.Infof("removed %d chunk file(s)", removed)
		},
	}

	cmd.Flags().BoolVar(&offload, "s3", false, "zip and upload expired chunks to S3 before deleting them")

	return cmd
}
