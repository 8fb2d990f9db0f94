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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sellergrid/catsync"
	"github.com/sellergrid/catsync/config"
	"github.com/sellergrid/catsync/database"
	"github.com/sellergrid/catsync/internal/notification"
)

// Catsync represents the CLI application, encapsulating the root Cobra command.
type Catsync struct {
	cmd *cobra.Command
}

// catsyncInstance holds the pipeline instance and its configuration, shared by
// every subcommand once the pre-run hook has executed.
type catsyncInstance struct {
	catsync *catsync.Catsync
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the pipeline before running any command.
func preRun(app *catsyncInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newCatsync, err := setupCatsync(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.catsync = newCatsync
		app.cnf = cnf

		return nil
	}
}

// setupCatsync creates and initializes the pipeline from the provided configuration.
func setupCatsync(cfg *config.Configuration) (*catsync.Catsync, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newCatsync, err := catsync.NewCatsync(db)
	if err != nil {
		return nil, fmt.Errorf("error creating catsync: %v", err)
	}
	return newCatsync, nil
}

// NewCLI creates the command-line interface for the catalog sync pipeline.
func NewCLI() *Catsync {
	var configFile string
	c := &catsyncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "catsync",
		Short: "Catalog ingestion pipeline",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./catsync.json", "Configuration file for the pipeline")

	rootCmd.PersistentPreRunE = preRun(c, &configFile)

	rootCmd.AddCommand(downloadCommands(c))
	rootCmd.AddCommand(syncCommands(c))
	rootCmd.AddCommand(sweepCommands(c))

	return &Catsync{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Catsync) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
