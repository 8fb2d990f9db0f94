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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_CHUNK_SIZE      = 5000
	MIN_CHUNK_SIZE          = 100
	MAX_CHUNK_SIZE          = 5500
	DEFAULT_RETENTION_DAYS  = 7
	DEFAULT_FRESHNESS_HOURS = 24
	DEFAULT_TIMEOUT_SECONDS = 30
)

var ConfigStore atomic.Value

type CatalogConfig struct {
	BaseURL        string `json:"base_url" envconfig:"CATSYNC_CATALOG_BASE_URL"`
	APIKey         string `json:"api_key" envconfig:"CATSYNC_CATALOG_API_KEY"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"CATSYNC_CATALOG_TIMEOUT_SECONDS"`
	ChunkSize      int    `json:"chunk_size" envconfig:"CATSYNC_CATALOG_CHUNK_SIZE"`
}

type StorageConfig struct {
	Dir            string `json:"dir" envconfig:"CATSYNC_STORAGE_DIR"`
	RetentionDays  int    `json:"retention_days" envconfig:"CATSYNC_STORAGE_RETENTION_DAYS"`
	FreshnessHours int    `json:"freshness_hours" envconfig:"CATSYNC_STORAGE_FRESHNESS_HOURS"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CATSYNC_DATA_SOURCE_DNS"`
}

// RedisConfig is optional; when Dns is empty the sync run lock is skipped.
type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CATSYNC_REDIS_DNS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName        string           `json:"project_name" envconfig:"CATSYNC_PROJECT_NAME"`
	AwsAccessKeyId     string           `json:"aws_access_key_id"`
	AwsSecretAccessKey string           `json:"aws_secret_access_key"`
	S3BucketName       string           `json:"s3_bucket_name"`
	S3Region           string           `json:"s3_region"`
	Catalog            CatalogConfig    `json:"catalog"`
	Storage            StorageConfig    `json:"storage"`
	DataSource         DataSourceConfig `json:"data_source"`
	Redis              RedisConfig      `json:"redis"`
	Notification       Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("catsync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called catsync.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Catsync"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Catalog.BaseURL == "" {
		log.Println("Error: Catalog base URL is empty. It's a required field.")
		return errors.New("catalog base URL is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(cnf.Catalog.BaseURL), "/")

	if cnf.Catalog.ChunkSize <= 0 {
		cnf.Catalog.ChunkSize = DEFAULT_CHUNK_SIZE
		log.Printf("Warning: Chunk size not specified in config. Setting default chunk size: %d", DEFAULT_CHUNK_SIZE)
	}
	if cnf.Catalog.ChunkSize < MIN_CHUNK_SIZE {
		cnf.Catalog.ChunkSize = MIN_CHUNK_SIZE
		log.Printf("Warning: Chunk size below the minimum. Raising to: %d", MIN_CHUNK_SIZE)
	}
	if cnf.Catalog.ChunkSize > MAX_CHUNK_SIZE {
		cnf.Catalog.ChunkSize = MAX_CHUNK_SIZE
		log.Printf("Warning: Chunk size exceeds the maximum. Capping at: %d", MAX_CHUNK_SIZE)
	}
	if cnf.Catalog.TimeoutSeconds <= 0 {
		cnf.Catalog.TimeoutSeconds = DEFAULT_TIMEOUT_SECONDS
	}

	if cnf.Storage.Dir == "" {
		cnf.Storage.Dir = "./catalog-data"
		log.Printf("Warning: Storage dir not specified in config. Setting default dir: %s", cnf.Storage.Dir)
	}
	if cnf.Storage.RetentionDays <= 0 {
		cnf.Storage.RetentionDays = DEFAULT_RETENTION_DAYS
	}
	if cnf.Storage.FreshnessHours <= 0 {
		cnf.Storage.FreshnessHours = DEFAULT_FRESHNESS_HOURS
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
