/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/suparena/storeflow/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STOREFLOW_"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config is the full storeflow configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" envPrefix:"STORE_"`
	Processor ProcessorConfig `yaml:"processor" envPrefix:"PROCESSOR_"`
	Logging   LoggingConfig   `yaml:"logging" envPrefix:"LOG_"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend    string         `yaml:"backend" env:"BACKEND"`
	SQLitePath string         `yaml:"sqlitePath" env:"SQLITE_PATH"`
	DynamoDB   DynamoDBConfig `yaml:"dynamodb" envPrefix:"DYNAMODB_"`
	// MaxExpressionWidth caps the width of one In clause; 0 means unlimited.
	MaxExpressionWidth int `yaml:"maxExpressionWidth" env:"MAX_EXPRESSION_WIDTH"`
	// Workers bounds concurrent store calls.
	Workers int `yaml:"workers" env:"WORKERS"`
}

type DynamoDBConfig struct {
	Table     string `yaml:"table" env:"TABLE"`
	Region    string `yaml:"region" env:"REGION"`
	AccessKey string `yaml:"accessKey" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secretKey" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
}

type ProcessorConfig struct {
	DefaultRetries     int           `yaml:"defaultRetries" env:"DEFAULT_RETRIES"`
	RetryBackoff       time.Duration `yaml:"retryBackoff" env:"RETRY_BACKOFF"`
	PredicateChunkSize int           `yaml:"predicateChunkSize" env:"PREDICATE_CHUNK_SIZE"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns an in-memory configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:    BackendMemory,
			SQLitePath: "storeflow.db",
			Workers:    4,
		},
		Processor: ProcessorConfig{
			DefaultRetries:     1,
			PredicateChunkSize: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// STOREFLOW_* environment variables. An empty path skips the file.
// Unknown YAML fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.NewValidationError("store.sqlitePath", "required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.Store.DynamoDB.Table == "" {
			return errors.NewValidationError("store.dynamodb.table", "required for the dynamodb backend")
		}
		if c.Store.DynamoDB.Region == "" {
			return errors.NewValidationError("store.dynamodb.region", "required for the dynamodb backend")
		}
	default:
		return errors.NewValidationError("store.backend",
			fmt.Sprintf("unknown backend %q, want one of %s", c.Store.Backend,
				strings.Join([]string{BackendMemory, BackendSQLite, BackendDynamoDB}, ", ")))
	}
	if c.Store.MaxExpressionWidth < 0 {
		return errors.NewValidationError("store.maxExpressionWidth", "must not be negative")
	}
	if c.Store.Workers < 1 {
		return errors.NewValidationError("store.workers", "must be at least 1")
	}
	if c.Processor.DefaultRetries < 1 {
		return errors.NewValidationError("processor.defaultRetries", "must be at least 1")
	}
	if c.Processor.RetryBackoff < 0 {
		return errors.NewValidationError("processor.retryBackoff", "must not be negative")
	}
	if c.Processor.PredicateChunkSize < 1 {
		return errors.NewValidationError("processor.predicateChunkSize", "must be at least 1")
	}
	if w := c.Store.MaxExpressionWidth; w > 0 && c.Processor.PredicateChunkSize > w {
		return errors.NewValidationError("processor.predicateChunkSize",
			fmt.Sprintf("%d exceeds store.maxExpressionWidth %d", c.Processor.PredicateChunkSize, w))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.NewValidationError("logging.format", fmt.Sprintf("unknown format %q", c.Logging.Format))
	}
	return nil
}
