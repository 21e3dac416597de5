// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"fmt"
	"time"
)

const (
	// DefaultBatchSize is the number of records embedded per provider call.
	DefaultBatchSize = 100

	// DefaultConcurrency is the number of batches embedded in parallel.
	DefaultConcurrency = 3

	// DefaultMaxRetries is the number of attempts per embedding call.
	DefaultMaxRetries = 6

	// DefaultBaseBackoff is the base delay for exponential backoff.
	DefaultBaseBackoff = 500 * time.Millisecond

	// DefaultMaxTextChars caps the text stored in triple metadata.
	DefaultMaxTextChars = 2000
)

// Config holds tunables for the ingestion pipeline.
type Config struct {
	BatchSize    int
	Concurrency  int
	MaxRetries   int
	BaseBackoff  time.Duration
	MaxTextChars int
}

// ConfigOption configures a Config.
type ConfigOption func(*Config)

// WithBatchSize sets the embedding batch size.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithConcurrency sets the number of batches embedded in parallel.
func WithConcurrency(workers int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = workers
	}
}

// WithMaxRetries sets the attempt count for embedding calls.
func WithMaxRetries(retries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = retries
	}
}

// WithBaseBackoff sets the base delay for exponential backoff.
func WithBaseBackoff(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.BaseBackoff = delay
	}
}

// WithMaxTextChars caps the record text kept in triple metadata.
func WithMaxTextChars(limit int) ConfigOption {
	return func(c *Config) {
		c.MaxTextChars = limit
	}
}

// DefaultConfig returns a Config with default values, modified by the
// given options.
func DefaultConfig(opts ...ConfigOption) Config {
	config := Config{
		BatchSize:    DefaultBatchSize,
		Concurrency:  DefaultConcurrency,
		MaxRetries:   DefaultMaxRetries,
		BaseBackoff:  DefaultBaseBackoff,
		MaxTextChars: DefaultMaxTextChars,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be positive, got %d", c.MaxRetries)
	}
	if c.BaseBackoff <= 0 {
		return fmt.Errorf("base backoff must be positive, got %s", c.BaseBackoff)
	}
	if c.MaxTextChars < 1 {
		return fmt.Errorf("max text chars must be positive, got %d", c.MaxTextChars)
	}
	return nil
}
