// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matrixorigin/indexedtable/pkg/common/moerr"
	"github.com/matrixorigin/indexedtable/pkg/configcenter"
	"github.com/matrixorigin/indexedtable/pkg/container/types"
	"github.com/matrixorigin/indexedtable/pkg/logutil"
	"github.com/matrixorigin/indexedtable/pkg/sql/plan"
)

const (
	// DefaultMinTrimSize is the smallest trim size of an ordered table.
	DefaultMinTrimSize = 5000
	// DefaultTrimThreshold is the table size that triggers a trim.
	DefaultTrimThreshold = 1_000_000

	defaultLogLevel     = "info"
	defaultLogFormat    = "console"
	defaultLogMaxSize   = 512
	defaultDialTimeout  = 5 * time.Second
	defaultMetricPrefix = "/metrics"
)

// Duration is a time.Duration written as "5s" in toml.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return moerr.NewBadConfig(context.Background(), "bad duration '%s'", string(text))
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type InputConfig struct {
	// HasHeader means the first csv line holds the column names.
	HasHeader bool `toml:"has-header"`
}

type TableConfig struct {
	MinTrimSize   int `toml:"min-trim-size"`
	TrimThreshold int `toml:"trim-threshold"`
}

type CombineConfig struct {
	// Workers is the number of shards aggregated in parallel.
	Workers int `toml:"workers"`
}

// FilterConfig configures the event filters kept in etcd.
type FilterConfig struct {
	Enable      bool                `toml:"enable"`
	Endpoints   []string            `toml:"endpoints"`
	RootPath    string              `toml:"root-path"`
	FileName    string              `toml:"file-name"`
	DialTimeout Duration            `toml:"dial-timeout"`
	EventColumn string              `toml:"event-column"`
	Defaults    map[string][]string `toml:"defaults"`
}

type MetricConfig struct {
	// StatusPort serves prometheus metrics when it is not 0.
	StatusPort int    `toml:"status-port"`
	Path       string `toml:"path"`
}

// Config is the configuration of groupby-tool.
type Config struct {
	Log     logutil.LogConfig `toml:"log"`
	Query   plan.QueryDef     `toml:"query"`
	Input   InputConfig       `toml:"input"`
	Table   TableConfig       `toml:"table"`
	Combine CombineConfig     `toml:"combine"`
	Filter  FilterConfig      `toml:"filter"`
	Metric  MetricConfig      `toml:"metric"`
}

// LoadConfig decodes the toml file at path and fills the defaults.
func LoadConfig(path string) (*Config, error) {
	ctx := context.Background()
	if _, err := os.Stat(path); err != nil {
		return nil, moerr.NewFileNotFound(ctx, path)
	}
	cfg := &Config{}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, moerr.NewBadConfig(ctx, "decode %s: %v", path, err)
	}
	for _, key := range md.Undecoded() {
		logutil.Warn("unknown config item", zap.String("file", path), zap.String("key", key.String()))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config and fills the items left empty.
func (c *Config) Validate() error {
	ctx := context.Background()
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = defaultLogMaxSize
	}

	if c.Table.MinTrimSize <= 0 {
		c.Table.MinTrimSize = DefaultMinTrimSize
	}
	if c.Table.TrimThreshold <= 0 {
		c.Table.TrimThreshold = DefaultTrimThreshold
	}
	if c.Combine.Workers <= 0 {
		c.Combine.Workers = runtime.NumCPU()
	}

	if c.Filter.Enable {
		if len(c.Filter.Endpoints) == 0 {
			return moerr.NewBadConfig(ctx, "filter is enabled without etcd endpoints")
		}
		if c.Filter.EventColumn == "" {
			return moerr.NewBadConfig(ctx, "filter is enabled without event column")
		}
	}
	if c.Filter.RootPath == "" {
		c.Filter.RootPath = configcenter.DefaultRootPath
	}
	if c.Filter.FileName == "" {
		c.Filter.FileName = configcenter.DefaultFileName
	}
	if c.Filter.DialTimeout.Duration <= 0 {
		c.Filter.DialTimeout.Duration = defaultDialTimeout
	}
	if c.Filter.Defaults == nil {
		c.Filter.Defaults = configcenter.DefaultFilters
	}

	if c.Metric.StatusPort < 0 || c.Metric.StatusPort > 65535 {
		return moerr.NewBadConfig(ctx, "bad status port %d", c.Metric.StatusPort)
	}
	if c.Metric.Path == "" {
		c.Metric.Path = defaultMetricPrefix
	}

	if c.Query.Limit < 0 {
		return moerr.NewBadConfig(ctx, "negative limit %d", c.Query.Limit)
	}
	if c.Query.Limit == 0 {
		c.Query.Limit = plan.DefaultLimit
	}
	_, _, err := c.QueryContext()
	return err
}

// QueryContext resolves the configured query against its input columns.
func (c *Config) QueryContext() (*types.Schema, *plan.QueryContext, error) {
	input, err := plan.InputSchema(c.Query)
	if err != nil {
		return nil, nil, err
	}
	qc, err := plan.NewQueryContext(input, c.Query)
	if err != nil {
		return nil, nil, err
	}
	return input, qc, nil
}

// TableCapacity returns the trim size and trim threshold of the tables
// serving a query with the given limit.
func (c *Config) TableCapacity(limit int) (trimSize, trimThreshold int) {
	trimSize = plan.GetTableCapacity(limit, c.Table.MinTrimSize)
	return trimSize, plan.GetTrimThreshold(trimSize, c.Table.TrimThreshold)
}
