// Package config provides the application configuration of the Helios batch builder.
package config

import (
	"time"

	dbconfig "github.com/tigerroll/helios/pkg/batch/adapter/database/config"
	storageConfig "github.com/tigerroll/helios/pkg/batch/adapter/storage/config"
	inframetrics "github.com/tigerroll/helios/pkg/batch/infrastructure/metrics"
)

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// DateLayout is the layout of the window bounds in application.yaml.
const DateLayout = "2006-01-02"

// Split names.
const (
	SplitTrain      = "train"
	SplitValidation = "validation"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// CatalogConfig locates the catalog CSV export.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RunConfig holds the per-run settings and the locations of the JSON run configs.
type RunConfig struct {
	UserConfig  string   `yaml:"user_config"`  // Path to the user config JSON.
	TrainConfig string   `yaml:"train_config"` // Path to the training config JSON.
	Splits      []string `yaml:"splits"`       // Splits to build ("train", "validation").
	Seed        int64    `yaml:"seed"`         // Seed of the catalog shuffle.
	PoolSize    int      `yaml:"pool_size"`    // Number of concurrent partition workers.
}

// WindowConfig is one split's closed date window and output location.
type WindowConfig struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	RangeEnd  int    `yaml:"range_end"` // Exclusive end of the partitioned index space.
	OutputDir string `yaml:"output_dir"`
}

// Bounds parses the window bounds. To is extended to the end of its day.
func (w WindowConfig) Bounds() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, w.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(DateLayout, w.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}

// WindowsConfig holds the train and validation windows.
type WindowsConfig struct {
	Train      WindowConfig `yaml:"train"`
	Validation WindowConfig `yaml:"validation"`
}

// PartitionConfig controls how the index space is split between workers.
type PartitionConfig struct {
	RangeSize int `yaml:"range_size"`
}

// ImageryConfig holds imagery archive settings.
type ImageryConfig struct {
	ReferenceArchive string `yaml:"reference_archive"` // Archive read for the lat/lon grid.
	CacheSize        int    `yaml:"cache_size"`        // Number of decoded channel sets kept in memory.
}

// AssemblerConfig holds batch assembly policies.
type AssemblerConfig struct {
	RemainderPolicy string `yaml:"remainder_policy"` // "carry" or "drop".
	UnlabeledPolicy string `yaml:"unlabeled_policy"` // "skip" or "keep".
	WriteIndex      bool   `yaml:"write_index"`      // Write a parquet sample index next to each batch file.
}

// OutputConfig holds the export target of written batch files.
type OutputConfig struct {
	Storage storageConfig.StorageConfig `yaml:"storage"`
}

// HeliosConfig holds all configuration under the "helios" top-level key.
type HeliosConfig struct {
	System    SystemConfig            `yaml:"system"`
	Catalog   CatalogConfig           `yaml:"catalog"`
	Run       RunConfig               `yaml:"run"`
	Windows   WindowsConfig           `yaml:"windows"`
	Partition PartitionConfig         `yaml:"partition"`
	Imagery   ImageryConfig           `yaml:"imagery"`
	Assembler AssemblerConfig         `yaml:"assembler"`
	Output    OutputConfig            `yaml:"output"`
	Manifest  dbconfig.DatabaseConfig `yaml:"manifest"`
	Metrics   inframetrics.Config     `yaml:"metrics"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Helios HeliosConfig `yaml:"helios"`
}

// Window returns the window of the named split.
func (c *Config) Window(split string) (WindowConfig, bool) {
	switch split {
	case SplitTrain:
		return c.Helios.Windows.Train, true
	case SplitValidation:
		return c.Helios.Windows.Validation, true
	}
	return WindowConfig{}, false
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Helios: HeliosConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Run: RunConfig{
				UserConfig:  "eval_user_cfg.json",
				TrainConfig: "train_cfg.json",
				Splits:      []string{SplitTrain},
				PoolSize:    4,
			},
			Windows: WindowsConfig{
				Train: WindowConfig{
					From: "2010-01-01", To: "2014-12-31",
					RangeEnd: 90000, OutputDir: "data/train_crops",
				},
				Validation: WindowConfig{
					From: "2015-01-01", To: "2015-12-31",
					RangeEnd: 20000, OutputDir: "data/val_crops",
				},
			},
			Partition: PartitionConfig{RangeSize: 500},
			Imagery:   ImageryConfig{CacheSize: 64},
			Assembler: AssemblerConfig{
				RemainderPolicy: "carry",
				UnlabeledPolicy: "skip",
				WriteIndex:      true,
			},
			Manifest: dbconfig.DatabaseConfig{
				Type:     "sqlite",
				Database: "helios_manifest.db",
				Pool:     dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1},
			},
			Metrics: inframetrics.Config{Enabled: true, Backend: inframetrics.BackendPrometheus},
		},
	}
}
