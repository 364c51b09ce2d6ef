package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/tigerroll/helios/pkg/batch/core/config"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const baseYAML = `
helios:
  catalog:
    path: catalog.csv
  imagery:
    reference_archive: ref.h5
`

func TestNewConfig_Defaults(t *testing.T) {
	cfg := coreconfig.NewConfig()

	assert.Equal(t, "INFO", cfg.Helios.System.Logging.Level)
	assert.Equal(t, 4, cfg.Helios.Run.PoolSize)
	assert.Equal(t, []string{coreconfig.SplitTrain}, cfg.Helios.Run.Splits)
	assert.Equal(t, 500, cfg.Helios.Partition.RangeSize)
	assert.Equal(t, 90000, cfg.Helios.Windows.Train.RangeEnd)
	assert.Equal(t, 20000, cfg.Helios.Windows.Validation.RangeEnd)
	assert.Equal(t, "carry", cfg.Helios.Assembler.RemainderPolicy)
	assert.Equal(t, "skip", cfg.Helios.Assembler.UnlabeledPolicy)
	assert.Equal(t, "sqlite", cfg.Helios.Manifest.Type)
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	yaml := baseYAML + `
  run:
    pool_size: 2
    splits: [train, validation]
  assembler:
    remainder_policy: drop
  output:
    storage:
      type: local
      base_dir: /tmp/exports
`
	cfg, err := coreconfig.LoadConfig(missingEnvFile(t), coreconfig.EmbeddedConfig(yaml))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Helios.Run.PoolSize)
	assert.Equal(t, []string{"train", "validation"}, cfg.Helios.Run.Splits)
	assert.Equal(t, "drop", cfg.Helios.Assembler.RemainderPolicy)
	assert.Equal(t, "skip", cfg.Helios.Assembler.UnlabeledPolicy, "untouched keys keep their defaults")
	assert.Equal(t, "train_cfg.json", cfg.Helios.Run.TrainConfig)
	assert.True(t, cfg.Helios.Output.Storage.Enabled())
	assert.Equal(t, "/tmp/exports", cfg.Helios.Output.Storage.BaseDir)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HELIOS_RUN_POOL_SIZE", "8")
	t.Setenv("HELIOS_RUN_SPLITS", "validation, train")
	t.Setenv("HELIOS_MANIFEST_DATABASE", "/var/lib/helios.db")
	t.Setenv("HELIOS_ASSEMBLER_WRITE_INDEX", "false")

	cfg, err := coreconfig.LoadConfig(missingEnvFile(t), coreconfig.EmbeddedConfig(baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Helios.Run.PoolSize)
	assert.Equal(t, []string{"validation", "train"}, cfg.Helios.Run.Splits)
	assert.Equal(t, "/var/lib/helios.db", cfg.Helios.Manifest.Database)
	assert.False(t, cfg.Helios.Assembler.WriteIndex)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HELIOS_PARTITION_RANGE_SIZE=250\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("HELIOS_PARTITION_RANGE_SIZE") })

	cfg, err := coreconfig.LoadConfig(envFile, coreconfig.EmbeddedConfig(baseYAML))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Helios.Partition.RangeSize)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing catalog", "helios:\n  imagery: {reference_archive: ref.h5}\n", "catalog.path is required"},
		{"missing reference archive", "helios:\n  catalog: {path: c.csv}\n", "imagery.reference_archive is required"},
		{"bad policy", baseYAML + "  assembler: {remainder_policy: pad}\n", "remainder_policy must be carry or drop"},
		{"unknown split", baseYAML + "  run: {splits: [test]}\n", "unknown split 'test'"},
		{"bad window", baseYAML + "  windows: {train: {from: \"2014-12-31\", to: \"2010-01-01\"}}\n", "'to' precedes 'from'"},
		{"zero pool", baseYAML + "  run: {pool_size: 0}\n", "pool_size must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coreconfig.LoadConfig(missingEnvFile(t), coreconfig.EmbeddedConfig(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := coreconfig.LoadConfig(missingEnvFile(t), coreconfig.EmbeddedConfig("helios: [unclosed"))
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestWindowConfig_Bounds(t *testing.T) {
	from, to, err := coreconfig.WindowConfig{From: "2015-01-01", To: "2015-12-31"}.Bounds()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.True(t, to.After(time.Date(2015, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, to.Before(time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, _, err = coreconfig.WindowConfig{From: "yesterday", To: "2015-12-31"}.Bounds()
	assert.Error(t, err)
}

// missingEnvFile points the loader at a file that does not exist so a stray
// .env in the working directory cannot leak into the test.
func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}
