package runconfig_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/helios/internal/runconfig"
	"github.com/tigerroll/helios/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const userJSON = `{
  "batch_size_for_single_file": 256,
  "image_size_m": 80,
  "image_size_n": 80,
  "nb_channels": 5,
  "input_time_offsets": ["P0DT0H0M0S", "P0DT0H30M0S", "P0DT1H0M0S"],
  "input_seq_length": 2,
  "batch_size": 32,
  "model_name": "ignored"
}`

const trainJSON = `{
  "stations": {"BND": [40.05192, -88.37309, 230], "TBL": [40.12498, -105.2368, 1689]},
  "target_time_offsets": ["P0DT0H0M0S", "P0DT1H0M0S", "P0DT3H0M0S", "P0DT6H0M0S"],
  "start_bound": "2010-01-01"
}`

func TestParseUserConfig(t *testing.T) {
	cfg, err := runconfig.ParseUserConfig(strings.NewReader(userJSON))
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.BatchSizeForSingleFile)
	assert.Equal(t, 40, cfg.HalfWindow())
	assert.Equal(t, []time.Duration{0, 30 * time.Minute, time.Hour}, cfg.InputTimeOffsets)
	assert.Equal(t, 2, cfg.InputSeqLength)
}

func TestParseTrainConfig(t *testing.T) {
	cfg, err := runconfig.ParseTrainConfig(strings.NewReader(trainJSON))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, time.Hour, 3 * time.Hour, 6 * time.Hour}, cfg.TargetTimeOffsets)

	stations, err := cfg.StationMap()
	require.NoError(t, err)
	assert.Equal(t, 1689.0, stations["TBL"].Elevation)
	assert.Equal(t, -88.37309, stations["BND"].Longitude)
}

func TestParseUserConfig_MissingKeys(t *testing.T) {
	_, err := runconfig.ParseUserConfig(strings.NewReader(`{"image_size_m": 80, "nb_channels": 5}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrConfiguration)

	var missing *configbinder.MissingKeysError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"batch_size", "batch_size_for_single_file", "image_size_n", "input_seq_length", "input_time_offsets"}, missing.Keys)
}

func TestParseUserConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"seq longer than offsets": strings.Replace(userJSON, `"input_seq_length": 2`, `"input_seq_length": 4`, 1),
		"wrong channel count":     strings.Replace(userJSON, `"nb_channels": 5`, `"nb_channels": 3`, 1),
		"bad duration":            strings.Replace(userJSON, `"P0DT0H30M0S"`, `"thirty minutes"`, 1),
		"not json":                `{"batch_size": `,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := runconfig.ParseUserConfig(strings.NewReader(doc))
			assert.ErrorIs(t, err, exception.ErrConfiguration)
		})
	}
}

func TestParseTrainConfig_BadStation(t *testing.T) {
	_, err := runconfig.ParseTrainConfig(strings.NewReader(`{"stations": {"BND": [40.0, -88.3]}, "target_time_offsets": ["PT0S"]}`))
	assert.ErrorIs(t, err, exception.ErrConfiguration)
	assert.ErrorContains(t, err, "want [lat, lon, elevation]")
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user.json"), []byte(userJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.json"), []byte(trainJSON), 0o644))

	_, err := runconfig.LoadUserConfig(filepath.Join(dir, "user.json"))
	assert.NoError(t, err)
	_, err = runconfig.LoadTrainConfig(filepath.Join(dir, "train.json"))
	assert.NoError(t, err)

	_, err = runconfig.LoadUserConfig(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}
