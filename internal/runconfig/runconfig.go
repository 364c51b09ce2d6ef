// Package runconfig loads the user and training JSON documents that describe
// what a batch-building run produces.
package runconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const moduleName = "runconfig"

// UserConfig is the user config document.
type UserConfig struct {
	BatchSizeForSingleFile int             `json:"batch_size_for_single_file"`
	ImageSizeM             int             `json:"image_size_m"`
	ImageSizeN             int             `json:"image_size_n"`
	NbChannels             int             `json:"nb_channels"`
	InputTimeOffsets       []time.Duration `json:"input_time_offsets"`
	InputSeqLength         int             `json:"input_seq_length"`
	BatchSize              int             `json:"batch_size"`
}

var userRequired = []string{
	"batch_size_for_single_file", "image_size_m", "nb_channels",
	"input_time_offsets", "input_seq_length", "batch_size", "image_size_n",
}

// HalfWindow is the crop half-width, image_size_m / 2.
func (u UserConfig) HalfWindow() int { return u.ImageSizeM / 2 }

// Validate checks the relations between the user config values.
func (u UserConfig) Validate() error {
	switch {
	case u.BatchSizeForSingleFile < 1:
		return fmt.Errorf("batch_size_for_single_file must be positive, got %d", u.BatchSizeForSingleFile)
	case u.BatchSize < 1:
		return fmt.Errorf("batch_size must be positive, got %d", u.BatchSize)
	case u.NbChannels != model.NumChannels:
		return fmt.Errorf("nb_channels must be %d, got %d", model.NumChannels, u.NbChannels)
	case u.InputSeqLength < 1:
		return fmt.Errorf("input_seq_length must be positive, got %d", u.InputSeqLength)
	case u.InputSeqLength > len(u.InputTimeOffsets):
		return fmt.Errorf("input_seq_length %d exceeds the %d input_time_offsets", u.InputSeqLength, len(u.InputTimeOffsets))
	case u.ImageSizeM < 2 || u.ImageSizeN < 1:
		return fmt.Errorf("image size %dx%d is too small", u.ImageSizeM, u.ImageSizeN)
	}
	return nil
}

// TrainConfig is the training config document.
type TrainConfig struct {
	Stations          map[string][]float64 `json:"stations"` // id -> [lat, lon, elevation]
	TargetTimeOffsets []time.Duration      `json:"target_time_offsets"`
}

var trainRequired = []string{"stations", "target_time_offsets"}

// StationMap converts the stations into model.Station values.
func (t TrainConfig) StationMap() (map[string]model.Station, error) {
	out := make(map[string]model.Station, len(t.Stations))
	for id, v := range t.Stations {
		if len(v) != 3 {
			return nil, fmt.Errorf("station %s: want [lat, lon, elevation], got %d values", id, len(v))
		}
		out[id] = model.Station{ID: id, Latitude: v[0], Longitude: v[1], Elevation: v[2]}
	}
	return out, nil
}

// Validate checks the training config values.
func (t TrainConfig) Validate() error {
	if len(t.Stations) == 0 {
		return fmt.Errorf("stations must not be empty")
	}
	if len(t.TargetTimeOffsets) == 0 {
		return fmt.Errorf("target_time_offsets must not be empty")
	}
	_, err := t.StationMap()
	return err
}

// ParseUserConfig decodes and validates a user config document.
func ParseUserConfig(r io.Reader) (UserConfig, error) {
	var cfg UserConfig
	if err := parse(r, &cfg, userRequired); err != nil {
		return UserConfig{}, exception.NewConfigurationError(moduleName, "invalid user config", err)
	}
	if err := cfg.Validate(); err != nil {
		return UserConfig{}, exception.NewConfigurationError(moduleName, "invalid user config", err)
	}
	return cfg, nil
}

// ParseTrainConfig decodes and validates a training config document.
func ParseTrainConfig(r io.Reader) (TrainConfig, error) {
	var cfg TrainConfig
	if err := parse(r, &cfg, trainRequired); err != nil {
		return TrainConfig{}, exception.NewConfigurationError(moduleName, "invalid training config", err)
	}
	if err := cfg.Validate(); err != nil {
		return TrainConfig{}, exception.NewConfigurationError(moduleName, "invalid training config", err)
	}
	return cfg, nil
}

// LoadUserConfig reads the user config at path.
func LoadUserConfig(path string) (UserConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return UserConfig{}, exception.NewConfigurationError(moduleName, fmt.Sprintf("invalid user config file: %s", path), err)
	}
	defer f.Close()
	return ParseUserConfig(f)
}

// LoadTrainConfig reads the training config at path.
func LoadTrainConfig(path string) (TrainConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return TrainConfig{}, exception.NewConfigurationError(moduleName, fmt.Sprintf("invalid training config file: %s", path), err)
	}
	defer f.Close()
	return ParseTrainConfig(f)
}

func parse(r io.Reader, target interface{}, required []string) error {
	var props map[string]interface{}
	if err := json.NewDecoder(r).Decode(&props); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return configbinder.BindStrict(props, target, required...)
}
