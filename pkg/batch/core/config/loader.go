package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds the configuration in three layers: defaults from
// NewConfig, the embedded YAML, then environment variables derived from the
// yaml tags (HELIOS_RUN_POOL_SIZE, HELIOS_MANIFEST_DATABASE, ...).
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()
	// yaml.v3 leaves fields absent from the document untouched, so the
	// defaults survive unless overridden.
	if err := yaml.Unmarshal(embeddedConfig, cfg); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to unmarshal embedded config", err)
	}
	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewConfigurationError(moduleName, "failed to load config from environment variables", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config and applies the log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Helios.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Helios.System.Logging.Level)
	return cfg, nil
}

// Validate checks the values that cannot be repaired at run time.
func (c *Config) Validate() error {
	h := c.Helios
	var problems []string
	if h.Catalog.Path == "" {
		problems = append(problems, "catalog.path is required")
	}
	if h.Imagery.ReferenceArchive == "" {
		problems = append(problems, "imagery.reference_archive is required")
	}
	if h.Run.PoolSize < 1 {
		problems = append(problems, fmt.Sprintf("run.pool_size must be at least 1, got %d", h.Run.PoolSize))
	}
	if h.Partition.RangeSize < 1 {
		problems = append(problems, fmt.Sprintf("partition.range_size must be at least 1, got %d", h.Partition.RangeSize))
	}
	switch h.Assembler.RemainderPolicy {
	case "carry", "drop":
	default:
		problems = append(problems, fmt.Sprintf("assembler.remainder_policy must be carry or drop, got '%s'", h.Assembler.RemainderPolicy))
	}
	switch h.Assembler.UnlabeledPolicy {
	case "skip", "keep":
	default:
		problems = append(problems, fmt.Sprintf("assembler.unlabeled_policy must be skip or keep, got '%s'", h.Assembler.UnlabeledPolicy))
	}
	if len(h.Run.Splits) == 0 {
		problems = append(problems, "run.splits must name at least one split")
	}
	for _, split := range h.Run.Splits {
		w, ok := c.Window(split)
		if !ok {
			problems = append(problems, fmt.Sprintf("run.splits: unknown split '%s'", split))
			continue
		}
		from, to, err := w.Bounds()
		if err != nil {
			problems = append(problems, fmt.Sprintf("windows.%s: %v", split, err))
			continue
		}
		if to.Before(from) {
			problems = append(problems, fmt.Sprintf("windows.%s: 'to' precedes 'from'", split))
		}
		if w.RangeEnd < 1 {
			problems = append(problems, fmt.Sprintf("windows.%s.range_end must be positive", split))
		}
		if w.OutputDir == "" {
			problems = append(problems, fmt.Sprintf("windows.%s.output_dir is required", split))
		}
	}
	if len(problems) > 0 {
		return exception.NewConfigurationError(moduleName, "invalid application configuration", fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables named after the upper-cased yaml tag path.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a scalar or []string field from its string form. Slices are comma-separated.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}
