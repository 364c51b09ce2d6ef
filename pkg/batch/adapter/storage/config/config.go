package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs"). Empty disables export.
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key (gcs only).
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	Prefix          string `yaml:"prefix"`           // Object name prefix prepended to every exported file.
}

// Enabled reports whether an export target is configured.
func (c StorageConfig) Enabled() bool {
	return c.Type != ""
}
