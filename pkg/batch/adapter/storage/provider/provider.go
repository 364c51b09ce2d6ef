// Package provider opens a storage connection for the configured adapter type.
package provider

import (
	"context"
	"fmt"

	storageAdapter "github.com/tigerroll/helios/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/helios/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/helios/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/helios/pkg/batch/adapter/storage/local"
)

// Open returns a connection for cfg.Type. It returns (nil, nil) when no type
// is configured, meaning export is disabled.
func Open(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case local.ProviderType:
		return local.NewLocalAdapter(cfg, name)
	case gcs.ProviderType:
		return gcs.NewGCSAdapter(ctx, cfg, name)
	default:
		return nil, fmt.Errorf("unsupported storage type '%s' for connection '%s'", cfg.Type, name)
	}
}
