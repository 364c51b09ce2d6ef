package export_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/helios/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/helios/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/listener/export"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

func TestStorageExportListener(t *testing.T) {
	work := t.TempDir()
	batchPath := filepath.Join(work, "batch_7.hdf5")
	indexPath := filepath.Join(work, "batch_7.parquet")
	require.NoError(t, os.WriteFile(batchPath, []byte("hdf5"), 0o644))
	require.NoError(t, os.WriteFile(indexPath, []byte("parquet"), 0o644))

	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: t.TempDir(), BucketName: "crops"}, "export")
	require.NoError(t, err)
	l := export.NewStorageExportListener(conn, "", "helios")

	err = l.AfterBatch(context.Background(), listener.BatchEvent{Split: "train", Name: "batch_7", BatchPath: batchPath, IndexPath: indexPath})
	require.NoError(t, err)

	var objects []string
	require.NoError(t, conn.ListObjects(context.Background(), "", "helios/", func(name string) error {
		objects = append(objects, name)
		return nil
	}))
	assert.Equal(t, []string{"helios/train/batch_7.hdf5", "helios/train/batch_7.parquet"}, objects)

	r, err := conn.Download(context.Background(), "", "helios/train/batch_7.hdf5")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hdf5", string(data))
}

func TestStorageExportListener_MissingFile(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: t.TempDir()}, "export")
	require.NoError(t, err)
	l := export.NewStorageExportListener(conn, "", "")

	err = l.AfterBatch(context.Background(), listener.BatchEvent{Split: "validation", BatchPath: filepath.Join(t.TempDir(), "gone.hdf5")})
	assert.ErrorIs(t, err, exception.ErrStorage)
	assert.Equal(t, "validation/batch_1.hdf5", l.ObjectName("validation", "/tmp/out/batch_1.hdf5"))
}
