// Package export uploads written batch files to object storage.
package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	storageAdapter "github.com/tigerroll/helios/pkg/batch/adapter/storage"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

const module = "export"

// StorageExportListener uploads each batch file and its sidecar to
// <prefix>/<split>/<file name> on a storage connection.
type StorageExportListener struct {
	conn   storageAdapter.StorageConnection
	bucket string
	prefix string
}

// NewStorageExportListener creates an export listener. An empty bucket uses
// the connection's configured bucket.
func NewStorageExportListener(conn storageAdapter.StorageConnection, bucket, prefix string) *StorageExportListener {
	return &StorageExportListener{conn: conn, bucket: bucket, prefix: prefix}
}

// ObjectName returns the object a local file is exported to.
func (l *StorageExportListener) ObjectName(split, localPath string) string {
	return path.Join(l.prefix, split, filepath.Base(localPath))
}

// AfterBatch implements listener.BatchListener.
func (l *StorageExportListener) AfterBatch(ctx context.Context, ev listener.BatchEvent) error {
	var result error
	for _, p := range []string{ev.BatchPath, ev.IndexPath} {
		if p == "" {
			continue
		}
		if err := l.upload(ctx, ev.Split, p); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func (l *StorageExportListener) upload(ctx context.Context, split, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to open '%s' for export", localPath), err)
	}
	defer f.Close()

	object := l.ObjectName(split, localPath)
	if err := l.conn.Upload(ctx, l.bucket, object, f, "application/octet-stream"); err != nil {
		return exception.NewStorageError(module, fmt.Sprintf("failed to export '%s' via %s connection '%s'", localPath, l.conn.Type(), l.conn.Name()), err)
	}
	logger.Debugf("Exported '%s' to '%s'.", localPath, object)
	return nil
}

var _ listener.BatchListener = (*StorageExportListener)(nil)
