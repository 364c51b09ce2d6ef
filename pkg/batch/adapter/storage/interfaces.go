// Package storage defines the common interface implemented by the object
// storage adapters (local file system, Google Cloud Storage). Written batch
// files are exported through it.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download returns a ReadCloser for the object. The caller must close it.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object under prefix, without loading the whole listing.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, closable storage connection.
type StorageConnection interface {
	StorageExecutor

	// Close releases the resources held by the connection.
	Close() error
	// Type returns the adapter type (e.g. "local", "gcs").
	Type() string
	// Name returns the connection name.
	Name() string
}
