package batchfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Files are the paths produced for one batch. Index is empty when no
// sidecar was written.
type Files struct {
	Batch string
	Index string
}

// DirWriter writes batch files, and optionally their index sidecars, into Dir.
type DirWriter struct {
	Dir       string
	WithIndex bool
}

// Write stores b as Dir/<name>.hdf5. When the sidecar cannot be written the
// batch file is removed again, so both files exist or neither does.
func (w DirWriter) Write(ctx context.Context, name string, b *model.Batch) (Files, error) {
	if err := ctx.Err(); err != nil {
		return Files{}, err
	}
	files := Files{Batch: filepath.Join(w.Dir, name+Extension)}
	if err := Write(files.Batch, b); err != nil {
		return Files{}, err
	}
	if !w.WithIndex {
		return files, nil
	}

	files.Index = filepath.Join(w.Dir, name+IndexExtension)
	if err := writeIndex(files.Index, b); err != nil {
		var result error
		result = multierror.Append(result, exception.NewStorageError(module, fmt.Sprintf("failed to write index of '%s'", name), err))
		if rmErr := os.Remove(files.Batch); rmErr != nil {
			result = multierror.Append(result, exception.NewStorageError(module, fmt.Sprintf("failed to remove '%s'", files.Batch), rmErr))
		}
		return Files{}, result
	}
	logger.Debugf("Wrote batch '%s' with %d samples.", files.Batch, b.Len())
	return files, nil
}

func writeIndex(path string, b *model.Batch) error {
	data, err := EncodeIndex(b)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
