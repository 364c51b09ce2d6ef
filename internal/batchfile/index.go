package batchfile

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/helios/internal/domain/model"
)

// IndexExtension is the suffix of sample index sidecars.
const IndexExtension = ".parquet"

// IndexRow describes one sample of a batch file.
type IndexRow struct {
	Position  int32  `parquet:"name=position,type=INT32"`
	StationID string `parquet:"name=station_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	T0        int64  `parquet:"name=t0,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	Labeled   bool   `parquet:"name=labeled,type=BOOLEAN"`
}

// IndexRows lists the samples of b in file order.
func IndexRows(b *model.Batch) []IndexRow {
	rows := make([]IndexRow, b.Len())
	for i := range rows {
		rows[i] = IndexRow{
			Position:  int32(i),
			StationID: b.StationIDs[i],
			Labeled:   b.Labeled[i] == 1,
		}
		if len(b.Datetimes[i]) > 0 {
			rows[i].T0 = b.Datetimes[i][0].UnixMilli()
		}
	}
	return rows
}

// EncodeIndex renders the sample index of b as a snappy-compressed parquet file.
func EncodeIndex(b *model.Batch) ([]byte, error) {
	rows := IndexRows(b)
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(IndexRow), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			return nil, fmt.Errorf("failed to write index row %d: %w", r.Position, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet index: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeIndex reads a sidecar produced by EncodeIndex.
func DecodeIndex(data []byte) ([]IndexRow, error) {
	f, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet index: %w", err)
	}
	pr, err := reader.NewParquetReader(f, new(IndexRow), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet index: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]IndexRow, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("failed to read index rows: %w", err)
	}
	return rows, nil
}
