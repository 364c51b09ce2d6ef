package assembler_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/helios/internal/assembler"
	"github.com/tigerroll/helios/internal/batchfile"
	"github.com/tigerroll/helios/internal/catalog"
	"github.com/tigerroll/helios/internal/crop"
	"github.com/tigerroll/helios/internal/domain/model"
	"github.com/tigerroll/helios/pkg/batch/component/partitioner"
	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/listener"
	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

var base = time.Date(2012, 6, 1, 12, 0, 0, 0, time.UTC)

func ts(i int) time.Time { return base.Add(time.Duration(i) * 15 * time.Minute) }

func primary(n int) *catalog.Catalog {
	entries := make([]catalog.Entry, n)
	for i := range entries {
		entries[i] = catalog.Entry{Timestamp: ts(i), NCDFPath: "a.nc", HDF5Path: "a.h5", HDF5Offset: i}
	}
	return catalog.New(entries, nil)
}

func makeSample(id string, t0 time.Time, labeled bool) model.Sample {
	s := model.Sample{StationID: id, T0: t0, Frames: []model.Crop{model.NewCrop(2)}, Timestamps: []time.Time{t0}}
	if labeled {
		s.Label = model.Labeled(model.LabelPair{True: model.LabelVector{1, 2}, ClearSky: model.LabelVector{3, 4}})
	} else {
		s.Label = model.Unlabeled()
	}
	return s
}

// scriptedSource returns, per T0, either an error or n samples whose
// labeledness is given by the script.
type scriptedSource struct {
	script map[time.Time][]bool
	errs   map[time.Time]error
}

func (s *scriptedSource) Build(_ context.Context, _, _ *catalog.Catalog, t0 time.Time) ([]model.Sample, error) {
	if err, ok := s.errs[t0]; ok {
		return nil, err
	}
	var out []model.Sample
	for i, labeled := range s.script[t0] {
		out = append(out, makeSample(fmt.Sprintf("S%d", i), t0, labeled))
	}
	return out, nil
}

// memorySink keeps written batches in memory.
type memorySink struct {
	names   []string
	batches []*model.Batch
}

func (m *memorySink) Write(_ context.Context, name string, b *model.Batch) (batchfile.Files, error) {
	m.names = append(m.names, name)
	m.batches = append(m.batches, b)
	return batchfile.Files{Batch: "/out/" + name + ".hdf5"}, nil
}

func uniform(n, perT0 int) map[time.Time][]bool {
	script := map[time.Time][]bool{}
	for i := 0; i < n; i++ {
		for j := 0; j < perT0; j++ {
			script[ts(i)] = append(script[ts(i)], true)
		}
	}
	return script
}

func newAssembler(t *testing.T, src assembler.SampleSource, sink assembler.Sink, l listener.BatchListener, opts assembler.Options) *assembler.Assembler {
	t.Helper()
	opts.Split = "train"
	opts.Horizons = 2
	a, err := assembler.New(src, sink, l, metrics.NewNoOpMetricRecorder(), opts)
	require.NoError(t, err)
	return a
}

func TestRun_ExactBatchFlushesOnce(t *testing.T) {
	sink := &memorySink{}
	a := newAssembler(t, &scriptedSource{script: uniform(2, 2)}, sink, nil, assembler.Options{BatchSize: 4})
	cat := primary(2)

	res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"batch_1"}, sink.names)
	assert.Equal(t, []string{"/out/batch_1.hdf5"}, res.Files)
	assert.Equal(t, 4, res.Samples)
	assert.Zero(t, res.Leftover)
}

func TestRun_RemainderPolicies(t *testing.T) {
	tests := []struct {
		policy   assembler.RemainderPolicy
		names    []string
		leftover int
	}{
		{assembler.RemainderCarry, []string{"batch_501", "batch_502"}, 0},
		{assembler.RemainderDrop, []string{"batch_501"}, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			sink := &memorySink{}
			a := newAssembler(t, &scriptedSource{script: uniform(503, 2)}, sink, nil, assembler.Options{BatchSize: 3, Remainder: tt.policy})
			cat := primary(503)

			res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition1", Start: 500, End: 503})
			require.NoError(t, err)

			assert.Equal(t, tt.names, sink.names)
			assert.Equal(t, tt.leftover, res.Leftover)
			for _, b := range sink.batches {
				assert.Equal(t, 3, b.Len())
				assert.NoError(t, b.Validate())
			}
		})
	}
}

func TestRun_CarryPreservesOrder(t *testing.T) {
	sink := &memorySink{}
	a := newAssembler(t, &scriptedSource{script: uniform(3, 2)}, sink, nil, assembler.Options{BatchSize: 3})
	cat := primary(3)

	_, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 3})
	require.NoError(t, err)

	require.Len(t, sink.batches, 2)
	second := sink.batches[1]
	assert.Equal(t, []string{"S1", "S0", "S1"}, second.StationIDs)
	assert.Equal(t, ts(1), second.Datetimes[0][0], "the carried sample comes first")
}

func TestRun_SkipsMissingT0(t *testing.T) {
	sink := &memorySink{}
	noData := exception.NewSkippableError("crop", "T0 not in catalog", crop.ErrNoData)
	src := &scriptedSource{script: uniform(4, 2), errs: map[time.Time]error{ts(1): noData, ts(2): noData}}
	a := newAssembler(t, src, sink, nil, assembler.Options{BatchSize: 4})
	cat := primary(4)

	res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 4})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"batch_1"}, sink.names)
}

func TestRun_UnlabeledPolicies(t *testing.T) {
	script := map[time.Time][]bool{
		ts(0): {true, false},
		ts(1): {true, true},
		ts(2): {false, true},
	}

	t.Run("skip", func(t *testing.T) {
		sink := &memorySink{}
		a := newAssembler(t, &scriptedSource{script: script}, sink, nil, assembler.Options{BatchSize: 4})
		cat := primary(3)

		res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 3})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Unlabeled)
		require.Len(t, sink.batches, 1)
		assert.Equal(t, []uint8{1, 1, 1, 1}, sink.batches[0].Labeled)
	})

	t.Run("keep", func(t *testing.T) {
		sink := &memorySink{}
		a := newAssembler(t, &scriptedSource{script: script}, sink, nil, assembler.Options{BatchSize: 3, Unlabeled: assembler.UnlabeledKeep})
		cat := primary(3)

		res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 3})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Unlabeled)
		require.Len(t, sink.batches, 2)
		assert.Equal(t, []uint8{1, 0, 1}, sink.batches[0].Labeled)
		assert.Equal(t, []uint8{1, 0, 1}, sink.batches[1].Labeled)
	})
}

func TestRun_StopsOnArchiveError(t *testing.T) {
	sink := &memorySink{}
	archiveErr := exception.NewArchiveError("imagery", "failed to open archive", errors.New("no such file"))
	src := &scriptedSource{script: uniform(4, 2), errs: map[time.Time]error{ts(2): archiveErr}}
	a := newAssembler(t, src, sink, nil, assembler.Options{BatchSize: 4})
	cat := primary(4)

	res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 4})

	assert.ErrorIs(t, err, exception.ErrArchiveIO)
	assert.Equal(t, []string{"batch_1"}, sink.names, "files written before the failure are kept")
	assert.Equal(t, 4, res.Samples)
}

// unevenSource returns samples whose frame counts differ, which cannot form a batch.
type unevenSource struct{}

func (unevenSource) Build(_ context.Context, _, _ *catalog.Catalog, t0 time.Time) ([]model.Sample, error) {
	a := makeSample("A", t0, true)
	b := makeSample("B", t0, true)
	b.Frames = append(b.Frames, model.NewCrop(2))
	b.Timestamps = append(b.Timestamps, t0)
	return []model.Sample{a, b}, nil
}

func TestRun_ShapeMismatchIsFatal(t *testing.T) {
	sink := &memorySink{}
	a := newAssembler(t, unevenSource{}, sink, nil, assembler.Options{BatchSize: 2})
	cat := primary(2)

	_, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 2})

	assert.ErrorIs(t, err, exception.ErrShapeMismatch)
	assert.Empty(t, sink.names)
}

type eventLog struct{ events []listener.BatchEvent }

func (l *eventLog) AfterBatch(_ context.Context, ev listener.BatchEvent) error {
	l.events = append(l.events, ev)
	return nil
}

func TestRun_NotifiesListeners(t *testing.T) {
	events := &eventLog{}
	script := map[time.Time][]bool{ts(0): {true, false}}
	a := newAssembler(t, &scriptedSource{script: script}, &memorySink{}, events, assembler.Options{BatchSize: 2, Unlabeled: assembler.UnlabeledKeep})
	cat := primary(1)

	_, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 1})
	require.NoError(t, err)

	assert.Equal(t, []listener.BatchEvent{{
		Split: "train", Partition: "partition0", Start: 0, End: 1, Name: "batch_1",
		BatchPath: "/out/batch_1.hdf5", Samples: 2, Labeled: 1,
	}}, events.events)
}

func TestRun_Cancelled(t *testing.T) {
	a := newAssembler(t, &scriptedSource{script: uniform(2, 1)}, &memorySink{}, nil, assembler.Options{BatchSize: 4})
	cat := primary(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_WritesBatchFiles(t *testing.T) {
	dir := t.TempDir()
	a := newAssembler(t, &scriptedSource{script: uniform(2, 2)}, batchfile.DirWriter{Dir: dir, WithIndex: true}, nil, assembler.Options{BatchSize: 4})
	cat := primary(2)

	res, err := a.Run(context.Background(), cat, cat, partitioner.Range{Name: "partition0", Start: 0, End: 2})
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(dir, "batch_1.hdf5")}, res.Files)
	b, err := batchfile.Read(res.Files[0])
	require.NoError(t, err)
	assert.Equal(t, 4, b.Len())
	assert.FileExists(t, filepath.Join(dir, "batch_1.parquet"))
}

func TestNew_RejectsOptions(t *testing.T) {
	rec := metrics.NewNoOpMetricRecorder()
	for _, opts := range []assembler.Options{
		{BatchSize: 0, Horizons: 1},
		{BatchSize: 1, Horizons: 0},
		{BatchSize: 1, Horizons: 1, Remainder: "keep"},
		{BatchSize: 1, Horizons: 1, Unlabeled: "drop"},
	} {
		_, err := assembler.New(&scriptedSource{}, &memorySink{}, nil, rec, opts)
		assert.ErrorIs(t, err, exception.ErrConfiguration, "%+v", opts)
	}
}

func TestAccumulator(t *testing.T) {
	acc := assembler.NewAccumulator(10, 2, 2, assembler.RemainderCarry)
	acc.Add(makeSample("A", base, true), makeSample("B", base, true), makeSample("C", base, true))

	require.True(t, acc.Ready())
	name, b := acc.Next()
	assert.Equal(t, "batch_11", name)
	assert.Equal(t, []string{"A", "B"}, b.StationIDs)
	assert.Equal(t, 1, acc.Pending())
	assert.False(t, acc.Ready())
}
