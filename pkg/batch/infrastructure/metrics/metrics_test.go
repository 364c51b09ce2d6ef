package metrics_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx/fxtest"

	coremetrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	inframetrics "github.com/tigerroll/helios/pkg/batch/infrastructure/metrics"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	ctx := context.Background()
	r := inframetrics.NewPrometheusRecorder()

	r.RecordBatchWritten(ctx, "train")
	r.RecordBatchWritten(ctx, "train")
	r.RecordSamples(ctx, "train", true, 512)
	r.RecordSamples(ctx, "train", false, 3)
	r.RecordSamples(ctx, "train", false, 0)
	r.RecordSequenceSkipped(ctx, "validation", "no_data")
	r.RecordPartition(ctx, "train", coremetrics.StatusCompleted, 2*time.Second)

	expected := `
# HELP helios_batches_written_total Total number of batch files written.
# TYPE helios_batches_written_total counter
helios_batches_written_total{split="train"} 2
# HELP helios_samples_total Total samples written to batch files, by label state.
# TYPE helios_samples_total counter
helios_samples_total{label="labeled",split="train"} 512
helios_samples_total{label="unlabeled",split="train"} 3
# HELP helios_sequences_skipped_total Total T0 timestamps that produced no samples, by reason.
# TYPE helios_sequences_skipped_total counter
helios_sequences_skipped_total{reason="no_data",split="validation"} 1
# HELP helios_partitions_total Total partitions processed, by outcome.
# TYPE helios_partitions_total counter
helios_partitions_total{split="train",status="completed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.GetRegistry(), strings.NewReader(expected),
		"helios_batches_written_total", "helios_samples_total",
		"helios_sequences_skipped_total", "helios_partitions_total"))

	count, err := testutil.GatherAndCount(r.GetRegistry(), "helios_partition_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	r := inframetrics.NewPrometheusRecorder()
	r.RecordBatchWritten(context.Background(), "train")

	path := filepath.Join(t.TempDir(), "helios.prom")
	require.NoError(t, r.WriteTextfile(path))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `helios_batches_written_total{split="train"} 1`)
}

func TestOpenTelemetryRecorder(t *testing.T) {
	ctx := context.Background()
	provider, reader := inframetrics.NewManualMeterProvider()
	defer provider.Shutdown(ctx)

	r, err := inframetrics.NewOpenTelemetryRecorder(provider)
	require.NoError(t, err)
	r.RecordBatchWritten(ctx, "train")
	r.RecordSamples(ctx, "train", true, 256)
	r.RecordPartition(ctx, "train", coremetrics.StatusFailed, time.Second)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), sums["helios.batches.written"])
	assert.Equal(t, int64(256), sums["helios.samples"])
	assert.Equal(t, int64(1), sums["helios.partitions"])
}

func TestOpenTelemetryTracer_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tracer := inframetrics.NewOpenTelemetryTracer(sdktrace.WithSpanProcessor(sr))
	defer tracer.Shutdown(context.Background())

	ctx, endRun := tracer.StartRunSpan(context.Background(), "run-1")
	ctx, endSplit := tracer.StartSplitSpan(ctx, "train")
	pctx, endPartition := tracer.StartPartitionSpan(ctx, "train", "partition0")
	tracer.RecordEvent(pctx, "batch_written", map[string]interface{}{"file": "batch_1.hdf5", "samples": 256})
	tracer.RecordError(pctx, "assembler", errors.New("archive missing"))
	endPartition()
	endSplit()
	endRun()

	ended := sr.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "helios.partition", ended[0].Name())
	assert.Equal(t, "helios.split", ended[1].Name())
	assert.Equal(t, "helios.run", ended[2].Name())

	partition := ended[0]
	assert.Equal(t, ended[1].SpanContext().SpanID(), partition.Parent().SpanID())
	assert.Equal(t, codes.Error, partition.Status().Code)
	var eventNames []string
	for _, e := range partition.Events() {
		eventNames = append(eventNames, e.Name)
	}
	assert.Contains(t, eventNames, "batch_written")
	assert.Contains(t, eventNames, "exception")
}

func TestNewTelemetry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     inframetrics.Config
		wantRec interface{}
		wantErr string
	}{
		{"disabled", inframetrics.Config{}, &coremetrics.NoOpMetricRecorder{}, ""},
		{"prometheus", inframetrics.Config{Enabled: true}, &inframetrics.PrometheusRecorder{}, ""},
		{"otel", inframetrics.Config{Enabled: true, Backend: "otel"}, &inframetrics.OpenTelemetryRecorder{}, ""},
		{"unknown", inframetrics.Config{Enabled: true, Backend: "statsd"}, nil, "unsupported metrics backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			tel, err := inframetrics.NewTelemetry(inframetrics.Params{Lifecycle: lc, Config: tt.cfg})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantRec, tel.Recorder)
			assert.NotNil(t, tel.Tracer)
			lc.RequireStart().RequireStop()
		})
	}
}

func TestOTLPExporters(t *testing.T) {
	ctx := context.Background()
	for _, protocol := range []string{"grpc", "http"} {
		cfg := inframetrics.OTLPConfig{Endpoint: "localhost:4317", Protocol: protocol, Insecure: true}
		spanExp, err := inframetrics.NewSpanExporter(ctx, cfg)
		require.NoError(t, err, protocol)
		assert.NotNil(t, spanExp)

		metricExp, err := inframetrics.NewMetricExporter(ctx, cfg)
		require.NoError(t, err, protocol)
		assert.NotNil(t, metricExp)
	}

	_, err := inframetrics.NewSpanExporter(ctx, inframetrics.OTLPConfig{Endpoint: "x", Protocol: "udp"})
	assert.ErrorContains(t, err, "unsupported OTLP protocol")
}
