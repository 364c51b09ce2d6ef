package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/helios/pkg/batch/core/metrics"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchesWritten    *prometheus.CounterVec
	samples           *prometheus.CounterVec
	sequencesSkipped  *prometheus.CounterVec
	partitions        *prometheus.CounterVec
	partitionDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder backed by a private registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		batchesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_batches_written_total",
			Help: "Total number of batch files written.",
		}, []string{"split"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_samples_total",
			Help: "Total samples written to batch files, by label state.",
		}, []string{"split", "label"}),
		sequencesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_sequences_skipped_total",
			Help: "Total T0 timestamps that produced no samples, by reason.",
		}, []string{"split", "reason"}),
		partitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helios_partitions_total",
			Help: "Total partitions processed, by outcome.",
		}, []string{"split", "status"}),
		partitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helios_partition_duration_seconds",
			Help:    "Duration of partition processing.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"split"}),
	}

	registry.MustRegister(r.batchesWritten)
	registry.MustRegister(r.samples)
	registry.MustRegister(r.sequencesSkipped)
	registry.MustRegister(r.partitions)
	registry.MustRegister(r.partitionDuration)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return err
	}
	logger.Infof("Metrics written to %s.", path)
	return nil
}

func (r *PrometheusRecorder) RecordBatchWritten(ctx context.Context, split string) {
	r.batchesWritten.WithLabelValues(split).Inc()
}

func (r *PrometheusRecorder) RecordSamples(ctx context.Context, split string, labeled bool, count int) {
	if count <= 0 {
		return
	}
	r.samples.WithLabelValues(split, labelState(labeled)).Add(float64(count))
}

func (r *PrometheusRecorder) RecordSequenceSkipped(ctx context.Context, split, reason string) {
	r.sequencesSkipped.WithLabelValues(split, reason).Inc()
}

func (r *PrometheusRecorder) RecordPartition(ctx context.Context, split, status string, duration time.Duration) {
	r.partitions.WithLabelValues(split, status).Inc()
	r.partitionDuration.WithLabelValues(split).Observe(duration.Seconds())
	logger.Debugf("Metrics: partition of split '%s' %s in %.3fs", split, status, duration.Seconds())
}

func labelState(labeled bool) string {
	if labeled {
		return "labeled"
	}
	return "unlabeled"
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
