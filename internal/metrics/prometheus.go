package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"litindex/internal/corpus"
	"litindex/internal/pipeline"
)

// Observer exports pipeline metrics to Prometheus on its own registry.
type Observer struct {
	registry     *prometheus.Registry
	partitions   *prometheus.CounterVec
	partitionDur prometheus.Histogram
	stageDur     *prometheus.HistogramVec
	candidates   prometheus.Counter
	records      prometheus.Counter
	writeRetries prometheus.Counter
}

var _ pipeline.Observer = (*Observer)(nil)

func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		partitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "litdup_partitions_total",
			Help: "Partitions processed, by outcome.",
		}, []string{"status"}),
		partitionDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "litdup_partition_duration_seconds",
			Help:    "Wall time spent on one partition.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		stageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "litdup_stage_duration_seconds",
			Help:    "Wall time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "litdup_candidate_pairs_total",
			Help: "Candidate pairs emitted by the banded index.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "litdup_duplicate_records_total",
			Help: "Duplicate records written to the store.",
		}),
		writeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "litdup_write_retries_total",
			Help: "Store write attempts that were retried.",
		}),
	}
	o.registry.MustRegister(o.partitions, o.partitionDur, o.stageDur, o.candidates, o.records, o.writeRetries)
	return o
}

func (o *Observer) Registry() *prometheus.Registry { return o.registry }

func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

func (o *Observer) ObservePartition(_ corpus.PartitionKey, status pipeline.Status, d time.Duration) {
	o.partitions.WithLabelValues(string(status)).Inc()
	o.partitionDur.Observe(d.Seconds())
}

func (o *Observer) ObserveStage(stage string, d time.Duration) {
	o.stageDur.WithLabelValues(stage).Observe(d.Seconds())
}

func (o *Observer) ObserveCandidates(n int) { o.candidates.Add(float64(n)) }

func (o *Observer) ObserveRecords(n int) { o.records.Add(float64(n)) }

func (o *Observer) ObserveWriteRetry() { o.writeRetries.Inc() }
