// Package metrics exposes the pipeline's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeValid       = "valid"
	OutcomeInvalid     = "invalid"
	OutcomeFailed      = "failed"
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeCommitted   = "committed"
	OutcomeRolledBack  = "rolled_back"
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeError       = "error"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	receiptsProcessed *prometheus.CounterVec
	itemsExtracted    prometheus.Histogram
	parseConfidence   prometheus.Histogram
	analyses          *prometheus.CounterVec
	priceWrites       *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	jobDuration       prometheus.Histogram
}

// New registers all instruments on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		receiptsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptradar_receipts_processed_total",
			Help: "Receipts run through the pipeline, by outcome",
		}, []string{"outcome"}),
		itemsExtracted: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "receiptradar_items_extracted",
			Help:    "Line items segmented per receipt",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 120},
		}),
		parseConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "receiptradar_parse_confidence",
			Help:    "Receipt-level validation confidence score",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1},
		}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptradar_savings_analyses_total",
			Help: "Basket savings analyses, by outcome",
		}, []string{"outcome"}),
		priceWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptradar_price_writes_total",
			Help: "Transactional receipt price writes, by outcome",
		}, []string{"outcome"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptradar_comparison_cache_lookups_total",
			Help: "Store comparison cache lookups, by outcome",
		}, []string{"outcome"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "receiptradar_queue_depth",
			Help: "Receipt files waiting for a worker",
		}),
		jobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "receiptradar_job_duration_seconds",
			Help:    "Time taken to process one receipt file",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ReceiptProcessed(outcome string, items int, confidence float64) {
	if m == nil {
		return
	}
	m.receiptsProcessed.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailed {
		m.itemsExtracted.Observe(float64(items))
		m.parseConfidence.Observe(confidence)
	}
}

func (m *Metrics) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PriceWrite(outcome string) {
	if m == nil {
		return
	}
	m.priceWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) JobDuration(seconds float64) {
	if m == nil {
		return
	}
	m.jobDuration.Observe(seconds)
}

// CacheLookupCounter exposes one outcome series, mainly for tests.
func (m *Metrics) CacheLookupCounter(outcome string) prometheus.Counter {
	return m.cacheLookups.WithLabelValues(outcome)
}

// ReceiptsProcessedCounter exposes one outcome series, mainly for tests.
func (m *Metrics) ReceiptsProcessedCounter(outcome string) prometheus.Counter {
	return m.receiptsProcessed.WithLabelValues(outcome)
}

// PriceWriteCounter exposes one outcome series, mainly for tests.
func (m *Metrics) PriceWriteCounter(outcome string) prometheus.Counter {
	return m.priceWrites.WithLabelValues(outcome)
}
