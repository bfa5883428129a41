package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Market activity
	marketsCreated  prometheus.Counter
	marketsTotal    prometheus.Gauge
	betsPlaced      *prometheus.CounterVec
	betVolume       *prometheus.CounterVec
	feesCollected   prometheus.Counter
	samplesReceived prometheus.Counter
	lastComposite   prometheus.Gauge
	marketsResolved *prometheus.CounterVec
	claims          prometheus.Counter
	payoutVolume    prometheus.Counter
	withdrawals     prometheus.Counter
	fundBalance     prometheus.Gauge
	paused          prometheus.Gauge
	rejections      *prometheus.CounterVec

	// Sequencer
	commandsProcessed *prometheus.CounterVec
	commandLatency    *prometheus.HistogramVec
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueued     prometheus.Counter
	queueRejected     *prometheus.CounterVec
	blockHeight       prometheus.Gauge

	// Adapters
	ledgerTransfers      *prometheus.CounterVec
	standingsSize        prometheus.Gauge
	repositoryUpdateTime prometheus.Histogram
	idempotentReplays    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	httpRateLimited     *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "moodmarket",
		subsystem:        "market",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.marketsCreated = m.counter("markets_created_total", "Total number of markets created")
	m.marketsTotal = m.gauge("markets", "Number of markets in the registry")
	m.betsPlaced = m.counterVec("bets_placed_total", "Total number of accepted bets by side", "side")
	m.betVolume = m.counterVec("bet_volume_total", "Gross value staked by side", "side")
	m.feesCollected = m.counter("fees_collected_total", "Value skimmed into the community fund")
	m.samplesReceived = m.counter("mood_samples_total", "Mood samples accepted from the oracle")
	m.lastComposite = m.gauge("mood_composite_score", "Composite score of the most recent sample")
	m.marketsResolved = m.counterVec("markets_resolved_total", "Markets resolved by winning side", "outcome")
	m.claims = m.counter("claims_total", "Successful claims")
	m.payoutVolume = m.counter("payout_volume_total", "Value paid out to winners")
	m.withdrawals = m.counter("fund_withdrawals_total", "Fund withdrawals by the owner")
	m.fundBalance = m.gauge("fund_balance", "Current community fund balance")
	m.paused = m.gauge("paused", "1 when market creation and betting are paused")
	m.rejections = m.counterVec("operation_rejections_total", "Operations rejected by kind", "operation", "kind")

	m.commandsProcessed = m.counterVec("commands_processed_total", "Commands applied by the sequencer", "operation", "result")
	m.commandLatency = m.histogramVec("command_latency_milliseconds", "Time from dequeue to reply", m.histogramBuckets, "operation")
	m.queueSize = m.gauge("queue_size", "Commands waiting for the sequencer")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued commands")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Commands accepted by the queue")
	m.queueRejected = m.counterVec("queue_rejected_total", "Commands rejected by the queue", "reason")
	m.blockHeight = m.gauge("block_height", "Current clock height")

	m.ledgerTransfers = m.counterVec("ledger_transfers_total", "Ledger transfers by backend and result", "backend", "result")
	m.standingsSize = m.gauge("standings_size", "Predictors present in the standings")
	m.repositoryUpdateTime = m.histogram("standings_update_latency_milliseconds", "Standings update latency", m.histogramBuckets)
	m.idempotentReplays = m.counter("idempotent_replays_total", "Requests rejected as duplicate idempotency keys")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", m.histogramBuckets, "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses", "endpoint", "method", "error_type")
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests refused by the rate limiter", "endpoint")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordMarketCreated increments the created markets counter.
func RecordMarketCreated() { globalManager.marketsCreated.Inc() }

// UpdateMarketsTotal sets the number of markets.
func UpdateMarketsTotal(n int) { globalManager.marketsTotal.Set(float64(n)) }

// RecordBetPlaced records an accepted bet, its gross amount and fee.
func RecordBetPlaced(side string, amount, fee uint64) {
	globalManager.betsPlaced.WithLabelValues(side).Inc()
	globalManager.betVolume.WithLabelValues(side).Add(float64(amount))
	globalManager.feesCollected.Add(float64(fee))
}

// RecordSampleSubmitted records an accepted mood sample.
func RecordSampleSubmitted(composite uint64) {
	globalManager.samplesReceived.Inc()
	globalManager.lastComposite.Set(float64(composite))
}

// RecordMarketResolved records a resolution by winning side.
func RecordMarketResolved(outcome string) { globalManager.marketsResolved.WithLabelValues(outcome).Inc() }

// RecordClaim records a successful claim.
func RecordClaim(payout uint64) {
	globalManager.claims.Inc()
	globalManager.payoutVolume.Add(float64(payout))
}

// RecordWithdrawal records a fund withdrawal.
func RecordWithdrawal() { globalManager.withdrawals.Inc() }

// UpdateFundBalance sets the fund balance gauge.
func UpdateFundBalance(balance uint64) { globalManager.fundBalance.Set(float64(balance)) }

// UpdatePaused sets the pause gauge.
func UpdatePaused(paused bool) {
	v := 0.0
	if paused {
		v = 1
	}
	globalManager.paused.Set(v)
}

// RecordRejection records a domain rejection of an operation.
func RecordRejection(operation, kind string) {
	globalManager.rejections.WithLabelValues(operation, kind).Inc()
}

// RecordCommand records a sequencer command outcome and latency.
func RecordCommand(operation, result string, latencyMs float64) {
	globalManager.commandsProcessed.WithLabelValues(operation, result).Inc()
	globalManager.commandLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueRejected records a refused enqueue.
func RecordQueueRejected(reason string) { globalManager.queueRejected.WithLabelValues(reason).Inc() }

// UpdateBlockHeight sets the clock height gauge.
func UpdateBlockHeight(height uint64) { globalManager.blockHeight.Set(float64(height)) }

// RecordLedgerTransfer records a transfer attempt.
func RecordLedgerTransfer(backend, result string) {
	globalManager.ledgerTransfers.WithLabelValues(backend, result).Inc()
}

// UpdateStandingsSize sets the number of ranked predictors.
func UpdateStandingsSize(n int) { globalManager.standingsSize.Set(float64(n)) }

// RecordRepositoryUpdateLatency records standings update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateTime.Observe(latencyMs)
}

// RecordIdempotentReplay increments the duplicate request counter.
func RecordIdempotentReplay() { globalManager.idempotentReplays.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited records a request refused by the rate limiter.
func RecordRateLimited(endpoint string) { globalManager.httpRateLimited.WithLabelValues(endpoint).Inc() }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
