package analytics

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"retrieval-pipeline/internal/domain"
)

// Config holds tracker tunables.
type Config struct {
	// SamplingRate is the fraction of executions recorded, in [0,1].
	SamplingRate float64
	// FlushInterval is how often buffered records are flushed.
	FlushInterval time.Duration
	// FlushThreshold flushes early once this many records are buffered.
	FlushThreshold int
	// BufferLimit bounds the buffer; under backpressure the oldest
	// records are dropped. Loss is acceptable, retrieval is not blocked.
	BufferLimit int
	// FlushTimeout bounds one sink call.
	FlushTimeout time.Duration
}

// DefaultConfig samples everything and flushes every 30 seconds or 100
// records, whichever comes first.
func DefaultConfig() Config {
	return Config{
		SamplingRate:   1.0,
		FlushInterval:  30 * time.Second,
		FlushThreshold: 100,
		BufferLimit:    1000,
		FlushTimeout:   5 * time.Second,
	}
}

// Tracker samples pipeline executions, buffers their metadata records,
// and flushes them to the analytics sink in batches on a timer or when
// the size threshold is hit. Tracker failures are logged and dropped;
// they never propagate to the retrieval path.
type Tracker struct {
	cfg    Config
	sink   domain.AnalyticsSink
	logger *slog.Logger

	mu           sync.Mutex
	buffer       []domain.PipelineMetadata
	avgLatency   map[string]time.Duration
	latencyCount map[string]int

	stopChan chan struct{}
	stopOnce sync.Once

	// sample is swappable in tests for deterministic sampling.
	sample func() float64
}

// NewTracker creates a tracker writing to the given sink.
func NewTracker(cfg Config, sink domain.AnalyticsSink, logger *slog.Logger) *Tracker {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = DefaultConfig().FlushThreshold
	}
	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = DefaultConfig().BufferLimit
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}
	return &Tracker{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		avgLatency:   make(map[string]time.Duration),
		latencyCount: make(map[string]int),
		stopChan:     make(chan struct{}),
		sample:       rand.Float64,
	}
}

// Start launches the periodic flush loop.
func (t *Tracker) Start() {
	t.logger.Info("analytics_tracker_started",
		slog.Float64("sampling_rate", t.cfg.SamplingRate),
		slog.Int64("flush_interval_ms", t.cfg.FlushInterval.Milliseconds()))
	go t.run()
}

// Stop ends the flush loop and drains the buffer.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.Flush()
	})
}

func (t *Tracker) run() {
	ticker := time.NewTicker(t.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.Flush()
		}
	}
}

// Record samples, analyzes, and buffers one execution record.
func (t *Tracker) Record(md domain.PipelineMetadata) {
	if t.cfg.SamplingRate <= 0 || t.sample() >= t.cfg.SamplingRate {
		return
	}

	t.mu.Lock()
	anomalies := DetectAnomalies(md, t.avgLatency)
	for _, stage := range md.Stages {
		n := t.latencyCount[stage.Name] + 1
		t.latencyCount[stage.Name] = n
		prev := t.avgLatency[stage.Name]
		t.avgLatency[stage.Name] = prev + (stage.Latency-prev)/time.Duration(n)
	}

	t.buffer = append(t.buffer, md)
	if overflow := len(t.buffer) - t.cfg.BufferLimit; overflow > 0 {
		t.buffer = t.buffer[overflow:]
	}
	shouldFlush := len(t.buffer) >= t.cfg.FlushThreshold
	t.mu.Unlock()

	if len(anomalies) > 0 {
		recs := Recommendations(md, anomalies)
		msgs := make([]string, len(anomalies))
		for i, a := range anomalies {
			msgs[i] = a.String()
		}
		t.logger.Warn("pipeline_anomalies_detected",
			slog.String("metadata_id", md.ID.String()),
			slog.Any("anomalies", msgs),
			slog.Any("recommendations", recs))
	}

	if shouldFlush {
		t.Flush()
	}
}

// Flush writes the buffered records to the sink. Sink failures are
// logged and the batch is dropped.
func (t *Tracker) Flush() {
	t.mu.Lock()
	if len(t.buffer) == 0 {
		t.mu.Unlock()
		return
	}
	batch := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.FlushTimeout)
	defer cancel()

	if err := t.sink.Append(ctx, batch); err != nil {
		t.logger.Warn("analytics_flush_failed",
			slog.Int("dropped_records", len(batch)),
			slog.String("error", err.Error()))
		return
	}

	t.logger.Info("analytics_flush_completed",
		slog.Int("record_count", len(batch)))
}

// BufferedCount returns the number of unflushed records.
func (t *Tracker) BufferedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}
