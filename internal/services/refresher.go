package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/anomaly-timeline/internal/engine"
	"github.com/miradorstack/anomaly-timeline/internal/metrics"
	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/utils"
)

// GraphSource fetches decoded anomaly-graph snapshots.
type GraphSource interface {
	FetchGraph(ctx context.Context) (models.AnomalyGraph, error)
}

// SnapshotPublisher receives every new timeline snapshot.
type SnapshotPublisher interface {
	Publish(snapshot *models.TimelineSnapshot) bool
}

// Refresher polls the anomaly-graph source, aggregates it and publishes versioned snapshots.
type Refresher struct {
	logger     *slog.Logger
	source     GraphSource
	memo       *engine.Memo
	interval   time.Duration
	publishers []SnapshotPublisher
	latencies  *utils.LatencyTracker
	now        func() time.Time

	refreshMu sync.Mutex
	mu        sync.Mutex
	current   *models.TimelineSnapshot
}

// NewRefresher wires a source and memoised aggregator to the given publishers.
func NewRefresher(logger *slog.Logger, source GraphSource, memo *engine.Memo, interval time.Duration, publishers ...SnapshotPublisher) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		logger:     logger,
		source:     source,
		memo:       memo,
		interval:   interval,
		publishers: publishers,
		latencies:  utils.NewLatencyTracker(256),
		now:        time.Now,
	}
}

// Current returns the last published snapshot, or nil before the first successful refresh.
func (r *Refresher) Current() *models.TimelineSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Refresh fetches and aggregates one snapshot. Concurrent calls are serialised; Current
// stays readable while a fetch is in flight. Unchanged content republishes nothing and
// returns the current snapshot. On error the current snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) (*models.TimelineSnapshot, error) {
	if r.source == nil || r.memo == nil {
		return nil, fmt.Errorf("refresher not configured")
	}
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	graph, err := r.source.FetchGraph(ctx)
	if err != nil {
		metrics.ObserveRefresh(metrics.OutcomeError)
		return nil, fmt.Errorf("refresh timeline: %w", err)
	}

	start := r.now()
	result, hit := r.memo.Aggregate(graph.Buckets)
	elapsed := r.now().Sub(start)

	previous := r.Current()
	if previous != nil && previous.Fingerprint == result.Fingerprint {
		metrics.ObserveRefresh(metrics.OutcomeSuccess)
		return previous, nil
	}

	if !hit {
		r.latencies.Observe(elapsed)
		metrics.ObserveAggregation(elapsed, len(result.Report.Rejected))
	}
	r.report(graph.Quarantine, result.Report)

	var version uint64 = 1
	if previous != nil {
		version = previous.Version + 1
	}
	snapshot := &models.TimelineSnapshot{
		Version:     version,
		Fingerprint: result.Fingerprint,
		GeneratedAt: r.now().UTC(),
		Tasks:       result.Tasks,
	}
	r.mu.Lock()
	r.current = snapshot
	r.mu.Unlock()
	for _, p := range r.publishers {
		p.Publish(snapshot)
	}
	metrics.ObserveRefresh(metrics.OutcomeSuccess)

	r.logger.Info("timeline snapshot published",
		slog.Uint64("version", snapshot.Version),
		slog.Int("dates", len(snapshot.Tasks)),
		slog.Int("tasks", result.Report.Emitted),
		slog.Int("rejected", len(result.Report.Rejected)+len(graph.Quarantine)),
		slog.Bool("memo_hit", hit),
	)
	if count := r.latencies.Count(); !hit && count >= 20 && count%20 == 0 {
		r.logger.Info("aggregation latency", slog.Duration("p95", r.latencies.Percentile(95)), slog.Int("samples", count))
	}
	return snapshot, nil
}

func (r *Refresher) report(quarantine []models.QuarantinedEntry, report engine.Report) {
	for _, q := range quarantine {
		metrics.RecordRejected(q.Reason)
		r.logger.Warn("anomaly quarantined at source boundary",
			slog.String("date", q.Date),
			slog.Int("index", q.Index),
			slog.String("anomaly_id", q.ID),
			slog.String("reason", q.Reason),
		)
	}
	for _, rej := range report.Rejected {
		metrics.RecordRejected(rej.Reason)
		attrs := []any{
			slog.String("date", rej.Date),
			slog.String("anomaly_id", rej.AnomalyID),
			slog.String("reason", rej.Reason),
		}
		if rej.Err != nil {
			attrs = append(attrs, slog.Any("error", rej.Err))
		}
		r.logger.Warn("anomaly excluded from timeline", attrs...)
	}
	if report.Substituted > 0 {
		r.logger.Warn("malformed durations rendered as zero-length", slog.Int("records", report.Substituted))
	}
}

// Run refreshes immediately and then on every interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.refreshLogged(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshLogged(ctx)
		}
	}
}

func (r *Refresher) refreshLogged(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("timeline refresh failed; keeping previous snapshot", slog.Any("error", err))
	}
}
