// Package reconcile turns one foreground observation per tick into exactly
// one store mutation: extend the current session or start a new one.
package reconcile

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/Cedrat/watch-focus-time/entity"
	"github.com/Cedrat/watch-focus-time/window"
)

// Store is the part of the record store the reconciler writes through.
type Store interface {
	LastRecord() (*entity.ActivityRecord, error)
	InsertRecord(title, processName string) (int64, error)
	IncrementRecord(id int64) error
}

type Outcome string

const (
	OutcomeInserted    Outcome = "inserted"
	OutcomeIncremented Outcome = "incremented"
	OutcomeFetchError  Outcome = "fetch_error"
	OutcomeStoreError  Outcome = "storage_error"
)

// Result describes the mutation a successful tick made.
type Result struct {
	Outcome  Outcome
	RecordID int64
}

type Reconciler struct {
	source  window.Source
	store   Store
	log     slog.Logger
	metrics *Metrics
}

type Option func(r *Reconciler)

func WithLogger(log slog.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func New(source window.Source, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		source: source,
		store:  store,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	return r
}

// Tick polls the window source once and records the observation. A fetch
// failure leaves the store untouched. Store failures are returned as is;
// the next tick re-reads the last record, so a failed tick can undercount
// but never double count.
func (r *Reconciler) Tick(ctx context.Context) (Result, error) {
	obs, err := r.source.FetchForeground(ctx)
	if err != nil {
		r.metrics.ticks.WithLabelValues(string(OutcomeFetchError)).Inc()
		return Result{Outcome: OutcomeFetchError}, err
	}

	res, err := r.apply(ctx, obs)
	if err != nil {
		r.metrics.ticks.WithLabelValues(string(OutcomeStoreError)).Inc()
		return Result{Outcome: OutcomeStoreError}, err
	}
	r.metrics.ticks.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, obs entity.Observation) (Result, error) {
	last, err := r.store.LastRecord()
	if err != nil {
		return Result{}, xerrors.Errorf("read last record: %w", err)
	}

	if last != nil && last.Matches(obs) {
		if err := r.store.IncrementRecord(last.ID); err != nil {
			return Result{}, xerrors.Errorf("increment record %d: %w", last.ID, err)
		}
		return Result{Outcome: OutcomeIncremented, RecordID: last.ID}, nil
	}

	id, err := r.store.InsertRecord(obs.Title, obs.ProcessName)
	if err != nil {
		return Result{}, xerrors.Errorf("insert record: %w", err)
	}
	r.log.Debug(ctx, "new session",
		slog.F("id", id),
		slog.F("title", obs.Title),
		slog.F("process", obs.ProcessName),
	)
	return Result{Outcome: OutcomeInserted, RecordID: id}, nil
}

type Metrics struct {
	ticks *prometheus.CounterVec
}

// NewMetrics builds the reconciler metrics and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "watch",
			Subsystem: "reconcile",
			Name:      "ticks_total",
			Help:      "Reconcile ticks by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks)
	}
	return m
}
