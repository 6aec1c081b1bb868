// Package syncer uploads records newer than the sync checkpoint and
// advances the checkpoint once the collector has accepted them.
package syncer

import (
	"context"
	"encoding/json"

	"github.com/coder/quartz"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/Cedrat/watch-focus-time/entity"
)

// Store is the part of the record store the sync engine needs.
type Store interface {
	LastCheckpoint() (int64, error)
	RecordsAfter(offset int64, limit int) ([]entity.ActivityRecord, error)
	AdvanceCheckpoint(newOffset int64) error
}

// Result reports what one sync did. Sent is zero for a no-op sync.
type Result struct {
	Offset    int64
	NewOffset int64
	Sent      int
}

type Engine struct {
	store     Store
	transport Transport
	batchSize int
	encode    func(v any) ([]byte, error)
	log       slog.Logger
	clock     quartz.Clock
	metrics   *Metrics
}

type Option func(e *Engine)

// WithBatchSize caps how many records one sync sends. Zero sends the
// whole backlog.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		e.batchSize = n
	}
}

func WithLogger(log slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEncoder replaces the JSON encoder.
func WithEncoder(encode func(v any) ([]byte, error)) Option {
	return func(e *Engine) {
		e.encode = encode
	}
}

func NewEngine(store Store, transport Transport, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		transport: transport,
		encode:    json.Marshal,
		clock:     quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// Sync sends the backlog after the current checkpoint in one request.
// The checkpoint moves only after a 200 response, to the id of the last
// record sent. If the checkpoint write fails after a successful send the
// batch is sent again next time: delivery is at least once.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	start := e.clock.Now()
	defer func() {
		e.metrics.duration.Observe(e.clock.Since(start).Seconds())
	}()

	offset, err := e.store.LastCheckpoint()
	if err != nil {
		e.metrics.failures.WithLabelValues("storage").Inc()
		return Result{}, xerrors.Errorf("read checkpoint: %w", err)
	}
	e.metrics.checkpoint.Set(float64(offset))
	res := Result{Offset: offset, NewOffset: offset}

	batch, err := e.store.RecordsAfter(offset, e.batchSize)
	if err != nil {
		e.metrics.failures.WithLabelValues("storage").Inc()
		return res, xerrors.Errorf("read backlog after %d: %w", offset, err)
	}
	if len(batch) == 0 {
		e.log.Debug(ctx, "nothing to sync", slog.F("checkpoint", offset))
		return res, nil
	}

	body, err := e.encode(toWireBatch(batch))
	if err != nil {
		e.metrics.failures.WithLabelValues("serialization").Inc()
		return res, &SerializationError{Err: err}
	}

	if err := e.transport.Send(ctx, body); err != nil {
		var rejected *RejectedError
		if xerrors.As(err, &rejected) {
			e.metrics.failures.WithLabelValues("rejected").Inc()
		} else {
			e.metrics.failures.WithLabelValues("transport").Inc()
		}
		return res, xerrors.Errorf("send %d records after %d: %w", len(batch), offset, err)
	}

	newOffset := batch[len(batch)-1].ID
	if err := e.store.AdvanceCheckpoint(newOffset); err != nil {
		e.metrics.failures.WithLabelValues("storage").Inc()
		return res, xerrors.Errorf("advance checkpoint to %d after successful send: %w", newOffset, err)
	}

	e.metrics.sent.Add(float64(len(batch)))
	e.metrics.checkpoint.Set(float64(newOffset))
	e.log.Info(ctx, "synced records",
		slog.F("from", offset),
		slog.F("to", newOffset),
		slog.F("count", len(batch)),
	)
	res.NewOffset = newOffset
	res.Sent = len(batch)
	return res, nil
}
