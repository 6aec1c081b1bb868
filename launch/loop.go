package launch

import (
	"context"
	"time"

	"github.com/coder/quartz"

	"cdr.dev/slog/v3"

	"github.com/Cedrat/watch-focus-time/reconcile"
	"github.com/Cedrat/watch-focus-time/syncer"
)

const (
	defaultTickInterval = time.Second
	defaultSyncEvery    = 300
)

type Reconciler interface {
	Tick(ctx context.Context) (reconcile.Result, error)
}

type Syncer interface {
	Sync(ctx context.Context) (syncer.Result, error)
}

// Loop drives the reconciler every tick and the syncer every syncEvery
// ticks, one after the other on a single goroutine. Failures are logged
// and the loop carries on; the fixed schedule is the retry policy.
type Loop struct {
	reconciler Reconciler
	syncer     Syncer
	interval   time.Duration
	syncEvery  int64
	clock      quartz.Clock
	log        slog.Logger

	// ticks is only touched by the goroutine running the loop.
	ticks   int64
	syncNow chan struct{}
}

type LoopOption func(l *Loop)

func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithSyncer enables syncing every n ticks.
func WithSyncer(s Syncer, every int) LoopOption {
	return func(l *Loop) {
		l.syncer = s
		l.syncEvery = int64(every)
	}
}

func WithClock(clock quartz.Clock) LoopOption {
	return func(l *Loop) {
		l.clock = clock
	}
}

func WithLogger(log slog.Logger) LoopOption {
	return func(l *Loop) {
		l.log = log
	}
}

func NewLoop(r Reconciler, opts ...LoopOption) *Loop {
	l := &Loop{
		reconciler: r,
		interval:   defaultTickInterval,
		clock:      quartz.NewReal(),
		syncNow:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.syncEvery <= 0 {
		l.syncEvery = defaultSyncEvery
	}
	return l
}

// SyncNow asks the loop to sync at the next tick. It never blocks; repeated
// requests before that tick collapse into one.
func (l *Loop) SyncNow() {
	select {
	case l.syncNow <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.interval, "loop", "tick")
	defer ticker.Stop()

	l.log.Info(ctx, "tracking started",
		slog.F("interval", l.interval),
		slog.F("sync_enabled", l.syncer != nil),
		slog.F("sync_every", l.syncEvery),
	)
	for {
		select {
		case <-ctx.Done():
			l.log.Info(context.Background(), "tracking stopped", slog.F("ticks", l.ticks))
			return ctx.Err()
		case <-ticker.C:
			l.step(ctx)
		}
	}
}

// RunOnce performs one reconcile and, when enabled, one sync.
func (l *Loop) RunOnce(ctx context.Context) {
	l.reconcile(ctx)
	if l.syncer != nil {
		l.sync(ctx, "once")
	}
}

func (l *Loop) step(ctx context.Context) {
	l.ticks++
	l.reconcile(ctx)

	if l.syncer == nil {
		return
	}
	switch {
	case l.ticks%l.syncEvery == 0:
		l.drainSyncNow()
		l.sync(ctx, "scheduled")
	case l.drainSyncNow():
		l.sync(ctx, "requested")
	}
}

func (l *Loop) drainSyncNow() bool {
	select {
	case <-l.syncNow:
		return true
	default:
		return false
	}
}

func (l *Loop) reconcile(ctx context.Context) {
	if _, err := l.reconciler.Tick(ctx); err != nil {
		kind := ErrorKind(err)
		if kind == KindFetch {
			l.log.Warn(ctx, "tick skipped", slog.F("kind", kind), slog.Error(err))
			return
		}
		l.log.Error(ctx, "tick failed", slog.F("kind", kind), slog.Error(err))
	}
}

func (l *Loop) sync(ctx context.Context, reason string) {
	res, err := l.syncer.Sync(ctx)
	if err != nil {
		kind := ErrorKind(err)
		fields := []slog.Field{
			slog.F("kind", kind),
			slog.F("reason", reason),
			slog.F("checkpoint", res.Offset),
			slog.Error(err),
		}
		if kind == KindSerialization {
			// Retrying cannot fix a payload that does not encode.
			l.log.Critical(ctx, "sync payload cannot be encoded", fields...)
			return
		}
		l.log.Error(ctx, "sync failed", fields...)
		return
	}
	l.log.Debug(ctx, "sync done",
		slog.F("reason", reason),
		slog.F("from", res.Offset),
		slog.F("to", res.NewOffset),
		slog.F("sent", res.Sent),
	)
}
