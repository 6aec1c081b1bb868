package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"cdr.dev/slog/v3/sloggers/slogtest"

	"github.com/Cedrat/watch-focus-time/entity"
	"github.com/Cedrat/watch-focus-time/query"
	"github.com/Cedrat/watch-focus-time/query/querytest"
	"github.com/Cedrat/watch-focus-time/reconcile"
	"github.com/Cedrat/watch-focus-time/window"
)

// scripted replays observations in order; a nil error entry with an empty
// observation is a fetch failure.
type scripted struct {
	steps []step
	next  int
}

type step struct {
	obs entity.Observation
	err error
}

func (s *scripted) FetchForeground(context.Context) (entity.Observation, error) {
	st := s.steps[s.next]
	s.next++
	return st.obs, st.err
}

func observe(title, process string) step {
	return step{obs: entity.Observation{Title: title, ProcessName: process}}
}

// countingStore records how many store calls a tick made.
type countingStore struct {
	reconcile.Store
	calls int
}

func (c *countingStore) LastRecord() (*entity.ActivityRecord, error) {
	c.calls++
	return c.Store.LastRecord()
}

func (c *countingStore) InsertRecord(title, processName string) (int64, error) {
	c.calls++
	return c.Store.InsertRecord(title, processName)
}

func (c *countingStore) IncrementRecord(id int64) error {
	c.calls++
	return c.Store.IncrementRecord(id)
}

func newReconciler(t *testing.T, src window.Source, store reconcile.Store) *reconcile.Reconciler {
	t.Helper()
	return reconcile.New(src, store, reconcile.WithLogger(slogtest.Make(t, nil)))
}

func TestConsecutiveObservationsExtendOneRecord(t *testing.T) {
	t.Parallel()
	db := querytest.NewDatabase(t)

	const k = 5
	src := &scripted{}
	for i := 0; i < k; i++ {
		src.steps = append(src.steps, observe("report.docx", `C:\Office\word.exe`))
	}
	r := newReconciler(t, src, db)

	ctx := context.Background()
	first, err := r.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, reconcile.OutcomeInserted, first.Outcome)
	for i := 1; i < k; i++ {
		res, err := r.Tick(ctx)
		require.NoError(t, err)
		require.Equal(t, reconcile.OutcomeIncremented, res.Outcome)
		require.Equal(t, first.RecordID, res.RecordID)
	}

	records, err := db.RecordsAfter(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.EqualValues(t, k, records[0].ActiveSeconds)
}

func TestClockStepBackKeepsExtendingSession(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	db := querytest.NewDatabase(t, query.WithClock(clock))

	src := &scripted{steps: []step{
		observe("inbox", "mail.exe"),
		observe("notes", "editor.exe"),
		observe("notes", "editor.exe"),
		observe("notes", "editor.exe"),
	}}
	r := newReconciler(t, src, db)
	ctx := context.Background()

	_, err := r.Tick(ctx)
	require.NoError(t, err)

	// NTP pulls the wall clock back a minute before the next session opens.
	clock.Set(time.Date(2024, 1, 2, 11, 59, 0, 0, time.UTC))
	for i := 0; i < 3; i++ {
		_, err := r.Tick(ctx)
		require.NoError(t, err)
	}

	records, err := db.RecordsAfter(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "notes", records[1].Title)
	require.EqualValues(t, 3, records[1].ActiveSeconds)
}

func TestInterruptedSessionStartsNewRecord(t *testing.T) {
	t.Parallel()
	db := querytest.NewDatabase(t)
	src := &scripted{steps: []step{
		observe("A", "a.exe"),
		observe("A", "a.exe"),
		observe("B", "b.exe"),
		observe("A", "a.exe"),
	}}
	r := newReconciler(t, src, db)

	for range src.steps {
		_, err := r.Tick(context.Background())
		require.NoError(t, err)
	}

	records, err := db.RecordsAfter(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "A", records[0].Title)
	require.EqualValues(t, 2, records[0].ActiveSeconds)
	require.Equal(t, "B", records[1].Title)
	require.EqualValues(t, 1, records[1].ActiveSeconds)
	require.Equal(t, "A", records[2].Title)
	require.EqualValues(t, 1, records[2].ActiveSeconds)
}

func TestTitleChangeSameProcessIsNewSession(t *testing.T) {
	t.Parallel()
	db := querytest.NewDatabase(t)
	src := &scripted{steps: []step{
		observe("Tab one - Browser", "browser"),
		observe("Tab two - Browser", "browser"),
		observe("Tab two - Browser", "other"),
	}}
	r := newReconciler(t, src, db)

	for range src.steps {
		res, err := r.Tick(context.Background())
		require.NoError(t, err)
		require.Equal(t, reconcile.OutcomeInserted, res.Outcome)
	}
}

func TestFetchFailureTouchesNoStore(t *testing.T) {
	t.Parallel()
	db := querytest.NewDatabase(t)
	store := &countingStore{Store: db}
	src := &scripted{steps: []step{
		observe("A", "a.exe"),
		{err: &window.FetchError{Err: window.ErrNoForegroundWindow}},
		observe("A", "a.exe"),
	}}
	reg := prometheus.NewRegistry()
	metrics := reconcile.NewMetrics(reg)
	r := reconcile.New(src, store, reconcile.WithMetrics(metrics))
	ctx := context.Background()

	_, err := r.Tick(ctx)
	require.NoError(t, err)
	before := store.calls

	res, err := r.Tick(ctx)
	var fetchErr *window.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, reconcile.OutcomeFetchError, res.Outcome)
	require.Equal(t, before, store.calls, "failed fetch must not reach the store")

	last, err := db.LastRecord()
	require.NoError(t, err)
	require.EqualValues(t, 1, last.ActiveSeconds)

	_, err = r.Tick(ctx)
	require.NoError(t, err)
	last, err = db.LastRecord()
	require.NoError(t, err)
	require.EqualValues(t, 2, last.ActiveSeconds)

	count, err := promtest.GatherAndCount(reg, "watch_reconcile_ticks_total")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

type failingStore struct {
	last      *entity.ActivityRecord
	lastErr   error
	insertErr error
	incrErr   error
}

func (f *failingStore) LastRecord() (*entity.ActivityRecord, error) { return f.last, f.lastErr }
func (f *failingStore) InsertRecord(string, string) (int64, error)  { return 0, f.insertErr }
func (f *failingStore) IncrementRecord(int64) error                 { return f.incrErr }

func TestStoreFailuresAreReported(t *testing.T) {
	t.Parallel()
	disk := &query.StorageError{Op: "test", Err: errors.New("disk I/O error")}
	existing := &entity.ActivityRecord{ID: 3, Title: "A", ProcessName: "a.exe", ActiveSeconds: 4}

	cases := []struct {
		name  string
		store *failingStore
	}{
		{name: "LastRecord", store: &failingStore{lastErr: disk}},
		{name: "Insert", store: &failingStore{insertErr: disk}},
		{name: "Increment", store: &failingStore{last: existing, incrErr: disk}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newReconciler(t, &scripted{steps: []step{observe("A", "a.exe")}}, tc.store)

			res, err := r.Tick(context.Background())
			require.Equal(t, reconcile.OutcomeStoreError, res.Outcome)
			var storageErr *query.StorageError
			require.ErrorAs(t, err, &storageErr)
		})
	}
}
