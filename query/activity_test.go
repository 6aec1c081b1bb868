package query

import (
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

func TestLastRecordEmpty(t *testing.T) {
	t.Parallel()
	db := NewTestDatabase(t)

	rec, err := db.LastRecord()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestInsertRecord(t *testing.T) {
	t.Parallel()
	db := NewTestDatabase(t)

	id, err := db.InsertRecord("main.go - editor", `C:\bin\code.exe`)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	rec, err := db.LastRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, id, rec.ID)
	require.Equal(t, "main.go - editor", rec.Title)
	require.Equal(t, `C:\bin\code.exe`, rec.ProcessName)
	require.EqualValues(t, 1, rec.ActiveSeconds)
}

func TestLastRecordSameSecondUsesID(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	db := NewTestDatabase(t, WithClock(clock))

	_, err := db.InsertRecord("A", "a.exe")
	require.NoError(t, err)
	second, err := db.InsertRecord("B", "b.exe")
	require.NoError(t, err)

	rec, err := db.LastRecord()
	require.NoError(t, err)
	require.Equal(t, second, rec.ID)
}

func TestLastRecordAfterClockStepsBack(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	db := NewTestDatabase(t, WithClock(clock))

	_, err := db.InsertRecord("A", "a.exe")
	require.NoError(t, err)
	clock.Set(time.Date(2024, 1, 2, 11, 59, 0, 0, time.UTC))
	second, err := db.InsertRecord("B", "b.exe")
	require.NoError(t, err)

	rec, err := db.LastRecord()
	require.NoError(t, err)
	require.Equal(t, second, rec.ID)
	require.Equal(t, "2024-01-02 11:59:00", rec.StartTime)
}

func TestIncrementRecord(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	db := NewTestDatabase(t, WithClock(clock))

	first, err := db.InsertRecord("A", "a.exe")
	require.NoError(t, err)
	// Same start second as the first record; only the id tells them apart.
	second, err := db.InsertRecord("A", "a.exe")
	require.NoError(t, err)

	require.NoError(t, db.IncrementRecord(second))
	require.NoError(t, db.IncrementRecord(second))

	records, err := db.RecordsAfter(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first, records[0].ID)
	require.EqualValues(t, 1, records[0].ActiveSeconds)
	require.Equal(t, second, records[1].ID)
	require.EqualValues(t, 3, records[1].ActiveSeconds)
}

func TestIncrementRecordMissing(t *testing.T) {
	t.Parallel()
	db := NewTestDatabase(t)

	err := db.IncrementRecord(42)
	require.ErrorIs(t, err, ErrRecordNotFound)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "increment record", storageErr.Op)
}

func TestRecordsAfter(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	db := NewTestDatabase(t, WithClock(clock))

	for _, title := range []string{"one", "two", "three", "four"} {
		clock.Advance(time.Second)
		_, err := db.InsertRecord(title, "p")
		require.NoError(t, err)
	}

	records, err := db.RecordsAfter(2, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.EqualValues(t, 3, records[0].ID)
	require.Equal(t, "three", records[0].Title)
	require.EqualValues(t, 4, records[1].ID)

	limited, err := db.RecordsAfter(0, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	require.EqualValues(t, 3, limited[2].ID)

	none, err := db.RecordsAfter(4, 0)
	require.NoError(t, err)
	require.Empty(t, none)

	backlog, err := db.Backlog(1)
	require.NoError(t, err)
	require.EqualValues(t, 3, backlog)
}

func TestStorageErrorOnClosedDatabase(t *testing.T) {
	t.Parallel()
	db, err := InitDatabase(DriverModernc, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.LastRecord()
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)

	_, err = db.InsertRecord("x", "y")
	require.ErrorAs(t, err, &storageErr)
}
