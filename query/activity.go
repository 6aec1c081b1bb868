package query

import (
	"database/sql"
	"errors"

	"golang.org/x/xerrors"

	"github.com/Cedrat/watch-focus-time/entity"
)

// LastRecord returns the most recently inserted record, or nil when the
// store is empty. Ids follow insert order even when the wall clock steps back.
func (db *Database) LastRecord() (*entity.ActivityRecord, error) {
	var rec entity.ActivityRecord
	err := db.Get(&rec, `
		SELECT id, start_time, title, process_name, active_seconds
		FROM records
		ORDER BY id DESC
		LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("last record", err)
	}
	return &rec, nil
}

// InsertRecord opens a new session with active_seconds = 1 and returns its id.
func (db *Database) InsertRecord(title, processName string) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO records (start_time, title, process_name, active_seconds)
		VALUES (?, ?, ?, 1)`,
		db.now(), title, processName,
	)
	if err != nil {
		return 0, storageErr("insert record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert record", err)
	}
	return id, nil
}

// ErrRecordNotFound is returned by IncrementRecord when no row has the id.
var ErrRecordNotFound = xerrors.New("record not found")

// IncrementRecord adds one second to the record with the given id.
func (db *Database) IncrementRecord(id int64) error {
	res, err := db.Exec(`
		UPDATE records
		SET active_seconds = active_seconds + 1
		WHERE id = ?`, id)
	if err != nil {
		return storageErr("increment record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("increment record", err)
	}
	if n == 0 {
		return storageErr("increment record", xerrors.Errorf("id %d: %w", id, ErrRecordNotFound))
	}
	return nil
}

// RecordsAfter returns records with id > offset in ascending id order.
// A positive limit caps the number of rows returned.
func (db *Database) RecordsAfter(offset int64, limit int) ([]entity.ActivityRecord, error) {
	records := []entity.ActivityRecord{}
	q := `
		SELECT id, start_time, title, process_name, active_seconds
		FROM records
		WHERE id > ?
		ORDER BY id ASC`
	args := []any{offset}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := db.Select(&records, q, args...); err != nil {
		return nil, storageErr("records after", err)
	}
	return records, nil
}

// MaxRecordID returns the highest record id, 0 when empty.
func (db *Database) MaxRecordID() (int64, error) {
	var id int64
	if err := db.Get(&id, `SELECT COALESCE(MAX(id), 0) FROM records`); err != nil {
		return 0, storageErr("max record id", err)
	}
	return id, nil
}

// Backlog counts records not yet covered by the given checkpoint.
func (db *Database) Backlog(offset int64) (int64, error) {
	var n int64
	if err := db.Get(&n, `SELECT COUNT(*) FROM records WHERE id > ?`, offset); err != nil {
		return 0, storageErr("backlog", err)
	}
	return n, nil
}
