package query

import (
	"golang.org/x/xerrors"

	"github.com/Cedrat/watch-focus-time/entity"
)

// ErrCheckpointRejected is returned when a checkpoint write would point past
// the newest record or would not move past the current checkpoint.
var ErrCheckpointRejected = xerrors.New("checkpoint rejected")

// LastCheckpoint returns the highest record id confirmed synced, 0 if none.
func (db *Database) LastCheckpoint() (int64, error) {
	var id int64
	err := db.Get(&id, `
		SELECT COALESCE(
			(SELECT last_record_id FROM sync_checkpoints ORDER BY id DESC LIMIT 1),
			0)`)
	if err != nil {
		return 0, storageErr("last checkpoint", err)
	}
	return id, nil
}

// AdvanceCheckpoint appends a checkpoint event for newOffset. The guard is
// part of the INSERT so the check and the write are one statement.
func (db *Database) AdvanceCheckpoint(newOffset int64) error {
	res, err := db.Exec(`
		INSERT INTO sync_checkpoints (datetime, last_record_id)
		SELECT ?, ?
		WHERE ? <= (SELECT COALESCE(MAX(id), 0) FROM records)
		  AND ? > COALESCE(
			(SELECT last_record_id FROM sync_checkpoints ORDER BY id DESC LIMIT 1),
			0)`,
		db.now(), newOffset, newOffset, newOffset,
	)
	if err != nil {
		return storageErr("advance checkpoint", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("advance checkpoint", err)
	}
	if n == 0 {
		return storageErr("advance checkpoint", xerrors.Errorf("offset %d: %w", newOffset, ErrCheckpointRejected))
	}
	return nil
}

// CheckpointHistory returns the newest checkpoint events first.
func (db *Database) CheckpointHistory(limit int) ([]entity.SyncCheckpoint, error) {
	if limit <= 0 {
		limit = 20
	}
	items := []entity.SyncCheckpoint{}
	err := db.Select(&items, `
		SELECT id, datetime, last_record_id
		FROM sync_checkpoints
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("checkpoint history", err)
	}
	return items, nil
}
