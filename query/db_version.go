package query

import (
	"golang.org/x/xerrors"
)

const (
	TableDatabaseVersion = "database_version"

	currentDbVersion = 2
)

func (db *Database) GetDbVersion() (int, error) {
	var dbVersion int
	query := "SELECT db_version FROM database_version LIMIT 1"
	err := db.Get(&dbVersion, query)
	if err != nil {
		return 0, xerrors.Errorf("GetDbVersion: %w", err)
	}
	return dbVersion, nil
}

func (db *Database) TableExists(tableName string) (bool, error) {
	query := `
		SELECT count(name)
		FROM sqlite_master
		WHERE type='table' AND name=?
	`

	var count int
	err := db.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// migrate creates the version table on a fresh database and then applies
// every step above the stored version in a single transaction.
func (db *Database) migrate() error {
	exist, err := db.TableExists(TableDatabaseVersion)
	if err != nil {
		return xerrors.Errorf("migrate: %w", err)
	}
	if !exist {
		_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS database_version (
			db_version INTEGER DEFAULT 0
		);
		INSERT INTO database_version VALUES(0);
		`)
		if err != nil {
			return xerrors.Errorf("migrate: create version table: %w", err)
		}
	}

	dbVersion, err := db.GetDbVersion()
	if err != nil {
		return xerrors.Errorf("migrate: %w", err)
	}
	if dbVersion >= currentDbVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return xerrors.Errorf("migrate: begin: %w", err)
	}
	defer tx.Rollback()

	if dbVersion < 1 {
		_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			title TEXT NOT NULL,
			process_name TEXT NOT NULL,
			active_seconds INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS sync_checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			datetime TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_record_id INTEGER NOT NULL REFERENCES records(id)
		);

		UPDATE database_version SET db_version=1;
		`)
		if err != nil {
			return xerrors.Errorf("migrate version 1: %w", err)
		}
	}

	if dbVersion < 2 {
		_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_start_time ON records(start_time);
		CREATE INDEX IF NOT EXISTS idx_checkpoints_record ON sync_checkpoints(last_record_id);

		UPDATE database_version SET db_version=2;
		`)
		if err != nil {
			return xerrors.Errorf("migrate version 2: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("migrate: commit: %w", err)
	}
	return nil
}
