package query

import (
	"os"
	"path/filepath"

	"github.com/coder/quartz"
	"github.com/jmoiron/sqlx"
	"golang.org/x/xerrors"

	// Both drivers register themselves: modernc as "sqlite", mattn as "sqlite3".
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	DriverModernc = "sqlite"
	DriverCgo     = "sqlite3"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP text form.
const timestampLayout = "2006-01-02 15:04:05"

// Database is the record store. Every method runs a single statement, so
// each call is atomic on its own and no transaction spans two calls.
type Database struct {
	*sqlx.DB
	clock quartz.Clock
}

type Option func(db *Database)

// WithClock sets the clock used to stamp new records.
func WithClock(clock quartz.Clock) Option {
	return func(db *Database) {
		db.clock = clock
	}
}

func NewDatabase(db *sqlx.DB, opts ...Option) *Database {
	d := &Database{DB: db, clock: quartz.NewReal()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InitDatabase opens (creating if needed) the database file at path with
// the given driver and brings the schema up to date.
func InitDatabase(driver, path string, opts ...Option) (*Database, error) {
	switch driver {
	case DriverModernc, DriverCgo:
	default:
		return nil, xerrors.Errorf("InitDatabase: unknown driver %q", driver)
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, xerrors.Errorf("InitDatabase: create data dir: %w", err)
			}
		}
	}

	dbTemp, err := sqlx.Open(driver, path)
	if err != nil {
		return nil, xerrors.Errorf("InitDatabase: open: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// only exists on the connection that created it.
	dbTemp.SetMaxOpenConns(1)
	dbTemp.SetMaxIdleConns(1)

	if err := dbTemp.Ping(); err != nil {
		dbTemp.Close()
		return nil, xerrors.Errorf("InitDatabase: connect: %w", err)
	}
	if _, err := dbTemp.Exec("PRAGMA foreign_keys = ON"); err != nil {
		dbTemp.Close()
		return nil, xerrors.Errorf("InitDatabase: enable foreign keys: %w", err)
	}

	db := NewDatabase(dbTemp, opts...)
	if err := db.migrate(); err != nil {
		dbTemp.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) now() string {
	return db.clock.Now().UTC().Format(timestampLayout)
}
