package entity

// ActivityRecord is one session: a run of ticks during which the same
// window title and process were in the foreground.
type ActivityRecord struct {
	ID            int64  `db:"id" json:"id"`
	StartTime     string `db:"start_time" json:"start_time"`
	Title         string `db:"title" json:"title"`
	ProcessName   string `db:"process_name" json:"process_name"`
	ActiveSeconds int64  `db:"active_seconds" json:"active_seconds"`
}

// Matches reports whether the record was opened for the same title and
// process as the observation.
func (r ActivityRecord) Matches(o Observation) bool {
	return r.Title == o.Title && r.ProcessName == o.ProcessName
}

// Observation is what the window source saw on one tick.
type Observation struct {
	Title       string
	ProcessName string
}

// SyncCheckpoint is one entry of the append-only checkpoint log.
// Only the most recent entry matters.
type SyncCheckpoint struct {
	ID           int64  `db:"id" json:"id"`
	Datetime     string `db:"datetime" json:"datetime"`
	LastRecordID int64  `db:"last_record_id" json:"last_record_id"`
}
