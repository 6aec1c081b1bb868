package query

import (
	"time"
)

type SummaryItem struct {
	ProcessName string `db:"process_name" json:"process_name"`
	Seconds     int64  `db:"seconds" json:"seconds"`
	Sessions    int64  `db:"sessions" json:"sessions"`
}

// SummaryBetween returns total active seconds per process for records
// started between the inclusive dates (YYYY-MM-DD).
func (db *Database) SummaryBetween(startDate, endDate string) ([]SummaryItem, error) {
	items := []SummaryItem{}
	q := `
	WITH base AS (
	  SELECT r.*, substr(r.start_time,1,10) AS sdate
	  FROM records r
	)
	SELECT b.process_name AS process_name,
	       SUM(b.active_seconds) AS seconds,
	       COUNT(*) AS sessions
	FROM base b
	WHERE b.sdate >= ? AND b.sdate <= ?
	GROUP BY b.process_name
	ORDER BY seconds DESC, process_name ASC`
	if err := db.Select(&items, q, startDate, endDate); err != nil {
		return nil, storageErr("summary", err)
	}
	return items, nil
}

// PeriodRange returns the inclusive [start, end] dates of a named period
// ending on now.
func PeriodRange(period string, now time.Time) (string, string) {
	nowDate := now.Format("2006-01-02")
	var start time.Time
	switch period {
	case "day":
		start = now
	case "week":
		start = now.AddDate(0, 0, -6) // include today + previous 6 days
	case "month":
		start = now.AddDate(0, -1, 1)
	case "year":
		start = now.AddDate(-1, 0, 1)
	default:
		start = now
	}
	return start.Format("2006-01-02"), nowDate
}
