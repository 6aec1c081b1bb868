package syncer

import (
	"strings"

	"github.com/Cedrat/watch-focus-time/entity"
)

// WireRecord is one element of the JSON array posted to the collector.
type WireRecord struct {
	StartTime   string `json:"startTime"`
	WindowName  string `json:"windowName"`
	ProcessName string `json:"processName"`
	WastedTime  int64  `json:"wastedTime"`
}

// ToWire converts a stored record for transmission. The stored record is
// not modified.
func ToWire(rec entity.ActivityRecord) WireRecord {
	return WireRecord{
		StartTime:   ISOTimestamp(rec.StartTime),
		WindowName:  rec.Title,
		ProcessName: BaseName(rec.ProcessName),
		WastedTime:  rec.ActiveSeconds,
	}
}

// ISOTimestamp turns "2024-01-02 03:04:05" into "2024-01-02T03:04:05".
func ISOTimestamp(ts string) string {
	return strings.Replace(ts, " ", "T", 1)
}

// BaseName strips any directory from an executable path. Both separators
// are handled because the path comes from the OS that recorded it, not
// the one running the sync.
func BaseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func toWireBatch(records []entity.ActivityRecord) []WireRecord {
	out := make([]WireRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, ToWire(rec))
	}
	return out
}
