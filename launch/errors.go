package launch

import (
	"golang.org/x/xerrors"

	"github.com/Cedrat/watch-focus-time/query"
	"github.com/Cedrat/watch-focus-time/syncer"
	"github.com/Cedrat/watch-focus-time/window"
)

const (
	KindFetch         = "fetch"
	KindStorage       = "storage"
	KindTransport     = "transport"
	KindRejected      = "rejected"
	KindSerialization = "serialization"
	KindUnknown       = "unknown"
)

// ErrorKind names the failure class of an error returned by a tick or a sync.
func ErrorKind(err error) string {
	var (
		fetchErr     *window.FetchError
		storageErr   *query.StorageError
		transportErr *syncer.TransportError
		rejectedErr  *syncer.RejectedError
		serializeErr *syncer.SerializationError
	)
	switch {
	case xerrors.As(err, &fetchErr):
		return KindFetch
	case xerrors.As(err, &serializeErr):
		return KindSerialization
	case xerrors.As(err, &rejectedErr):
		return KindRejected
	case xerrors.As(err, &transportErr):
		return KindTransport
	case xerrors.As(err, &storageErr):
		return KindStorage
	default:
		return KindUnknown
	}
}
