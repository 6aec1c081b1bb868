//go:build !windows && !linux

package window

import "context"

func foregroundWindow(context.Context) (string, int32, error) {
	return "", 0, ErrUnsupported
}
