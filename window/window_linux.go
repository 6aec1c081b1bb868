//go:build linux

package window

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// foregroundWindow asks xdotool about the active X11 window.
func foregroundWindow(ctx context.Context) (string, int32, error) {
	title, err := xdotool(ctx, "getactivewindow", "getwindowname")
	if err != nil {
		return "", 0, err
	}
	rawPID, err := xdotool(ctx, "getactivewindow", "getwindowpid")
	if err != nil {
		return "", 0, err
	}
	pid, err := strconv.ParseInt(rawPID, 10, 32)
	if err != nil {
		return "", 0, xerrors.Errorf("parse window pid %q: %w", rawPID, err)
	}
	return title, int32(pid), nil
}

func xdotool(ctx context.Context, args ...string) (string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "xdotool", args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", xerrors.Errorf("xdotool %s: %s: %w", strings.Join(args, " "), msg, ErrNoForegroundWindow)
		}
		return "", xerrors.Errorf("xdotool %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}
