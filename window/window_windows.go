//go:build windows

package window

import (
	"context"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/xerrors"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
)

func foregroundWindow(_ context.Context) (string, int32, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", 0, ErrNoForegroundWindow
	}

	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	buf := make([]uint16, length+1)
	n, _, callErr := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		if callErr != nil && callErr != windows.ERROR_SUCCESS {
			return "", 0, xerrors.Errorf("GetWindowTextW: %w", callErr)
		}
		return "", 0, ErrEmptyTitle
	}
	title := windows.UTF16ToString(buf[:n])

	var pid uint32
	tid, _, callErr := procGetWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return "", 0, xerrors.Errorf("GetWindowThreadProcessId: %w", callErr)
	}
	return title, int32(pid), nil
}
