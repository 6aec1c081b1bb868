// Package window reads the currently focused window and the executable
// that owns it.
package window

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/process"
	"golang.org/x/xerrors"

	"github.com/Cedrat/watch-focus-time/entity"
)

var (
	ErrNoForegroundWindow = xerrors.New("no foreground window")
	ErrEmptyTitle         = xerrors.New("foreground window has no title")
	ErrUnsupported        = xerrors.New("foreground window lookup not supported on this platform")
)

// FetchError means the foreground window could not be read this tick.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch foreground window: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Source yields the current foreground observation.
type Source interface {
	FetchForeground(ctx context.Context) (entity.Observation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (entity.Observation, error)

func (f SourceFunc) FetchForeground(ctx context.Context) (entity.Observation, error) {
	return f(ctx)
}

// System reads the foreground window from the running desktop session.
type System struct {
	// lookup returns the title and owning pid of the focused window.
	lookup func(ctx context.Context) (string, int32, error)
	// exe resolves a pid to its executable path.
	exe func(ctx context.Context, pid int32) (string, error)
}

func NewSystem() *System {
	return &System{
		lookup: foregroundWindow,
		exe:    processExe,
	}
}

func (s *System) FetchForeground(ctx context.Context) (entity.Observation, error) {
	title, pid, err := s.lookup(ctx)
	if err != nil {
		return entity.Observation{}, &FetchError{Err: err}
	}
	if title == "" {
		return entity.Observation{}, &FetchError{Err: ErrEmptyTitle}
	}
	exe, err := s.exe(ctx, pid)
	if err != nil {
		return entity.Observation{}, &FetchError{Err: xerrors.Errorf("process %d: %w", pid, err)}
	}
	return entity.Observation{Title: title, ProcessName: exe}, nil
}

// processExe returns the full executable path of pid, falling back to the
// short process name when the path is not readable.
func processExe(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	exe, err := p.ExeWithContext(ctx)
	if err == nil && exe != "" {
		return exe, nil
	}
	name, nameErr := p.NameWithContext(ctx)
	if nameErr != nil {
		if err != nil {
			return "", err
		}
		return "", nameErr
	}
	return name, nil
}
