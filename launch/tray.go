package launch

import (
	"context"
	"net"
	"os"
	"os/exec"
	"runtime"
	"sync/atomic"

	"github.com/getlantern/systray"

	"cdr.dev/slog/v3"
)

// runTray shows the tray icon and runs the app until Quit is clicked or
// ctx is done. systray owns the calling goroutine.
func runTray(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var started atomic.Bool
	runErr := make(chan error, 1)
	onReady := func() {
		started.Store(true)
		if icon, err := os.ReadFile("./icon.ico"); err == nil {
			systray.SetIcon(icon)
		}
		systray.SetTitle("WatchFocusTime")
		systray.SetTooltip("Tracking the focused window")

		go func() {
			runErr <- app.Run(ctx)
			systray.Quit()
		}()

		mSync := systray.AddMenuItem("Sync now", "Upload unsynced history now")
		if !app.cfg.Sync.Enabled {
			mSync.Disable()
		}
		mOpenWeb := systray.AddMenuItem("Open status page", "Open the local status page in the browser")
		if app.web == nil {
			mOpenWeb.Disable()
		}
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Stop tracking and quit")

		go func() {
			for {
				select {
				case <-mSync.ClickedCh:
					app.loop.SyncNow()
				case <-mOpenWeb.ClickedCh:
					url := statusPageURL(app.cfg.Web.Address)
					if err := openBrowser(url); err != nil {
						app.log.Warn(ctx, "open browser", slog.F("url", url), slog.Error(err))
					}
				case <-mQuit.ClickedCh:
					cancel()
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	onExit := func() {
		cancel()
	}

	systray.Run(onReady, onExit)

	cancel()
	if !started.Load() {
		return nil
	}
	return <-runErr
}

// statusPageURL turns a listen address into a browsable URL. An empty
// host means all interfaces, which the browser reaches on localhost.
func statusPageURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
