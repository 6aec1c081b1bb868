package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Cedrat/watch-focus-time/launch"
)

func main() {
	var opts launch.Options
	pflag.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML or YAML config file (default $WATCH_CONFIG_PATH)")
	pflag.BoolVar(&opts.Headless, "headless", false, "run without the tray icon")
	pflag.BoolVar(&opts.Once, "once", false, "run a single tick and a single sync, then exit")
	pflag.Parse()

	if err := launch.StartProgramme(opts); err != nil {
		fmt.Fprintln(os.Stderr, "watch-focus-time:", err)
		os.Exit(1)
	}
}
