// Package config loads the tracker configuration once at startup.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "WATCH_CONFIG_PATH"
	EnvDBPath     = "WATCH_DB_PATH"
	EnvLogLevel   = "WATCH_LOG_LEVEL"
	EnvSyncURL    = "WATCH_SYNC_URL"
	EnvSyncToken  = "WATCH_SYNC_TOKEN"
)

type Config struct {
	DBPath       string   `toml:"db_path" yaml:"db_path"`
	DBDriver     string   `toml:"db_driver" yaml:"db_driver"`
	LogLevel     string   `toml:"log_level" yaml:"log_level"`
	LogFile      string   `toml:"log_file" yaml:"log_file"`
	TickInterval Duration `toml:"tick_interval" yaml:"tick_interval"`
	Sync         Sync     `toml:"sync" yaml:"sync"`
	Web          Web      `toml:"web" yaml:"web"`
}

type Sync struct {
	Enabled     bool     `toml:"enabled" yaml:"enabled"`
	URL         string   `toml:"url" yaml:"url"`
	AccessToken string   `toml:"access_token" yaml:"access_token"`
	EveryTicks  int      `toml:"every_ticks" yaml:"every_ticks"`
	Timeout     Duration `toml:"timeout" yaml:"timeout"`
	BatchSize   int      `toml:"batch_size" yaml:"batch_size"`
}

type Web struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Address string `toml:"address" yaml:"address"`
}

// Duration reads "1s", "5m" and the like from either file format.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return xerrors.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the configuration used when no file sets a value.
func Default() Config {
	return Config{
		DBPath:       defaultDBPath(),
		DBDriver:     "sqlite",
		LogLevel:     "info",
		TickInterval: Duration(time.Second),
		Sync: Sync{
			EveryTicks: 300,
			Timeout:    Duration(30 * time.Second),
		},
		Web: Web{
			Enabled: true,
			Address: "127.0.0.1:8080",
		},
	}
}

// Load reads the file at path (or $WATCH_CONFIG_PATH when path is empty)
// on top of the defaults, then applies environment overrides. A missing
// path is not an error; a named file that cannot be read is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return xerrors.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv lets the environment win over the file for values that are
// commonly set per machine.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvSyncURL); v != "" {
		cfg.Sync.URL = v
	}
	if v := os.Getenv(EnvSyncToken); v != "" {
		cfg.Sync.AccessToken = v
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return xerrors.New("db_path must be set")
	}
	switch c.DBDriver {
	case "sqlite", "sqlite3":
	default:
		return xerrors.Errorf("db_driver %q: must be sqlite or sqlite3", c.DBDriver)
	}
	if c.TickInterval <= 0 {
		return xerrors.New("tick_interval must be positive")
	}
	if c.Sync.Enabled {
		if strings.TrimSpace(c.Sync.URL) == "" {
			return xerrors.New("sync.url must be set when sync is enabled")
		}
		if c.Sync.EveryTicks <= 0 {
			return xerrors.New("sync.every_ticks must be positive")
		}
		if c.Sync.Timeout <= 0 {
			return xerrors.New("sync.timeout must be positive")
		}
		if c.Sync.BatchSize < 0 {
			return xerrors.New("sync.batch_size must not be negative")
		}
	}
	if c.Web.Enabled && strings.TrimSpace(c.Web.Address) == "" {
		return xerrors.New("web.address must be set when web is enabled")
	}
	return nil
}

// defaultDBPath puts the database in the user config directory, falling
// back to the working directory.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "watch_focus_time.db"
	}
	return filepath.Join(dir, ".watch_focus_time", "activity_tracker.db")
}
