package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/ecbconv/ecbconv/log"
)

const (
	DefaultFeedURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

	// Relative to $HOME when XDG_DATA_HOME is not set.
	xdgLocalDataDir = ".local/share"
	configDirName   = "ecbconv"
	configFileName  = "ecbconv.ini"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ErrNoStorageLocation is returned when neither XDG_DATA_HOME nor HOME is set
// and no data_dir is configured.
var ErrNoStorageLocation = errors.New("no storage location: neither XDG_DATA_HOME nor HOME is set")

type Feed struct {
	URL     string
	Timeout time.Duration
}

type Storage struct {
	Backend string
	// Explicit data directory. Empty means resolve from the environment.
	DataDir     string
	PostgresDSN string
}

type Metrics struct {
	// Path of a prometheus textfile to write after each run. Empty disables.
	File string
}

type Config struct {
	Feed    Feed
	Storage Storage
	Metrics Metrics
	Logger  *log.Config
}

func Default() *Config {
	return &Config{
		Feed: Feed{
			URL:     DefaultFeedURL,
			Timeout: 10 * time.Second,
		},
		Storage: Storage{
			Backend: BackendFile,
		},
		Logger: log.DefaultConfig(),
	}
}

// Getenv matches os.Getenv, and is swapped out in tests.
type Getenv func(key string) string

// DefaultPath is where the config file is looked up when --config is not given.
// Returns "" if no location can be derived.
func DefaultPath(getenv Getenv) string {
	if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, configDirName, configFileName)
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", configDirName, configFileName)
	}
	return ""
}

// Load reads the ini file at path over the defaults. A missing file is not an
// error, so that the tool works without any configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := ini.LoadSources(ini.LoadOptions{
		Loose:                    true,
		SpaceBeforeInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	file.NameMapper = ini.TitleUnderscore

	feed := file.Section("feed")
	cfg.Feed.URL = feed.Key("url").MustString(cfg.Feed.URL)
	cfg.Feed.Timeout = feed.Key("timeout").MustDuration(cfg.Feed.Timeout)

	storage := file.Section("storage")
	cfg.Storage.Backend = strings.ToLower(storage.Key("backend").MustString(cfg.Storage.Backend))
	cfg.Storage.DataDir = storage.Key("data_dir").String()
	cfg.Storage.PostgresDSN = storage.Key("postgres_dsn").String()

	cfg.Metrics.File = file.Section("metrics").Key("file").String()

	if err := file.Section("logger").MapTo(cfg.Logger); err != nil {
		return nil, fmt.Errorf("mapping logger config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage backend %q requires postgres_dsn", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Feed.URL == "" {
		return errors.New("feed url must not be empty")
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive, got %v", c.Feed.Timeout)
	}
	return nil
}

// ResolveDataDir returns the directory holding the rate cache files:
// the configured data_dir, else $XDG_DATA_HOME, else $HOME/.local/share.
func (c *Config) ResolveDataDir(getenv Getenv) (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ResolveDataDir(getenv)
}

func ResolveDataDir(getenv Getenv) (string, error) {
	if dir := getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, xdgLocalDataDir), nil
	}
	return "", ErrNoStorageLocation
}
