// Package config loads the diagshot configuration file.
//
// The file is TOML and every key is optional:
//
//	[browser]
//	exec_path = "/usr/bin/chromium"
//	flags = ["--lang=en-US"]
//	launch_timeout = "30s"
//	close_timeout = "5s"
//
//	[render]
//	timeout = "2m"
//	dpi_x = 96
//	dpi_y = 96
//
//	[mermaid]
//	bundle = "node_modules/mermaid/dist/mermaid.min.js"
//	theme = "default"
//
//	[cache]
//	enabled = true
//	dir = ""
//	redis_url = "redis://localhost:6379/0"
//	ttl = "720h"
//
//	[endpoint]
//	file = "/tmp/diagshot-ws"
//
// A missing file is not an error; [Load] then returns [Default].
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the configuration and cache directories.
const AppName = "diagshot"

// Config is the complete configuration.
type Config struct {
	Browser  Browser  `toml:"browser"`
	Render   Render   `toml:"render"`
	Mermaid  Mermaid  `toml:"mermaid"`
	Cache    Cache    `toml:"cache"`
	Endpoint Endpoint `toml:"endpoint"`
}

type Browser struct {
	ExecPath      string   `toml:"exec_path"`
	Flags         []string `toml:"flags"`
	LaunchTimeout Duration `toml:"launch_timeout"`
	CloseTimeout  Duration `toml:"close_timeout"`
}

type Render struct {
	Timeout Duration `toml:"timeout"` // zero means no limit
	DPIX    float64  `toml:"dpi_x"`
	DPIY    float64  `toml:"dpi_y"`
}

type Mermaid struct {
	Bundle string `toml:"bundle"`
	Theme  string `toml:"theme"`
}

type Cache struct {
	Enabled  bool     `toml:"enabled"`
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
}

type Endpoint struct {
	File string `toml:"file"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("negative duration %s", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Browser: Browser{
			LaunchTimeout: Duration{30 * time.Second},
			CloseTimeout:  Duration{5 * time.Second},
		},
		Render: Render{
			DPIX: 96,
			DPIY: 96,
		},
		Mermaid: Mermaid{
			Theme: "default",
		},
		Cache: Cache{
			Enabled: true,
			TTL:     Duration{30 * 24 * time.Hour},
		},
	}
}

// Load reads the file at path over the defaults. An empty path means
// [Path]. Only an explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the default config file location using the XDG standard
// (~/.config/diagshot/config.toml).
func Path() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the artifact cache directory: the configured one, or the
// XDG cache directory (~/.cache/diagshot/).
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
