package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the optional linever configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Report   ReportConfig   `toml:"report"`
	Watch    WatchConfig    `toml:"watch"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults.
type DefaultsConfig struct {
	Algorithm     *string `toml:"algorithm"`
	Store         *string `toml:"store"`
	Format        *string `toml:"format"`
	ShowUnchanged *bool   `toml:"show_unchanged"`
	Strict        *bool   `toml:"strict"`
	ReadOnly      *bool   `toml:"read_only"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Color *bool `toml:"color"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce *Duration `toml:"debounce"`
}

// ThemeConfig holds optional color overrides for report status tags.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Blue   *string `toml:"blue"`
	Yellow *string `toml:"yellow"`
	Red    *string `toml:"red"`
	Muted  *string `toml:"muted"`
}

// Duration is a time.Duration decoded from a TOML string such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "linever", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path, returning a zero Config if it
// does not exist.
func LoadFile(path string) (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
