package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const (
	AppName               = "tally"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "tasks.db"
	DefaultLogName        = "tally.log"
)

// Keymap lists the keys bound to each navigation command. Inserting-mode keys
// (enter, esc, backspace, printable characters) are fixed.
type Keymap struct {
	Down   []string `toml:"down"`
	Up     []string `toml:"up"`
	First  []string `toml:"first"`
	Last   []string `toml:"last"`
	Toggle []string `toml:"toggle"`
	Delete []string `toml:"delete"`
	Add    []string `toml:"add"`
	Quit   []string `toml:"quit"`
}

type Config struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
	Keys     Keymap `toml:"keys"`
}

// DataDir is $XDG_DATA_HOME/tally, falling back to ~/.local/share/tally.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// ResolveConfigPath returns the config file under the user config directory.
func ResolveConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, AppName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(DataDir(), DefaultDBName)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, cfg.Validate()
}

// Validate rejects unbound commands and unknown log levels.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	bindings := []struct {
		name string
		keys []string
	}{
		{"down", c.Keys.Down},
		{"up", c.Keys.Up},
		{"first", c.Keys.First},
		{"last", c.Keys.Last},
		{"toggle", c.Keys.Toggle},
		{"delete", c.Keys.Delete},
		{"add", c.Keys.Add},
		{"quit", c.Keys.Quit},
	}
	for _, b := range bindings {
		if len(b.keys) == 0 {
			return fmt.Errorf("keys.%s: at least one key is required", b.name)
		}
	}
	return nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func Default() Config {
	dataDir := DataDir()
	return Config{
		DBPath:   filepath.Join(dataDir, DefaultDBName),
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, DefaultLogName),
		Keys: Keymap{
			Down:   []string{"down", "j"},
			Up:     []string{"up", "k"},
			First:  []string{"g"},
			Last:   []string{"G"},
			Toggle: []string{" ", "enter"},
			Delete: []string{"d"},
			Add:    []string{"a"},
			Quit:   []string{"q", "ctrl+c"},
		},
	}
}
