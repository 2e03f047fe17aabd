package repo

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/odvcencio/cairn/pkg/vfs"
)

// ConfigName is the repository-local settings file.
const ConfigName = "config.toml"

// Config stores repository-local settings.
type Config struct {
	User UserConfig `toml:"user"`
	Log  LogConfig  `toml:"log"`
}

// UserConfig names who commits by default.
type UserConfig struct {
	Name      string `toml:"name"`
	Submitter string `toml:"submitter,omitempty"`
}

// LogConfig sets the CLI log level.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
}

// DefaultConfig is what Init writes.
func DefaultConfig() *Config {
	return &Config{Log: LogConfig{Level: "none"}}
}

// LoadConfig reads .cairn/config.toml from the repository root of fs.
// Missing config returns the defaults.
func LoadConfig(fs vfs.FS) (*Config, error) {
	ok, err := vfs.Exists(fs, metaPath(ConfigName))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if !ok {
		return DefaultConfig(), nil
	}
	data, err := vfs.ReadFile(fs, metaPath(ConfigName))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("read config: decode: %w", err)
	}
	return cfg, nil
}

// Config returns the settings loaded when the repository was opened.
func (r *Repo) Config() *Config {
	return r.cfg
}

// WriteConfig atomically writes .cairn/config.toml and makes it the
// handle's current config.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := writeConfig(r.FS, cfg); err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

func writeConfig(fs vfs.FS, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}

	tmp := metaPath(".config-tmp")
	if err := vfs.WriteFile(fs, tmp, buf.Bytes()); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("write config: write: %w", err)
	}
	if err := fs.Rename(tmp, metaPath(ConfigName)); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

// defaultAuthor picks the author used when a commit names none: the
// configured user, then $USER.
func (r *Repo) defaultAuthor() string {
	if r.cfg != nil {
		if name := strings.TrimSpace(r.cfg.User.Name); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name
	}
	return "unknown"
}

func (r *Repo) defaultSubmitter(author string) string {
	if r.cfg != nil {
		if name := strings.TrimSpace(r.cfg.User.Submitter); name != "" {
			return name
		}
	}
	return author
}
