// Package config resolves where gaitdoc keeps its data.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML config file, GAITDOC_* environment variables and command-line flags
// bound by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Keys shared by the config file, the environment and flag bindings.
const (
	KeyDataDir     = "data_dir"
	KeyDatabase    = "database"
	KeyAttachments = "attachments"
	KeyBackupDir   = "backup_dir"
	KeyLogLevel    = "log_level"
)

// EnvPrefix prefixes every environment variable, e.g. GAITDOC_DATA_DIR.
const EnvPrefix = "GAITDOC"

// Config is the resolved configuration. Relative paths are resolved
// against DataDir.
type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	Database    string `mapstructure:"database"`
	Attachments string `mapstructure:"attachments"`
	BackupDir   string `mapstructure:"backup_dir"`
	LogLevel    string `mapstructure:"log_level"`
}

// New returns a viper instance with defaults and the environment prefix set
// up. Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, ".")
	v.SetDefault(KeyDatabase, "health_records.db")
	v.SetDefault(KeyAttachments, "attachments")
	v.SetDefault(KeyBackupDir, "backups")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// bindEnv registers every key explicitly so Unmarshal sees environment
// values for keys that have no default or config file entry.
func bindEnv(v *viper.Viper) error {
	for _, k := range []string{KeyDataDir, KeyDatabase, KeyAttachments, KeyBackupDir, KeyLogLevel} {
		if err := v.BindEnv(k, EnvPrefix+"_"+strings.ToUpper(k)); err != nil {
			return fmt.Errorf("bind %s to environment: %w", k, err)
		}
	}
	return nil
}

// Load reads the optional config file and resolves the configuration.
// An empty file name looks for gaitdoc.yaml in the working directory and
// the user config directory; a missing file is not an error unless it was
// named explicitly.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("gaitdoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gaitdoc")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every location is set and the log level is known.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%s must not be empty", KeyDataDir)
	}
	if c.Database == "" {
		return fmt.Errorf("%s must not be empty", KeyDatabase)
	}
	if c.Attachments == "" {
		return fmt.Errorf("%s must not be empty", KeyAttachments)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// DatabasePath returns the database file, resolved against DataDir.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Database)
}

// AttachmentsPath returns the attachment root, resolved against DataDir.
func (c *Config) AttachmentsPath() string {
	return c.resolve(c.Attachments)
}

// BackupPath returns the backup directory, resolved against DataDir.
func (c *Config) BackupPath() string {
	return c.resolve(c.BackupDir)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return l, nil
}
