// Package config loads runtime settings from ~/.journey/config.yaml, an
// explicit --config file, and JOURNEY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/alexanderramin/journey/internal/db"
)

const envPrefix = "JOURNEY"

type StoreConfig struct {
	Driver  string        `mapstructure:"driver" validate:"oneof=sqlite pgx"`
	DSN     string        `mapstructure:"dsn" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type DismissalConfig struct {
	Path      string        `mapstructure:"path" validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
}

type AnnouncementConfig struct {
	Shuffle bool `mapstructure:"shuffle"`
}

type LogConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the top-level application configuration.
type Config struct {
	Store         StoreConfig        `mapstructure:"store"`
	Dismissals    DismissalConfig    `mapstructure:"dismissals"`
	Announcements AnnouncementConfig `mapstructure:"announcements"`
	Log           LogConfig          `mapstructure:"log"`
	// User is the participant commands act for when --user is not given.
	User string `mapstructure:"user"`
	// Timezone overrides the edition time zone for calendar-day math.
	Timezone string `mapstructure:"timezone" validate:"omitempty,timezone"`
}

// Dir returns ~/.journey, or ./.journey when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".journey"
	}
	return filepath.Join(home, ".journey")
}

func setDefaults(v *viper.Viper) {
	dir := Dir()
	v.SetDefault("store.driver", db.DriverSQLite)
	v.SetDefault("store.dsn", filepath.Join(dir, "journey.db"))
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("dismissals.path", filepath.Join(dir, "dismissals.json"))
	v.SetDefault("dismissals.retention", 24*time.Hour)
	v.SetDefault("announcements.shuffle", true)
	v.SetDefault("log.enabled", false)
	v.SetDefault("timezone", "")
	v.SetDefault("user", "")
}

// Load reads configuration, falling back to defaults when no file exists.
// An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Store.DSN = expandHome(cfg.Store.DSN)
	cfg.Dismissals.Path = expandHome(cfg.Dismissals.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and reports every failing key at once.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Location resolves the configured time zone override, or nil when unset.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil
	}
	return loc
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
