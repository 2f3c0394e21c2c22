// Package config loads settings from a YAML file, a .env file, EVENTCAL_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sahilgupta2175/event-calendar/internal/backup"
	"github.com/Sahilgupta2175/event-calendar/internal/recurrence"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

const EnvPrefix = "EVENTCAL"

type Config struct {
	DBPath         string   `mapstructure:"db_path"`
	Listen         string   `mapstructure:"listen"`
	LogLevel       string   `mapstructure:"log_level"`
	LogFormat      string   `mapstructure:"log_format"`
	Namespace      string   `mapstructure:"namespace"`
	HorizonMonths  int      `mapstructure:"horizon_months"`
	SampleData     bool     `mapstructure:"sample_data"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// WriteLimit caps mutating API requests per client per minute; 0 disables it.
	WriteLimit int          `mapstructure:"write_limit"`
	Backup     BackupConfig `mapstructure:"backup"`
}

type BackupConfig struct {
	Dir           string   `mapstructure:"dir"`
	Schedule      string   `mapstructure:"schedule"`
	Passphrase    string   `mapstructure:"passphrase"`
	RetentionDays int      `mapstructure:"retention_days"`
	S3            S3Config `mapstructure:"s3"`
}

// S3Config mirrors snapshots to an S3-compatible bucket when bucket and keys are set.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// DefaultDir returns $HOME/.config/eventcal, or "" if there is no home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "eventcal")
}

// SetDefaults registers every key so environment variables can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "eventcal.db")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("namespace", store.DefaultNamespace)
	v.SetDefault("horizon_months", recurrence.HorizonMonths)
	v.SetDefault("sample_data", true)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("write_limit", 120)
	v.SetDefault("backup.dir", "")
	v.SetDefault("backup.schedule", "")
	v.SetDefault("backup.passphrase", "")
	v.SetDefault("backup.retention_days", backup.DefaultRetentionDays)
	for _, key := range []string{"endpoint", "bucket", "region", "access_key", "secret_key", "prefix"} {
		v.SetDefault("backup.s3."+key, "")
	}
}

// Load reads configuration into v and decodes it. configFile may be empty to
// search DefaultDir for config.yaml; a missing default file is not an error.
// envFile is loaded into the process environment first when it exists.
func Load(v *viper.Viper, configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		if dir := DefaultDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.HorizonMonths < 1 {
		return fmt.Errorf("horizon_months must be at least 1, got %d", c.HorizonMonths)
	}
	if c.WriteLimit < 0 {
		return fmt.Errorf("write_limit must not be negative")
	}
	if c.Backup.Schedule != "" {
		if err := backup.ValidateSchedule(c.Backup.Schedule); err != nil {
			return fmt.Errorf("backup.schedule: %w", err)
		}
		if c.Backup.Dir == "" || c.Backup.Passphrase == "" {
			return fmt.Errorf("backup.schedule needs backup.dir and backup.passphrase")
		}
	}
	return nil
}

// BackupManagerConfig converts the backup section for backup.NewManager.
func (c *Config) BackupManagerConfig() backup.Config {
	return backup.Config{
		Dir:           c.Backup.Dir,
		Schedule:      c.Backup.Schedule,
		Passphrase:    c.Backup.Passphrase,
		RetentionDays: c.Backup.RetentionDays,
		S3: backup.S3Config{
			Endpoint:  c.Backup.S3.Endpoint,
			Bucket:    c.Backup.S3.Bucket,
			Region:    c.Backup.S3.Region,
			AccessKey: c.Backup.S3.AccessKey,
			SecretKey: c.Backup.S3.SecretKey,
			Prefix:    c.Backup.S3.Prefix,
		},
	}
}
