package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "", "")
	require.NoError(t, err)

	assert.Equal(t, "eventcal.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, store.DefaultNamespace, cfg.Namespace)
	assert.Equal(t, 12, cfg.HorizonMonths)
	assert.True(t, cfg.SampleData)
	assert.Equal(t, 120, cfg.WriteLimit)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
}

func TestLoadFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "config.yaml", `
db_path: /tmp/cal.db
log_format: json
horizon_months: 6
backup:
  dir: /var/backups/eventcal
  schedule: "0 3 * * *"
  passphrase: from-file
  s3:
    bucket: snapshots
    prefix: eventcal/
`)
	t.Setenv("EVENTCAL_HORIZON_MONTHS", "3")
	t.Setenv("EVENTCAL_BACKUP_PASSPHRASE", "from-env")
	t.Setenv("EVENTCAL_BACKUP_S3_ACCESS_KEY", "key")

	cfg, err := Load(viper.New(), file, "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cal.db", cfg.DBPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 3, cfg.HorizonMonths, "env should override the file")
	assert.Equal(t, "from-env", cfg.Backup.Passphrase)
	assert.Equal(t, "0 3 * * *", cfg.Backup.Schedule)

	bc := cfg.BackupManagerConfig()
	assert.Equal(t, "/var/backups/eventcal", bc.Dir)
	assert.Equal(t, "from-env", bc.Passphrase)
	assert.Equal(t, "snapshots", bc.S3.Bucket)
	assert.Equal(t, "eventcal/", bc.S3.Prefix)
	assert.Equal(t, "key", bc.S3.AccessKey)
	assert.False(t, bc.S3.Enabled(), "secret key is still missing")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	env := writeFile(t, dir, ".env", "EVENTCAL_LISTEN=:9999\nEVENTCAL_SAMPLE_DATA=false\n")
	// godotenv never overrides variables that are already set.
	t.Setenv("EVENTCAL_LISTEN", "")
	os.Unsetenv("EVENTCAL_LISTEN")
	t.Setenv("EVENTCAL_SAMPLE_DATA", "")
	os.Unsetenv("EVENTCAL_SAMPLE_DATA")

	cfg, err := Load(viper.New(), "", env)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.False(t, cfg.SampleData)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(viper.New(), "", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DBPath: "x.db", HorizonMonths: 12}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"no db", func(c *Config) { c.DBPath = "" }, false},
		{"zero horizon", func(c *Config) { c.HorizonMonths = 0 }, false},
		{"negative limit", func(c *Config) { c.WriteLimit = -1 }, false},
		{"bad schedule", func(c *Config) {
			c.Backup = BackupConfig{Dir: "/b", Passphrase: "p", Schedule: "every day"}
		}, false},
		{"schedule without passphrase", func(c *Config) {
			c.Backup = BackupConfig{Dir: "/b", Schedule: "@daily"}
		}, false},
		{"scheduled backups", func(c *Config) {
			c.Backup = BackupConfig{Dir: "/b", Passphrase: "p", Schedule: "@daily"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
