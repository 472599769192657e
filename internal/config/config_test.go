package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gedcom2csv/internal/config"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("out-dir", ".", "")
	fs.String("dialect", "legacy", "")
	fs.Duration("timeout", 5*time.Minute, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.OutDir)
	assert.Equal(t, "gedcom_file", cfg.Source)
	assert.Equal(t, "legacy", cfg.Dialect)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "replace", cfg.Export.Mode)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEDCOM2CSV_OUT_DIR", "/tmp/out")
	t.Setenv("GEDCOM2CSV_LOG_LEVEL", "debug")

	cfg, err := config.Load(newFlags(), "")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEDCOM2CSV_DIALECT", "legacy")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--dialect", "rfc4180"}))

	cfg, err := config.Load(flags, "")
	require.NoError(t, err)
	assert.Equal(t, "rfc4180", cfg.Dialect)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEDCOM2CSV_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GEDCOM2CSV_LOG_FORMAT") })

	cfgFile := filepath.Join(dir, "gedcom2csv.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("out-dir: tables\ntimeout: 30s\n"), 0o644))

	cfg, err := config.Load(nil, cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "tables", cfg.OutDir)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := config.Load(nil, "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			OutDir:  ".",
			Source:  "gedcom_file",
			Dialect: "legacy",
			Timeout: time.Minute,
			Log:     config.LoggingConfig{Level: "info", Format: "console"},
			Export:  config.ExportConfig{Mode: "replace"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		errMsg string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"empty out dir", func(c *config.Config) { c.OutDir = " " }, "out-dir"},
		{"bad dialect", func(c *config.Config) { c.Dialect = "tsv" }, "unknown csv dialect"},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, "timeout"},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "log-format"},
		{"bad mode", func(c *config.Config) { c.Export.Mode = "merge" }, "sync mode"},
		{"bad port", func(c *config.Config) { c.Export.Port = 70000 }, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := &config.Config{Log: config.LoggingConfig{Level: "info", Format: "console"}}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-dir")
	assert.Contains(t, err.Error(), "timeout")
}
