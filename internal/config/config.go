// Package config loads command settings from flags, environment variables,
// an optional config file and an optional .env file, and validates them
// before any work starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gedcom2csv/internal/etl"
	"gedcom2csv/internal/logging"
)

// DefaultTimeout bounds a conversion unless configured otherwise.
const DefaultTimeout = 5 * time.Minute

// EnvPrefix is prepended to every environment variable, e.g. GEDCOM2CSV_OUT_DIR.
const EnvPrefix = "GEDCOM2CSV"

// Config holds all settings of one invocation.
type Config struct {
	// OutDir receives individuals.csv, families.csv and other.csv (default: ".")
	OutDir string

	// Source is the registered source type used to read the input (default: gedcom_file)
	Source string

	// Dialect is the CSV dialect: legacy or rfc4180 (default: legacy)
	Dialect string

	// Timeout bounds a single conversion (default: 5m)
	Timeout time.Duration

	// DataDir holds the run history database (default: ~/.local/share/gedcom2csv)
	DataDir string

	Log    LoggingConfig
	Export ExportConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string

	// Format is console or json (default: console)
	Format string
}

// ExportConfig describes the database target of the export command.
// The password never comes from flags; see secret.Resolver.
type ExportConfig struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	SSLMode  string
	Mode     string
	Prefix   string
}

// Load merges, in increasing priority: defaults, the config file, the
// environment (after loading .env), and flags that were explicitly set.
// configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	if err := loadDotEnv("."); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{
		OutDir:  v.GetString("out-dir"),
		Source:  v.GetString("source"),
		Dialect: v.GetString("dialect"),
		Timeout: v.GetDuration("timeout"),
		DataDir: v.GetString("data-dir"),
		Log: LoggingConfig{
			Level:  v.GetString("log-level"),
			Format: v.GetString("log-format"),
		},
		Export: ExportConfig{
			Driver:   v.GetString("driver"),
			Host:     v.GetString("host"),
			Port:     v.GetInt("port"),
			Database: v.GetString("database"),
			Username: v.GetString("user"),
			SSLMode:  v.GetString("ssl-mode"),
			Mode:     v.GetString("mode"),
			Prefix:   v.GetString("table-prefix"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("out-dir", ".")
	v.SetDefault("source", "gedcom_file")
	v.SetDefault("dialect", string(etl.DialectLegacy))
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("data-dir", defaultDataDir())
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("mode", string(etl.SyncReplace))
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gedcom2csv"
	}
	return filepath.Join(home, ".local", "share", "gedcom2csv")
}

// loadDotEnv loads dir/.env if present. Variables already set in the
// environment win.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.OutDir) == "" {
		errs = append(errs, errors.New("out-dir must not be empty"))
	}
	if c.Source == "" {
		errs = append(errs, errors.New("source must not be empty"))
	}
	if _, err := etl.ParseDialect(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log-format must be console or json, got %q", c.Log.Format))
	}
	if _, err := etl.ParseSyncMode(c.Export.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Export.Port < 0 || c.Export.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Export.Port))
	}

	return errors.Join(errs...)
}

// HistoryDBPath is the sqlite file recording conversion runs.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
