package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/scholarship/applicant"
	"github.com/liamcoop/scholarship/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. SCHOLARSHIP_SERVER_LISTEN_ADDRESS
const EnvPrefix = "SCHOLARSHIP_"

// Config is the advisor service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Rules      RulesConfig      `yaml:"rules"`
	Applicants ApplicantsConfig `yaml:"applicants"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// RulesConfig selects the active rule set. An empty File serves the built-in rules.
type RulesConfig struct {
	File           string        `yaml:"file"`
	Watch          bool          `yaml:"watch"`
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// ApplicantsConfig points at an optional read-only applicant database
type ApplicantsConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether an applicant database is configured
func (a ApplicantsConfig) Enabled() bool {
	return a.Driver != ""
}

type LoggingConfig struct {
	Level           string `yaml:"level"`
	Format          string `yaml:"format"`
	ErrorSampleRate int    `yaml:"error_sample_rate"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	ServiceName     string `yaml:"service_name"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, applies defaults and SCHOLARSHIP_* overrides,
// then validates. An empty path skips the file.
func Load(path string) (cfg *Config, err error) {
	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}

	if path != "" {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to read config file: %s", path)
			return nil, err
		}

		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			err = errors.Wrapf(err, "failed to parse config file: %s", path)
			return nil, err
		}
	}

	ApplyDefaults(cfg)

	err = applyEnvOverrides(cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		err = errors.Wrap(err, "config validation failed")
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills zero values
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Rules.ReloadDebounce == 0 {
		cfg.Rules.ReloadDebounce = 250 * time.Millisecond
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = logger.FormatJSON
	}
	if cfg.Logging.ErrorSampleRate == 0 {
		cfg.Logging.ErrorSampleRate = 1
	}
	if cfg.Logging.ServiceName == "" {
		cfg.Logging.ServiceName = "scholarship-advisor"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) (err error) {
	str := func(key string, dst *string) {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			*dst = val
		}
	}
	dur := func(key string, dst *time.Duration) {
		if err != nil {
			return
		}
		if val := os.Getenv(EnvPrefix + key); val != "" {
			var d time.Duration
			d, err = time.ParseDuration(val)
			if err != nil {
				err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if err != nil {
			return
		}
		if val := os.Getenv(EnvPrefix + key); val != "" {
			var b bool
			b, err = strconv.ParseBool(val)
			if err != nil {
				err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if err != nil {
			return
		}
		if val := os.Getenv(EnvPrefix + key); val != "" {
			var i int
			i, err = strconv.Atoi(val)
			if err != nil {
				err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
				return
			}
			*dst = i
		}
	}
	integer64 := func(key string, dst *int64) {
		if err != nil {
			return
		}
		if val := os.Getenv(EnvPrefix + key); val != "" {
			var i int64
			i, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
				return
			}
			*dst = i
		}
	}

	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	dur("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	integer64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	str("RULES_FILE", &cfg.Rules.File)
	boolean("RULES_WATCH", &cfg.Rules.Watch)
	dur("RULES_RELOAD_DEBOUNCE", &cfg.Rules.ReloadDebounce)
	dur("RULES_CACHE_TTL", &cfg.Rules.CacheTTL)

	str("APPLICANTS_DRIVER", &cfg.Applicants.Driver)
	str("APPLICANTS_DSN", &cfg.Applicants.DSN)

	str("LOGGING_LEVEL", &cfg.Logging.Level)
	str("LOGGING_FORMAT", &cfg.Logging.Format)
	integer("LOGGING_ERROR_SAMPLE_RATE", &cfg.Logging.ErrorSampleRate)
	boolean("LOGGING_OTEL_ENABLED", &cfg.Logging.OTELEnabled)
	str("LOGGING_SERVICE_NAME", &cfg.Logging.ServiceName)

	boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)

	return err
}

// Validate checks the configuration is usable
func (c *Config) Validate() (err error) {
	if c.Server.ListenAddress == "" {
		err = errors.New("server.listen_address is required")
		return err
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 ||
		c.Server.RequestTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		err = errors.New("server timeouts must not be negative")
		return err
	}
	if c.Server.MaxBodyBytes < 0 {
		err = errors.New("server.max_body_bytes must not be negative")
		return err
	}

	if c.Rules.Watch && c.Rules.File == "" {
		err = errors.New("rules.watch requires rules.file")
		return err
	}
	if c.Rules.ReloadDebounce < 0 || c.Rules.CacheTTL < 0 {
		err = errors.New("rules durations must not be negative")
		return err
	}

	switch c.Applicants.Driver {
	case "":
	case applicant.DriverPostgres, applicant.DriverSQLite:
		if c.Applicants.DSN == "" {
			err = errors.Errorf("applicants.dsn is required for driver %s", c.Applicants.Driver)
			return err
		}
	default:
		err = errors.Errorf("applicants.driver must be %s or %s, got %q",
			applicant.DriverPostgres, applicant.DriverSQLite, c.Applicants.Driver)
		return err
	}

	if _, err = logger.ParseLevel(c.Logging.Level); err != nil {
		err = errors.Wrap(err, "logging.level")
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case logger.FormatJSON, logger.FormatText:
	default:
		err = errors.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
		return err
	}
	if c.Logging.ErrorSampleRate < 1 {
		err = errors.New("logging.error_sample_rate must be at least 1")
		return err
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		err = errors.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
		return err
	}

	return nil
}

// LoggerOptions converts the logging section for logger.Setup
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:           c.Logging.Level,
		Format:          c.Logging.Format,
		ErrorSampleRate: c.Logging.ErrorSampleRate,
		OTELEnabled:     c.Logging.OTELEnabled,
		ServiceName:     c.Logging.ServiceName,
	}
}
