package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/sheetfed/internal/db"
)

// DefaultOperationPattern matches the job operations the federator handles.
const DefaultOperationPattern = `^federate(-.*)?$`

// Config is the full runtime configuration.
type Config struct {
	Database   db.Config        `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Federation FederationConfig `mapstructure:"federation"`

	// File is the config file that was read, empty when only defaults and env were used.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FederationConfig points at the blueprint and tunes the job listener.
type FederationConfig struct {
	Blueprint        string        `mapstructure:"blueprint"`
	OperationPattern string        `mapstructure:"operation_pattern"`
	TargetWorkbook   string        `mapstructure:"target_workbook"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
}

// OperationMatcher compiles the operation pattern, falling back to the default.
func (f FederationConfig) OperationMatcher() (*regexp.Regexp, error) {
	pattern := strings.TrimSpace(f.OperationPattern)
	if pattern == "" {
		pattern = DefaultOperationPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid federation.operation_pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Federation: FederationConfig{
			Blueprint:        "blueprint.yaml",
			OperationPattern: DefaultOperationPattern,
			JobTimeout:       30 * time.Minute,
		},
	}
}

// Load reads sheetfed.yaml from configDir (when present) and applies SHEETFED_*
// environment overrides, e.g. SHEETFED_DATABASE_HOST.
func Load(configDir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("sheetfed")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("SHEETFED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	file := cfg.File
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = file

	if _, err := cfg.Federation.OperationMatcher(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.name", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("federation.blueprint", cfg.Federation.Blueprint)
	v.SetDefault("federation.operation_pattern", cfg.Federation.OperationPattern)
	v.SetDefault("federation.target_workbook", cfg.Federation.TargetWorkbook)
	v.SetDefault("federation.job_timeout", cfg.Federation.JobTimeout)
}
