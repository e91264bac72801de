package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/viper"

	"drfeedback/registry"
	"drfeedback/report"
)

const EnvPrefix = "DRFEEDBACK"

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Report struct {
	Format           string `mapstructure:"format"`
	Title            string `mapstructure:"title"`
	IncludeArtifacts bool   `mapstructure:"include_artifacts"`
}

type Display struct {
	Pattern  string  `mapstructure:"pattern"`
	MinWidth float64 `mapstructure:"min_width"`
}

type StructLog struct {
	LevelKey     string `mapstructure:"level_key"`
	ComponentKey string `mapstructure:"component_key"`
	MessageKey   string `mapstructure:"message_key"`
	ErrorLevel   string `mapstructure:"error_level"`
}

type Manifest struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	Exclude      []string      `mapstructure:"exclude"`
	SignatureURL string        `mapstructure:"signature_url"`
	Keyring      string        `mapstructure:"keyring"`
}

type Server struct {
	Addr              string        `mapstructure:"addr"`
	MaxBundleSize     string        `mapstructure:"max_bundle_size"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
}

type Config struct {
	Log       Log       `mapstructure:"log"`
	Report    Report    `mapstructure:"report"`
	Workers   int       `mapstructure:"workers"`
	RulesFile string    `mapstructure:"rules_file"`
	Display   Display   `mapstructure:"display"`
	StructLog StructLog `mapstructure:"structlog"`
	Manifest  Manifest  `mapstructure:"manifest"`
	Server    Server    `mapstructure:"server"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("report.format", string(report.FormatHTML))
	v.SetDefault("report.title", "Doctor Feedback report")
	v.SetDefault("report.include_artifacts", true)

	v.SetDefault("workers", 4)
	v.SetDefault("rules_file", "")

	v.SetDefault("display.pattern", registry.DefaultDisplayPattern)
	v.SetDefault("display.min_width", registry.DefaultMinDisplayWidth)

	v.SetDefault("structlog.level_key", "level")
	v.SetDefault("structlog.component_key", "app")
	v.SetDefault("structlog.message_key", "message")
	v.SetDefault("structlog.error_level", "error")

	v.SetDefault("manifest.url", "")
	v.SetDefault("manifest.timeout", 20*time.Second)
	v.SetDefault("manifest.retries", 2)
	v.SetDefault("manifest.exclude", []string{})
	v.SetDefault("manifest.signature_url", "")
	v.SetDefault("manifest.keyring", "")

	v.SetDefault("server.addr", ":9000")
	v.SetDefault("server.max_bundle_size", "64MB")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
}

// New returns a viper instance with defaults and DRFEEDBACK_* environment
// overrides. A non-empty file is read as the config file.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return v, nil
}

func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Manifest.Timeout <= 0 {
		return fmt.Errorf("manifest.timeout must be positive, got %s", c.Manifest.Timeout)
	}
	if c.Manifest.Retries < 0 {
		return fmt.Errorf("manifest.retries must not be negative, got %d", c.Manifest.Retries)
	}
	if _, err := c.Server.MaxBundleBytes(); err != nil {
		return err
	}
	return nil
}

func (s Server) MaxBundleBytes() (int64, error) {
	n, err := bytesize.Parse(s.MaxBundleSize)
	if err != nil {
		return 0, fmt.Errorf("server.max_bundle_size %q: %w", s.MaxBundleSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("server.max_bundle_size must be positive")
	}
	return int64(n), nil
}
