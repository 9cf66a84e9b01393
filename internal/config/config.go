package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/ppdms/tree-eclass/internal/entity"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	defaultBaseURL  = "https://eclass.aueb.gr"
	defaultListen   = ":8000"
	defaultRedisURL = "redis://localhost:6379/0"
	defaultInterval = time.Hour
	defaultDataDir  = "data"

	envUsername = "ECLASS_USERNAME"
	envPassword = "ECLASS_PASSWORD"
	envRedisURL = "REDIS_URL"
)

type LogLevel string

// Duration adds YAML support for the "30m" / "1h" duration notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("cannot parse duration %q: %w", s, err)
	}

	*d = Duration(dur)

	return nil
}

type EclassConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CourseURL returns the documents page of a course.
func (c *EclassConfig) CourseURL(courseID int) string {
	return fmt.Sprintf("%s/modules/document/index.php?course=INF%d", c.BaseURL, courseID)
}

// LoginURL returns the login page used to refresh the session cookie.
func (c *EclassConfig) LoginURL() string {
	return c.BaseURL + "/?login_page=1"
}

type SMTPConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	UseTLS   bool   `yaml:"use_tls"`
}

// Enabled reports whether the notifier has enough configuration to send mail.
func (c *SMTPConfig) Enabled() bool {
	return c.Server != "" && c.From != "" && c.To != ""
}

type CheckerConfig struct {
	Interval Duration `yaml:"interval"`
	DataDir  string   `yaml:"data_dir"`
}

type Config struct {
	Listen   string          `yaml:"listen"`
	RedisURL string          `yaml:"redis_url"`
	LogLevel LogLevel        `yaml:"log_level"`
	Eclass   EclassConfig    `yaml:"eclass"`
	SMTP     SMTPConfig      `yaml:"smtp"`
	Checker  CheckerConfig   `yaml:"checker"`
	Courses  []entity.Course `yaml:"courses"`
}

func (c *Config) SetDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.RedisURL == "" {
		c.RedisURL = defaultRedisURL
	}
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}
	if c.Eclass.BaseURL == "" {
		c.Eclass.BaseURL = defaultBaseURL
	}
	if c.Checker.Interval <= 0 {
		c.Checker.Interval = Duration(defaultInterval)
	}
	if c.Checker.DataDir == "" {
		c.Checker.DataDir = defaultDataDir
	}
}

// Load reads the YAML config file and applies .env/environment overrides for
// credentials and the redis URL.
func Load(path string) (*Config, error) {
	// Missing .env is fine, environment variables may be set directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	cfg.SetDefaults()

	if v := os.Getenv(envUsername); v != "" {
		cfg.Eclass.Username = v
	}
	if v := os.Getenv(envPassword); v != "" {
		cfg.Eclass.Password = v
	}
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.RedisURL = v
	}

	switch cfg.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return nil, fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}

	if cfg.Eclass.Username == "" || cfg.Eclass.Password == "" {
		return nil, fmt.Errorf("e-class credentials are not set")
	}

	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}
