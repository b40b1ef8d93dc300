package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config is the process-wide configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Lease    LeaseConfig    `mapstructure:"lease"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig admin HTTP surface
type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings for the admin dashboard
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"     validate:"required"`
	Port            int    `mapstructure:"port"     validate:"min=1,max=65535"`
	Name            string `mapstructure:"name"     validate:"required"`
	User            string `mapstructure:"user"     validate:"required"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	ConnectTimeout  int    `mapstructure:"connect_timeout"`    // seconds
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone, c.ConnectTimeout,
	)
}

// RedisConfig optional Redis used for run leases and rate limiting.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT settings shared with the main registry application
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"       validate:"required,min=16"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	Issuer         string        `mapstructure:"issuer"`
}

// MailConfig SMTP settings
type MailConfig struct {
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	From      string `mapstructure:"from"       validate:"omitempty,email"`
	PortalURL string `mapstructure:"portal_url"`
}

// Enabled reports whether an SMTP relay is configured.
func (c *MailConfig) Enabled() bool { return c.SMTPHost != "" }

// LogConfig logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	File   string `mapstructure:"file"` // append-only sink, in addition to stdout
}

// CalendarConfig academic calendar recomputation
type CalendarConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
	Cron     string `mapstructure:"cron"     validate:"required"`
}

// Location resolves Timezone, falling back to UTC.
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderConfig resubmission deadline reminders
type ReminderConfig struct {
	Lookahead       time.Duration `mapstructure:"lookahead"          validate:"gt=0"`
	Interval        time.Duration `mapstructure:"interval"           validate:"gt=0"`
	EmailTimeout    time.Duration `mapstructure:"email_timeout"      validate:"gt=0"`
	EmailRatePerSec float64       `mapstructure:"email_rate_per_sec" validate:"gte=0"`
	EmailBurst      int           `mapstructure:"email_burst"        validate:"gte=0"`
}

// LeaseConfig optional single-runner lease per pipeline (requires Redis)
type LeaseConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// JournalConfig local SQLite run journal. Empty Path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// EventsConfig NATS run-summary publishing. Empty NATSURL disables it.
type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// Load reads configuration.
// Precedence: environment > config file > .env > defaults
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch reloads the configuration file on change and hands the new value to onChange.
// Invalid files are reported through onError and ignored.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "saoms")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Manila")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)
	v.SetDefault("db.connect_timeout", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "saoms")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "noreply@cvsu.edu.ph")
	v.SetDefault("mail.portal_url", "http://localhost:8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	v.SetDefault("calendar.timezone", "Asia/Manila")
	v.SetDefault("calendar.cron", "5 0 * * *")

	v.SetDefault("reminder.lookahead", "1h")
	v.SetDefault("reminder.interval", "5m")
	v.SetDefault("reminder.email_timeout", "10s")
	v.SetDefault("reminder.email_rate_per_sec", 2)
	v.SetDefault("reminder.email_burst", 4)

	v.SetDefault("lease.enabled", false)
	v.SetDefault("lease.ttl", "10m")

	v.SetDefault("journal.path", "data/runs.db")

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject_prefix", "saoms.runs")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("SAOMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path == "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks required settings and the calendar cron expression.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cron.ParseStandard(c.Calendar.Cron); err != nil {
		return fmt.Errorf("invalid config: calendar.cron %q: %w", c.Calendar.Cron, err)
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid config: calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}
	if c.Lease.Enabled && c.Lease.TTL <= 0 {
		return fmt.Errorf("invalid config: lease.ttl must be positive when lease.enabled")
	}
	return nil
}
