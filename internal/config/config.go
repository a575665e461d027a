package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/carebook/internal/model"
)

const envPrefix = "CAREBOOK"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Session   SessionConfig             `mapstructure:"session"`
	Admin     AdminConfig               `mapstructure:"admin"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Redis     RedisConfig               `mapstructure:"redis"`
	Email     EmailConfig               `mapstructure:"email"`
	RateLimit RateLimitConfig           `mapstructure:"rate_limit"`
	Log       LogConfig                 `mapstructure:"log"`
	Audit     AuditConfig               `mapstructure:"audit"`
	Booking   BookingConfig             `mapstructure:"booking"`
	Providers []model.TransportProvider `mapstructure:"providers"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
}

// AdminConfig is the reserved administrator credential.
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN prefers an explicit URL over the discrete fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// RedisConfig enables event fan-out when URL is non-empty.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// EmailConfig enables SMTP delivery in the worker when Host is non-empty.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type AuditConfig struct {
	Output string `mapstructure:"output"`
}

type BookingConfig struct {
	Doctors []string `mapstructure:"doctors"`
}

type MetricsConfig struct {
	Namespace  string `mapstructure:"namespace"`
	WorkerPort int    `mapstructure:"worker_port"`
}

// secrets are read straight from the environment and win over any file value.
type secrets struct {
	SessionSecret    string `envconfig:"SESSION_SECRET"`
	AdminPassword    string `envconfig:"ADMIN_PASSWORD"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("session.secret", "dev-secret-key-change-me")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.secure", false)

	v.SetDefault("admin.email", "admin@clinic.local")
	v.SetDefault("admin.password", "adminpass")
	v.SetDefault("admin.name", "Admin")

	v.SetDefault("storage.driver", StorageMemory)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "carebook")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "appointment_events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.from", "no-reply@clinic.local")

	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("audit.output", "stdout")

	v.SetDefault("booking.doctors", []string{
		"Dr. Jane Smith - Internal Medicine",
		"City Clinic - Outpatient",
	})
	v.SetDefault("providers", []map[string]interface{}{
		{"id": 1, "name": "SafeRide Medical Transport"},
		{"id": 2, "name": "CareVan Services"},
	})

	v.SetDefault("metrics.namespace", "carebook")
	v.SetDefault("metrics.worker_port", 8081)
}

// LoadConfig reads config.yml from the given paths (default "." and
// "./config"), then the environment. A missing file is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applySecrets(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applySecrets(cfg *Config) error {
	var s secrets
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	if s.SessionSecret != "" {
		cfg.Session.Secret = s.SessionSecret
	}
	if s.AdminPassword != "" {
		cfg.Admin.Password = s.AdminPassword
	}
	if s.DatabasePassword != "" {
		cfg.Database.Password = s.DatabasePassword
	}
	if s.DatabaseURL != "" {
		cfg.Database.URL = s.DatabaseURL
	}
	if s.SMTPPassword != "" {
		cfg.Email.Password = s.SMTPPassword
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Session.Secret == "" {
		return errors.New("session secret must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Admin.Email == "" || c.Admin.Password == "" {
		return errors.New("admin credentials must not be empty")
	}
	seen := make(map[int64]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %d", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
