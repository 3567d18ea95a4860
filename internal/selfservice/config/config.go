// Package config loads the service configuration from YAML with selected
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "internal/selfservice/config/config.yaml"

// Notifier kinds.
const (
	NotifierKafka = "kafka"
	NotifierSMTP  = "smtp"
	NotifierLog   = "log"
)

type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	TenantDriver        string   `yaml:"TENANT_DRIVER"`
	TenantDSNTemplate   string   `yaml:"TENANT_DSN_TEMPLATE"`
	Tenants             []string `yaml:"TENANTS"`
	DBMaxOpenConns      int      `yaml:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns      int      `yaml:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime   string   `yaml:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime   string   `yaml:"DB_CONN_MAX_IDLE_TIME"`
	DBPingTimeout       string   `yaml:"DB_PING_TIMEOUT"`
	DBStartupWait       string   `yaml:"DB_STARTUP_WAIT"`
	BlobDir             string   `yaml:"BLOB_DIR"`
	MaxUploadBytes      int64    `yaml:"MAX_UPLOAD_BYTES"`
	KafkaBrokers        []string `yaml:"KAFKA_BROKERS"`
	Topic               string   `yaml:"TOPIC"`
	RelayGroupID        string   `yaml:"RELAY_GROUP_ID"`
	JWTSecret           string   `yaml:"JWT_SECRET"`
	TokenTTL            string   `yaml:"TOKEN_TTL"`
	RedisAddr           string   `yaml:"REDIS_ADDR"`
	LoginMaxAttempts    int      `yaml:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow         string   `yaml:"LOGIN_WINDOW"`
	Notifier            string   `yaml:"NOTIFIER"`
	SMTPHost            string   `yaml:"SMTP_HOST"`
	SMTPPort            int      `yaml:"SMTP_PORT"`
	SMTPUser            string   `yaml:"SMTP_USER"`
	SMTPPassword        string   `yaml:"SMTP_PASSWORD"`
	SMTPFrom            string   `yaml:"SMTP_FROM"`
	ShutdownGracePeriod string   `yaml:"SHUTDOWN_GRACE_PERIOD"`

	ConnMaxLifetime time.Duration `yaml:"-"`
	ConnMaxIdleTime time.Duration `yaml:"-"`
	PingTimeout     time.Duration `yaml:"-"`
	StartupWait     time.Duration `yaml:"-"`
	TokenLifetime   time.Duration `yaml:"-"`
	LoginWindowDur  time.Duration `yaml:"-"`
	ShutdownGrace   time.Duration `yaml:"-"`
}

// Load reads a .env file when present, then the YAML file at path, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("TENANT_DSN_TEMPLATE"); v != "" {
		c.TenantDSNTemplate = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTPPassword = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.GRPCPort == 0 {
		c.GRPCPort = 9090
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.TenantDriver == "" {
		c.TenantDriver = "postgres"
	}
	if c.TenantDriver != "postgres" && c.TenantDriver != "sqlite" {
		return fmt.Errorf("config: TENANT_DRIVER must be postgres or sqlite, got %q", c.TenantDriver)
	}
	if !strings.Contains(c.TenantDSNTemplate, "{tenant}") {
		return fmt.Errorf("config: TENANT_DSN_TEMPLATE must contain {tenant}")
	}
	if c.DBMaxOpenConns <= 0 {
		c.DBMaxOpenConns = 10
	}
	if c.DBMaxIdleConns <= 0 {
		c.DBMaxIdleConns = 2
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must be set")
	}
	if c.BlobDir == "" {
		c.BlobDir = "uploads"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.Topic == "" {
		c.Topic = "selfservice_events"
	}
	if c.RelayGroupID == "" {
		c.RelayGroupID = "selfservice-mail-relay"
	}
	if c.LoginMaxAttempts <= 0 {
		c.LoginMaxAttempts = 5
	}
	if c.Notifier == "" {
		c.Notifier = NotifierLog
	}
	switch c.Notifier {
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("config: NOTIFIER kafka requires KAFKA_BROKERS")
		}
	case NotifierSMTP:
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("config: NOTIFIER smtp requires SMTP_HOST and SMTP_FROM")
		}
	case NotifierLog:
	default:
		return fmt.Errorf("config: unknown NOTIFIER %q", c.Notifier)
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"DB_CONN_MAX_LIFETIME", c.DBConnMaxLifetime, 30 * time.Minute, &c.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", c.DBConnMaxIdleTime, 5 * time.Minute, &c.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", c.DBPingTimeout, 5 * time.Second, &c.PingTimeout},
		{"DB_STARTUP_WAIT", c.DBStartupWait, 30 * time.Second, &c.StartupWait},
		{"TOKEN_TTL", c.TokenTTL, 24 * time.Hour, &c.TokenLifetime},
		{"LOGIN_WINDOW", c.LoginWindow, 15 * time.Minute, &c.LoginWindowDur},
		{"SHUTDOWN_GRACE_PERIOD", c.ShutdownGracePeriod, 10 * time.Second, &c.ShutdownGrace},
	}
	for _, d := range durations {
		v, err := parseDurationDefault(d.raw, d.def)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
