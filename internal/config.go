package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Site          SiteConfig          `mapstructure:"site"`
	Mail          MailConfig          `mapstructure:"mail"`
	Storage       StorageConfig       `mapstructure:"storage"`
	AuditStream   AuditStreamConfig   `mapstructure:"audit_stream"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres mysql sqlite"`
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type SecurityConfig struct {
	BCryptCost       int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	SessionCookie    string        `mapstructure:"session_cookie"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	SecureCookies    bool          `mapstructure:"secure_cookies"`
	ResetTokenSecret string        `mapstructure:"reset_token_secret" validate:"required,min=32"`
	ResetTokenTTL    time.Duration `mapstructure:"reset_token_ttl"`
	InviteTokenTTL   time.Duration `mapstructure:"invite_token_ttl"`
	TokenAttempts    int           `mapstructure:"token_attempts"`
}

type SiteConfig struct {
	Domain   string `mapstructure:"domain"`
	Name     string `mapstructure:"name"`
	Timezone string `mapstructure:"timezone"`
}

type MailConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=smtp log"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type StorageConfig struct {
	Provider      string `mapstructure:"provider" validate:"oneof=local cloudinary"`
	Dir           string `mapstructure:"dir"`
	MediaURL      string `mapstructure:"media_url"`
	CloudinaryURL string `mapstructure:"cloudinary_url"`
}

type AuditStreamConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values left by a sparse config file.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Security.SessionCookie == "" {
		c.Security.SessionCookie = "sessionid"
	}
	if c.Security.SessionTTL == 0 {
		c.Security.SessionTTL = 14 * 24 * time.Hour
	}
	if c.Security.ResetTokenTTL == 0 {
		c.Security.ResetTokenTTL = 3 * 24 * time.Hour
	}
	if c.Security.InviteTokenTTL == 0 {
		c.Security.InviteTokenTTL = 7 * 24 * time.Hour
	}
	if c.Security.TokenAttempts == 0 {
		c.Security.TokenAttempts = 5
	}
	if c.Site.Domain == "" {
		c.Site.Domain = "localhost"
	}
	if c.Site.Name == "" {
		c.Site.Name = "Asset Management"
	}
	if c.Site.Timezone == "" {
		c.Site.Timezone = "Asia/Karachi"
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = "log"
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = "local"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "media"
	}
	if c.Storage.MediaURL == "" {
		c.Storage.MediaURL = "/media/"
	}
	if c.AuditStream.Topic == "" {
		c.AuditStream.Topic = "asset-management.audit"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvAsInt("PORT", 8000),
			BaseURL: getEnv("BASE_URL", ""),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Source:       getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			AutoMigrate:  getEnv("DB_AUTO_MIGRATE", "false") == "true",
		},
		Security: SecurityConfig{
			BCryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			SessionCookie:    getEnv("SESSION_COOKIE", "sessionid"),
			SecureCookies:    getEnv("SECURE_COOKIES", "true") == "true",
			ResetTokenSecret: getEnv("RESET_TOKEN_SECRET", ""),
			TokenAttempts:    getEnvAsInt("TOKEN_ATTEMPTS", 5),
		},
		Site: SiteConfig{
			Domain:   getEnv("SITE_DOMAIN", ""),
			Name:     getEnv("SITE_NAME", ""),
			Timezone: getEnv("SITE_TIMEZONE", ""),
		},
		Mail: MailConfig{
			Provider: getEnv("MAIL_PROVIDER", "smtp"),
			Host:     getEnv("MAIL_HOST", ""),
			Port:     getEnvAsInt("MAIL_PORT", 587),
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", ""),
			FromName: getEnv("MAIL_FROM_NAME", ""),
		},
		Storage: StorageConfig{
			Provider:      getEnv("STORAGE_PROVIDER", "local"),
			Dir:           getEnv("STORAGE_DIR", "media"),
			MediaURL:      getEnv("MEDIA_URL", "/media/"),
			CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
		},
		AuditStream: AuditStreamConfig{
			Enabled: getEnv("AUDIT_STREAM_ENABLED", "false") == "true",
			Topic:   getEnv("AUDIT_STREAM_TOPIC", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	if brokers := getEnv("AUDIT_STREAM_BROKERS", ""); brokers != "" {
		cfg.AuditStream.Brokers = strings.Split(brokers, ",")
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Site.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("site config: %v", err))
	}

	if err := c.Mail.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("mail config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.AuditStream.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("audit stream config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.ResetTokenSecret) < 32 {
		return errors.New("reset token secret must be at least 32 characters")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt_cost must be between 4 and 31")
	}
	if c.TokenAttempts < 1 {
		return errors.New("token_attempts must be at least 1")
	}
	return nil
}

func (c *SiteConfig) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %s: %w", c.Timezone, err)
	}
	return nil
}

func (c *MailConfig) Validate() error {
	switch c.Provider {
	case "log":
		return nil
	case "smtp":
		if c.Host == "" || c.Port == 0 {
			return errors.New("host and port are required for smtp")
		}
		if c.From == "" {
			return errors.New("from is required for smtp")
		}
		return nil
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
}

func (c *StorageConfig) Validate() error {
	switch c.Provider {
	case "local":
		if c.Dir == "" {
			return errors.New("dir is required for local storage")
		}
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return errors.New("cloudinary_url is required for cloudinary storage")
		}
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	return nil
}

func (c *AuditStreamConfig) Validate() error {
	if c.Enabled && len(c.Brokers) == 0 {
		return errors.New("brokers are required when the audit stream is enabled")
	}
	return nil
}
