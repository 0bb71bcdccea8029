// Package server - HTTP surface of the catalog editor
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/alwitt/catalog/db"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config catalog server runtime configuration
type Config struct {
	// AppEnv deployment environment
	AppEnv string `envconfig:"APP_ENV" default:"development" validate:"required,oneof=development test production"`
	// AppAddr server listen address
	AppAddr string `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	// LogLevel application log level
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"required,oneof=debug info warn error fatal"`
	// HTTPLogLevel level of the per-request access log
	HTTPLogLevel string `envconfig:"HTTP_LOG_LEVEL" default:"info" validate:"omitempty,oneof=warn info debug"`
	// RequestIDHeader header carrying a caller provided request ID, one is generated if unset
	RequestIDHeader string `envconfig:"REQUEST_ID_HEADER" default:"X-Request-ID"`

	// DBDialect persistence backend
	DBDialect string `envconfig:"DB_DIALECT" default:"sqlite" validate:"required,oneof=sqlite postgres"`
	// DBDSN sqlite file path, or postgres connection string
	DBDSN string `envconfig:"DB_DSN" default:"/tmp/catalog.db" validate:"required"`
	// DBLogLevel GORM log level
	DBLogLevel string `envconfig:"DB_LOG_LEVEL" default:"warn" validate:"required,oneof=silent error warn info"`

	// DefaultPageSize list page size when a request does not give one
	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"20" validate:"gt=0,ltefield=MaxPageSize"`
	// MaxPageSize largest list page size a request may ask for
	MaxPageSize int `envconfig:"MAX_PAGE_SIZE" default:"100" validate:"gt=0,lte=500"`

	// SessionTTL idle time after which a session is dropped
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m" validate:"gte=1s"`
	// RateLimitPerMinute requests allowed per client IP per minute
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600" validate:"gt=0"`
	// RequestTimeout upper bound on processing one editor request
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gte=1s"`
}

// LoadConfig read the configuration from the environment
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration [%w]", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate check the configuration values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration [%w]", err)
	}
	return nil
}

// IsProduction whether the server runs in production
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AppLogLevel the apex log level
func (c *Config) AppLogLevel() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// GORMLogLevel the GORM log level
func (c *Config) GORMLogLevel() logger.LogLevel {
	switch strings.ToLower(c.DBLogLevel) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// Dialector the GORM dialector of the configured backend
func (c *Config) Dialector() gorm.Dialector {
	if c.DBDialect == "postgres" {
		return db.GetPostgresDialector(c.DBDSN)
	}
	return db.GetSqliteDialector(c.DBDSN)
}
