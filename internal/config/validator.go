package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate проверяет конфигурацию HTTP API и хранилища
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Server.Port == "" {
		errors = append(errors, "server port is required")
	} else {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid server port: %s", c.Server.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("server port must be between 1 and 65535, got %d", port))
		}
	}

	if c.Store.Path == "" {
		errors = append(errors, "store path is required")
	}

	// Валидация connection pooling
	if c.Store.MaxOpenConns < 0 {
		errors = append(errors, "store max open connections cannot be negative")
	}
	if c.Store.MaxOpenConns > 0 && c.Store.MaxIdleConns > c.Store.MaxOpenConns {
		errors = append(errors, "store max idle connections cannot be greater than max open connections")
	}
	if c.Store.ConnMaxLifetime != 0 && c.Store.ConnMaxLifetime < time.Second {
		errors = append(errors, "store connection max lifetime must be at least 1 second")
	}

	if c.Server.RateLimitPerSec < 0 {
		errors = append(errors, "rate limit cannot be negative")
	}
	if c.Server.RateLimitPerSec > 0 && c.Server.RateLimitBurst < 1 {
		errors = append(errors, "rate limit burst must be at least 1 when rate limiting is enabled")
	}

	// Валидация уровня логирования
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.Logging.Level != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.Logging.Level)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.Logging.Level, strings.Join(validLogLevels, ", ")))
		}
	}

	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (valid: json, text)", c.Logging.Format))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// ValidateCredentials проверяет параметры источника. Нужна только утилите загрузки.
func (c *Config) ValidateCredentials() error {
	var errors []string

	if c.Credentials.MySQLHost == "" {
		errors = append(errors, "credentials.mysql_host is required")
	}
	if c.Credentials.MySQLUser == "" {
		errors = append(errors, "credentials.mysql_user is required")
	}
	if c.Credentials.MySQLPort < 1 || c.Credentials.MySQLPort > 65535 {
		errors = append(errors, fmt.Sprintf("credentials.mysql_port must be between 1 and 65535, got %d", c.Credentials.MySQLPort))
	}
	if c.Credentials.ConnectTimeout < 0 {
		errors = append(errors, "credentials.connect_timeout cannot be negative")
	}
	if c.Credentials.ReadTimeout < 0 {
		errors = append(errors, "credentials.read_timeout cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Credentials: CredentialsConfig{
			MySQLPort:      3306,
			ConnectTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path:            "rqmData.db",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:            "8051",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitPerSec: 50,
			RateLimitBurst:  100,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}
