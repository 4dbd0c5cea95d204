package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"rqmstats/database"
	"rqmstats/internal/infrastructure/source"
)

// DefaultConfigPath файл конфигурации, который ищут утилиты по умолчанию
const DefaultConfigPath = "config.yaml"

// Config конфигурация утилит загрузки и API
type Config struct {
	// Учетные данные сервера заданий. Передаются только адаптеру источника.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Локальное хранилище срезов
	Store StoreConfig `yaml:"store"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Логирование
	Logging LoggingConfig `yaml:"logging"`

	// Метрики
	Metrics MetricsConfig `yaml:"metrics"`
}

// CredentialsConfig подключение к MySQL/MariaDB
type CredentialsConfig struct {
	MySQLHost      string        `yaml:"mysql_host"`
	MySQLPort      int           `yaml:"mysql_port"`
	MySQLUser      string        `yaml:"mysql_user"`
	MySQLPassword  string        `yaml:"mysql_password"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// Ожидание ответа на запрос. Ноль - без ограничения.
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// StoreConfig хранилище SQLite
type StoreConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig HTTP сервер
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// LoggingConfig логирование
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig метрики
type MetricsConfig struct {
	// Файл для textfile collector node-exporter. Пусто - не писать.
	TextfilePath string `yaml:"textfile_path"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML файл
// (если path не пуст), затем переменные окружения RQM_*.
func LoadConfig(path string) (*Config, error) {
	cfg := GetDefaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault загружает DefaultConfigPath, если он существует, иначе только окружение
func LoadDefault() (*Config, error) {
	path := getEnv("RQM_CONFIG", DefaultConfigPath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	return LoadConfig(path)
}

func (c *Config) applyEnv() {
	c.Credentials.MySQLHost = getEnv("RQM_MYSQL_HOST", c.Credentials.MySQLHost)
	c.Credentials.MySQLPort = getEnvInt("RQM_MYSQL_PORT", c.Credentials.MySQLPort)
	c.Credentials.MySQLUser = getEnv("RQM_MYSQL_USER", c.Credentials.MySQLUser)
	c.Credentials.MySQLPassword = getEnv("RQM_MYSQL_PASSWORD", c.Credentials.MySQLPassword)
	c.Credentials.ConnectTimeout = getEnvDuration("RQM_MYSQL_TIMEOUT", c.Credentials.ConnectTimeout)
	c.Credentials.ReadTimeout = getEnvDuration("RQM_MYSQL_READ_TIMEOUT", c.Credentials.ReadTimeout)

	c.Store.Path = getEnv("RQM_DB_PATH", c.Store.Path)

	c.Server.Port = getEnv("RQM_PORT", c.Server.Port)
	c.Server.RateLimitPerSec = getEnvFloat("RQM_RATE_LIMIT", c.Server.RateLimitPerSec)

	c.Logging.Level = getEnv("RQM_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("RQM_LOG_FORMAT", c.Logging.Format)

	c.Metrics.TextfilePath = getEnv("RQM_METRICS_TEXTFILE", c.Metrics.TextfilePath)
}

// SourceConfig параметры подключения для адаптера источника
func (c *Config) SourceConfig() source.Config {
	return source.Config{
		Host:        c.Credentials.MySQLHost,
		Port:        c.Credentials.MySQLPort,
		User:        c.Credentials.MySQLUser,
		Password:    c.Credentials.MySQLPassword,
		Timeout:     c.Credentials.ConnectTimeout,
		ReadTimeout: c.Credentials.ReadTimeout,
	}
}

// DBConfig параметры пула хранилища
func (c *Config) DBConfig() database.DBConfig {
	return database.DBConfig{
		MaxOpenConns:    c.Store.MaxOpenConns,
		MaxIdleConns:    c.Store.MaxIdleConns,
		ConnMaxLifetime: c.Store.ConnMaxLifetime,
	}
}

// Redacted возвращает копию без пароля для вывода
func (c *Config) Redacted() Config {
	out := *c
	if out.Credentials.MySQLPassword != "" {
		out.Credentials.MySQLPassword = "***"
	}
	return out
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
