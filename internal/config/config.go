// Package config загружает настройки сервиса: YAML-файл, затем переменные
// окружения, затем проверка.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Бэкенды хранилища.
const (
	BackendInMemory = "in-memory"
	BackendPostgres = "postgres"
	BackendSQL      = "sql"
	BackendBadger   = "badger"
)

// ErrUnknownBackend - бэкенд, которого сервис не знает.
var ErrUnknownBackend = errors.New("unknown storage backend")

type Config struct {
	UserfacingListenAddress string `yaml:"userfacing_listen_address" validate:"required,hostname_port"`
	AdminListenAddress      string `yaml:"admin_listen_address" validate:"required,hostname_port"`
	MetricsAddress          string `yaml:"metrics_address" validate:"required,hostname_port"`
	// HumanLogs переключает логи с JSON на текст.
	HumanLogs    bool          `yaml:"human_logs"`
	MaxBodySize  int64         `yaml:"max_body_size" validate:"gt=0"`
	SeedMockData bool          `yaml:"seed_mock_data"`
	Storage      StorageConfig `yaml:"storage"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"required"`
	// SQLDriver используется только бэкендом sql.
	SQLDriver   string        `yaml:"sql_driver" validate:"omitempty,oneof=postgres pgx sqlite3"`
	DSN         string        `yaml:"dsn" validate:"required_if=Backend postgres,required_if=Backend sql"`
	BadgerPath  string        `yaml:"badger_path" validate:"required_if=Backend badger"`
	PoolSize    int           `yaml:"pool_size" validate:"gte=1"`
	QueueSize   int           `yaml:"queue_size" validate:"gte=0"`
	ConnTimeout time.Duration `yaml:"conn_timeout" validate:"gte=0"`
	AutoMigrate bool          `yaml:"auto_migrate"`
}

// Default возвращает конфигурацию, с которой сервис стартует без файла.
func Default() Config {
	return Config{
		UserfacingListenAddress: ":8080",
		AdminListenAddress:      ":8081",
		MetricsAddress:          ":9090",
		MaxBodySize:             65536,
		SeedMockData:            true,
		Storage: StorageConfig{
			Backend:     BackendInMemory,
			SQLDriver:   "postgres",
			BadgerPath:  "data/badger",
			PoolSize:    10,
			QueueSize:   100,
			ConnTimeout: 5 * time.Second,
			AutoMigrate: true,
		},
	}
}

// Load читает path поверх значений по умолчанию и применяет окружение.
// Пустой path - только значения по умолчанию и окружение.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.ApplyEnv(getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv переопределяет порт и строку подключения из PORT и DATABASE_URL.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		return
	}
	if port := getenv("PORT"); port != "" {
		c.UserfacingListenAddress = ":" + port
	}
	if dsn := getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
	}
}

// Validate проверяет значения полей.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendInMemory, BackendPostgres, BackendSQL, BackendBadger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
