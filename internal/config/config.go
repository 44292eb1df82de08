// config предоставляет структуру конфигурации catalog-service
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы основного хранилища.
const (
	DriverPostgres = "postgres"
	DriverMock     = "mock"
)

// Config - корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env          string         `yaml:"env"     env:"ENV"        env-default:"local"`
	HTTP         HTTPConfig     `yaml:"http"`
	GRPC         GRPCConfig     `yaml:"grpc"`
	Storage      StorageConfig  `yaml:"storage"`
	DB           DBConfig       `yaml:"db"`
	Redis        RedisConfig    `yaml:"redis"`
	LimitsConfig LimitsConfig   `yaml:"limits"`
	Fallback     FallbackConfig `yaml:"fallback"`
	Images       ImagesConfig   `yaml:"images"`
	Timeouts     TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig - таймауты сервиса.
type TimeoutConfig struct {
	// Service - бюджет на обработку одного запроса (HTTP и gRPC).
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	// Storage - бюджет одной попытки обращения к основному хранилищу.
	Storage time.Duration `yaml:"storage" env:"STORAGE_TIMEOUT" env-default:"2s"`
}

// GRPCConfig - сетевые настройки служебного gRPC-сервера (health, reflection).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50053"`
	// ProbeInterval - период проверки основного хранилища для health-статуса.
	ProbeInterval time.Duration `yaml:"probe_interval" env:"GRPC_PROBE_INTERVAL" env-default:"15s"`
}

// HTTPConfig - сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	// CORSOrigins - разрешённые источники для браузерных клиентов (пусто - CORS выключен).
	CORSOrigins []string `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-separator:","`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// StorageConfig - выбор основного хранилища.
type StorageConfig struct {
	// Driver - postgres или mock.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mock"`
	// Seed - зерно mock-набора данных.
	Seed uint64 `yaml:"seed" env:"MOCK_SEED" env-default:"1"`
}

// DBConfig - настройки подключения к базе данных.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
	// SeedFromMock - при старте выполнить upsert mock-набора в таблицу content.
	SeedFromMock bool `yaml:"seed_from_mock" env:"DB_SEED_FROM_MOCK" env-default:"false"`
}

// RedisConfig - кэш Total. Пустой URL отключает кэш.
type RedisConfig struct {
	URL    string        `yaml:"url"    env:"REDIS_URL"`
	Prefix string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"catalog:total:"`
	TTL    time.Duration `yaml:"ttl"    env:"REDIS_TTL"    env-default:"1m"`
	// WarmInterval - период прогрева кэша для фильтров по умолчанию (0 - без прогрева).
	WarmInterval time.Duration `yaml:"warm_interval" env:"REDIS_WARM_INTERVAL" env-default:"0s"`
}

// LimitsConfig - серверные лимиты на выдачу.
type LimitsConfig struct {
	// Применяется при запросе с page_size=0.
	Default int `yaml:"default" env:"DEFAULT_PAGE_SIZE" env-default:"12"`
	// Верхняя граница для page_size.
	Max int `yaml:"max" env:"MAX_PAGE_SIZE" env-default:"100"`
}

// FallbackConfig - повторы к основному хранилищу и переход на mock-данные.
type FallbackConfig struct {
	// Disabled отключает переход на mock-данные (нулевое значение - включён).
	Disabled bool `yaml:"disabled" env:"FALLBACK_DISABLED"`
	// Retries - число повторов после первой неудачной попытки.
	Retries        uint64        `yaml:"retries"         env:"FALLBACK_RETRIES"         env-default:"2"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"FALLBACK_INITIAL_BACKOFF" env-default:"100ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff"     env:"FALLBACK_MAX_BACKOFF"     env-default:"1s"`
	// MockLatency - искусственная задержка mock-данных.
	MockLatency time.Duration `yaml:"mock_latency" env:"FALLBACK_MOCK_LATENCY" env-default:"0s"`
}

// ImagesConfig - оптимизация URL изображений в ответах.
type ImagesConfig struct {
	// Disabled отключает переписывание URL (нулевое значение - включено).
	Disabled   bool   `yaml:"disabled"    env:"IMAGES_DISABLED"`
	Provider   string `yaml:"provider"    env:"IMAGES_PROVIDER"    env-default:"picsum"`
	BaseURL    string `yaml:"base_url"    env:"IMAGES_BASE_URL"`
	Quality    int    `yaml:"quality"     env:"IMAGES_QUALITY"     env-default:"80"`
	Format     string `yaml:"format"      env:"IMAGES_FORMAT"      env-default:"auto"`
	EnableCrop bool   `yaml:"enable_crop" env:"IMAGES_ENABLE_CROP" env-default:"false"`
}

// MustLoad - обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	read := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", p, err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return read(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return read(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return read("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate - базовая валидация значений.
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMock:
	case DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for storage.driver=postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q", DriverPostgres, DriverMock)
	}
	if c.LimitsConfig.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}
	if c.LimitsConfig.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}
	if c.LimitsConfig.Default > c.LimitsConfig.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}
	if c.Fallback.InitialBackoff <= 0 || c.Fallback.MaxBackoff < c.Fallback.InitialBackoff {
		return fmt.Errorf("fallback backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be in [1,100]")
	}
	if c.Redis.URL != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be > 0")
	}
	if c.GRPC.ProbeInterval <= 0 {
		return fmt.Errorf("grpc.probe_interval must be > 0")
	}
	if c.Timeouts.Service <= 0 || c.Timeouts.Storage <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	return nil
}
