package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

var (
	ErrMissingSigningKey    = errors.New("signing key is required")
	ErrMissingStoreEndpoint = errors.New("store endpoint is required")
	ErrUnknownStorage       = errors.New("unknown storage driver")
	ErrInvalidTokenLength   = errors.New("token length must be positive")
)

type Config struct {
	Env         string `yaml:"env" env:"APP_ENV"`
	TokenLength int    `yaml:"token_length" env:"TOKEN_LENGTH"`
	SigningKey  string `yaml:"signing_key" env:"HMAC_KEY"`
	Storage     string `yaml:"storage" env:"STORAGE_DRIVER"`
	HTTPServer  `yaml:"http_server"`
	Redis       `yaml:"redis"`
	Postgres    `yaml:"postgres"`
}

type HTTPServer struct {
	Port           int           `yaml:"port" env:"HTTP_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file" env:"TLS_CERT_FILE"`
	KeyFile        string        `yaml:"key_file" env:"TLS_KEY_FILE"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Redis struct {
	URL          string        `yaml:"url" env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ScanCount    int           `yaml:"scan_count"`
}

var defaultRedis = Redis{
	PoolSize:     10,
	DialTimeout:  5 * time.Second,
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
	ScanCount:    100,
}

type Postgres struct {
	User            string        `yaml:"user" env:"POSTGRES_USER"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST"`
	Port            int           `yaml:"port" env:"POSTGRES_PORT"`
	DB              string        `yaml:"db" env:"POSTGRES_DB"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Load builds the configuration from defaults, the optional YAML file at path,
// an optional .env file in the working directory and the process environment,
// in increasing order of precedence.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: failed to load .env file: %w", op, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse environment: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.SigningKey == "" {
		return ErrMissingSigningKey
	}

	if c.TokenLength <= 0 {
		return ErrInvalidTokenLength
	}

	switch c.Storage {
	case StorageRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%w: redis url", ErrMissingStoreEndpoint)
		}
	case StoragePostgres:
		if c.Postgres.Host == "" || c.Postgres.DB == "" {
			return fmt.Errorf("%w: postgres host and db", ErrMissingStoreEndpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.TokenLength = 10
	cfg.Storage = StorageRedis
	cfg.HTTPServer = defaultHTTPServer
	cfg.Redis = defaultRedis
	cfg.Postgres = defaultPostgres
}
