package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string
	LogLevel     string
	StoreBackend string

	DBURL      string
	DBMaxConns int

	DynamoDBWalletsTable string

	// RedisURL selects the shared rate limiter; empty keeps the limiter in process.
	RedisURL string

	Admission AdmissionConfig

	OperationTimeout time.Duration
	LockTimeout      time.Duration
	MaxCASRetries    int
	ShutdownTimeout  time.Duration
}

type AdmissionConfig struct {
	MaxConcurrent   int
	Wait            time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
	Workers         int
	QueueSize       int
}

var defaults = map[string]any{
	"APP_PORT":                    "8080",
	"LOG_LEVEL":                   "info",
	"STORE_BACKEND":               BackendPostgres,
	"DB_USER":                     "postgres",
	"DB_PASSWORD":                 "postgres",
	"DB_HOST":                     "localhost",
	"DB_PORT":                     "5432",
	"DB_NAME":                     "wallets",
	"DB_MAX_CONNS":                8,
	"DYNAMODB_WALLETS_TABLE_NAME": "wallets",
	"REDIS_URL":                   "",
	"ADMISSION_MAX_CONCURRENT":    64,
	"ADMISSION_WAIT":              "0s",
	"RATE_LIMIT":                  1000,
	"RATE_LIMIT_WINDOW":           "1s",
	"WORKER_POOL_SIZE":            32,
	"WORKER_QUEUE_SIZE":           128,
	"OPERATION_TIMEOUT":           "2s",
	"LOCK_TIMEOUT":                "2s",
	"MAX_CAS_RETRIES":             3,
	"SHUTDOWN_TIMEOUT":            "10s",
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load("config.env")

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	r := reader{v: v}
	cfg := &Config{
		Port:         v.GetString("APP_PORT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		StoreBackend: v.GetString("STORE_BACKEND"),
		DBURL: fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"),
			v.GetString("DB_HOST"),
			v.GetString("DB_PORT"),
			v.GetString("DB_NAME"),
		),
		DBMaxConns:           r.int("DB_MAX_CONNS"),
		DynamoDBWalletsTable: v.GetString("DYNAMODB_WALLETS_TABLE_NAME"),
		RedisURL:             v.GetString("REDIS_URL"),
		Admission: AdmissionConfig{
			MaxConcurrent:   r.int("ADMISSION_MAX_CONCURRENT"),
			Wait:            r.duration("ADMISSION_WAIT"),
			RateLimit:       r.int("RATE_LIMIT"),
			RateLimitWindow: r.duration("RATE_LIMIT_WINDOW"),
			Workers:         r.int("WORKER_POOL_SIZE"),
			QueueSize:       r.int("WORKER_QUEUE_SIZE"),
		},
		OperationTimeout: r.duration("OPERATION_TIMEOUT"),
		LockTimeout:      r.duration("LOCK_TIMEOUT"),
		MaxCASRetries:    r.int("MAX_CAS_RETRIES"),
		ShutdownTimeout:  r.duration("SHUTDOWN_TIMEOUT"),
	}
	if r.err != nil {
		return nil, fmt.Errorf("failed to load config: %w", r.err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendDynamoDB, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s; got %q",
			BackendPostgres, BackendDynamoDB, BackendMemory, c.StoreBackend)
	}
	if c.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	positive := []struct {
		key   string
		value int64
	}{
		{"DB_MAX_CONNS", int64(c.DBMaxConns)},
		{"ADMISSION_MAX_CONCURRENT", int64(c.Admission.MaxConcurrent)},
		{"WORKER_POOL_SIZE", int64(c.Admission.Workers)},
		{"MAX_CAS_RETRIES", int64(c.MaxCASRetries)},
		{"RATE_LIMIT_WINDOW", int64(c.Admission.RateLimitWindow)},
		{"OPERATION_TIMEOUT", int64(c.OperationTimeout)},
		{"LOCK_TIMEOUT", int64(c.LockTimeout)},
		{"SHUTDOWN_TIMEOUT", int64(c.ShutdownTimeout)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.key)
		}
	}

	if c.Admission.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative")
	}
	if c.Admission.QueueSize < 0 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must not be negative")
	}
	if c.Admission.Wait < 0 {
		return fmt.Errorf("ADMISSION_WAIT must not be negative")
	}
	return nil
}

// reader keeps the first conversion error so load can report it once.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) int(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (r *reader) duration(key string) time.Duration {
	d, err := cast.ToDurationE(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return d
}
