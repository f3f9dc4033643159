package common

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/receiptradar/constants"
)

const EnvPrefix = "RADAR"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	OCR      OCRConfig
	Vision   VisionConfig
	Pricing  PricingConfig
	Daemon   DaemonConfig
	LogLevel string
}

// DatabaseConfig selects and tunes the price-history backend.
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// RedisConfig enables the store comparison cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type OCRConfig struct {
	Tesseract     string
	Lang          string
	TessdataDir   string
	PSM           int
	MinConfidence float64
}

// VisionConfig configures the optional vision fallback parser.
type VisionConfig struct {
	Provider string // none | openai | gemini
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

type PricingConfig struct {
	SavingsLookbackDays int
	HistoryDays         int
	MinPointConfidence  float64
}

// DaemonConfig drives cmd/receiptd.
type DaemonConfig struct {
	InboxDir       string
	OutboxDir      string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	Debounce       time.Duration
	GRPCAddr       string
	MetricsAddr    string
	StoreID        string
	UserID         string
}

// LoadConfig reads .env when present, then RADAR_* environment variables over defaults.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom is LoadConfig with an explicit dotenv path. A missing file is not an error.
func LoadConfigFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, NewAppError(CodeConfig, "load "+envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString("db.driver")),
			DSN:              v.GetString("db.url"),
			SQLitePath:       v.GetString("db.sqlite_path"),
			MaxConns:         v.GetInt32("db.max_conns"),
			MinConns:         v.GetInt32("db.min_conns"),
			MaxConnLifetime:  v.GetDuration("db.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("db.max_conn_idle_time"),
			DialTimeout:      v.GetDuration("db.dial_timeout"),
			StatementTimeout: v.GetDuration("db.statement_timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		OCR: OCRConfig{
			Tesseract:     v.GetString("ocr.tesseract"),
			Lang:          v.GetString("ocr.lang"),
			TessdataDir:   v.GetString("ocr.tessdata_dir"),
			PSM:           v.GetInt("ocr.psm"),
			MinConfidence: v.GetFloat64("ocr.min_confidence"),
		},
		Vision: VisionConfig{
			Provider: strings.ToLower(v.GetString("vision.provider")),
			Model:    v.GetString("vision.model"),
			APIKey:   v.GetString("vision.api_key"),
			BaseURL:  v.GetString("vision.base_url"),
			Timeout:  v.GetDuration("vision.timeout"),
		},
		Pricing: PricingConfig{
			SavingsLookbackDays: v.GetInt("pricing.lookback_days"),
			HistoryDays:         v.GetInt("pricing.history_days"),
			MinPointConfidence:  v.GetFloat64("pricing.min_point_confidence"),
		},
		Daemon: DaemonConfig{
			InboxDir:       v.GetString("daemon.inbox"),
			OutboxDir:      v.GetString("daemon.outbox"),
			Workers:        v.GetInt("daemon.workers"),
			QueueSize:      v.GetInt("daemon.queue_size"),
			ProcessTimeout: v.GetDuration("daemon.process_timeout"),
			Debounce:       v.GetDuration("daemon.debounce"),
			GRPCAddr:       v.GetString("daemon.grpc_addr"),
			MetricsAddr:    v.GetString("daemon.metrics_addr"),
			StoreID:        v.GetString("daemon.store_id"),
			UserID:         v.GetString("daemon.user_id"),
		},
		LogLevel: v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.sqlite_path", "receiptradar.db")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("db.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("db.dial_timeout", 3*time.Second)
	v.SetDefault("db.statement_timeout", 10*time.Second)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 15*time.Minute)
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.psm", 4)
	v.SetDefault("ocr.min_confidence", constants.DefaultMinFragmentConfidence)
	v.SetDefault("vision.provider", "none")
	v.SetDefault("vision.timeout", 45*time.Second)
	v.SetDefault("pricing.lookback_days", 30)
	v.SetDefault("pricing.history_days", 90)
	v.SetDefault("pricing.min_point_confidence", 0.0)
	v.SetDefault("daemon.inbox", "./inbox")
	v.SetDefault("daemon.outbox", "./outbox")
	v.SetDefault("daemon.workers", 2)
	v.SetDefault("daemon.queue_size", 64)
	v.SetDefault("daemon.process_timeout", 2*time.Minute)
	v.SetDefault("daemon.debounce", 500*time.Millisecond)
	v.SetDefault("daemon.grpc_addr", ":8090")
	v.SetDefault("daemon.metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	val := NewValidator()
	switch c.Database.Driver {
	case "postgres":
		val.Field("RADAR_DB_URL", c.Database.DSN, Required)
	case "sqlite":
		val.Field("RADAR_DB_SQLITE_PATH", c.Database.SQLitePath, Required)
	default:
		val.Field("RADAR_DB_DRIVER", c.Database.Driver, oneOf("postgres", "sqlite"))
	}
	switch c.Vision.Provider {
	case "none", "":
	case "openai", "gemini":
		val.Field("RADAR_VISION_API_KEY", c.Vision.APIKey, Required)
	default:
		val.Field("RADAR_VISION_PROVIDER", c.Vision.Provider, oneOf("none", "openai", "gemini"))
	}
	val.Field("RADAR_PRICING_LOOKBACK_DAYS", c.Pricing.SavingsLookbackDays, PositiveInt)
	val.Field("RADAR_DAEMON_WORKERS", c.Daemon.Workers, PositiveInt)
	if c.Daemon.StoreID != "" {
		val.Field("RADAR_DAEMON_STORE_ID", c.Daemon.StoreID, UUID)
		val.Field("RADAR_DAEMON_USER_ID", c.Daemon.UserID, UUID)
	}
	if err := val.Err(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}

func oneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return &ValidationError{Field: fieldName, Value: value, Message: "must be one of " + strings.Join(allowed, ", ")}
	}
}
