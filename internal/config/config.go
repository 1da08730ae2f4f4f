package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Booking  BookingConfig
	Worker   WorkerConfig
	Metrics  MetricsConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AppConfig は実行環境とログレベル
type AppConfig struct {
	Env      string
	LogLevel string
}

// StoreConfig は永続化の方式。memory はローカル確認用
type StoreConfig struct {
	Driver         string
	MigrationsPath string
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

// AMQPConfig は空き状況通知の送信先。URL が空なら送信しない
type AMQPConfig struct {
	URL      string
	Exchange string
}

// BookingConfig は予約処理のパラメータ
type BookingConfig struct {
	PendingTTL    time.Duration
	LockTTL       time.Duration
	LockRetries   int
	LockRetryWait time.Duration
}

// WorkerConfig はバックグラウンド処理の設定
type WorkerConfig struct {
	SweepInterval     time.Duration
	ReconcileSchedule string
}

// MetricsConfig は /metrics の Basic 認証。両方が空なら認証しない
type MetricsConfig struct {
	User     string
	Password string
}

// IsEnabled は認証が有効かどうかを返す
func (c *MetricsConfig) IsEnabled() bool {
	return c.User != "" && c.Password != ""
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Load は環境変数から設定を読み込む
// .env があれば先に読み込む（既存の環境変数は上書きしない）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:         getEnv("STORE_DRIVER", StoreDriverPostgres),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "class_reservation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			URL:      getEnv("REDIS_URL", ""),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "class.availability"),
		},
		Booking: BookingConfig{
			PendingTTL:    getDurationEnv("BOOKING_PENDING_TTL", 15*time.Minute),
			LockTTL:       getDurationEnv("BOOKING_LOCK_TTL", 10*time.Second),
			LockRetries:   getIntEnv("BOOKING_LOCK_RETRIES", 3),
			LockRetryWait: getDurationEnv("BOOKING_LOCK_RETRY_WAIT", 100*time.Millisecond),
		},
		Worker: WorkerConfig{
			SweepInterval:     getDurationEnv("WORKER_SWEEP_INTERVAL", time.Minute),
			ReconcileSchedule: getEnv("WORKER_RECONCILE_SCHEDULE", "@every 10m"),
		},
		Metrics: MetricsConfig{
			User:     os.Getenv("METRICS_USER"),
			Password: os.Getenv("METRICS_PASSWORD"),
		},
	}

	// PaaS 形式の接続URLがあれば個別設定を上書きする
	if cfg.Database.URL != "" {
		if !cfg.Database.applyURL(cfg.Database.URL) {
			cfg.Database.URL = ""
		}
	}
	if cfg.Redis.URL != "" {
		if !cfg.Redis.applyURL(cfg.Redis.URL) {
			cfg.Redis.URL = ""
		}
	}
	return cfg
}

func (c *DatabaseConfig) applyURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			c.Password = pass
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	c.SSLMode = u.Query().Get("sslmode")
	if c.SSLMode == "" {
		c.SSLMode = "require"
	}
	return true
}

func (c *RedisConfig) applyURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		if pass, ok := u.User.Password(); ok {
			c.Password = pass
		}
	}
	return true
}

// DSN はPostgreSQL接続文字列を返す。DATABASE_URL があればそれを優先する
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsProduction は本番環境かどうか
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
