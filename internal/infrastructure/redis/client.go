package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config はRedis接続設定
type Config struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr はホストとポートを結合したアドレスを返す
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewClient はRedisクライアントを作成し接続を確認する
// URL が指定されている場合は個別の設定より優先する
func NewClient(cfg *Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URLの解析に失敗しました: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := Ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Ping はRedis接続を確認する
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("Redis接続に失敗しました: %w", err)
	}
	return nil
}
