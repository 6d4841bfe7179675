package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリ全体の設定。
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"bookshop"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	JWTSecret string `env:"JWT_SECRET"`

	// 決済ゲートウェイ（ShurjoPay互換）
	SPEndpoint  string `env:"SP_ENDPOINT"`
	SPUsername  string `env:"SP_USERNAME"`
	SPPassword  string `env:"SP_PASSWORD"`
	SPPrefix    string `env:"SP_PREFIX" envDefault:"SP"`
	SPReturnURL string `env:"SP_RETURN_URL"`
}

// Load は.envと環境変数から設定を読み込む。
func Load() (Config, error) {
	// .envは無くてもよい（本番は環境変数だけで動かす）
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SPEndpoint == "" {
		return Config{}, fmt.Errorf("SP_ENDPOINT is required")
	}
	if cfg.SPUsername == "" {
		return Config{}, fmt.Errorf("SP_USERNAME is required")
	}
	if cfg.SPPassword == "" {
		return Config{}, fmt.Errorf("SP_PASSWORD is required")
	}
	if cfg.SPReturnURL == "" {
		return Config{}, fmt.Errorf("SP_RETURN_URL is required")
	}

	return cfg, nil
}
