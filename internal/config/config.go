package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット（管理APIの認証）

	StripeSecretKey     string // Stripe APIキー
	StripeWebhookSecret string // Webhook署名シークレット（空なら検証なし）

	// 署名検証をヘッダーでバイパスできる開発専用フラグ。
	// 本番（GO_ENV=production）では設定されていても無効。
	WebhookDevBypass bool

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		WebhookDevBypass: os.Getenv("WEBHOOK_DEV_BYPASS") == "true",

		GoEnv: os.Getenv("GO_ENV"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	if cfg.GoEnv == "production" {
		//本番でバイパスは許可しない
		cfg.WebhookDevBypass = false
	}

	return cfg, nil
}
