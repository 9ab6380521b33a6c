package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int
	MaxIdleConns int
}

type ChainConfig struct {
	// RPCURL points at the payment network node, devnet by default.
	RPCURL string
	// PayerKey is the base58-encoded payer private key.
	PayerKey string
}

type AnalyticsConfig struct {
	TopK       int
	AnomalyK   float64
	MinSamples int
	Timezone   string
}

type InsightConfig struct {
	Model string
}

type Config struct {
	HTTPAddr     string
	DB           DBConfig
	Chain        ChainConfig
	Analytics    AnalyticsConfig
	Insight      InsightConfig
	DisplayRate  decimal.Decimal
	DisplayQuote string
	// MerchantLabels maps network addresses to display names,
	// "addr=Label,addr2=Label2".
	MerchantLabels string
}

func Load() (*Config, error) {
	// config.env is optional outside local development; real deployments set
	// the environment directly.
	_ = godotenv.Load(filepath.Join("config.env"))

	db, err := loadDB()
	if err != nil {
		return nil, err
	}

	rate, err := decimal.NewFromString(envOr("DISPLAY_RATE", "150"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_RATE: %w", err)
	}

	topK, err := envIntOr("ANALYTICS_TOP_K", 5)
	if err != nil {
		return nil, err
	}
	minSamples, err := envIntOr("ANALYTICS_MIN_SAMPLES", 5)
	if err != nil {
		return nil, err
	}
	anomalyK, err := envFloatOr("ANALYTICS_ANOMALY_K", 2.0)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		DB:       *db,
		Chain: ChainConfig{
			RPCURL:   envOr("CHAIN_RPC_URL", "https://api.devnet.solana.com"),
			PayerKey: os.Getenv("CHAIN_PAYER_KEY"),
		},
		Analytics: AnalyticsConfig{
			TopK:       topK,
			AnomalyK:   anomalyK,
			MinSamples: minSamples,
			Timezone:   envOr("ANALYTICS_TZ", "UTC"),
		},
		Insight: InsightConfig{
			Model: envOr("INSIGHT_MODEL", "gemini-2.0-flash"),
		},
		DisplayRate:    rate,
		DisplayQuote:   envOr("DISPLAY_QUOTE", "USD"),
		MerchantLabels: os.Getenv("MERCHANT_LABELS"),
	}, nil
}

func loadDB() (*DBConfig, error) {
	port, err := envIntOr("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxOpen, err := envIntOr("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}
	maxIdle, err := envIntOr("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}

	cfg := &DBConfig{
		Host:         envOr("DB_HOST", "localhost"),
		Port:         port,
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}

	if cfg.User == "" || cfg.Name == "" {
		return nil, fmt.Errorf("DB_USER and DB_NAME are required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloatOr(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
