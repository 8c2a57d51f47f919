package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	// Marketplace aggregator tuning.
	MarketCacheTTLSeconds int // Redis TTL for cached aggregates (default 60)
	ActivityWindowDays    int // look-back window for daily rollups (default 30)
	SummaryRefreshMinutes int // scheduler interval for cache refresh (default 5)
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	cacheTTL := viper.GetInt("MARKET_CACHE_TTL_SECONDS")
	if cacheTTL <= 0 {
		cacheTTL = 60
	}
	windowDays := viper.GetInt("ACTIVITY_WINDOW_DAYS")
	if windowDays <= 0 {
		windowDays = 30
	}
	refreshMin := viper.GetInt("SUMMARY_REFRESH_MINUTES")
	if refreshMin <= 0 {
		refreshMin = 5
	}

	return &Config{
		Env:                   env,
		Port:                  port,
		DatabaseURL:           dbURL,
		RedisURL:              viper.GetString("REDIS_URL"),
		FrontendURLEndsWith:   viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:        viper.GetString("HEALTH_ADMIN_KEY"),
		MarketCacheTTLSeconds: cacheTTL,
		ActivityWindowDays:    windowDays,
		SummaryRefreshMinutes: refreshMin,
	}, nil
}
