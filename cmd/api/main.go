package main

import (
	"context"
	"fmt"
	"time"

	mktsvc "brickvault-backend/internal/application/marketplace"
	"brickvault-backend/internal/config"
	"brickvault-backend/internal/infrastructure/database"
	"brickvault-backend/internal/interfaces/router"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}

	// Verify connections before printing startup banner
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			panic("Postgres: get DB: " + err.Error())
		}
		if err := sqlDB.Ping(); err != nil {
			panic("Postgres connection failed: " + err.Error())
		}
		if err := database.AutoMigrate(db); err != nil {
			panic("Postgres migrate failed: " + err.Error())
		}
		fmt.Println("Postgres connected")
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			panic("Redis connection failed: " + err.Error())
		}
		fmt.Println("Redis connected")
	}

	// Background refresh keeps the cached marketplace aggregates warm so
	// reads rarely hit the aggregate queries cold.
	if db != nil && rdb != nil && cfg.SummaryRefreshMinutes > 0 {
		mkt := &mktsvc.Service{
			DB:                 db,
			Rdb:                rdb,
			CacheTTL:           time.Duration(cfg.MarketCacheTTLSeconds) * time.Second,
			ActivityWindowDays: cfg.ActivityWindowDays,
		}
		scheduler := gocron.NewScheduler(time.UTC)
		_, err := scheduler.Every(cfg.SummaryRefreshMinutes).Minutes().Do(func() {
			if err := mkt.Refresh(context.Background()); err != nil {
				log.Warn().Err(err).Msg("marketplace cache refresh failed")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("could not schedule marketplace refresh")
		} else {
			scheduler.StartAsync()
			defer scheduler.Stop()
		}
	}

	fmt.Printf("Server running at http://localhost:%s\n", cfg.Port)
	fmt.Printf("Health check: http://localhost:%s/health/json\n", cfg.Port)
	fmt.Println("---")

	if err := app.Listen(":" + cfg.Port); err != nil {
		panic(err)
	}
}
