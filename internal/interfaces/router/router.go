package router

import (
	"net/http"
	"time"

	histsvc "brickvault-backend/internal/application/history"
	holdsvc "brickvault-backend/internal/application/holdings"
	listsvc "brickvault-backend/internal/application/listings"
	mktsvc "brickvault-backend/internal/application/marketplace"
	setsvc "brickvault-backend/internal/application/settlement"
	"brickvault-backend/internal/config"
	"brickvault-backend/internal/infrastructure/database"
	healthhandler "brickvault-backend/internal/interfaces/handlers/health"
	histhandler "brickvault-backend/internal/interfaces/handlers/history"
	holdhandler "brickvault-backend/internal/interfaces/handlers/holdings"
	listhandler "brickvault-backend/internal/interfaces/handlers/listings"
	mkthandler "brickvault-backend/internal/interfaces/handlers/marketplace"
	txhandler "brickvault-backend/internal/interfaces/handlers/transactions"
	"brickvault-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
	}

	app.Use(middleware.Principal())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "brickvault-api", "status": "ok"})
	})
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		hh.DB = &gormDBPinger{db: db}
	}

	if db != nil {
		histS := &histsvc.Service{DB: db}
		holdS := &holdsvc.Service{DB: db, History: histS}
		listS := &listsvc.Service{DB: db, Holdings: holdS, History: histS}
		setS := &setsvc.Service{DB: db, Holdings: holdS, Listings: listS}
		mktS := &mktsvc.Service{
			DB:                 db,
			Rdb:                rdb,
			CacheTTL:           time.Duration(cfg.MarketCacheTTLSeconds) * time.Second,
			ActivityWindowDays: cfg.ActivityWindowDays,
		}

		// Holdings
		holdh := &holdhandler.Handlers{Service: holdS}
		hg := app.Group("/api/v1/holdings", middleware.RequirePrincipal())
		hg.Get("/view-holdings", holdh.ViewHoldings)
		hg.Get("/view-holding/:property_id", holdh.ViewHolding)
		hg.Post("/credit", holdh.Credit)
		hg.Post("/reserve", holdh.Reserve)
		hg.Post("/release", holdh.Release)
		hg.Post("/settle-sale", holdh.SettleSale)

		// Listings — reads are public, mutations require a principal
		lh := &listhandler.Handlers{Service: listS}
		lg := app.Group("/api/v1/listings")
		lg.Get("/active-by-property/:property_id", lh.ActiveByProperty)
		lg.Get("/my-listings", middleware.RequirePrincipal(), lh.MyListings)
		lg.Get("/my-active-listings", middleware.RequirePrincipal(), lh.MyActiveListings)
		lg.Post("/open", middleware.RequirePrincipal(), lh.Open)
		lg.Post("/:listing_id/fill", middleware.RequirePrincipal(), lh.Fill)
		lg.Patch("/:listing_id/reprice", middleware.RequirePrincipal(), lh.Reprice)
		lg.Patch("/:listing_id/rescale", middleware.RequirePrincipal(), lh.Rescale)
		lg.Post("/:listing_id/cancel", middleware.RequirePrincipal(), lh.Cancel)
		lg.Get("/:listing_id", lh.GetByID)

		// Transactions
		txh := &txhandler.Handlers{Service: setS}
		txg := app.Group("/api/v1/transactions", middleware.RequirePrincipal())
		txg.Get("/", txh.MyTransactions)
		txg.Post("/initiate", txh.Initiate)
		txg.Post("/:tx_id/commit", txh.Commit)
		txg.Post("/:tx_id/abort", txh.Abort)
		txg.Get("/:tx_id", txh.Get)

		// History
		histh := &histhandler.Handlers{Service: histS}
		histg := app.Group("/api/v1/history")
		histg.Get("/mine", middleware.RequirePrincipal(), histh.Mine)
		histg.Get("/listings/:listing_id/price-series", histh.PriceSeries)
		histg.Get("/listings/:listing_id", histh.ByListing)
		histg.Get("/holdings/:holding_id/quantity-series", histh.QuantitySeries)
		histg.Get("/holdings/:holding_id/replay", histh.Replay)
		histg.Get("/holdings/:holding_id", histh.ByHolding)
		histg.Get("/properties/:property_id/holdings", histh.HoldingsByProperty)
		histg.Get("/properties/:property_id/listings", histh.ListingsByProperty)

		// Marketplace
		mh := &mkthandler.Handlers{Service: mktS}
		mg := app.Group("/api/v1/marketplace")
		mg.Get("/summary", mh.Summary)
		mg.Get("/activity", mh.Activity)
		mg.Get("/sellers/:seller_id/stats", mh.SellerStats)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
