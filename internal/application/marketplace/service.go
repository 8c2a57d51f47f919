package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brickvault-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	summaryCacheKey  = "marketplace:summary"
	activityCacheKey = "marketplace:activity:%d"
)

// Service is the read-only marketplace aggregator. It computes analytics from
// the ledger tables and caches results in Redis with a short TTL; it never
// writes ledger state, so stale reads are harmless.
type Service struct {
	DB                 *gorm.DB
	Rdb                *redis.Client
	CacheTTL           time.Duration
	ActivityWindowDays int
}

// Summary is the marketplace-wide snapshot over active listings.
type Summary struct {
	ActiveListings     int64   `json:"active_listings"`
	TokensOnSale       int64   `json:"tokens_on_sale"`
	TokensSold         int64   `json:"tokens_sold"`
	AvgPrice           float64 `json:"avg_price"`
	MinPrice           float64 `json:"min_price"`
	MaxPrice           float64 `json:"max_price"`
	DistinctSellers    int64   `json:"distinct_sellers"`
	DistinctProperties int64   `json:"distinct_properties"`
}

// Summary returns the cached marketplace snapshot, recomputing on miss.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var cached Summary
	if s.cacheGet(ctx, summaryCacheKey, &cached) {
		return &cached, nil
	}
	summary, err := s.computeSummary(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, summaryCacheKey, summary)
	return summary, nil
}

func (s *Service) computeSummary(ctx context.Context) (*Summary, error) {
	var out Summary
	err := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("is_active = ?", true).
		Select(`COUNT(*) AS active_listings,
			COALESCE(SUM(on_list_quantity), 0) AS tokens_on_sale,
			COALESCE(SUM(sold_quantity), 0) AS tokens_sold,
			COALESCE(AVG(price), 0) AS avg_price,
			COALESCE(MIN(price), 0) AS min_price,
			COALESCE(MAX(price), 0) AS max_price,
			COUNT(DISTINCT seller_id) AS distinct_sellers,
			COUNT(DISTINCT property_id) AS distinct_properties`).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DailyActivity is one day's completed-trade rollup.
type DailyActivity struct {
	Day          string  `json:"day"`
	Trades       int64   `json:"trades"`
	TokensTraded int64   `json:"tokens_traded"`
	Volume       float64 `json:"volume"`
}

// Activity returns daily rollups of completed transactions over the look-back
// window (capped at the configured default when days <= 0).
func (s *Service) Activity(ctx context.Context, days int) ([]DailyActivity, error) {
	if days <= 0 || days > s.ActivityWindowDays {
		days = s.ActivityWindowDays
	}
	key := fmt.Sprintf(activityCacheKey, days)
	var cached []DailyActivity
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	var rollups []DailyActivity
	err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where(`status = ? AND "createdAt" >= ?`, domain.TxCompleted, cutoff).
		Select(`date("createdAt") AS day,
			COUNT(*) AS trades,
			COALESCE(SUM(quantity), 0) AS tokens_traded,
			COALESCE(SUM(amount), 0) AS volume`).
		Group(`date("createdAt")`).
		Order("day ASC").
		Scan(&rollups).Error
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, rollups)
	return rollups, nil
}

// SellerStats is per-seller sales analytics over completed transactions.
type SellerStats struct {
	SellerID     uuid.UUID  `json:"seller_id"`
	TotalSales   int64      `json:"total_sales"`
	TokensSold   int64      `json:"tokens_sold"`
	Revenue      float64    `json:"revenue"`
	AvgSalePrice float64    `json:"avg_sale_price"`
	FirstSale    *time.Time `json:"first_sale"`
	LastSale     *time.Time `json:"last_sale"`
}

// SellerStats returns sales analytics for one seller. Uncached: per-seller
// keys churn too much to be worth pinning in Redis.
func (s *Service) SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error) {
	var agg struct {
		TotalSales int64
		TokensSold int64
		Revenue    float64
	}
	err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("seller_id = ? AND status = ?", sellerID, domain.TxCompleted).
		Select(`COUNT(*) AS total_sales,
			COALESCE(SUM(quantity), 0) AS tokens_sold,
			COALESCE(SUM(amount), 0) AS revenue`).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	out := &SellerStats{
		SellerID:   sellerID,
		TotalSales: agg.TotalSales,
		TokensSold: agg.TokensSold,
		Revenue:    agg.Revenue,
	}
	if agg.TokensSold > 0 {
		out.AvgSalePrice = agg.Revenue / float64(agg.TokensSold)
	}
	if agg.TotalSales > 0 {
		var first, last domain.Transaction
		if err := s.DB.WithContext(ctx).
			Where("seller_id = ? AND status = ?", sellerID, domain.TxCompleted).
			Order(`"createdAt" ASC`).First(&first).Error; err == nil {
			out.FirstSale = &first.CreatedAt
		}
		if err := s.DB.WithContext(ctx).
			Where("seller_id = ? AND status = ?", sellerID, domain.TxCompleted).
			Order(`"createdAt" DESC`).First(&last).Error; err == nil {
			out.LastSale = &last.CreatedAt
		}
	}
	return out, nil
}

// Refresh recomputes the summary and default activity window and re-primes
// the cache. Called on a schedule so dashboards mostly hit warm keys.
func (s *Service) Refresh(ctx context.Context) error {
	summary, err := s.computeSummary(ctx)
	if err != nil {
		return err
	}
	s.cacheSet(ctx, summaryCacheKey, summary)

	// Recompute through the cache-miss path by dropping the key first.
	if s.Rdb != nil {
		s.Rdb.Del(ctx, fmt.Sprintf(activityCacheKey, s.ActivityWindowDays))
	}
	_, err = s.Activity(ctx, s.ActivityWindowDays)
	return err
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.Rdb == nil {
		return false
	}
	b, err := s.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (s *Service) cacheSet(ctx context.Context, key string, v interface{}) {
	if s.Rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Rdb.Set(ctx, key, b, s.CacheTTL).Err(); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("marketplace cache set failed")
	}
}
