package service

import (
	"context"
	"errors"
	"time"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/redisclient"
	"deal-feed-service/internal/util"

	"go.uber.org/zap"
)

// StatsCacheKey holds the cached discount statistics
const StatsCacheKey = "stats:discount"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Cache is a JSON key/value cache
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ProductReader is the read side of the product store
type ProductReader interface {
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListProductsByBrand(ctx context.Context, brand string, limit int) ([]models.Product, error)
	GetDiscountStats(ctx context.Context, threshold int) (*models.DiscountStats, error)
	ListBrandPopularity(ctx context.Context) ([]models.BrandPopularity, error)
}

// ProductService serves persisted deals
type ProductService struct {
	reader      ProductReader
	cache       Cache
	minDiscount int
	statsTTL    time.Duration
	logger      *zap.Logger
}

// NewProductService creates a new product service. cache may be nil.
func NewProductService(reader ProductReader, cache Cache, minDiscount int, statsTTL time.Duration) *ProductService {
	return &ProductService{
		reader:      reader,
		cache:       cache,
		minDiscount: minDiscount,
		statsTTL:    statsTTL,
		logger:      util.GetLogger(),
	}
}

// GetDiscountStats returns discount statistics, from cache when possible
func (s *ProductService) GetDiscountStats(ctx context.Context) (*models.DiscountStats, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.GetDiscountStats")
	defer span.End()

	if s.cache != nil {
		var cached models.DiscountStats
		err := s.cache.GetJSON(ctx, StatsCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.logger.Warn("Failed to read cached stats", zap.Error(err))
		}
	}

	stats, err := s.reader.GetDiscountStats(ctx, s.minDiscount)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.statsTTL > 0 {
		if err := s.cache.SetJSON(ctx, StatsCacheKey, stats, s.statsTTL); err != nil {
			s.logger.Warn("Failed to cache stats", zap.Error(err))
		}
	}
	return stats, nil
}

// ListProducts returns products, most recently refreshed first
func (s *ProductService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if offset < 0 {
		offset = 0
	}
	return s.reader.ListProducts(ctx, normalizeLimit(limit), offset)
}

// ListProductsByBrand returns products whose brand contains brand
func (s *ProductService) ListProductsByBrand(ctx context.Context, brand string, limit int) ([]models.Product, error) {
	return s.reader.ListProductsByBrand(ctx, brand, normalizeLimit(limit))
}

// ListBrands returns brands ranked by interested users
func (s *ProductService) ListBrands(ctx context.Context) ([]models.BrandPopularity, error) {
	return s.reader.ListBrandPopularity(ctx)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
