package feed

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"deal-feed-service/internal/models"
)

// Fallback values for missing product fields
const (
	DefaultRetailer    = "Unknown Retailer"
	DefaultProductName = "Product Name"
	DefaultURL         = "#"
	PlaceholderImage   = "https://via.placeholder.com/300x300?text=No+Image"
)

// ErrProviderIDRange is returned when a provider id does not fit in an int64
var ErrProviderIDRange = errors.New("provider id out of range")

// FilterStats counts what happened to parsed records during filtering
type FilterStats struct {
	Considered        int `json:"considered"`
	DroppedBrand      int `json:"dropped_brand"`
	DroppedDiscount   int `json:"dropped_discount"`
	TransformFailures int `json:"transform_failures"`
	Accepted          int `json:"accepted"`
}

// FilterAndTransform keeps records whose brand is in set and whose discount is at
// least minDiscount, and maps them to products. A nil matcher uses the default keywords.
func FilterAndTransform(records []models.FeedRecord, set AffinitySet, minDiscount int, matcher BrandMatcher) ([]models.Product, FilterStats) {
	if matcher == nil {
		matcher = NewKeywordMatcher()
	}

	var stats FilterStats
	products := make([]models.Product, 0)

	for i := range records {
		rec := &records[i]
		stats.Considered++

		brand := matcher.ExtractBrand(rec)
		if !set.Contains(brand) {
			stats.DroppedBrand++
			continue
		}

		discount := EstimateDiscount(rec)
		if discount < minDiscount {
			stats.DroppedDiscount++
			continue
		}

		product, err := Transform(rec, brand, discount)
		if err != nil {
			stats.TransformFailures++
			continue
		}

		products = append(products, product)
		stats.Accepted++
	}

	return products, stats
}

// Transform maps a feed record to a product using an already resolved brand and discount
func Transform(rec *models.FeedRecord, brand string, discount int) (models.Product, error) {
	awinID, err := ParseProviderID(rec.AwProductID)
	if err != nil {
		return models.Product{}, fmt.Errorf("product %q: %w", rec.AwProductID, err)
	}

	return models.Product{
		AwinID:   awinID,
		Retailer: firstNonEmpty(rec.MerchantName, DefaultRetailer),
		Brand:    brand,
		Name:     firstNonEmpty(rec.ProductName, rec.Description, DefaultProductName),
		Price:    firstPositive(rec.SearchPrice, rec.StorePrice, rec.DisplayPrice),
		Discount: discount,
		URL:      firstNonEmpty(rec.MerchantDeepLink, DefaultURL),
		ImageURL: firstNonEmpty(rec.MerchantImageURL, rec.AwImageURL, PlaceholderImage),
	}, nil
}

var integerPrefix = regexp.MustCompile(`^[+-]?\d+`)

// ParseProviderID reads the leading integer of s, returning 0 when there is none
func ParseProviderID(s string) (int64, error) {
	m := integerPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, ErrProviderIDRange
	}
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
