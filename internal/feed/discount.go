package feed

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"deal-feed-service/internal/models"
)

const maxDiscount = 100

var discountText = regexp.MustCompile(`(\d+)%?\s*(off|discount|sale)`)

// EstimateDiscount returns the discount percentage of a record, clamped to 0..100.
//
// With two or more positive prices the spread between the highest and lowest is used.
// Otherwise the product name and description are searched for phrases such as
// "40% off". When neither applies the discount is 0.
func EstimateDiscount(rec *models.FeedRecord) int {
	if d, ok := discountFromPrices(rec.SearchPrice, rec.StorePrice, rec.DisplayPrice); ok {
		return clampDiscount(d)
	}
	if d, ok := discountFromText(rec.ProductName + " " + rec.Description); ok {
		return clampDiscount(d)
	}
	return 0
}

func discountFromPrices(prices ...float64) (int, bool) {
	var positive []float64
	for _, p := range prices {
		if p > 0 {
			positive = append(positive, p)
		}
	}
	if len(positive) < 2 {
		return 0, false
	}

	hi, lo := positive[0], positive[0]
	for _, p := range positive[1:] {
		hi = math.Max(hi, p)
		lo = math.Min(lo, p)
	}
	if hi <= lo {
		return 0, false
	}

	return int(math.Round((hi - lo) / hi * 100)), true
}

func discountFromText(text string) (int, bool) {
	m := discountText.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0, false
	}
	d, err := strconv.Atoi(m[1])
	if err != nil {
		// only digits can match, so this is an overflow
		return maxDiscount, true
	}
	return d, true
}

func clampDiscount(d int) int {
	if d < 0 {
		return 0
	}
	if d > maxDiscount {
		return maxDiscount
	}
	return d
}
