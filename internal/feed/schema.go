package feed

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"deal-feed-service/internal/models"
)

// ColumnKind describes how a raw feed cell is coerced
type ColumnKind int

const (
	// KindText keeps the cell as-is
	KindText ColumnKind = iota
	// KindPrice coerces the cell to a number, zero when it is not numeric
	KindPrice
)

// Column is one positional column of the feed
type Column struct {
	Name string
	Kind ColumnKind

	text  func(*models.FeedRecord, string)
	price func(*models.FeedRecord, float64)
}

func textColumn(name string, set func(*models.FeedRecord, string)) Column {
	return Column{Name: name, Kind: KindText, text: set}
}

func priceColumn(name string, set func(*models.FeedRecord, float64)) Column {
	return Column{Name: name, Kind: KindPrice, price: set}
}

// Columns is the ordered feed layout requested from the provider.
// The order is part of the download URL and of the positional mapping.
var Columns = []Column{
	textColumn("aw_product_id", func(r *models.FeedRecord, v string) { r.AwProductID = v }),
	textColumn("product_name", func(r *models.FeedRecord, v string) { r.ProductName = v }),
	textColumn("merchant_product_id", func(r *models.FeedRecord, v string) { r.MerchantProductID = v }),
	textColumn("merchant_image_url", func(r *models.FeedRecord, v string) { r.MerchantImageURL = v }),
	textColumn("description", func(r *models.FeedRecord, v string) { r.Description = v }),
	textColumn("merchant_category", func(r *models.FeedRecord, v string) { r.MerchantCategory = v }),
	priceColumn("search_price", func(r *models.FeedRecord, v float64) { r.SearchPrice = v }),
	textColumn("merchant_name", func(r *models.FeedRecord, v string) { r.MerchantName = v }),
	textColumn("merchant_id", func(r *models.FeedRecord, v string) { r.MerchantID = v }),
	textColumn("category_name", func(r *models.FeedRecord, v string) { r.CategoryName = v }),
	textColumn("category_id", func(r *models.FeedRecord, v string) { r.CategoryID = v }),
	textColumn("aw_image_url", func(r *models.FeedRecord, v string) { r.AwImageURL = v }),
	textColumn("currency", func(r *models.FeedRecord, v string) { r.Currency = v }),
	priceColumn("store_price", func(r *models.FeedRecord, v float64) { r.StorePrice = v }),
	priceColumn("delivery_cost", func(r *models.FeedRecord, v float64) { r.DeliveryCost = v }),
	textColumn("merchant_deep_link", func(r *models.FeedRecord, v string) { r.MerchantDeepLink = v }),
	textColumn("language", func(r *models.FeedRecord, v string) { r.Language = v }),
	textColumn("last_updated", func(r *models.FeedRecord, v string) { r.LastUpdated = v }),
	priceColumn("display_price", func(r *models.FeedRecord, v float64) { r.DisplayPrice = v }),
	textColumn("data_feed_id", func(r *models.FeedRecord, v string) { r.DataFeedID = v }),
}

// ColumnNames returns the names of Columns in feed order
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// assign stores a raw cell into rec according to the column kind
func (c Column) assign(rec *models.FeedRecord, raw string) {
	switch c.Kind {
	case KindPrice:
		c.price(rec, ParsePrice(raw))
	default:
		c.text(rec, raw)
	}
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParsePrice reads the leading decimal number of s.
// Anything that does not start with a number, or is not finite, yields 0.
func ParsePrice(s string) float64 {
	m := numericPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
