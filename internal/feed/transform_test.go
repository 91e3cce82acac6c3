package feed

import (
	"errors"
	"testing"

	"deal-feed-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAndTransform_AcceptsMatchingDeal(t *testing.T) {
	records, _ := Parse("header\n" + sampleRow + "\n")

	products, stats := FilterAndTransform(records, NewAffinitySet([]string{"Nike"}), 50, nil)

	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, int64(1), p.AwinID)
	assert.Equal(t, "Nike", p.Brand)
	assert.Equal(t, 50, p.Discount)
	assert.Equal(t, 100.0, p.Price)
	assert.Equal(t, "StoreX", p.Retailer)
	assert.Equal(t, "Nike Air Max", p.Name)
	assert.Equal(t, "http://x", p.URL)
	assert.Equal(t, PlaceholderImage, p.ImageURL)
	assert.Equal(t, FilterStats{Considered: 1, Accepted: 1}, stats)
}

func TestFilterAndTransform_DropsBrandOutsideAffinitySet(t *testing.T) {
	records, _ := Parse("header\n" + sampleRow + "\n")

	products, stats := FilterAndTransform(records, NewAffinitySet([]string{"Adidas"}), 50, nil)

	assert.Empty(t, products)
	assert.Equal(t, 1, stats.DroppedBrand)
}

func TestFilterAndTransform_DropsBelowThreshold(t *testing.T) {
	records, _ := Parse("header\n" + sampleRow + "\n")

	products, stats := FilterAndTransform(records, NewAffinitySet([]string{"nike"}), 51, nil)

	assert.Empty(t, products)
	assert.Equal(t, 1, stats.DroppedDiscount)
}

func TestFilterAndTransform_NeverEmitsOutsideConstraints(t *testing.T) {
	records := []models.FeedRecord{
		{AwProductID: "1", ProductName: "Nike Air", SearchPrice: 100, StorePrice: 40},
		{AwProductID: "2", ProductName: "Nike Tee", SearchPrice: 100, StorePrice: 90},
		{AwProductID: "3", ProductName: "Zara Dress 60% off"},
		{AwProductID: "4", ProductName: "Puma Cat", SearchPrice: 10, DisplayPrice: 1},
		{AwProductID: "5", ProductName: "Gap Hoodie", SearchPrice: 50, StorePrice: 20},
		{AwProductID: "99999999999999999999", ProductName: "Nike Broken", SearchPrice: 10, StorePrice: 1},
	}
	set := NewAffinitySet([]string{"Nike", "Zara"})

	products, stats := FilterAndTransform(records, set, 50, NewKeywordMatcher())

	for _, p := range products {
		assert.True(t, set.Contains(p.Brand), "brand %s", p.Brand)
		assert.GreaterOrEqual(t, p.Discount, 50)
	}
	assert.Len(t, products, 2)
	assert.Equal(t, FilterStats{
		Considered:        6,
		DroppedBrand:      2,
		DroppedDiscount:   1,
		TransformFailures: 1,
		Accepted:          2,
	}, stats)
}

type fixedMatcher string

func (m fixedMatcher) ExtractBrand(*models.FeedRecord) string { return string(m) }

func TestFilterAndTransform_UsesPluggableMatcher(t *testing.T) {
	records := []models.FeedRecord{{AwProductID: "7", ProductName: "Mystery", SearchPrice: 10, StorePrice: 2}}

	products, _ := FilterAndTransform(records, NewAffinitySet([]string{"Catalog Brand"}), 10, fixedMatcher("Catalog Brand"))

	require.Len(t, products, 1)
	assert.Equal(t, "Catalog Brand", products[0].Brand)
}

func TestTransform_Fallbacks(t *testing.T) {
	rec := &models.FeedRecord{
		AwProductID:  "abc",
		Description:  "Plain description",
		StorePrice:   0,
		DisplayPrice: 12.5,
		AwImageURL:   "http://img/aw.jpg",
	}

	p, err := Transform(rec, "Nike", 60)

	require.NoError(t, err)
	assert.Equal(t, int64(0), p.AwinID)
	assert.Equal(t, DefaultRetailer, p.Retailer)
	assert.Equal(t, "Plain description", p.Name)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, DefaultURL, p.URL)
	assert.Equal(t, "http://img/aw.jpg", p.ImageURL)

	p, err = Transform(&models.FeedRecord{MerchantImageURL: "http://img/m.jpg", AwImageURL: "http://img/aw.jpg"}, "Nike", 60)
	require.NoError(t, err)
	assert.Equal(t, DefaultProductName, p.Name)
	assert.Equal(t, 0.0, p.Price)
	assert.Equal(t, "http://img/m.jpg", p.ImageURL)
}

func TestParseProviderID(t *testing.T) {
	id, err := ParseProviderID(" 12345abc")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	id, err = ParseProviderID("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = ParseProviderID("99999999999999999999")
	assert.True(t, errors.Is(err, ErrProviderIDRange))
}
