package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"MIN_UPDATE_INTERVAL", "UPDATE_PERIOD", "MIN_DISCOUNT_PERCENT", "MAX_BRANDS", "BRAND_KEYWORDS", "AWIN_API_BASE_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.Scheduler.MinUpdateInterval)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.UpdatePeriod)
	assert.Equal(t, 50, cfg.Feed.MinDiscountPercent)
	assert.Equal(t, 20, cfg.Feed.MaxBrands)
	assert.Equal(t, "https://productdata.awin.com", cfg.Feed.BaseURL)
	assert.Nil(t, cfg.Feed.BrandKeywords)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MIN_UPDATE_INTERVAL", "10m")
	t.Setenv("UPDATE_PERIOD", "30s")
	t.Setenv("MIN_DISCOUNT_PERCENT", "40")
	t.Setenv("MAX_BRANDS", "5")
	t.Setenv("BRAND_KEYWORDS", "nike, puma ,,vans")
	t.Setenv("UPSERT_RATE_PER_SECOND", "2.5")
	t.Setenv("FEED_FETCH_TIMEOUT", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.Scheduler.MinUpdateInterval)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.UpdatePeriod)
	assert.Equal(t, 40, cfg.Feed.MinDiscountPercent)
	assert.Equal(t, 5, cfg.Feed.MaxBrands)
	assert.Equal(t, []string{"nike", "puma", "vans"}, cfg.Feed.BrandKeywords)
	assert.Equal(t, 2.5, cfg.Feed.UpsertRatePerSecond)
	assert.Equal(t, 120*time.Second, cfg.Feed.FetchTimeout)
}
