package models

import "time"

// FeedRecord is one row of the raw affiliate product feed.
// Price columns are zero when absent or non-numeric.
type FeedRecord struct {
	AwProductID       string
	ProductName       string
	MerchantProductID string
	MerchantImageURL  string
	Description       string
	MerchantCategory  string
	SearchPrice       float64
	MerchantName      string
	MerchantID        string
	CategoryName      string
	CategoryID        string
	AwImageURL        string
	Currency          string
	StorePrice        float64
	DeliveryCost      float64
	MerchantDeepLink  string
	Language          string
	LastUpdated       string
	DisplayPrice      float64
	DataFeedID        string
}

// Product is a normalized deal, keyed by the provider-assigned AwinID
type Product struct {
	ID        int64     `db:"id" json:"id"`
	AwinID    int64     `db:"awin_id" json:"awin_id"`
	Retailer  string    `db:"retailer" json:"retailer"`
	Brand     string    `db:"brand" json:"brand"`
	Name      string    `db:"name" json:"name"`
	Price     float64   `db:"price" json:"price"`
	Discount  int       `db:"discount" json:"discount"`
	URL       string    `db:"url" json:"url"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BrandPopularity is a brand with the number of users who selected it
type BrandPopularity struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Users int    `db:"users" json:"users"`
}

// DiscountStats summarizes discounts across persisted products
type DiscountStats struct {
	TotalProducts        int `db:"total_products" json:"total_products"`
	AverageDiscount      int `db:"average_discount" json:"average_discount"`
	MinDiscount          int `db:"min_discount" json:"min_discount"`
	MaxDiscount          int `db:"max_discount" json:"max_discount"`
	HighDiscountProducts int `db:"high_discount_products" json:"high_discount_products"`
	MinDiscountThreshold int `db:"-" json:"min_discount_threshold"`
}

// Run statuses
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)
