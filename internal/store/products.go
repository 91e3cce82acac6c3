package store

import (
	"context"
	"fmt"
	"strings"

	"deal-feed-service/internal/models"
)

// UpsertProduct inserts a product or overwrites the existing row with the same awin_id
func (s *Store) UpsertProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (awin_id, retailer, brand, name, price, discount, url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (awin_id) DO UPDATE SET
			retailer = EXCLUDED.retailer,
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			discount = EXCLUDED.discount,
			url = EXCLUDED.url,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		p.AwinID, p.Retailer, p.Brand, p.Name, p.Price, p.Discount, p.URL, p.ImageURL)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", p.AwinID, err)
	}
	return nil
}

// GetProductByAwinID retrieves a product by its provider id
func (s *Store) GetProductByAwinID(ctx context.Context, awinID int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE awin_id = $1", awinID)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves products, most recently refreshed first
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY updated_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return products, err
}

// ListProductsByBrand retrieves products whose brand contains the given name, ignoring case
func (s *Store) ListProductsByBrand(ctx context.Context, brand string, limit int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		`SELECT * FROM products WHERE brand ILIKE $1 ESCAPE '\' ORDER BY updated_at DESC LIMIT $2`,
		containsPattern(brand), limit)
	return products, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s literally anywhere in the column
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// CountProducts returns the number of rows with the given awin_id
func (s *Store) CountProducts(ctx context.Context, awinID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products WHERE awin_id = $1", awinID)
	return n, err
}

// GetDiscountStats aggregates discounts over all products
func (s *Store) GetDiscountStats(ctx context.Context, threshold int) (*models.DiscountStats, error) {
	var stats models.DiscountStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_products,
			COALESCE(ROUND(AVG(discount)), 0)::INT AS average_discount,
			COALESCE(MIN(discount), 0) AS min_discount,
			COALESCE(MAX(discount), 0) AS max_discount,
			COUNT(*) FILTER (WHERE discount >= $1) AS high_discount_products
		FROM products`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate discounts: %w", err)
	}
	stats.MinDiscountThreshold = threshold
	return &stats, nil
}
