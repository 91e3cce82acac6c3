package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"deal-feed-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the tables used by the service if they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// GetPopularBrands returns the names of brands selected by at least one user,
// most selected first
func (s *Store) GetPopularBrands(ctx context.Context, limit int) ([]string, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, `
		SELECT b.name
		FROM brands b
		JOIN user_brands ub ON ub.brand_id = b.id
		GROUP BY b.id, b.name
		ORDER BY COUNT(ub.user_id) DESC, b.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular brands: %w", err)
	}
	return names, nil
}

// ListBrandPopularity returns every brand with its number of interested users
func (s *Store) ListBrandPopularity(ctx context.Context) ([]models.BrandPopularity, error) {
	brands := []models.BrandPopularity{}
	err := s.db.SelectContext(ctx, &brands, `
		SELECT b.id, b.name, COUNT(ub.user_id) AS users
		FROM brands b
		LEFT JOIN user_brands ub ON ub.brand_id = b.id
		GROUP BY b.id, b.name
		ORDER BY users DESC, b.name`)
	return brands, err
}
