package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentscout/models"
)

// ErrDuplicateLink means an apartment with the same link already exists.
// The caller treats it as a benign skip, not a failure.
var ErrDuplicateLink = errors.New("apartment link already exists")

const pgUniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist yet. Safe to run on
// every startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS apartments (
			apartment_id UUID PRIMARY KEY,
			scraped_at TIMESTAMPTZ NOT NULL,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			available_date TIMESTAMPTZ NOT NULL,
			days_on_market INTEGER NOT NULL DEFAULT 0,
			link TEXT NOT NULL UNIQUE,
			image_urls TEXT[] NOT NULL DEFAULT '{}',
			amenities TEXT,
			policies TEXT,
			home_features TEXT,
			similar_listings TEXT[] NOT NULL DEFAULT '{}',
			ai_summary TEXT,
			num_beds INTEGER,
			num_baths DOUBLE PRECISION,
			sqft INTEGER,
			neighborhood TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			apartment_id UUID NOT NULL REFERENCES apartments(apartment_id) ON DELETE CASCADE,
			price DOUBLE PRECISION NOT NULL,
			date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scrape_runs (
			id BIGSERIAL PRIMARY KEY,
			site TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			status TEXT NOT NULL,
			listings_found INTEGER NOT NULL DEFAULT 0,
			listings_new INTEGER NOT NULL DEFAULT 0,
			errors_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_apartment ON price_history(apartment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_apartments_scraped_at ON apartments(scraped_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Apartments
// =============================================================================

func (s *PostgresStore) ApartmentExists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM apartments WHERE link = $1)`, link,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check apartment exists: %w", err)
	}
	return exists, nil
}

// SaveApartment inserts an apartment and its price history atomically. A
// concurrent insert of the same link surfaces as ErrDuplicateLink with
// nothing written.
func (s *PostgresStore) SaveApartment(ctx context.Context, apt *models.Apartment, history []models.PricePoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO apartments (
			apartment_id, scraped_at, name, price, description, available_date,
			days_on_market, link, image_urls, amenities, policies, home_features,
			similar_listings, ai_summary, num_beds, num_baths, sqft, neighborhood
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)`

	_, err = tx.Exec(ctx, query,
		apt.ID, apt.ScrapedAt, apt.Name, apt.Price, apt.Description, apt.AvailableDate,
		apt.DaysOnMarket, apt.Link, apt.ImageKeys, apt.Amenities, apt.Policies, apt.HomeFeatures,
		apt.Similar, apt.AISummary, apt.Beds, apt.Baths, apt.SqFt, apt.Neighborhood,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateLink
		}
		return fmt.Errorf("insert apartment: %w", err)
	}

	for _, p := range history {
		_, err = tx.Exec(ctx,
			`INSERT INTO price_history (apartment_id, price, date) VALUES ($1, $2, $3)`,
			apt.ID, p.Price, p.Date,
		)
		if err != nil {
			return fmt.Errorf("insert price history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMissingSummaries returns apartments that have images but no AI summary
// yet, oldest first.
func (s *PostgresStore) ListMissingSummaries(ctx context.Context, limit int) ([]*models.Apartment, error) {
	query := `
		SELECT apartment_id, scraped_at, name, price, description, available_date,
			days_on_market, link, image_urls, amenities, policies, home_features,
			similar_listings, ai_summary, num_beds, num_baths, sqft, neighborhood
		FROM apartments
		WHERE ai_summary IS NULL AND array_length(image_urls, 1) > 0
		ORDER BY scraped_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apts []*models.Apartment
	for rows.Next() {
		var apt models.Apartment
		if err := rows.Scan(
			&apt.ID, &apt.ScrapedAt, &apt.Name, &apt.Price, &apt.Description, &apt.AvailableDate,
			&apt.DaysOnMarket, &apt.Link, &apt.ImageKeys, &apt.Amenities, &apt.Policies, &apt.HomeFeatures,
			&apt.Similar, &apt.AISummary, &apt.Beds, &apt.Baths, &apt.SqFt, &apt.Neighborhood,
		); err != nil {
			return nil, err
		}
		apts = append(apts, &apt)
	}
	return apts, rows.Err()
}

func (s *PostgresStore) UpdateAISummary(ctx context.Context, apartmentID string, summary string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE apartments SET ai_summary = $1 WHERE apartment_id = $2`,
		summary, apartmentID,
	)
	return err
}

// =============================================================================
// Scrape runs
// =============================================================================

func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO scrape_runs (site, started_at, status, listings_found, listings_new, errors_count)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		run.Site, run.StartedAt, run.Status, run.ListingsFound, run.ListingsNew, run.ErrorsCount,
	).Scan(&run.ID)
}

func (s *PostgresStore) UpdateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE scrape_runs SET finished_at = $1, status = $2, listings_found = $3,
			listings_new = $4, errors_count = $5 WHERE id = $6`,
		run.FinishedAt, run.Status, run.ListingsFound, run.ListingsNew, run.ErrorsCount, run.ID,
	)
	return err
}
