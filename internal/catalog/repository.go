package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DefaultListLimit bounds ListShared when the caller does not say otherwise.
const DefaultListLimit = 50

// PostingRecord is one row of the share catalog. URL is unique: sharing the
// same item again updates the existing row.
type PostingRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Category      string     `db:"category" json:"category"`
	Title         string     `db:"title" json:"title"`
	URL           string     `db:"url" json:"url"`
	SharedInSlack bool       `db:"shared_in_slack" json:"shared_in_slack"`
	MessageRef    string     `db:"message_ref" json:"message_ref,omitempty"`
	SharedAt      *time.Time `db:"shared_at" json:"shared_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Repository provides access to the share catalog.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a Repository over db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// UpsertShared inserts rec, or refreshes the share details when the URL is
// already cataloged, and returns the stored row.
func (r *Repository) UpsertShared(ctx context.Context, rec *PostingRecord) (*PostingRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.SharedInSlack && rec.SharedAt == nil {
		sharedAt := now
		rec.SharedAt = &sharedAt
	}

	query := `
		INSERT INTO catalog_items (
			id, category, title, url, shared_in_slack, message_ref,
			shared_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (url) DO UPDATE SET
			shared_in_slack = EXCLUDED.shared_in_slack,
			message_ref = EXCLUDED.message_ref,
			shared_at = EXCLUDED.shared_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, category, title, url, shared_in_slack, message_ref,
			shared_at, created_at, updated_at`

	stored := &PostingRecord{}
	err := r.db.QueryRowxContext(ctx, query,
		rec.ID, rec.Category, rec.Title, rec.URL, rec.SharedInSlack,
		rec.MessageRef, rec.SharedAt, rec.CreatedAt, rec.UpdatedAt,
	).StructScan(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert catalog item: %w", err)
	}
	return stored, nil
}

// IsShared reports whether url is cataloged as shared.
func (r *Repository) IsShared(ctx context.Context, url string) (bool, error) {
	var shared bool
	query := `SELECT shared_in_slack FROM catalog_items WHERE url = $1`

	err := r.db.GetContext(ctx, &shared, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check catalog item: %w", err)
	}
	return shared, nil
}

// ListShared returns the most recently shared items for category, newest
// first. A non-positive limit falls back to DefaultListLimit.
func (r *Repository) ListShared(ctx context.Context, category string, limit int) ([]PostingRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, category, title, url, shared_in_slack, message_ref,
			shared_at, created_at, updated_at
		FROM catalog_items
		WHERE category = $1 AND shared_in_slack = true
		ORDER BY shared_at DESC
		LIMIT $2`

	records := []PostingRecord{}
	if err := r.db.SelectContext(ctx, &records, query, category, limit); err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	return records, nil
}

// Ping verifies database connectivity for health checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
