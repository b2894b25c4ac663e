package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sjsage522/dealfinder/internal/models"
	"sjsage522/dealfinder/logger"
)

// DealStore persists admitted deals
type DealStore interface {
	// Save inserts deal, replacing any stored deal with the same URL
	Save(ctx context.Context, deal models.Deal) error

	// List returns stored deals in ingestion order. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]models.Deal, error)

	// Close closes the underlying database
	Close() error
}

// SQLiteStore implements DealStore on SQLite
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path. ":memory:" works for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: sqlite has a single writer and ":memory:" is per connection
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.ForStore().Info().Str("path", path).Msg("Deal store ready")
	return s, nil
}

func (s *SQLiteStore) init() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS deals (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		price REAL NOT NULL,
		original_price REAL NOT NULL,
		discount_percentage REAL NOT NULL,
		retailer TEXT,
		image_url TEXT,
		category TEXT,
		category_confidence TEXT,
		tags TEXT,
		quality_score INTEGER NOT NULL,
		ai_analysis TEXT,
		valid BOOLEAN NOT NULL DEFAULT 1,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deals_quality ON deals (quality_score);
	`
	if _, err := s.conn.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create deals table: %w", err)
	}
	return nil
}

// Save upserts deal by URL. A re-seen deal moves to the end of the ingestion order.
func (s *SQLiteStore) Save(ctx context.Context, deal models.Deal) error {
	confidence, err := json.Marshal(deal.CategoryConfidence)
	if err != nil {
		return fmt.Errorf("encode category confidence: %w", err)
	}
	tags, err := json.Marshal(deal.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	var image sql.NullString
	if deal.ImageURL != nil {
		image = sql.NullString{String: *deal.ImageURL, Valid: true}
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO deals (
			id, url, title, description, price, original_price, discount_percentage, retailer,
			image_url, category, category_confidence, tags, quality_score, ai_analysis, valid, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID, deal.URL, deal.Title, deal.Description, deal.Price, deal.OriginalPrice,
		deal.DiscountPercentage, deal.Retailer, image, deal.Category, string(confidence),
		string(tags), deal.QualityScore, deal.AIAnalysis, deal.Valid,
		deal.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save deal %s: %w", deal.URL, err)
	}
	return nil
}

// List returns stored deals in ingestion order
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.Deal, error) {
	query := `SELECT id, url, title, description, price, original_price, discount_percentage, retailer,
		image_url, category, category_confidence, tags, quality_score, ai_analysis, valid, timestamp
		FROM deals ORDER BY seq`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		var d models.Deal
		var description, retailer, category, confidence, tags, analysis sql.NullString
		var image sql.NullString
		var timestamp string

		err := rows.Scan(&d.ID, &d.URL, &d.Title, &description, &d.Price, &d.OriginalPrice,
			&d.DiscountPercentage, &retailer, &image, &category, &confidence, &tags,
			&d.QualityScore, &analysis, &d.Valid, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}

		d.Description = description.String
		d.Retailer = retailer.String
		d.Category = category.String
		d.AIAnalysis = analysis.String
		if image.Valid {
			url := image.String
			d.ImageURL = &url
		}
		if confidence.Valid && confidence.String != "" {
			if err := json.Unmarshal([]byte(confidence.String), &d.CategoryConfidence); err != nil {
				return nil, fmt.Errorf("decode category confidence for %s: %w", d.URL, err)
			}
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &d.Tags); err != nil {
				return nil, fmt.Errorf("decode tags for %s: %w", d.URL, err)
			}
		}
		if d.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("decode timestamp for %s: %w", d.URL, err)
		}

		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

var _ DealStore = (*SQLiteStore)(nil)
