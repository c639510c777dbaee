package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL-backed store from a connection URL
// and runs migrations.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verifications (
		id BIGSERIAL PRIMARY KEY,
		image_id VARCHAR(64) NOT NULL,
		public_key VARCHAR(128) NOT NULL,
		doc_timestamp TIMESTAMP WITH TIME ZONE,
		verified_at TIMESTAMP WITH TIME ZONE NOT NULL,
		outcome VARCHAR(16) NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_verifications_image ON verifications(image_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_verified ON verifications(verified_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record appends one verification record.
func (s *PostgresStore) Record(ctx context.Context, rec VerificationRecord) error {
	query := `
	INSERT INTO verifications
		(image_id, public_key, doc_timestamp, verified_at, outcome, reason)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	var docTS sql.NullTime
	if !rec.DocTimestamp.IsZero() {
		docTS = sql.NullTime{Time: rec.DocTimestamp, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ImageID,
		rec.PublicKeyHex,
		docTS,
		rec.VerifiedAt,
		rec.Outcome,
		rec.Reason,
	)
	return err
}

// List returns the most recent records, newest first, up to limit.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]VerificationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT image_id, public_key, doc_timestamp, verified_at, outcome, reason
	FROM verifications
	ORDER BY id DESC
	LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying verifications: %w", err)
	}
	defer rows.Close()

	var records []VerificationRecord
	for rows.Next() {
		var rec VerificationRecord
		var docTS sql.NullTime
		if err := rows.Scan(&rec.ImageID, &rec.PublicKeyHex, &docTS, &rec.VerifiedAt, &rec.Outcome, &rec.Reason); err != nil {
			return nil, fmt.Errorf("scanning verification row: %w", err)
		}
		if docTS.Valid {
			rec.DocTimestamp = docTS.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
