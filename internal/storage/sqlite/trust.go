package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type TrustStore struct {
	db *sqlx.DB
}

func NewTrustStore(db *sqlx.DB) *TrustStore {
	return &TrustStore{db: db}
}

// Adjust adds delta to the trust counter for dom, creating the row on
// first use. The single upsert statement keeps concurrent adjustments
// for the same domain from losing updates.
func (s *TrustStore) Adjust(ctx context.Context, dom string, delta int) error {
	query := `
		INSERT INTO domains (domain, trust) VALUES (?, ?)
		ON CONFLICT (domain) DO UPDATE SET trust = domains.trust + excluded.trust`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, dom, delta)
	return err
}

// Get returns the current trust for dom; unknown domains report zero.
func (s *TrustStore) Get(ctx context.Context, dom string) (int, error) {
	var trust int
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &trust,
		`SELECT trust FROM domains WHERE domain = ?`, dom)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return trust, err
}
