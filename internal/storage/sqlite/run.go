package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"reward_collector/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert appends one run record to the history.
func (s *RunStore) Insert(ctx context.Context, checked, valid int, duration float64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`INSERT INTO runs (ts, checked, valid, duration) VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), checked, valid, duration)
	return err
}

// Last returns the most recent run, or nil when no cycle has run yet.
func (s *RunStore) Last(ctx context.Context) (*domain.Run, error) {
	var run domain.Run
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &run,
		`SELECT ts, checked, valid, duration FROM runs ORDER BY ts DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
