package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"reward_collector/internal/domain"
)

type LinkStore struct {
	db *sqlx.DB
}

func NewLinkStore(db *sqlx.DB) *LinkStore {
	return &LinkStore{db: db}
}

// Upsert inserts the link or, when the URL is already present, updates
// every field except first_seen.
func (s *LinkStore) Upsert(ctx context.Context, link *domain.Link) error {
	query := `
		INSERT INTO links (
			url, source, domain, first_seen, last_checked,
			final_url, final_domain, valid, score, title
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			source = excluded.source,
			domain = excluded.domain,
			last_checked = excluded.last_checked,
			final_url = excluded.final_url,
			final_domain = excluded.final_domain,
			valid = excluded.valid,
			score = excluded.score,
			title = excluded.title`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		link.URL,
		link.Source,
		link.Domain,
		link.FirstSeen.UTC(),
		link.LastChecked.UTC(),
		link.FinalURL,
		link.FinalDomain,
		link.Valid,
		link.Score,
		link.Title,
	)
	return err
}

// Get returns the stored record for url, or nil when unseen.
func (s *LinkStore) Get(ctx context.Context, url string) (*domain.Link, error) {
	var link domain.Link
	query := `
		SELECT url, source, domain, first_seen, last_checked,
			final_url, final_domain, valid, score, title
		FROM links
		WHERE url = ?`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &link, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ValidLinks returns a snapshot of all currently valid records, ordered
// by source then URL so one snapshot is stable.
func (s *LinkStore) ValidLinks(ctx context.Context) ([]domain.Link, error) {
	query := `
		SELECT url, source, domain, first_seen, last_checked,
			final_url, final_domain, valid, score, title
		FROM links
		WHERE valid = 1
		ORDER BY source, url`

	var links []domain.Link
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &links, query)
	return links, err
}

// Invalidate marks the record for url invalid without deleting it.
func (s *LinkStore) Invalidate(ctx context.Context, url string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE links SET valid = 0 WHERE url = ?`, url)
	return err
}

// Cleanup removes records older than ttl or currently invalid. In dry
// mode it only counts what a live sweep would remove. The live sweep is
// a single DELETE, so it is all-or-nothing.
func (s *LinkStore) Cleanup(ctx context.Context, ttl time.Duration, dryRun bool) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)

	if dryRun {
		var count int
		err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
			`SELECT COUNT(*) FROM links WHERE first_seen < ? OR valid = 0`, cutoff)
		return count, err
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM links WHERE first_seen < ? OR valid = 0`, cutoff)
	if err != nil {
		return 0, err
	}

	removed, err := res.RowsAffected()
	return int(removed), err
}
