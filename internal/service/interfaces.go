package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"reward_collector/internal/domain"
)

type LinkStore interface {
	Upsert(ctx context.Context, link *domain.Link) error
	Get(ctx context.Context, url string) (*domain.Link, error)
	ValidLinks(ctx context.Context) ([]domain.Link, error)
	Invalidate(ctx context.Context, url string) error
	Cleanup(ctx context.Context, ttl time.Duration, dryRun bool) (int, error)
}

type TrustStore interface {
	Adjust(ctx context.Context, dom string, delta int) error
}

type RunStore interface {
	Insert(ctx context.Context, checked, valid int, duration float64) error
	Last(ctx context.Context) (*domain.Run, error)
}

type Extractor interface {
	Extract(ctx context.Context) []domain.Candidate
}

type Resolver interface {
	Resolve(ctx context.Context, c domain.Candidate) domain.Resolution
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, link *domain.Link, isNew bool) error
	Close() error
}
