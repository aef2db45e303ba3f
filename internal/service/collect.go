package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reward_collector/internal/config"
	"reward_collector/internal/domain"
	"reward_collector/internal/urlnorm"
)

// CollectService drives one full collection cycle: extract candidates
// from all sources, resolve them concurrently, gate each outcome,
// persist accepted links with trust accounting, record run statistics
// and finally sweep expired records.
type CollectService struct {
	extractor Extractor
	resolver  Resolver
	links     LinkStore
	trust     TrustStore
	runs      RunStore
	txManager TransactionManager
	publisher Publisher
	gate      Gate
	logger    *slog.Logger
	cfg       config.CollectConfig
}

func NewCollectService(
	extractor Extractor,
	resolver Resolver,
	links LinkStore,
	trust TrustStore,
	runs RunStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.CollectConfig,
) *CollectService {
	return &CollectService{
		extractor: extractor,
		resolver:  resolver,
		links:     links,
		trust:     trust,
		runs:      runs,
		txManager: txManager,
		publisher: publisher,
		gate: Gate{
			Threshold:     cfg.ScoreThreshold,
			AllowedDomain: cfg.AllowedDomain,
		},
		logger: logger.With("component", "collector"),
		cfg:    cfg,
	}
}

type resolved struct {
	candidate  domain.Candidate
	resolution domain.Resolution
}

// RunCycle performs one collection cycle. In dry-run mode nothing is
// persisted and the sweep only counts. Per-candidate network failures
// are absorbed; a store write failure aborts the cycle.
func (s *CollectService) RunCycle(ctx context.Context, dryRun bool) (*domain.CycleStats, error) {
	start := time.Now()
	s.logger.Info("starting cycle", "dry_run", dryRun, "workers", s.cfg.Workers)

	candidates := s.extractor.Extract(ctx)

	stats := &domain.CycleStats{Checked: len(candidates)}

	if len(candidates) == 0 {
		s.logger.Info("no candidates extracted")
		return s.finishCycle(ctx, stats, start, dryRun)
	}

	results := s.resolveAll(ctx, candidates)

	for _, r := range results {
		accepted := s.gate.Accepts(r.resolution)
		if accepted {
			stats.Valid++
		}

		if dryRun {
			continue
		}

		if err := s.persist(ctx, r, accepted); err != nil {
			return nil, fmt.Errorf("persist %s: %w", r.candidate.URL, err)
		}
	}

	return s.finishCycle(ctx, stats, start, dryRun)
}

// resolveAll dispatches candidates across a fixed-size worker pool so
// at most cfg.Workers fetches are outstanding at any time.
func (s *CollectService) resolveAll(ctx context.Context, candidates []domain.Candidate) []resolved {
	workers := s.cfg.Workers
	if len(candidates) < workers {
		workers = len(candidates)
	}

	jobs := make(chan int)
	results := make([]resolved, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = resolved{
					candidate:  candidates[idx],
					resolution: s.resolver.Resolve(ctx, candidates[idx]),
				}
			}
		}()
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// persist applies one gated outcome: accepted links are upserted as
// valid and earn +1 trust for their domain, rejected ones only cost -1
// trust. An existing valid record is never demoted by a rejection.
func (s *CollectService) persist(ctx context.Context, r resolved, accepted bool) error {
	linkDomain := urlnorm.Domain(r.candidate.URL)

	if !accepted {
		return s.trust.Adjust(ctx, linkDomain, -1)
	}

	existing, err := s.links.Get(ctx, r.candidate.URL)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	link := &domain.Link{
		URL:         r.candidate.URL,
		Source:      r.candidate.Source,
		Domain:      linkDomain,
		FirstSeen:   now,
		LastChecked: now,
		FinalURL:    r.resolution.FinalURL,
		FinalDomain: r.resolution.FinalDomain,
		Valid:       true,
		Score:       r.resolution.Score,
		Title:       r.resolution.Title,
	}
	if existing != nil {
		link.FirstSeen = existing.FirstSeen
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.links.Upsert(txCtx, link); err != nil {
			return fmt.Errorf("upsert link: %w", err)
		}
		if err := s.trust.Adjust(txCtx, linkDomain, 1); err != nil {
			return fmt.Errorf("adjust trust: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("stored valid link", "url", link.URL, "final_domain", link.FinalDomain)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, link, existing == nil); err != nil {
			s.logger.Warn("publish failed", "url", link.URL, "error", err)
		}
	}

	return nil
}

// finishCycle records run statistics and runs the expiry sweep.
func (s *CollectService) finishCycle(ctx context.Context, stats *domain.CycleStats, start time.Time, dryRun bool) (*domain.CycleStats, error) {
	stats.Duration = time.Since(start)

	if err := s.runs.Insert(ctx, stats.Checked, stats.Valid, stats.Duration.Seconds()); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	removed, err := s.links.Cleanup(ctx, time.Duration(s.cfg.TTLHours)*time.Hour, dryRun)
	if err != nil {
		return nil, fmt.Errorf("cleanup: %w", err)
	}
	stats.Removed = removed

	s.logger.Info("cycle complete",
		"checked", stats.Checked,
		"valid", stats.Valid,
		"removed", removed,
		"dry_run", dryRun,
		"duration", stats.Duration,
	)

	return stats, nil
}

// Cleanup runs the expiry sweep on its own, outside a cycle.
func (s *CollectService) Cleanup(ctx context.Context, dryRun bool) (int, error) {
	return s.links.Cleanup(ctx, time.Duration(s.cfg.TTLHours)*time.Hour, dryRun)
}

// ValidLinks exposes the current snapshot of accepted links.
func (s *CollectService) ValidLinks(ctx context.Context) ([]domain.Link, error) {
	return s.links.ValidLinks(ctx)
}

// Invalidate marks one stored link invalid without deleting it.
func (s *CollectService) Invalidate(ctx context.Context, url string) error {
	return s.links.Invalidate(ctx, url)
}

// LastRunStats returns the most recent run record, or nil when the
// history is empty.
func (s *CollectService) LastRunStats(ctx context.Context) (*domain.Run, error) {
	return s.runs.Last(ctx)
}

// AllowedDomain reports the configured trusted final domain.
func (s *CollectService) AllowedDomain() string {
	return s.cfg.AllowedDomain
}
