package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/stretchr/testify/suite"

	"reward_collector/internal/config"
	"reward_collector/internal/domain"
	"reward_collector/internal/service/mocks"
)

type CollectServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	extractor *mocks.MockExtractor
	resolver  *mocks.MockResolver
	links     *mocks.MockLinkStore
	trust     *mocks.MockTrustStore
	runs      *mocks.MockRunStore
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher

	service *CollectService
	cfg     config.CollectConfig
	ttl     time.Duration
}

func (s *CollectServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.links = mocks.NewMockLinkStore(s.ctrl)
	s.trust = mocks.NewMockTrustStore(s.ctrl)
	s.runs = mocks.NewMockRunStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.CollectConfig{
		Workers:        8,
		AllowedDomain:  "static.moonactive.net",
		ScoreThreshold: 4,
		TTLHours:       72,
	}
	s.ttl = 72 * time.Hour

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewCollectService(
		s.extractor,
		s.resolver,
		s.links,
		s.trust,
		s.runs,
		s.txManager,
		s.publisher,
		logger,
		s.cfg,
	)
}

func (s *CollectServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestCollectServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CollectServiceTestSuite))
}

// passthroughTx makes WithTransaction run its callback directly.
func (s *CollectServiceTestSuite) passthroughTx() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
}

func (s *CollectServiceTestSuite) TestRunCycle_AcceptedLink() {
	ctx := context.Background()

	candidate := domain.Candidate{
		URL:        "https://rewards.example.com/r",
		Source:     "TechGameWorld",
		AnchorText: "Free Spin",
	}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved:    true,
		Status:      200,
		FinalURL:    "https://static.moonactive.net/spin",
		FinalDomain: "static.moonactive.net",
		Title:       "Coin Master Free Spins",
		Score:       5,
	})

	s.passthroughTx()
	s.links.EXPECT().Get(ctx, candidate.URL).Return(nil, nil)
	s.links.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, link *domain.Link) error {
			s.Equal(candidate.URL, link.URL)
			s.Equal("TechGameWorld", link.Source)
			s.Equal("rewards.example.com", link.Domain)
			s.True(link.Valid)
			s.GreaterOrEqual(link.Score, s.cfg.ScoreThreshold)
			s.Equal("Coin Master Free Spins", link.Title)
			return nil
		},
	)
	s.trust.EXPECT().Adjust(gomock.Any(), "rewards.example.com", 1).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(nil)

	s.runs.EXPECT().Insert(ctx, 1, 1, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	stats, err := s.service.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(1, stats.Checked)
	s.Equal(1, stats.Valid)
}

func (s *CollectServiceTestSuite) TestRunCycle_WrongFinalDomainRejected() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved:    true,
		Status:      200,
		FinalURL:    "https://ads.example.com/landing",
		FinalDomain: "ads.example.com",
		Score:       5,
	})

	// rejected: trust is debited, nothing is upserted as valid
	s.trust.EXPECT().Adjust(ctx, "rewards.example.com", -1).Return(nil)

	s.runs.EXPECT().Insert(ctx, 1, 0, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	stats, err := s.service.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(1, stats.Checked)
	s.Equal(0, stats.Valid)
}

func (s *CollectServiceTestSuite) TestRunCycle_UnresolvedCandidateDoesNotAbortBatch() {
	ctx := context.Background()

	dead := domain.Candidate{URL: "https://dead.example.com/x", Source: "S"}
	live := domain.Candidate{URL: "https://rewards.example.com/ok", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{dead, live})

	s.resolver.EXPECT().Resolve(gomock.Any(), dead).Return(domain.Resolution{
		Resolved: false, FinalURL: dead.URL, FinalDomain: "dead.example.com",
	})
	s.resolver.EXPECT().Resolve(gomock.Any(), live).Return(domain.Resolution{
		Resolved: true, Status: 200, FinalURL: "https://static.moonactive.net/s",
		FinalDomain: "static.moonactive.net", Score: 5,
	})

	s.passthroughTx()
	s.trust.EXPECT().Adjust(ctx, "dead.example.com", -1).Return(nil)
	s.links.EXPECT().Get(ctx, live.URL).Return(nil, nil)
	s.links.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)
	s.trust.EXPECT().Adjust(gomock.Any(), "rewards.example.com", 1).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(nil)

	s.runs.EXPECT().Insert(ctx, 2, 1, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	stats, err := s.service.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(2, stats.Checked)
	s.Equal(1, stats.Valid)
}

func (s *CollectServiceTestSuite) TestRunCycle_EmptyExtraction() {
	ctx := context.Background()

	s.extractor.EXPECT().Extract(ctx).Return(nil)
	s.runs.EXPECT().Insert(ctx, 0, 0, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	stats, err := s.service.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(0, stats.Checked)
	s.Equal(0, stats.Valid)
}

func (s *CollectServiceTestSuite) TestRunCycle_DryRunPersistsNothing() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved: true, Status: 200, FinalURL: "https://static.moonactive.net/s",
		FinalDomain: "static.moonactive.net", Score: 5,
	})

	// no Upsert, no Adjust, no Publish expectations: any call would fail
	s.runs.EXPECT().Insert(ctx, 1, 1, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, true).Return(3, nil)

	stats, err := s.service.RunCycle(ctx, true)

	s.NoError(err)
	s.Equal(1, stats.Valid)
	s.Equal(3, stats.Removed)
}

func (s *CollectServiceTestSuite) TestRunCycle_TrustAccounting() {
	ctx := context.Background()

	var candidates []domain.Candidate
	for i := 0; i < 3; i++ {
		candidates = append(candidates, domain.Candidate{
			URL:    "https://spam.example.com/" + string(rune('a'+i)),
			Source: "S",
		})
	}

	s.extractor.EXPECT().Extract(ctx).Return(candidates)
	s.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(domain.Resolution{
		Resolved: false,
	}).Times(3)

	// three rejections debit the domain exactly three times
	s.trust.EXPECT().Adjust(ctx, "spam.example.com", -1).Return(nil).Times(3)

	s.runs.EXPECT().Insert(ctx, 3, 0, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	_, err := s.service.RunCycle(ctx, false)
	s.NoError(err)
}

func (s *CollectServiceTestSuite) TestRunCycle_StoreFailureAbortsCycle() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved: true, Status: 200, FinalDomain: "static.moonactive.net", Score: 5,
	})

	s.links.EXPECT().Get(ctx, candidate.URL).Return(nil, nil)
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	// no run record, no cleanup: the cycle aborts
	_, err := s.service.RunCycle(ctx, false)

	s.Error(err)
	s.Contains(err.Error(), "disk full")
}

func (s *CollectServiceTestSuite) TestRunCycle_RejectionDoesNotDemoteExistingRecord() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved: false, FinalURL: candidate.URL, FinalDomain: "rewards.example.com",
	})

	// only trust is touched; Upsert and Invalidate stay unexpected
	s.trust.EXPECT().Adjust(ctx, "rewards.example.com", -1).Return(nil)

	s.runs.EXPECT().Insert(ctx, 1, 0, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	_, err := s.service.RunCycle(ctx, false)
	s.NoError(err)
}

func (s *CollectServiceTestSuite) TestRunCycle_PreservesFirstSeenOnRecheck() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}
	firstSeen := time.Now().UTC().Add(-24 * time.Hour)

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved: true, Status: 200, FinalDomain: "static.moonactive.net", Score: 5,
	})

	s.passthroughTx()
	s.links.EXPECT().Get(ctx, candidate.URL).Return(&domain.Link{
		URL:       candidate.URL,
		FirstSeen: firstSeen,
	}, nil)
	s.links.EXPECT().Upsert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, link *domain.Link) error {
			s.Equal(firstSeen, link.FirstSeen)
			s.True(link.LastChecked.After(firstSeen))
			return nil
		},
	)
	s.trust.EXPECT().Adjust(gomock.Any(), "rewards.example.com", 1).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any(), false).Return(nil)

	s.runs.EXPECT().Insert(ctx, 1, 1, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	_, err := s.service.RunCycle(ctx, false)
	s.NoError(err)
}

func (s *CollectServiceTestSuite) TestRunCycle_PublishFailureIsNotFatal() {
	ctx := context.Background()

	candidate := domain.Candidate{URL: "https://rewards.example.com/r", Source: "S"}

	s.extractor.EXPECT().Extract(ctx).Return([]domain.Candidate{candidate})
	s.resolver.EXPECT().Resolve(gomock.Any(), candidate).Return(domain.Resolution{
		Resolved: true, Status: 200, FinalDomain: "static.moonactive.net", Score: 5,
	})

	s.passthroughTx()
	s.links.EXPECT().Get(ctx, candidate.URL).Return(nil, nil)
	s.links.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)
	s.trust.EXPECT().Adjust(gomock.Any(), "rewards.example.com", 1).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any(), true).Return(errors.New("broker down"))

	s.runs.EXPECT().Insert(ctx, 1, 1, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	stats, err := s.service.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(1, stats.Valid)
}

// trackingResolver counts concurrent Resolve calls to verify the pool
// bound.
type trackingResolver struct {
	mu        sync.Mutex
	current   int32
	maxSeen   int32
	callCount atomic.Int32
}

func (r *trackingResolver) Resolve(ctx context.Context, c domain.Candidate) domain.Resolution {
	r.mu.Lock()
	r.current++
	if r.current > r.maxSeen {
		r.maxSeen = r.current
	}
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	r.callCount.Add(1)

	r.mu.Lock()
	r.current--
	r.mu.Unlock()

	return domain.Resolution{Resolved: false, FinalURL: c.URL}
}

func (s *CollectServiceTestSuite) TestRunCycle_BoundedConcurrency() {
	ctx := context.Background()

	tracker := &trackingResolver{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewCollectService(
		s.extractor, tracker, s.links, s.trust, s.runs, s.txManager, nil, logger, s.cfg,
	)

	var candidates []domain.Candidate
	for i := 0; i < 50; i++ {
		candidates = append(candidates, domain.Candidate{
			URL:    fmt.Sprintf("https://x.example.com/%d", i),
			Source: "S",
		})
	}

	s.extractor.EXPECT().Extract(ctx).Return(candidates)
	s.trust.EXPECT().Adjust(ctx, "x.example.com", -1).Return(nil).Times(50)
	s.runs.EXPECT().Insert(ctx, 50, 0, gomock.Any()).Return(nil)
	s.links.EXPECT().Cleanup(ctx, s.ttl, false).Return(0, nil)

	_, err := svc.RunCycle(ctx, false)

	s.NoError(err)
	s.Equal(int32(50), tracker.callCount.Load())
	s.LessOrEqual(tracker.maxSeen, int32(s.cfg.Workers),
		"no more than the pool width may resolve concurrently")
}
