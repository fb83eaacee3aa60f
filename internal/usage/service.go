package usage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const cacheKeyUsage = "usage:%s:%s"

// CacheService caches usage summaries so repeated reads don't hit the
// aggregation query.
type CacheService interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service accumulates per-user activity counters in memory and flushes
// them to the daily usage table. Recording never blocks a frame: the
// upserts happen on the flush worker's schedule, not on the hot path.
type Service struct {
	repo  *Repository
	cache CacheService

	mu      sync.Mutex
	pending map[string]*Counts
}

func NewService(repo *Repository, cache CacheService) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		pending: make(map[string]*Counts),
	}
}

// RecordSessionStarted counts one session start for the user.
func (s *Service) RecordSessionStarted(userID string) {
	s.record(userID, func(c *Counts) { c.SessionsStarted++ })
}

// RecordFrame counts one processed frame for the user.
func (s *Service) RecordFrame(userID string) {
	s.record(userID, func(c *Counts) { c.FramesProcessed++ })
}

// RecordOutcome counts one finished verification for the user.
func (s *Service) RecordOutcome(userID string, verified bool) {
	s.record(userID, func(c *Counts) {
		if verified {
			c.VerificationsSucceeded++
		} else {
			c.VerificationsFailed++
		}
	})
}

func (s *Service) record(userID string, apply func(*Counts)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.pending[userID]
	if !ok {
		c = &Counts{}
		s.pending[userID] = c
	}
	apply(c)
}

// Flush writes all pending counters to the daily usage table. Counters
// that fail to flush are restored so the next flush retries them.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]*Counts)
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	var firstErr error
	for userID, counts := range batch {
		if counts.IsZero() {
			continue
		}
		if err := s.repo.AddCounts(ctx, userID, today, *counts); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.restore(userID, *counts)
		}
	}

	return firstErr
}

func (s *Service) restore(userID string, counts Counts) {
	s.record(userID, func(c *Counts) {
		c.SessionsStarted += counts.SessionsStarted
		c.FramesProcessed += counts.FramesProcessed
		c.VerificationsSucceeded += counts.VerificationsSucceeded
		c.VerificationsFailed += counts.VerificationsFailed
	})
}

// PendingUsers returns how many users have unflushed counters.
func (s *Service) PendingUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// GetCurrentUsage returns the user's usage for the current month.
func (s *Service) GetCurrentUsage(ctx context.Context, userID string) (*UsageSummary, error) {
	now := time.Now().UTC()
	period := now.Format("2006-01")

	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)

	return s.getUsageForPeriod(ctx, userID, period, startDate, endDate)
}

// GetUsageForPeriod returns the user's usage for a YYYY-MM period.
func (s *Service) GetUsageForPeriod(ctx context.Context, userID, period string) (*UsageSummary, error) {
	parsedTime, err := time.Parse("2006-01", period)
	if err != nil {
		return nil, fmt.Errorf("invalid period format, use YYYY-MM: %w", err)
	}

	startDate := time.Date(parsedTime.Year(), parsedTime.Month(), 1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(parsedTime.Year(), parsedTime.Month()+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)

	return s.getUsageForPeriod(ctx, userID, period, startDate, endDate)
}

func (s *Service) getUsageForPeriod(ctx context.Context, userID, period string, startDate, endDate time.Time) (*UsageSummary, error) {
	cacheKey := fmt.Sprintf(cacheKeyUsage, userID, period)
	if s.cache != nil {
		var cached UsageSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	record, err := s.repo.AggregatePeriod(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("user %s: aggregate usage: %w", userID, err)
	}

	summary := calculateSummary(userID, period, record)

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, summary, 5*time.Minute)
	}

	return summary, nil
}

func calculateSummary(userID, period string, record *UsageRecord) *UsageSummary {
	summary := &UsageSummary{
		UserID:                 userID,
		Period:                 period,
		SessionsStarted:        record.SessionsStarted,
		FramesProcessed:        record.FramesProcessed,
		VerificationsSucceeded: record.VerificationsSucceeded,
		VerificationsFailed:    record.VerificationsFailed,
	}

	total := record.VerificationsSucceeded + record.VerificationsFailed
	if total > 0 {
		summary.SuccessRate = float64(record.VerificationsSucceeded) / float64(total)
	}

	return summary
}
