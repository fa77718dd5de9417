package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/advocacia-ai/painel/internal/cache"
	"github.com/advocacia-ai/painel/internal/model"
)

// DashboardService serves the principal's pipeline statistics.
type DashboardService struct {
	repo   StatsStore
	cache  StatsCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewDashboardService creates a new DashboardService. cache may be nil, and a
// non-positive ttl disables caching.
func NewDashboardService(repo StatsStore, statsCache StatsCache, ttl time.Duration, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		cache:  statsCache,
		ttl:    ttl,
		logger: logger.With("component", "service.dashboard"),
	}
}

// Stats returns p's dashboard counters, from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context, p model.Principal) (*model.DashboardStats, error) {
	useCache := s.cache != nil && s.ttl > 0

	if useCache {
		stats, err := s.cache.GetStats(ctx, p.ID)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "stats cache read failed", "owner_id", p.ID, "error", err)
		}
	}

	stats, err := s.repo.LeadStats(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	if useCache {
		if err := s.cache.SetStats(ctx, p.ID, stats, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "stats cache write failed", "owner_id", p.ID, "error", err)
		}
	}
	return stats, nil
}
