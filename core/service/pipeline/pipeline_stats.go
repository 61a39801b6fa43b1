package pipeline

import (
	"context"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const statsTTL = 30 * time.Second

// timeframes maps the accepted timeframe names to their window size.
var timeframes = map[string]time.Duration{
	"1h":  time.Hour,
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// StatsService serves per-tenant processing statistics with a short
// cache in front of the aggregation queries.
type StatsService struct {
	repo  out.StatsRepository
	cache out.StatsCache
	log   zerolog.Logger
	now   func() time.Time
}

// NewStatsService creates a stats service. cache may be nil.
func NewStatsService(repo out.StatsRepository, cache out.StatsCache, log zerolog.Logger) *StatsService {
	return &StatsService{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "stats").Logger(),
		now:   time.Now,
	}
}

// GetStats returns aggregated counts for the tenant over the given
// timeframe ("1h", "24h", "7d", "30d").
func (s *StatsService) GetStats(ctx context.Context, tenantID uuid.UUID, timeframe string) (*domain.PipelineStats, error) {
	window, ok := timeframes[timeframe]
	if !ok {
		return nil, apperr.ValidationFailed("unknown timeframe: " + timeframe)
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetStats(ctx, tenantID, timeframe); ok {
			return cached, nil
		}
	}

	stats, err := s.repo.Aggregate(ctx, tenantID, s.now().Add(-window))
	if err != nil {
		return nil, apperr.DatabaseError("stats aggregation", err)
	}
	stats.TenantID = tenantID
	stats.Timeframe = timeframe
	stats.GeneratedAt = s.now()

	if s.cache != nil {
		s.cache.SetStats(ctx, tenantID, timeframe, stats, statsTTL)
	}
	return stats, nil
}
