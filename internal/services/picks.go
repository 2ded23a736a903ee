package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/cache"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// EventSource supplies the upcoming events to score for a serving cycle.
type EventSource interface {
	UpcomingEvents(ctx context.Context) ([]models.Event, error)
}

// PicksService is the serving path: score the upcoming slate, allocate across
// tiers and cache the allocation per serving cycle. A cache hit skips the
// rescoring entirely.
type PicksService struct {
	events    EventSource
	scorer    *ScoringEngine
	allocator *TierAllocator
	cache     *cache.RedisPicksCache
	logger    *logrus.Logger
}

// NewPicksService creates the serving path. cache may be nil; the path then
// allocates live on every request.
func NewPicksService(events EventSource, scorer *ScoringEngine, allocator *TierAllocator, picksCache *cache.RedisPicksCache, logger *logrus.Logger) *PicksService {
	return &PicksService{
		events:    events,
		scorer:    scorer,
		allocator: allocator,
		cache:     picksCache,
		logger:    logger,
	}
}

// servingCycle keys the cache by UTC hour. The slate changes slowly; an
// hourly allocation is fresh enough for tier delivery.
func servingCycle(now time.Time) string {
	return now.UTC().Format("2006-01-02T15")
}

// GetPicks returns the tier allocation for the current serving cycle, from
// cache when possible.
func (s *PicksService) GetPicks(ctx context.Context) (*models.PicksResponse, error) {
	cycle := servingCycle(time.Now())

	if s.cache != nil {
		if allocation, ok := s.cache.Get(ctx, cycle); ok {
			return response(allocation, "cache"), nil
		}
	}

	events, err := s.events.UpcomingEvents(ctx)
	if err != nil {
		return nil, utils.NewUpstreamDataErrorf("events", "failed to load upcoming events: %v", err)
	}

	predictions := make([]models.Prediction, 0, len(events))
	for _, event := range events {
		prediction, err := s.scorer.Score(event)
		if err != nil {
			s.logger.WithError(err).WithField("event_id", event.ID).Warn("Skipping unscorable upcoming event")
			continue
		}
		predictions = append(predictions, prediction)
	}

	allocation := s.allocator.Allocate(predictions)

	if s.cache != nil {
		s.cache.Set(ctx, cycle, &allocation)
	}

	s.logger.WithFields(logrus.Fields{
		"cycle":  cycle,
		"events": len(events),
		"picks":  allocation.Total(),
	}).Info("Serving cycle allocated")

	return response(&allocation, "live"), nil
}

func response(allocation *models.TierAllocation, source string) *models.PicksResponse {
	return &models.PicksResponse{
		Elite:     allocation.Elite,
		Premium:   allocation.Premium,
		Free:      allocation.Free,
		Total:     allocation.Total(),
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}
