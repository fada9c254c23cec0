package service

import (
	"context"
	"fmt"

	"evently/internal/models"
)

// AnalyticsService reports booking aggregates for the admin surface.
type AnalyticsService struct {
	analytics AnalyticsStore
}

func NewAnalyticsService(analytics AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{analytics: analytics}
}

func (s *AnalyticsService) Overview(ctx context.Context) (*models.AnalyticsOverview, error) {
	overview, err := s.analytics.Overview(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics overview: %w", err)
	}
	return overview, nil
}

func (s *AnalyticsService) EventStats(ctx context.Context, eventID int64) (*models.EventAnalytics, error) {
	stats, err := s.analytics.EventStats(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
