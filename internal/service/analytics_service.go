package service

import (
	"context"

	"github.com/spec-kit/ticket-portal/internal/domain"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// DateOrderPrompt is shown when a date range ends before it starts.
const DateOrderPrompt = "The end date must not be before the start date."

func checkDates(dates domain.DateRange) error {
	if !dates.Ordered() {
		return apperrors.NewValidationError(DateOrderPrompt, nil)
	}
	return nil
}

// AnalyticsService serves the staff dashboard.
type AnalyticsService struct {
	dispatcher
}

// NewAnalyticsService builds the service.
func NewAnalyticsService(deps Dependencies) *AnalyticsService {
	return &AnalyticsService{dispatcher: newDispatcher(deps)}
}

// Dashboard fetches metrics and graph links for dates. Staff only.
func (s *AnalyticsService) Dashboard(ctx context.Context, dates domain.DateRange) (*domain.Dashboard, error) {
	const action = "dashboard"
	identity, err := s.identity()
	if err != nil {
		return nil, s.reject(action, err)
	}
	if !identity.IsStaff() {
		return nil, s.reject(action, apperrors.NewForbidden("Only staff can view analytics."))
	}
	if err := checkDates(dates); err != nil {
		return nil, s.reject(action, err)
	}

	dashboard, err := s.api.Dashboard(ctx, identity.AccessToken, dates)
	if err != nil {
		return nil, s.fail(ctx, action, identity.AccessToken, err, "Could not load analytics. Please try again.")
	}
	s.ok(action)
	return dashboard, nil
}
