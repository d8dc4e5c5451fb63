package service

import (
	"context"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// ProfileService exposes the ride counters maintained by the sweeper.
type ProfileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// GetStats retrieves the caller's completed ride counters.
func (s *ProfileService) GetStats(ctx context.Context, caller domain.Identity) (*domain.RideStats, error) {
	if caller.UserID == "" {
		return nil, ErrNotOwner
	}
	return s.profileRepo.GetStats(ctx, caller.UserID)
}
