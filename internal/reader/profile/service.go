package profile

import (
	"context"
	"log/slog"

	"github.com/readfolio/api/internal/platform/apperr"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Provision creates the empty profile row for a fresh account. Registration
// calls this in the same flow that creates the account, so every user has a
// profile before their first session.
func (service *Service) Provision(context context.Context, userID string) error {
	if err := service.repo.CreateProfile(context, userID); err != nil {
		return err
	}

	service.logger.Info("profile_provisioned", slog.String("user_id", userID))
	return nil
}

// GetOwn returns the caller's profile.
func (service *Service) GetOwn(context context.Context, userID string) (*Profile, error) {
	return service.repo.GetProfile(context, userID)
}

// Get returns the profile identified by userID, restricted to the owner.
//
// Unlike sessions, profile ids are user ids and therefore not secret, so a
// foreign id is answered with 403 rather than hidden behind a 404.
func (service *Service) Get(context context.Context, userID, callerID string) (*Profile, error) {
	if userID != callerID {
		return nil, apperr.Forbidden("You may only view your own profile")
	}
	return service.repo.GetProfile(context, userID)
}
