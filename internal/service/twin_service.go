package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evermirror/twinhub/internal/models"
	"github.com/evermirror/twinhub/internal/repository"
)

// TwinService is the read/review surface over the twin registry. Twin
// creation itself happens only on the webhook path.
type TwinService struct {
	log   *slog.Logger
	twins *repository.TwinRepository
}

func NewTwinService(log *slog.Logger, twins *repository.TwinRepository) *TwinService {
	return &TwinService{log: log, twins: twins}
}

func (s *TwinService) Get(ctx context.Context, id int64) (*models.Twin, error) {
	return s.twins.FindByID(ctx, id)
}

func (s *TwinService) GetByCreator(ctx context.Context, userID int64) (*models.Twin, error) {
	return s.twins.FindByCreator(ctx, userID)
}

// ReviewAvatar resolves the avatar lifecycle from the admin side: the
// externally rendered avatar is either accepted or rejected.
func (s *TwinService) ReviewAvatar(ctx context.Context, id int64, decision string) (*models.Twin, error) {
	var status models.AvatarStatus
	switch models.AvatarStatus(strings.ToUpper(strings.TrimSpace(decision))) {
	case models.AvatarActive:
		status = models.AvatarActive
	case models.AvatarRejected:
		status = models.AvatarRejected
	default:
		return nil, fmt.Errorf("avatar decision must be ACTIVE or REJECTED")
	}

	twin, err := s.twins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if twin == nil {
		return nil, fmt.Errorf("twin %d not found", id)
	}

	if err := s.twins.SetAvatarStatus(ctx, id, status); err != nil {
		return nil, err
	}
	twin.AvatarStatus = status
	s.log.Info("twin avatar reviewed", "twin_id", id, "status", status)
	return twin, nil
}
