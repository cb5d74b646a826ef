package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/repos"
	"github.com/compasshq/compass-backend/internal/types"
)

// GoalInput carries the user-supplied goal fields.
type GoalInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	TargetDate  *time.Time
}

type GoalService interface {
	CreateGoal(ctx context.Context, userID uuid.UUID, in GoalInput) (*types.Goal, error)
	ListGoals(ctx context.Context, userID uuid.UUID) ([]*types.Goal, error)
	UpdateStatus(ctx context.Context, userID, goalID uuid.UUID, status string) (*types.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error
}

type goalService struct {
	log      *logger.Logger
	goalRepo repos.GoalRepo
}

func NewGoalService(log *logger.Logger, goalRepo repos.GoalRepo) GoalService {
	return &goalService{log: log.With("service", "GoalService"), goalRepo: goalRepo}
}

func (gs *goalService) CreateGoal(ctx context.Context, userID uuid.UUID, in GoalInput) (*types.Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apierr.BadRequest("empty_title", fmt.Errorf("goal title is empty"))
	}
	goal, err := gs.goalRepo.Create(ctx, nil, &types.Goal{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Priority:    strings.TrimSpace(in.Priority),
		Status:      types.GoalStatusActive,
		TargetDate:  in.TargetDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal, nil
}

func (gs *goalService) ListGoals(ctx context.Context, userID uuid.UUID) ([]*types.Goal, error) {
	goals, err := gs.goalRepo.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

func (gs *goalService) UpdateStatus(ctx context.Context, userID, goalID uuid.UUID, status string) (*types.Goal, error) {
	if !types.ValidGoalStatus(status) {
		return nil, apierr.BadRequest("invalid_status", fmt.Errorf("unknown goal status %q", status))
	}
	goal, err := gs.goalRepo.GetByID(ctx, nil, userID, goalID)
	if err != nil {
		return nil, apierr.NotFound("goal_not_found", fmt.Errorf("goal %s not found", goalID))
	}
	if err := gs.goalRepo.UpdateStatus(ctx, nil, goalID, status); err != nil {
		return nil, fmt.Errorf("failed to update goal status: %w", err)
	}
	goal.Status = status
	return goal, nil
}

func (gs *goalService) DeleteGoal(ctx context.Context, userID, goalID uuid.UUID) error {
	n, err := gs.goalRepo.DeleteByID(ctx, nil, userID, goalID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if n == 0 {
		return apierr.NotFound("goal_not_found", fmt.Errorf("goal %s not found", goalID))
	}
	return nil
}
