package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/types"
)

func TestCreateGoalDefaultsToActive(t *testing.T) {
	repo := &fakeGoalRepo{}
	svc := NewGoalService(testLogger(t), repo)

	goal, err := svc.CreateGoal(context.Background(), uuid.New(), GoalInput{Title: "  Run a marathon  "})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if goal.Title != "Run a marathon" {
		t.Errorf("title not trimmed: %q", goal.Title)
	}
	if goal.Status != types.GoalStatusActive {
		t.Errorf("status = %q, want active", goal.Status)
	}

	if _, err := svc.CreateGoal(context.Background(), uuid.New(), GoalInput{Title: "   "}); err == nil {
		t.Error("empty title accepted")
	}
}

func TestUpdateGoalStatus(t *testing.T) {
	userID := uuid.New()
	goal := &types.Goal{ID: uuid.New(), UserID: userID, Title: "t", Status: types.GoalStatusActive}
	repo := &fakeGoalRepo{goals: []*types.Goal{goal}}
	svc := NewGoalService(testLogger(t), repo)

	updated, err := svc.UpdateStatus(context.Background(), userID, goal.ID, types.GoalStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != types.GoalStatusCompleted {
		t.Errorf("status = %q, want completed", updated.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), userID, goal.ID, "abandoned"); err == nil {
		t.Error("invalid status accepted")
	}
	if _, err := svc.UpdateStatus(context.Background(), userID, uuid.New(), types.GoalStatusPaused); err == nil {
		t.Error("unknown goal accepted")
	}
}

func TestDeleteGoalNotFound(t *testing.T) {
	svc := NewGoalService(testLogger(t), &fakeGoalRepo{})
	if err := svc.DeleteGoal(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Error("deleting a missing goal should fail")
	}
}
