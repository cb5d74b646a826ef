package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
)

type GoalHandler struct {
	log  *logger.Logger
	goal services.GoalService
}

func NewGoalHandler(log *logger.Logger, goal services.GoalService) *GoalHandler {
	return &GoalHandler{log: log.With("handler", "GoalHandler"), goal: goal}
}

type createGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	TargetDate  string `json:"target_date"` // YYYY-MM-DD
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	in := services.GoalInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	}
	if req.TargetDate != "" {
		t, err := time.Parse("2006-01-02", req.TargetDate)
		if err != nil {
			RespondError(c, h.log, apierr.BadRequest("invalid_target_date", fmt.Errorf("target_date must be YYYY-MM-DD")))
			return
		}
		in.TargetDate = &t
	}
	goal, err := h.goal.CreateGoal(c.Request.Context(), uid, in)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, goal)
}

func (h *GoalHandler) ListGoals(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	goals, err := h.goal.ListGoals(c.Request.Context(), uid)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"goals": goals})
}

type updateGoalStatusRequest struct {
	Status string `json:"status"`
}

func (h *GoalHandler) UpdateStatus(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_goal_id", fmt.Errorf("invalid goal id: %w", err)))
		return
	}
	var req updateGoalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	goal, err := h.goal.UpdateStatus(c.Request.Context(), uid, goalID, req.Status)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, goal)
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	uid, err := userID(c)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_goal_id", fmt.Errorf("invalid goal id: %w", err)))
		return
	}
	if err := h.goal.DeleteGoal(c.Request.Context(), uid, goalID); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
